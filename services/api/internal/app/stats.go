package app

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"svnglobal/pkg/domain"
)

// Stats counts the catalog tables concurrently. A failed count is reported
// as zero and named in Failed; it does not fail the call unless ctx itself
// was cancelled.
func (a *App) Stats(ctx context.Context) (domain.Stats, error) {
	if err := a.requireStore(); err != nil {
		return domain.Stats{}, err
	}
	var (
		stats domain.Stats
		mu    sync.Mutex
		g     errgroup.Group
	)
	count := func(table string, dst *int64, fn func(context.Context) (int64, error)) {
		g.Go(func() error {
			n, err := fn(ctx)
			mu.Lock()
			defer mu.Unlock()
			if err != nil && ctx.Err() != nil {
				return ctx.Err()
			}
			if err != nil {
				slog.WarnContext(ctx, "stats count failed", "table", table, "err", err)
				stats.Failed = append(stats.Failed, table)
				return nil
			}
			*dst = n
			return nil
		})
	}
	count("products", &stats.Products, a.store.CountProducts)
	count("test_reports", &stats.TestReports, a.store.CountTestReports)
	count("contact_inquiries", &stats.Inquiries, a.store.CountInquiries)
	if err := g.Wait(); err != nil {
		return domain.Stats{}, err
	}
	sort.Strings(stats.Failed)
	return stats, nil
}
