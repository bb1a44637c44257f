package security

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestAlerter(t *testing.T) *AuditAlerter {
	t.Helper()
	mr := miniredis.RunT(t)
	alerter := NewAuditAlerter(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "test:alerts")
	if alerter == nil {
		t.Fatalf("expected alerter")
	}
	return alerter
}

func TestAuditAlerterObserveTriggersOnce(t *testing.T) {
	alerter := newTestAlerter(t)
	ctx := context.Background()
	triggers := 0
	for i := 0; i < 12; i++ {
		result, err := alerter.Observe(ctx, "auth.login", "fail", "127.0.0.1")
		if err != nil {
			t.Fatalf("observe: %v", err)
		}
		if result.Triggered {
			triggers++
			if result.Count != 10 {
				t.Fatalf("expected trigger at threshold, got count %d", result.Count)
			}
		}
	}
	if triggers != 1 {
		t.Fatalf("expected exactly one trigger, got %d", triggers)
	}
}

func TestAuditAlerterObserveIgnoresUnknownRule(t *testing.T) {
	alerter := newTestAlerter(t)
	result, err := alerter.Observe(context.Background(), "auth.custom", "success", "127.0.0.1")
	if err != nil {
		t.Fatalf("observe: %v", err)
	}
	if result.Triggered || result.Count != 0 {
		t.Fatalf("unexpected result for unknown rule: %+v", result)
	}
}

func TestNilAlerterIsNoop(t *testing.T) {
	alerter := NewAuditAlerter(nil, "")
	if _, err := alerter.Observe(context.Background(), "auth.login", "fail", "ip"); err != nil {
		t.Fatalf("nil alerter should not error: %v", err)
	}
}
