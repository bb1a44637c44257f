package app

import (
	"context"
	"strings"

	"svnglobal/internal/util"
	"svnglobal/pkg/domain"
	"svnglobal/pkg/store"
)

// ProductFilter narrows product listings.
type ProductFilter struct {
	Category string
}

// TestReportFilter narrows test report listings. Query matches title or
// description.
type TestReportFilter struct {
	Category string
	Query    string
}

// ListPublicProducts returns active products, newest first.
func (a *App) ListPublicProducts(ctx context.Context, f ProductFilter) ([]domain.Product, error) {
	if err := a.requireStore(); err != nil {
		return nil, err
	}
	return a.store.ListProducts(ctx, store.ProductQuery{ActiveOnly: true, Category: strings.TrimSpace(f.Category)})
}

// GetPublicProduct returns an active product. Inactive rows are reported
// as not found.
func (a *App) GetPublicProduct(ctx context.Context, id string) (domain.Product, error) {
	p, err := a.GetProduct(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	if !p.IsActive {
		return domain.Product{}, ErrNotFound
	}
	return p, nil
}

// ListAllProducts returns every product including inactive ones.
func (a *App) ListAllProducts(ctx context.Context, f ProductFilter) ([]domain.Product, error) {
	if err := a.requireStore(); err != nil {
		return nil, err
	}
	return a.store.ListProducts(ctx, store.ProductQuery{Category: strings.TrimSpace(f.Category)})
}

func (a *App) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	if err := a.requireStore(); err != nil {
		return domain.Product{}, err
	}
	p, ok, err := a.store.GetProduct(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Product{}, err
	}
	if !ok {
		return domain.Product{}, ErrNotFound
	}
	return p, nil
}

// CreateProduct inserts a product. New products are active unless the input
// says otherwise.
func (a *App) CreateProduct(ctx context.Context, in domain.ProductInput) (domain.Product, error) {
	if err := a.requireStore(); err != nil {
		return domain.Product{}, err
	}
	p, err := applyProductInput(domain.Product{IsActive: true}, in)
	if err != nil {
		return domain.Product{}, err
	}
	p.ID = util.NewID()
	p.CreatedAt = a.now()
	if err := a.store.SaveProduct(ctx, p); err != nil {
		return domain.Product{}, err
	}
	return p, nil
}

// UpdateProduct replaces the editable fields of an existing product.
// Omitted is_active keeps the stored value.
func (a *App) UpdateProduct(ctx context.Context, id string, in domain.ProductInput) (domain.Product, error) {
	existing, err := a.GetProduct(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	p, err := applyProductInput(existing, in)
	if err != nil {
		return domain.Product{}, err
	}
	if err := a.store.SaveProduct(ctx, p); err != nil {
		return domain.Product{}, err
	}
	return p, nil
}

// DeleteProduct removes a product. Deleting a missing id succeeds.
func (a *App) DeleteProduct(ctx context.Context, id string) error {
	if err := a.requireStore(); err != nil {
		return err
	}
	return a.store.DeleteProduct(ctx, strings.TrimSpace(id))
}

func applyProductInput(p domain.Product, in domain.ProductInput) (domain.Product, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.Product{}, invalid("Product name is required")
	}
	p.Name = name
	p.Description = trimOptional(in.Description)
	p.ImageURL = trimOptional(in.ImageURL)
	p.Category = trimOptional(in.Category)
	p.IsActive = boolOr(in.IsActive, p.IsActive)
	p.Features = cleanList(in.Features)
	p.Applications = cleanList(in.Applications)
	return p, nil
}

// ListPublicTestReports returns public reports, newest first.
func (a *App) ListPublicTestReports(ctx context.Context, f TestReportFilter) ([]domain.TestReport, error) {
	if err := a.requireStore(); err != nil {
		return nil, err
	}
	return a.store.ListTestReports(ctx, store.TestReportQuery{
		PublicOnly: true,
		Category:   strings.TrimSpace(f.Category),
		Search:     strings.TrimSpace(f.Query),
	})
}

func (a *App) ListAllTestReports(ctx context.Context, f TestReportFilter) ([]domain.TestReport, error) {
	if err := a.requireStore(); err != nil {
		return nil, err
	}
	return a.store.ListTestReports(ctx, store.TestReportQuery{
		Category: strings.TrimSpace(f.Category),
		Search:   strings.TrimSpace(f.Query),
	})
}

func (a *App) GetTestReport(ctx context.Context, id string) (domain.TestReport, error) {
	if err := a.requireStore(); err != nil {
		return domain.TestReport{}, err
	}
	r, ok, err := a.store.GetTestReport(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.TestReport{}, err
	}
	if !ok {
		return domain.TestReport{}, ErrNotFound
	}
	return r, nil
}

// GetPublicTestReport returns a report only while it is public.
func (a *App) GetPublicTestReport(ctx context.Context, id string) (domain.TestReport, error) {
	r, err := a.GetTestReport(ctx, id)
	if err != nil {
		return domain.TestReport{}, err
	}
	if !r.IsPublic {
		return domain.TestReport{}, ErrNotFound
	}
	return r, nil
}

func (a *App) CreateTestReport(ctx context.Context, in domain.TestReportInput) (domain.TestReport, error) {
	if err := a.requireStore(); err != nil {
		return domain.TestReport{}, err
	}
	r, err := applyTestReportInput(domain.TestReport{IsPublic: true}, in)
	if err != nil {
		return domain.TestReport{}, err
	}
	r.ID = util.NewID()
	r.CreatedAt = a.now()
	if err := a.store.SaveTestReport(ctx, r); err != nil {
		return domain.TestReport{}, err
	}
	return r, nil
}

func (a *App) UpdateTestReport(ctx context.Context, id string, in domain.TestReportInput) (domain.TestReport, error) {
	existing, err := a.GetTestReport(ctx, id)
	if err != nil {
		return domain.TestReport{}, err
	}
	r, err := applyTestReportInput(existing, in)
	if err != nil {
		return domain.TestReport{}, err
	}
	if err := a.store.SaveTestReport(ctx, r); err != nil {
		return domain.TestReport{}, err
	}
	return r, nil
}

func (a *App) DeleteTestReport(ctx context.Context, id string) error {
	if err := a.requireStore(); err != nil {
		return err
	}
	return a.store.DeleteTestReport(ctx, strings.TrimSpace(id))
}

func applyTestReportInput(r domain.TestReport, in domain.TestReportInput) (domain.TestReport, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return domain.TestReport{}, invalid("Report title is required")
	}
	r.Title = title
	r.Description = trimOptional(in.Description)
	r.FileURL = trimOptional(in.FileURL)
	r.Category = trimOptional(in.Category)
	r.IsPublic = boolOr(in.IsPublic, r.IsPublic)
	r.Certifications = cleanList(in.Certifications)
	r.Parameters = cleanList(in.Parameters)
	return r, nil
}
