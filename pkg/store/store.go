package store

import (
	"context"

	"svnglobal/pkg/domain"
)

// Store defines persistence operations for the catalog tables.
type Store interface {
	// products
	SaveProduct(ctx context.Context, p domain.Product) error
	GetProduct(ctx context.Context, id string) (domain.Product, bool, error)
	ListProducts(ctx context.Context, q ProductQuery) ([]domain.Product, error)
	DeleteProduct(ctx context.Context, id string) error
	CountProducts(ctx context.Context) (int64, error)

	// test reports
	SaveTestReport(ctx context.Context, r domain.TestReport) error
	GetTestReport(ctx context.Context, id string) (domain.TestReport, bool, error)
	ListTestReports(ctx context.Context, q TestReportQuery) ([]domain.TestReport, error)
	DeleteTestReport(ctx context.Context, id string) error
	CountTestReports(ctx context.Context) (int64, error)

	// contact inquiries
	SaveInquiry(ctx context.Context, inq domain.ContactInquiry) error
	ListInquiries(ctx context.Context, q InquiryQuery) ([]domain.ContactInquiry, error)
	SetInquiryRead(ctx context.Context, id string, read bool) (bool, error)
	DeleteInquiry(ctx context.Context, id string) error
	CountInquiries(ctx context.Context) (int64, error)

	// roles
	SaveRole(ctx context.Context, role domain.UserRole) error
	ListRoles(ctx context.Context, userID string) ([]domain.Role, error)
	// AssignFirstAdmin grants the admin role to userID only while no admin
	// row exists. It reports whether the grant happened.
	AssignFirstAdmin(ctx context.Context, userID string) (bool, error)
}

// ProductQuery filters product listings. Results are newest first.
type ProductQuery struct {
	ActiveOnly bool
	Category   string
}

// TestReportQuery filters test report listings. Search matches title or
// description case-insensitively.
type TestReportQuery struct {
	PublicOnly bool
	Category   string
	Search     string
}

type InquiryQuery struct {
	UnreadOnly bool
}
