package domain

import "time"

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User is an account held by the hosted auth service.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at,omitzero"`
}

type Product struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  *string   `json:"description"`
	ImageURL     *string   `json:"image_url"`
	Category     *string   `json:"category"`
	IsActive     bool      `json:"is_active"`
	Features     []string  `json:"features,omitempty"`
	Applications []string  `json:"applications,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type TestReport struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Description    *string   `json:"description"`
	FileURL        *string   `json:"file_url"`
	Category       *string   `json:"category"`
	IsPublic       bool      `json:"is_public"`
	Certifications []string  `json:"certifications,omitempty"`
	Parameters     []string  `json:"parameters,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

type ContactInquiry struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     *string   `json:"phone"`
	Subject   *string   `json:"subject"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// UserRole associates a hosted-auth user with a privilege role.
type UserRole struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// ProductInput is the admin product form. Nil optional fields are stored as NULL.
type ProductInput struct {
	Name         string   `json:"name"`
	Description  *string  `json:"description"`
	ImageURL     *string  `json:"image_url"`
	Category     *string  `json:"category"`
	IsActive     *bool    `json:"is_active"`
	Features     []string `json:"features"`
	Applications []string `json:"applications"`
}

// TestReportInput is the admin test report form.
type TestReportInput struct {
	Title          string   `json:"title"`
	Description    *string  `json:"description"`
	FileURL        *string  `json:"file_url"`
	Category       *string  `json:"category"`
	IsPublic       *bool    `json:"is_public"`
	Certifications []string `json:"certifications"`
	Parameters     []string `json:"parameters"`
}

// ContactForm is the public contact submission.
type ContactForm struct {
	Name    string  `json:"name"`
	Email   string  `json:"email"`
	Phone   *string `json:"phone"`
	Subject *string `json:"subject"`
	Message string  `json:"message"`
}

// Stats aggregates admin dashboard counters. Failed lists the tables whose
// count could not be read; those counters are reported as zero.
type Stats struct {
	Products    int64    `json:"products"`
	TestReports int64    `json:"testReports"`
	Inquiries   int64    `json:"inquiries"`
	Failed      []string `json:"failed,omitempty"`
}

// Session is the signed-in state resolved from an access token.
type Session struct {
	User         User      `json:"user"`
	AccessToken  string    `json:"accessToken,omitempty"`
	RefreshToken string    `json:"refreshToken,omitempty"`
	ExpiresAt    time.Time `json:"expiresAt,omitzero"`
	Roles        []Role    `json:"roles"`
	IsAdmin      bool      `json:"isAdmin"`
}

// Expired reports whether the session has a known expiry in the past.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}
