package store

import (
	"time"

	"gorm.io/datatypes"
)

// GORM models mapped onto the hosted tables.
type ProductModel struct {
	ID           string `gorm:"primaryKey;type:uuid"`
	Name         string `gorm:"not null"`
	Description  *string
	ImageURL     *string        `gorm:"column:image_url"`
	Category     *string        `gorm:"index"`
	IsActive     bool           `gorm:"not null;index"`
	Features     datatypes.JSON `gorm:"type:jsonb"`
	Applications datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt    time.Time      `gorm:"not null;index"`
}

func (ProductModel) TableName() string { return "products" }

type TestReportModel struct {
	ID             string `gorm:"primaryKey;type:uuid"`
	Title          string `gorm:"not null"`
	Description    *string
	FileURL        *string        `gorm:"column:file_url"`
	Category       *string        `gorm:"index"`
	IsPublic       bool           `gorm:"not null;index"`
	Certifications datatypes.JSON `gorm:"type:jsonb"`
	Parameters     datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt      time.Time      `gorm:"not null;index"`
}

func (TestReportModel) TableName() string { return "test_reports" }

type ContactInquiryModel struct {
	ID        string `gorm:"primaryKey;type:uuid"`
	Name      string `gorm:"not null"`
	Email     string `gorm:"not null"`
	Phone     *string
	Subject   *string
	Message   string    `gorm:"type:text;not null"`
	IsRead    bool      `gorm:"not null;index"`
	CreatedAt time.Time `gorm:"not null;index"`
}

func (ContactInquiryModel) TableName() string { return "contact_inquiries" }

type UserRoleModel struct {
	ID        string    `gorm:"primaryKey;type:uuid"`
	UserID    string    `gorm:"not null;uniqueIndex:idx_user_roles_user_role"`
	Role      string    `gorm:"not null;uniqueIndex:idx_user_roles_user_role;index"`
	CreatedAt time.Time `gorm:"not null"`
}

func (UserRoleModel) TableName() string { return "user_roles" }
