package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"svnglobal/internal/util"
	"svnglobal/pkg/domain"
)

const (
	migrateLockID        int64 = 51730001
	adminBootstrapLockID int64 = 51730002
)

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := withMigrationLock(db, func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(&ProductModel{}, &TestReportModel{}, &ContactInquiryModel{}, &UserRoleModel{}); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

func withMigrationLock(db *gorm.DB, fn func(*gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("open sql conn: %w", err)
	}
	defer conn.Close()
	if err := execAdvisory(ctx, conn, "SELECT pg_advisory_lock($1)", migrateLockID); err != nil {
		return fmt.Errorf("acquire migrate lock: %w", err)
	}
	defer func() {
		_ = execAdvisory(ctx, conn, "SELECT pg_advisory_unlock($1)", migrateLockID)
	}()
	return fn(db)
}

func execAdvisory(ctx context.Context, conn *sql.Conn, query string, lockID int64) error {
	_, err := conn.ExecContext(ctx, query, lockID)
	return err
}

// Ping checks database connectivity.
func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// SaveProduct inserts or replaces a product row.
func (s *GormStore) SaveProduct(ctx context.Context, p domain.Product) error {
	model := productToModel(p)
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "description", "image_url", "category", "is_active", "features", "applications"}),
	}).Create(&model).Error
}

func (s *GormStore) GetProduct(ctx context.Context, id string) (domain.Product, bool, error) {
	var model ProductModel
	if err := s.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Product{}, false, nil
		}
		return domain.Product{}, false, err
	}
	return productFromModel(model), true, nil
}

// ListProducts returns products newest first.
func (s *GormStore) ListProducts(ctx context.Context, q ProductQuery) ([]domain.Product, error) {
	tx := s.db.WithContext(ctx).Order("created_at DESC")
	if q.ActiveOnly {
		tx = tx.Where("is_active = ?", true)
	}
	if category := strings.TrimSpace(q.Category); category != "" {
		tx = tx.Where("category = ?", category)
	}
	var models []ProductModel
	if err := tx.Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Product, 0, len(models))
	for _, m := range models {
		res = append(res, productFromModel(m))
	}
	return res, nil
}

func (s *GormStore) DeleteProduct(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Delete(&ProductModel{}, "id = ?", id).Error
}

func (s *GormStore) CountProducts(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&ProductModel{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// SaveTestReport inserts or replaces a test report row.
func (s *GormStore) SaveTestReport(ctx context.Context, r domain.TestReport) error {
	model := testReportToModel(r)
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "description", "file_url", "category", "is_public", "certifications", "parameters"}),
	}).Create(&model).Error
}

func (s *GormStore) GetTestReport(ctx context.Context, id string) (domain.TestReport, bool, error) {
	var model TestReportModel
	if err := s.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.TestReport{}, false, nil
		}
		return domain.TestReport{}, false, err
	}
	return testReportFromModel(model), true, nil
}

// ListTestReports returns test reports newest first.
func (s *GormStore) ListTestReports(ctx context.Context, q TestReportQuery) ([]domain.TestReport, error) {
	tx := s.db.WithContext(ctx).Order("created_at DESC")
	if q.PublicOnly {
		tx = tx.Where("is_public = ?", true)
	}
	if category := strings.TrimSpace(q.Category); category != "" {
		tx = tx.Where("category = ?", category)
	}
	if search := strings.TrimSpace(q.Search); search != "" {
		pattern := "%" + escapeLike(search) + "%"
		tx = tx.Where("title ILIKE ? OR description ILIKE ?", pattern, pattern)
	}
	var models []TestReportModel
	if err := tx.Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.TestReport, 0, len(models))
	for _, m := range models {
		res = append(res, testReportFromModel(m))
	}
	return res, nil
}

func (s *GormStore) DeleteTestReport(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Delete(&TestReportModel{}, "id = ?", id).Error
}

func (s *GormStore) CountTestReports(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&TestReportModel{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// SaveInquiry inserts a contact inquiry.
func (s *GormStore) SaveInquiry(ctx context.Context, inq domain.ContactInquiry) error {
	model := inquiryToModel(inq)
	return s.db.WithContext(ctx).Create(&model).Error
}

func (s *GormStore) ListInquiries(ctx context.Context, q InquiryQuery) ([]domain.ContactInquiry, error) {
	tx := s.db.WithContext(ctx).Order("created_at DESC")
	if q.UnreadOnly {
		tx = tx.Where("is_read = ?", false)
	}
	var models []ContactInquiryModel
	if err := tx.Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.ContactInquiry, 0, len(models))
	for _, m := range models {
		res = append(res, inquiryFromModel(m))
	}
	return res, nil
}

// SetInquiryRead updates the read flag and reports whether the row exists.
func (s *GormStore) SetInquiryRead(ctx context.Context, id string, read bool) (bool, error) {
	res := s.db.WithContext(ctx).Model(&ContactInquiryModel{}).
		Where("id = ?", id).
		Update("is_read", read)
	if res.Error != nil {
		return false, res.Error
	}
	// Postgres counts matched rows, so an unchanged flag still reports 1.
	return res.RowsAffected > 0, nil
}

func (s *GormStore) DeleteInquiry(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Delete(&ContactInquiryModel{}, "id = ?", id).Error
}

func (s *GormStore) CountInquiries(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&ContactInquiryModel{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// SaveRole records a role for a user; duplicates are ignored.
func (s *GormStore) SaveRole(ctx context.Context, role domain.UserRole) error {
	model := roleToModel(role)
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "role"}},
		DoNothing: true,
	}).Create(&model).Error
}

func (s *GormStore) ListRoles(ctx context.Context, userID string) ([]domain.Role, error) {
	var roles []string
	if err := s.db.WithContext(ctx).Model(&UserRoleModel{}).
		Where("user_id = ?", userID).
		Order("role ASC").
		Pluck("role", &roles).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Role, 0, len(roles))
	for _, r := range roles {
		res = append(res, domain.Role(r))
	}
	return res, nil
}

// AssignFirstAdmin serializes bootstrap attempts on a transaction-scoped
// advisory lock so two concurrent sign-ups cannot both become admin.
func (s *GormStore) AssignFirstAdmin(ctx context.Context, userID string) (bool, error) {
	created := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", adminBootstrapLockID).Error; err != nil {
			return fmt.Errorf("acquire bootstrap lock: %w", err)
		}
		var admins int64
		if err := tx.Model(&UserRoleModel{}).Where("role = ?", string(domain.RoleAdmin)).Count(&admins).Error; err != nil {
			return fmt.Errorf("count admins: %w", err)
		}
		if admins > 0 {
			return nil
		}
		model := roleToModel(domain.UserRole{
			ID:        util.NewID(),
			UserID:    userID,
			Role:      domain.RoleAdmin,
			CreatedAt: time.Now().UTC(),
		})
		if err := tx.Create(&model).Error; err != nil {
			return fmt.Errorf("insert admin role: %w", err)
		}
		created = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return created, nil
}

func escapeLike(in string) string {
	replacer := strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)
	return replacer.Replace(in)
}

func productToModel(p domain.Product) ProductModel {
	return ProductModel{
		ID:           p.ID,
		Name:         p.Name,
		Description:  p.Description,
		ImageURL:     p.ImageURL,
		Category:     p.Category,
		IsActive:     p.IsActive,
		Features:     encodeList(p.Features),
		Applications: encodeList(p.Applications),
		CreatedAt:    p.CreatedAt,
	}
}

func productFromModel(m ProductModel) domain.Product {
	return domain.Product{
		ID:           m.ID,
		Name:         m.Name,
		Description:  m.Description,
		ImageURL:     m.ImageURL,
		Category:     m.Category,
		IsActive:     m.IsActive,
		Features:     decodeList(m.Features),
		Applications: decodeList(m.Applications),
		CreatedAt:    m.CreatedAt,
	}
}

func testReportToModel(r domain.TestReport) TestReportModel {
	return TestReportModel{
		ID:             r.ID,
		Title:          r.Title,
		Description:    r.Description,
		FileURL:        r.FileURL,
		Category:       r.Category,
		IsPublic:       r.IsPublic,
		Certifications: encodeList(r.Certifications),
		Parameters:     encodeList(r.Parameters),
		CreatedAt:      r.CreatedAt,
	}
}

func testReportFromModel(m TestReportModel) domain.TestReport {
	return domain.TestReport{
		ID:             m.ID,
		Title:          m.Title,
		Description:    m.Description,
		FileURL:        m.FileURL,
		Category:       m.Category,
		IsPublic:       m.IsPublic,
		Certifications: decodeList(m.Certifications),
		Parameters:     decodeList(m.Parameters),
		CreatedAt:      m.CreatedAt,
	}
}

func inquiryToModel(inq domain.ContactInquiry) ContactInquiryModel {
	return ContactInquiryModel{
		ID:        inq.ID,
		Name:      inq.Name,
		Email:     inq.Email,
		Phone:     inq.Phone,
		Subject:   inq.Subject,
		Message:   inq.Message,
		IsRead:    inq.IsRead,
		CreatedAt: inq.CreatedAt,
	}
}

func inquiryFromModel(m ContactInquiryModel) domain.ContactInquiry {
	return domain.ContactInquiry{
		ID:        m.ID,
		Name:      m.Name,
		Email:     m.Email,
		Phone:     m.Phone,
		Subject:   m.Subject,
		Message:   m.Message,
		IsRead:    m.IsRead,
		CreatedAt: m.CreatedAt,
	}
}

func roleToModel(r domain.UserRole) UserRoleModel {
	return UserRoleModel{
		ID:        r.ID,
		UserID:    r.UserID,
		Role:      string(r.Role),
		CreatedAt: r.CreatedAt,
	}
}

func encodeList(items []string) datatypes.JSON {
	if len(items) == 0 {
		return nil
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return nil
	}
	return datatypes.JSON(raw)
}

func decodeList(raw datatypes.JSON) []string {
	if len(raw) == 0 {
		return nil
	}
	var items []string
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	return items
}
