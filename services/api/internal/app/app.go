package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"svnglobal/internal/usertoken"
	"svnglobal/pkg/domain"
	"svnglobal/pkg/storage"
	"svnglobal/pkg/store"
	"svnglobal/services/api/internal/authclient"
)

const (
	memoryDatabaseURL = "memory://"

	defaultMaxImageBytes  int64 = 5 << 20
	defaultMaxReportBytes int64 = 20 << 20

	// defaultRevocationTTL covers a hosted-auth access token when its
	// expiry cannot be read locally.
	defaultRevocationTTL = time.Hour
)

// AuthService is the hosted authentication API.
type AuthService interface {
	SignUp(ctx context.Context, email, password string) (authclient.Session, error)
	SignIn(ctx context.Context, email, password string) (authclient.Session, error)
	User(ctx context.Context, token string) (domain.User, error)
	SignOut(ctx context.Context, token string) error
}

// TokenVerifier checks access-token signatures locally before the auth
// service is asked about the account.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (usertoken.Claims, error)
}

// StorageConfig describes the S3-compatible endpoint holding both buckets.
type StorageConfig struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	UseSSL        bool
	PublicBaseURL string
	PresignExpiry time.Duration
}

// Config holds runtime configuration for the core application.
type Config struct {
	// DatabaseURL selects the store when Store is nil. Empty leaves the
	// store unconfigured; "memory://" keeps rows in-process.
	DatabaseURL string
	Store       store.Store

	Auth   AuthService
	Tokens TokenVerifier
	// Revoker remembers signed-out tokens. Optional.
	Revoker store.TokenRevoker

	// Images and Reports override the buckets built from Storage.
	Images  storage.ObjectStore
	Reports storage.ObjectStore
	Storage StorageConfig

	MaxImageBytes  int64
	MaxReportBytes int64
}

// App is the core application service wiring together storage and domain logic.
type App struct {
	store   store.Store
	auth    AuthService
	tokens  TokenVerifier
	revoker store.TokenRevoker

	buckets        map[string]storage.ObjectStore
	maxImageBytes  int64
	maxReportBytes int64

	now func() time.Time
}

// New constructs the application. A missing database or storage endpoint is
// not fatal: the affected operations report ErrStoreUnavailable or
// ErrStorageUnavailable instead.
func New(cfg Config) (*App, error) {
	dataStore := cfg.Store
	if dataStore == nil {
		var err error
		dataStore, err = openStore(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
	}

	images, reports := cfg.Images, cfg.Reports
	if images == nil && reports == nil && strings.TrimSpace(cfg.Storage.Endpoint) != "" {
		var err error
		images, err = openBucket(cfg.Storage, storage.BucketProductImages)
		if err != nil {
			return nil, err
		}
		reports, err = openBucket(cfg.Storage, storage.BucketTestReports)
		if err != nil {
			return nil, err
		}
	}
	buckets := make(map[string]storage.ObjectStore, 2)
	if images != nil {
		buckets[storage.BucketProductImages] = images
	}
	if reports != nil {
		buckets[storage.BucketTestReports] = reports
	}

	a := &App{
		store:          dataStore,
		auth:           cfg.Auth,
		tokens:         cfg.Tokens,
		revoker:        cfg.Revoker,
		buckets:        buckets,
		maxImageBytes:  cfg.MaxImageBytes,
		maxReportBytes: cfg.MaxReportBytes,
		now:            func() time.Time { return time.Now().UTC() },
	}
	if a.maxImageBytes <= 0 {
		a.maxImageBytes = defaultMaxImageBytes
	}
	if a.maxReportBytes <= 0 {
		a.maxReportBytes = defaultMaxReportBytes
	}
	return a, nil
}

func openStore(databaseURL string) (store.Store, error) {
	switch dsn := strings.TrimSpace(databaseURL); dsn {
	case "":
		slog.Warn("database not configured; catalog endpoints will return 503")
		return nil, nil
	case memoryDatabaseURL:
		return store.NewMemoryStore(), nil
	default:
		s, err := store.NewGormStore(dsn)
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
		return s, nil
	}
}

func openBucket(cfg StorageConfig, bucket string) (storage.ObjectStore, error) {
	s, err := storage.NewMinioStore(storage.MinioConfig{
		Endpoint:      cfg.Endpoint,
		AccessKey:     cfg.AccessKey,
		SecretKey:     cfg.SecretKey,
		Bucket:        bucket,
		UseSSL:        cfg.UseSSL,
		PublicBaseURL: cfg.PublicBaseURL,
		PresignExpiry: cfg.PresignExpiry,
	})
	if err != nil {
		return nil, fmt.Errorf("init bucket %s: %w", bucket, err)
	}
	return s, nil
}

// StoreConfigured reports whether catalog operations can reach a database.
func (a *App) StoreConfigured() bool {
	return a.store != nil
}

// DatabaseStatus describes the store for the health endpoint.
func (a *App) DatabaseStatus(ctx context.Context) string {
	if a.store == nil {
		return "not configured"
	}
	if p, ok := a.store.(interface{ Ping(context.Context) error }); ok {
		if err := p.Ping(ctx); err != nil {
			slog.Warn("database ping failed", "err", err)
			return "unreachable"
		}
	}
	return "configured"
}

func (a *App) requireStore() error {
	if a.store == nil {
		return ErrStoreUnavailable
	}
	return nil
}

// trimOptional turns blank optional text into NULL.
func trimOptional(v *string) *string {
	if v == nil {
		return nil
	}
	s := strings.TrimSpace(*v)
	if s == "" {
		return nil
	}
	return &s
}

func cleanList(items []string) []string {
	var out []string
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func boolOr(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}
