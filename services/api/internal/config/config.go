package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigPath is the default config file location.
const ConfigPath = "config.yaml"

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port        string `yaml:"port"`
	LogLevel    string `yaml:"logLevel"`
	Environment string `yaml:"environment"`

	// DatabaseURL is a Postgres DSN, "memory://" or empty for no database.
	DatabaseURL string `yaml:"databaseURL"`

	RedisAddr                string   `yaml:"redisAddr"`
	RedisPassword            string   `yaml:"redisPassword"`
	AllowedOrigins           []string `yaml:"allowedOrigins"`
	TrustedProxyCIDRs        []string `yaml:"trustedProxyCidrs"`
	SignupRateLimitPerMinute int      `yaml:"signupRateLimitPerMinute"`
	LoginRateLimitPerMinute  int      `yaml:"loginRateLimitPerMinute"`

	AuthURL     string `yaml:"authURL"`
	AuthAPIKey  string `yaml:"authApiKey"`
	AuthJWKSURL string `yaml:"authJwksURL"`
	JWTIssuer   string `yaml:"jwtIssuer"`
	JWTAudience string `yaml:"jwtAudience"`
	JWTLeeway   string `yaml:"jwtLeeway"`

	StorageEndpoint      string `yaml:"storageEndpoint"`
	StorageAccessKey     string `yaml:"storageAccessKey"`
	StorageSecretKey     string `yaml:"storageSecretKey"`
	StorageUseSSL        bool   `yaml:"storageUseSSL"`
	StoragePublicBaseURL string `yaml:"storagePublicBaseURL"`
	StoragePresignExpiry string `yaml:"storagePresignExpiry"`
	MaxImageBytes        int64  `yaml:"maxImageBytes"`
	MaxReportBytes       int64  `yaml:"maxReportBytes"`

	StaticDir   string       `yaml:"staticDir"`
	ContentPath string       `yaml:"contentPath"`
	Client      ClientConfig `yaml:"client"`
}

// ClientConfig is published to the browser client.
type ClientConfig struct {
	APIBaseURL  string `yaml:"apiBaseURL"`
	DirectStore bool   `yaml:"directStore"`
	StoreURL    string `yaml:"storeURL"`
	AnonKey     string `yaml:"anonKey"`
}

// Path returns the config file path, honoring CATALOG_CONFIG.
func Path() string {
	if v := strings.TrimSpace(os.Getenv("CATALOG_CONFIG")); v != "" {
		return v
	}
	return ConfigPath
}

// Load reads config from path (defaults to config.yaml) and applies
// environment overrides.
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *FileConfig) {
	setString := func(key string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				*dst = n
			}
		}
	}
	setInt64 := func(key string, dst *int64) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
				*dst = n
			}
		}
	}
	setBool := func(key string, dst *bool) {
		if v := os.Getenv(key); v != "" {
			if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
				*dst = b
			}
		}
	}

	setString("PORT", &cfg.Port)
	setString("LOG_LEVEL", &cfg.LogLevel)
	setString("APP_ENV", &cfg.Environment)
	setString("DATABASE_URL", &cfg.DatabaseURL)
	setString("REDIS_ADDR", &cfg.RedisAddr)
	setString("REDIS_PASSWORD", &cfg.RedisPassword)
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		cfg.AllowedOrigins = splitCSV(v)
	}
	if v := os.Getenv("TRUSTED_PROXY_CIDRS"); v != "" {
		cfg.TrustedProxyCIDRs = splitCSV(v)
	}
	setInt("SIGNUP_RATE_LIMIT_PER_MINUTE", &cfg.SignupRateLimitPerMinute)
	setInt("LOGIN_RATE_LIMIT_PER_MINUTE", &cfg.LoginRateLimitPerMinute)

	setString("AUTH_URL", &cfg.AuthURL)
	setString("AUTH_API_KEY", &cfg.AuthAPIKey)
	setString("AUTH_JWKS_URL", &cfg.AuthJWKSURL)
	setString("JWT_ISSUER", &cfg.JWTIssuer)
	setString("JWT_AUDIENCE", &cfg.JWTAudience)
	setString("JWT_LEEWAY", &cfg.JWTLeeway)

	setString("STORAGE_ENDPOINT", &cfg.StorageEndpoint)
	setString("STORAGE_ACCESS_KEY", &cfg.StorageAccessKey)
	setString("STORAGE_SECRET_KEY", &cfg.StorageSecretKey)
	setBool("STORAGE_USE_SSL", &cfg.StorageUseSSL)
	setString("STORAGE_PUBLIC_BASE_URL", &cfg.StoragePublicBaseURL)
	setString("STORAGE_PRESIGN_EXPIRY", &cfg.StoragePresignExpiry)
	setInt64("MAX_IMAGE_BYTES", &cfg.MaxImageBytes)
	setInt64("MAX_REPORT_BYTES", &cfg.MaxReportBytes)

	setString("STATIC_DIR", &cfg.StaticDir)
	setString("CONTENT_PATH", &cfg.ContentPath)
	setString("CLIENT_API_BASE_URL", &cfg.Client.APIBaseURL)
	setBool("CLIENT_DIRECT_STORE", &cfg.Client.DirectStore)
	setString("CLIENT_STORE_URL", &cfg.Client.StoreURL)
	setString("CLIENT_ANON_KEY", &cfg.Client.AnonKey)
}

func applyDefaults(cfg *FileConfig) {
	if cfg.Port == "" {
		cfg.Port = "3000"
	}
	if cfg.Environment == "" {
		cfg.Environment = "production"
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}
	if cfg.Client.APIBaseURL == "" {
		cfg.Client.APIBaseURL = "/api"
	}
}

func validateConfig(cfg FileConfig) error {
	if strings.TrimSpace(cfg.RedisAddr) == "" {
		return errors.New("config: redisAddr is required for distributed rate limiting")
	}
	if cfg.SignupRateLimitPerMinute < 0 || cfg.LoginRateLimitPerMinute < 0 {
		return errors.New("config: rate limits must be >= 0")
	}
	if cfg.MaxImageBytes < 0 || cfg.MaxReportBytes < 0 {
		return errors.New("config: upload limits must be >= 0")
	}
	if cfg.AuthJWKSURL != "" && cfg.AuthURL == "" {
		return errors.New("config: authJwksURL requires authURL")
	}
	if cfg.Client.DirectStore && cfg.Client.StoreURL == "" {
		return errors.New("config: client.storeURL is required when client.directStore is set")
	}
	// authApiKey may be a service-role key; the browser key is never derived from it.
	if cfg.Client.DirectStore && strings.TrimSpace(cfg.Client.AnonKey) == "" {
		return errors.New("config: client.anonKey is required when client.directStore is set")
	}
	if _, err := ParseDuration("jwtLeeway", cfg.JWTLeeway); err != nil {
		return err
	}
	if _, err := ParseDuration("storagePresignExpiry", cfg.StoragePresignExpiry); err != nil {
		return err
	}
	return nil
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

// ParseDuration parses an optional duration setting. Empty means zero.
func ParseDuration(name, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	dur, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration: %w", name, err)
	}
	if dur < 0 {
		return 0, fmt.Errorf("invalid %s duration: must be >= 0", name)
	}
	return dur, nil
}
