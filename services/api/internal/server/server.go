package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"svnglobal/internal/ratelimit"
	"svnglobal/internal/security"
	"svnglobal/internal/util"
	"svnglobal/pkg/content"
	"svnglobal/services/api/internal/app"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App         *app.App
	Content     *content.Site
	Environment string

	RedisAddr                string
	RedisPassword            string
	SignupRateLimitPerMinute int
	LoginRateLimitPerMinute  int

	AllowedOrigins []string
	TrustedProxies []string
	// StaticDir holds the built client. Empty disables static serving.
	StaticDir    string
	ClientConfig ClientConfig
}

// ClientConfig is what the browser client needs to reach the API and,
// optionally, the hosted store directly.
type ClientConfig struct {
	APIBaseURL  string `json:"apiBaseURL"`
	DirectStore bool   `json:"directStore"`
	StoreURL    string `json:"storeURL,omitempty"`
	AnonKey     string `json:"anonKey,omitempty"`
}

// Server exposes HTTP endpoints for the catalog.
type Server struct {
	app            *app.App
	site           *content.Site
	environment    string
	production     bool
	mux            *http.ServeMux
	allowedOrigins []string
	trustedProxies *util.TrustedProxies
	staticDir      string
	clientConfig   ClientConfig
	signupLimiter  *ratelimit.FixedWindowLimiter
	loginLimiter   *ratelimit.FixedWindowLimiter
	alerter        *security.AuditAlerter
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, errors.New("server requires app")
	}
	site := cfg.Content
	if site == nil {
		var err error
		if site, err = content.Default(); err != nil {
			return nil, fmt.Errorf("load site content: %w", err)
		}
	}
	trusted, err := util.NewTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		return nil, fmt.Errorf("parse trusted proxies: %w", err)
	}

	signupLimit := cfg.SignupRateLimitPerMinute
	if signupLimit <= 0 {
		signupLimit = 5
	}
	loginLimit := cfg.LoginRateLimitPerMinute
	if loginLimit <= 0 {
		loginLimit = 10
	}
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return nil, errors.New("redis addr is required for rate limiting")
	}
	redisClient := redis.NewClient(&redis.Options{Addr: addr, Password: cfg.RedisPassword})
	newLimiter := func(name string, limit int) (*ratelimit.FixedWindowLimiter, error) {
		limiter, err := ratelimit.NewFixedWindowLimiter(redisClient, "svnglobal:api:ratelimit:"+name, limit, time.Minute)
		if err != nil {
			return nil, fmt.Errorf("init %s limiter: %w", name, err)
		}
		return limiter, nil
	}
	signupLimiter, err := newLimiter("signup", signupLimit)
	if err != nil {
		return nil, err
	}
	loginLimiter, err := newLimiter("login", loginLimit)
	if err != nil {
		return nil, err
	}

	env := strings.TrimSpace(cfg.Environment)
	if env == "" {
		env = "development"
	}
	s := &Server{
		app:            cfg.App,
		site:           site,
		environment:    env,
		production:     strings.EqualFold(env, "production"),
		mux:            http.NewServeMux(),
		allowedOrigins: cfg.AllowedOrigins,
		trustedProxies: trusted,
		staticDir:      strings.TrimSpace(cfg.StaticDir),
		clientConfig:   cfg.ClientConfig,
		signupLimiter:  signupLimiter,
		loginLimiter:   loginLimiter,
		alerter:        security.NewAuditAlerter(redisClient, "svnglobal:api:alerts"),
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	var h http.Handler = s.mux
	h = util.WithCORS(s.allowedOrigins, h)
	h = util.WithSecurityHeaders(h)
	h = util.WithRequestLog("api", h)
	return util.WithRequestID(h)
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)
	s.mux.HandleFunc("/api/client-config", s.handleClientConfig)
	s.mux.HandleFunc("/api/content", s.handleContent)
	s.mux.HandleFunc("/api/content/", s.handleContent)

	// catalog
	s.mux.HandleFunc("/api/products", s.handleProducts)
	s.mux.HandleFunc("/api/products/", s.handleProductByID)
	s.mux.HandleFunc("/api/test-reports", s.handleTestReports)
	s.mux.HandleFunc("/api/test-reports/", s.handleTestReportByID)
	s.mux.HandleFunc("/api/contact", s.handleContact)

	// auth
	s.mux.HandleFunc("/api/auth/signup", s.handleSignup)
	s.mux.HandleFunc("/api/auth/login", s.handleLogin)
	s.mux.Handle("/api/auth/logout", s.authenticated(s.handleLogout))
	s.mux.Handle("/api/auth/session", s.authenticated(s.handleSession))
	s.mux.Handle("/api/auth/claim-admin", s.authenticated(s.handleClaimAdmin))

	// admin
	s.mux.Handle("/api/admin/stats", s.adminOnly(s.handleAdminStats))
	s.mux.Handle("/api/admin/inquiries", s.adminOnly(s.handleAdminInquiries))
	s.mux.Handle("/api/admin/inquiries/", s.adminOnly(s.handleAdminInquiryByID))
	s.mux.Handle("/api/admin/uploads/", s.adminOnly(s.handleAdminUploads))

	s.mux.HandleFunc("/api/", s.handleAPINotFound)
	s.mux.HandleFunc("/", s.handleStatic)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":      "ok",
		"timestamp":   time.Now().UTC().Format(time.RFC3339Nano),
		"environment": s.environment,
		"database":    s.app.DatabaseStatus(r.Context()),
	})
}

func (s *Server) handleClientConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	cfg := s.clientConfig
	if !cfg.DirectStore {
		cfg.StoreURL, cfg.AnonKey = "", ""
	}
	writeData(w, http.StatusOK, cfg)
}

// /api/content or /api/content/{page}
func (s *Server) handleContent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	slug := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/content"), "/")
	if slug == "" {
		writeData(w, http.StatusOK, s.site)
		return
	}
	page, err := s.site.Page(slug)
	if err != nil {
		writeError(w, http.StatusNotFound, "Page not found")
		return
	}
	writeData(w, http.StatusOK, page)
}

func (s *Server) handleAPINotFound(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusNotFound, "API endpoint not found")
}

// handleStatic serves the built client with index.html as the fallback for
// client-side routes.
func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	if s.staticDir == "" {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		methodNotAllowed(w)
		return
	}
	rel := path.Clean("/" + r.URL.Path)
	full := filepath.Join(s.staticDir, filepath.FromSlash(rel))
	if info, err := os.Stat(full); err == nil && !info.IsDir() {
		http.ServeFile(w, r, full)
		return
	}
	index := filepath.Join(s.staticDir, "index.html")
	if _, err := os.Stat(index); err != nil {
		slog.Warn("static index missing", "path", index, "err", err)
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeFile(w, r, index)
}
