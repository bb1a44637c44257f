package main

import (
	"log"
	"log/slog"
	"net/http"
	"time"

	"svnglobal/internal/usertoken"
	"svnglobal/internal/util"
	"svnglobal/pkg/content"
	"svnglobal/pkg/store"
	"svnglobal/services/api/internal/app"
	"svnglobal/services/api/internal/authclient"
	"svnglobal/services/api/internal/config"
	"svnglobal/services/api/internal/server"
)

func main() {
	cfg, err := config.Load(config.Path())
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	jwtLeeway, err := config.ParseDuration("jwtLeeway", cfg.JWTLeeway)
	if err != nil {
		log.Fatalf("failed to parse jwt leeway: %v", err)
	}
	presignExpiry, err := config.ParseDuration("storagePresignExpiry", cfg.StoragePresignExpiry)
	if err != nil {
		log.Fatalf("failed to parse presign expiry: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	appCfg := app.Config{
		DatabaseURL: cfg.DatabaseURL,
		Storage: app.StorageConfig{
			Endpoint:      cfg.StorageEndpoint,
			AccessKey:     cfg.StorageAccessKey,
			SecretKey:     cfg.StorageSecretKey,
			UseSSL:        cfg.StorageUseSSL,
			PublicBaseURL: cfg.StoragePublicBaseURL,
			PresignExpiry: presignExpiry,
		},
		MaxImageBytes:  cfg.MaxImageBytes,
		MaxReportBytes: cfg.MaxReportBytes,
		Revoker:        store.NewRedisTokenRevoker(cfg.RedisAddr, cfg.RedisPassword),
	}
	if cfg.AuthURL != "" {
		appCfg.Auth = authclient.NewClient(cfg.AuthURL, cfg.AuthAPIKey)
	} else {
		slog.Warn("auth service not configured; admin endpoints are unavailable")
	}
	if cfg.AuthJWKSURL != "" {
		verifier, err := usertoken.NewVerifier(usertoken.Config{
			JWKSURL:  cfg.AuthJWKSURL,
			Issuer:   cfg.JWTIssuer,
			Audience: cfg.JWTAudience,
			Leeway:   jwtLeeway,
		})
		if err != nil {
			log.Fatalf("failed to init token verifier: %v", err)
		}
		appCfg.Tokens = verifier
	}

	appCore, err := app.New(appCfg)
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}

	site, err := content.Default()
	if cfg.ContentPath != "" {
		site, err = content.Load(cfg.ContentPath)
	}
	if err != nil {
		log.Fatalf("failed to load site content: %v", err)
	}

	httpServer, err := server.New(server.Config{
		App:                      appCore,
		Content:                  site,
		Environment:              cfg.Environment,
		RedisAddr:                cfg.RedisAddr,
		RedisPassword:            cfg.RedisPassword,
		SignupRateLimitPerMinute: cfg.SignupRateLimitPerMinute,
		LoginRateLimitPerMinute:  cfg.LoginRateLimitPerMinute,
		AllowedOrigins:           cfg.AllowedOrigins,
		TrustedProxies:           cfg.TrustedProxyCIDRs,
		StaticDir:                cfg.StaticDir,
		ClientConfig: server.ClientConfig{
			APIBaseURL:  cfg.Client.APIBaseURL,
			DirectStore: cfg.Client.DirectStore,
			StoreURL:    cfg.Client.StoreURL,
			AnonKey:     cfg.Client.AnonKey,
		},
	})
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("server listening",
		"addr", addr,
		"environment", cfg.Environment,
		"database_configured", appCore.StoreConfigured(),
	)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "err", err)
	}
}
