package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ekaya-inc/inspection-engine/pkg/auth"
	"github.com/ekaya-inc/inspection-engine/pkg/cache"
	"github.com/ekaya-inc/inspection-engine/pkg/config"
	"github.com/ekaya-inc/inspection-engine/pkg/database"
	"github.com/ekaya-inc/inspection-engine/pkg/handlers"
	"github.com/ekaya-inc/inspection-engine/pkg/logging"
	"github.com/ekaya-inc/inspection-engine/pkg/metrics"
	"github.com/ekaya-inc/inspection-engine/pkg/middleware"
	"github.com/ekaya-inc/inspection-engine/pkg/repositories"
	"github.com/ekaya-inc/inspection-engine/pkg/retry"
	"github.com/ekaya-inc/inspection-engine/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("base_url", cfg.BaseURL),
		zap.Bool("auth_verification", cfg.Auth.EnableVerification),
		zap.String("database", logging.SanitizeConnectionString(cfg.Database.ConnectionString())),
		zap.Bool("redis_enabled", cfg.Redis.Host != ""))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := retry.DoIfRetryableWithResult(ctx, retry.StartupConfig(), func() (*database.DB, error) {
		db, err := database.NewConnection(ctx, &database.Config{
			URL:            cfg.Database.ConnectionString(),
			MaxConnections: cfg.Database.MaxConnections,
		})
		if err != nil {
			logger.Warn("Database connection failed",
				zap.Bool("retryable", retry.IsRetryable(err)), logging.ErrorField(err))
		}
		return db, err
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", logging.ErrorField(err))
	}
	defer db.Close()

	sqlDB := db.SQLDB()
	if err := database.RunMigrations(sqlDB, cfg.Database.MigrationsPath, logger); err != nil {
		logger.Fatal("Failed to run migrations", logging.ErrorField(err))
	}
	_ = sqlDB.Close()

	redisClient, err := retry.DoIfRetryableWithResult(ctx, retry.StartupConfig(), func() (*redis.Client, error) {
		return database.NewRedisClient(ctx, &cfg.Redis)
	})
	if err != nil {
		logger.Fatal("Failed to connect to Redis", logging.ErrorField(err))
	}
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	jwksClient, err := auth.NewJWKSClient(ctx, &auth.JWKSConfig{
		EnableVerification: cfg.Auth.EnableVerification,
		JWKSEndpoints:      cfg.Auth.JWKSEndpoints,
	})
	if err != nil {
		logger.Fatal("Failed to create JWKS client", zap.Error(err))
	}
	defer jwksClient.Close()
	if !cfg.Auth.EnableVerification {
		logger.Warn("JWT signature verification is disabled")
	}

	authMiddleware := auth.NewMiddleware(auth.NewAuthService(jwksClient, logger), logger)
	tenantMiddleware := handlers.TenantMiddleware(database.WithTenantContext(db, logger))

	metrics.Register(prometheus.DefaultRegisterer)

	// Repositories
	templateRepo := repositories.NewNarrativeTemplateRepository()
	findingRepo := repositories.NewFindingRepository()
	choiceRepo := repositories.NewNarrativeChoiceRepository()
	settingRepo := repositories.NewNarrativeSettingRepository()

	// Services
	settingsCache := cache.NewSettingsCache(redisClient, cfg.Narrative.SettingsCacheTTL, logger)
	settingsService := services.NewNarrativeSettingsService(settingRepo, settingsCache, logger)
	narrativeService := services.NewNarrativeService(templateRepo, findingRepo, choiceRepo,
		settingsService, cfg.Narrative.ListDefaultLimit, logger)

	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, db, logger).RegisterRoutes(mux)
	handlers.NewNarrativeHandler(narrativeService, logger).RegisterRoutes(mux, authMiddleware, tenantMiddleware)
	handlers.NewNarrativeSettingsHandler(settingsService, logger).RegisterRoutes(mux, authMiddleware, tenantMiddleware)
	mux.Handle("GET /metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              net.JoinHostPort(cfg.BindAddr, cfg.Port),
		Handler:           middleware.RequestLogger(logger)(mux),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown failed", zap.Error(err))
		}
	}()

	logger.Info("Starting inspection-engine",
		zap.String("addr", server.Addr),
		zap.String("version", cfg.Version),
		zap.Bool("tls", cfg.TLSCertPath != ""))

	if cfg.TLSCertPath != "" {
		err = server.ListenAndServeTLS(cfg.TLSCertPath, cfg.TLSKeyPath)
	} else {
		err = server.ListenAndServe()
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server failed", zap.Error(err))
		os.Exit(1)
	}
}

// newLogger builds a production JSON logger at the configured level.
func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(lvl)
	return zapCfg.Build()
}
