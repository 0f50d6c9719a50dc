package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/BradenHooton/backoffice/internal/auth"
	"github.com/BradenHooton/backoffice/internal/background"
	"github.com/BradenHooton/backoffice/internal/config"
	"github.com/BradenHooton/backoffice/internal/database"
	"github.com/BradenHooton/backoffice/internal/handlers"
	"github.com/BradenHooton/backoffice/internal/metrics"
	middlewareCustom "github.com/BradenHooton/backoffice/internal/middleware"
	"github.com/BradenHooton/backoffice/internal/repositories"
	"github.com/BradenHooton/backoffice/internal/routes"
	"github.com/BradenHooton/backoffice/internal/services"
	pkgauth "github.com/BradenHooton/backoffice/pkg/auth"
	pkghttp "github.com/BradenHooton/backoffice/pkg/http"
	pkglogger "github.com/BradenHooton/backoffice/pkg/logger"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(cfg.Server.LogLevel)}))
	slog.SetDefault(logger)

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		migrateCtx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		err := db.Migrate(migrateCtx)
		cancel()
		if err != nil {
			logger.Error("failed to run migrations", slog.Any("error", err))
			os.Exit(1)
		}
	}

	appMetrics := metrics.New()
	appMetrics.RegisterPoolStats(db.Stats)

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db.Pool, cfg.Database.QueryTimeout)

	// Initialize token manager
	tokenManager := auth.NewTokenManager(
		cfg.Auth.JWTSecret,
		cfg.Auth.AccessTokenExpiry,
		cfg.Auth.JWTIssuer,
	)

	// Initialize services
	authService := services.NewAuthService(
		userRepo,
		pkgauth.NewPasswordHasher(cfg.Auth.BcryptCost),
		pkgauth.NewResetTokenCodec(cfg.Auth.ResetTokenExpiry),
		tokenManager,
		cfg.Auth.ResetURLBase,
		appMetrics,
		logger,
	)

	if cfg.Email.Enabled {
		mailer, err := services.NewSESResetMailer(context.Background(), cfg.Email.AWSRegion, cfg.Email.FromAddress, logger)
		if err != nil {
			logger.Error("failed to initialize email service", slog.Any("error", err))
			os.Exit(1)
		}
		authService.SetResetNotifier(mailer)
	}

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService, cfg.Auth.ExposeResetToken, logger)

	// Bootstrap first account if configured
	if cfg.Auth.AdminEmail != "" && cfg.Auth.AdminPassword != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		created, err := authService.EnsureAccount(ctx, cfg.Auth.AdminName, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword)
		cancel()
		if err != nil {
			logger.Error("failed to ensure admin user", slog.Any("error", err))
		} else if created {
			logger.Info("admin user created", slog.String("email", pkglogger.SanitizedEmail(cfg.Auth.AdminEmail)))
		}
	}

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(middlewareCustom.DefaultCORSConfig(cfg.Server.AllowedOrigins)))
	router.Use(middlewareCustom.SecureLogger(logger, pkghttp.NewIPConfig(cfg.Server.TrustedProxies), appMetrics))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	// Register routes
	routes.RegisterRoutes(router, authHandler, tokenManager)

	// Health check with database
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.HealthCheck(ctx); err != nil {
			pkghttp.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "database": "down"})
			return
		}

		stats := db.Stats()
		pkghttp.WriteJSON(w, http.StatusOK, map[string]any{
			"status":   "healthy",
			"database": "up",
			"pool": map[string]int32{
				"acquired": stats.Acquired,
				"idle":     stats.Idle,
				"total":    stats.Total,
			},
		})
	})

	router.Method(http.MethodGet, "/metrics", appMetrics.Handler())

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start cleanup task
	cleanupManager := background.NewCleanupManager(userRepo, appMetrics, logger, cfg.Auth.CleanupInterval)
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()

	go cleanupManager.Start(cleanupCtx)

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	cleanupManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
