package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dstrelow/gallerygate/internal/attempts"
	"github.com/dstrelow/gallerygate/internal/auth"
	"github.com/dstrelow/gallerygate/internal/background"
	"github.com/dstrelow/gallerygate/internal/config"
	"github.com/dstrelow/gallerygate/internal/database"
	"github.com/dstrelow/gallerygate/internal/events"
	"github.com/dstrelow/gallerygate/internal/handlers"
	middlewareCustom "github.com/dstrelow/gallerygate/internal/middleware"
	"github.com/dstrelow/gallerygate/internal/models"
	"github.com/dstrelow/gallerygate/internal/repositories"
	"github.com/dstrelow/gallerygate/internal/routes"
	"github.com/dstrelow/gallerygate/internal/services"
	pkgauth "github.com/dstrelow/gallerygate/pkg/auth"
	pkghttp "github.com/dstrelow/gallerygate/pkg/http"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
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

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Initialize repositories
	accountRepo := repositories.NewAccountRepository(db)
	clientRepo := repositories.NewClientRepository(db)
	sessionRepo := repositories.NewSessionRepository(db)
	logEntryRepo := repositories.NewLogEntryRepository(db)

	// Request-scoped log entry aggregation
	aggregator := events.NewAggregator(logEntryRepo, logger)

	// In-memory brute force tracking
	attemptCache := attempts.NewCache(cfg.Auth.AttemptEvictionPeriod, logger)
	defer attemptCache.Close()

	// Session validation and the authentication gate
	ipConfig := &pkghttp.IPConfig{}
	validator := auth.NewSessionValidator(sessionRepo, logger)
	gate := auth.NewGate(validator, aggregator, logger, ipConfig, cfg.Server.IsProduction())

	// Initialize services
	authService := services.NewAuthService(
		accountRepo,
		clientRepo,
		sessionRepo,
		attemptCache,
		aggregator,
		logger,
		cfg.Auth.MaxFailedAttempts,
	)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService, ipConfig)
	adminHandler := handlers.NewAdminHandler(logEntryRepo, accountRepo, sessionRepo, clientRepo)

	// Bootstrap first admin account if configured
	bootstrapCtx, bootstrapCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := ensureAdminAccount(bootstrapCtx, accountRepo, logger); err != nil {
		logger.Error("failed to ensure admin account", slog.Any("error", err))
	}
	bootstrapCancel()

	// Initialize session cleanup manager
	cleanupManager := background.NewCleanupManager(sessionRepo, logEntryRepo, logger,
		cfg.Auth.SessionCleanupInterval, cfg.Auth.LogRetentionDays)

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(aggregator.Middleware())
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	// Register routes
	routes.RegisterRoutes(router, authHandler, adminHandler, gate)

	// Health check with database
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.HealthCheck(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy","database":"down"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","database":"up"}`))
	})

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start cleanup task
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

	cleanupCancel()
	cleanupManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

// ensureAdminAccount creates the first admin account if ADMIN_USERNAME and ADMIN_PASSWORD are set
func ensureAdminAccount(ctx context.Context, accountRepo *repositories.AccountRepository, logger *slog.Logger) error {
	adminUsername := os.Getenv("ADMIN_USERNAME")
	adminPassword := os.Getenv("ADMIN_PASSWORD")

	if adminUsername == "" || adminPassword == "" {
		logger.Info("no ADMIN_USERNAME or ADMIN_PASSWORD set, skipping admin account creation")
		return nil
	}

	// Check if admin already exists
	_, err := accountRepo.FindByUsername(ctx, adminUsername)
	if err == nil {
		logger.Info("admin account already exists")
		return nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("failed to check if admin exists: %w", err)
	}

	hashedPassword, err := pkgauth.HashPassword(adminPassword)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	admin := &models.Account{
		Username:     adminUsername,
		FullName:     "Administrator",
		Privileges:   models.PrivilegeViewer | models.PrivilegeUploader | models.PrivilegeCurator | models.PrivilegeAdmin,
		PasswordHash: hashedPassword,
	}

	if _, err := accountRepo.Create(ctx, admin); err != nil {
		return fmt.Errorf("failed to create admin account: %w", err)
	}

	logger.Info("admin account created successfully")
	return nil
}
