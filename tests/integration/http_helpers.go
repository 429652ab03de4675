package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/dstrelow/gallerygate/internal/attempts"
	"github.com/dstrelow/gallerygate/internal/auth"
	"github.com/dstrelow/gallerygate/internal/config"
	"github.com/dstrelow/gallerygate/internal/database"
	"github.com/dstrelow/gallerygate/internal/events"
	"github.com/dstrelow/gallerygate/internal/handlers"
	"github.com/dstrelow/gallerygate/internal/routes"
	"github.com/dstrelow/gallerygate/internal/services"
	pkghttp "github.com/dstrelow/gallerygate/pkg/http"
)

// TestServer wraps httptest.Server with database and all dependencies
type TestServer struct {
	Server       *httptest.Server
	DB           *database.DB
	AttemptCache *attempts.Cache
	Aggregator   *events.Aggregator
	Config       *config.Config
}

// NewTestServer initializes a complete HTTP server with a real database
func NewTestServer(db *database.DB) *TestServer {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))

	cfg := &config.Config{
		Server: config.ServerConfig{
			Port: "0",
			Env:  "test",
		},
		Auth: config.AuthConfig{
			MaxFailedAttempts:      5,
			AttemptEvictionPeriod:  15 * time.Minute,
			SessionCleanupInterval: 1 * time.Hour,
		},
	}

	accountRepo, clientRepo, sessionRepo, logEntryRepo := InitializeRepositories(db)

	aggregator := events.NewAggregator(logEntryRepo, logger)
	attemptCache := attempts.NewCache(cfg.Auth.AttemptEvictionPeriod, logger)

	ipConfig := &pkghttp.IPConfig{}
	validator := auth.NewSessionValidator(sessionRepo, logger)
	gate := auth.NewGate(validator, aggregator, logger, ipConfig, cfg.Server.IsProduction())

	authService := services.NewAuthService(
		accountRepo,
		clientRepo,
		sessionRepo,
		attemptCache,
		aggregator,
		logger,
		cfg.Auth.MaxFailedAttempts,
	)
	authHandler := handlers.NewAuthHandler(authService, ipConfig)
	adminHandler := handlers.NewAdminHandler(logEntryRepo, accountRepo, sessionRepo, clientRepo)

	router := chi.NewRouter()
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(aggregator.Middleware())
	router.Use(chiMiddleware.Recoverer)

	routes.RegisterRoutes(router, authHandler, adminHandler, gate)

	return &TestServer{
		Server:       httptest.NewServer(router),
		DB:           db,
		AttemptCache: attemptCache,
		Aggregator:   aggregator,
		Config:       cfg,
	}
}

// Close shuts down the test server and its attempt cache
func (ts *TestServer) Close() {
	ts.Server.Close()
	ts.AttemptCache.Close()
}

// PostJSON sends a POST request with a JSON body and optional session token
func (ts *TestServer) PostJSON(path string, body any, token string) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, ts.Server.URL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "gallerygate-integration-test")
	if token != "" {
		req.Header.Set(auth.SessionTokenHeader, token)
	}

	return http.DefaultClient.Do(req)
}

// Get sends a GET request with an optional session token
func (ts *TestServer) Get(path, token string) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodGet, ts.Server.URL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "gallerygate-integration-test")
	if token != "" {
		req.Header.Set(auth.SessionTokenHeader, token)
	}

	return http.DefaultClient.Do(req)
}

// DecodeJSON reads and decodes a JSON response body into target
func DecodeJSON(resp *http.Response, target any) error {
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("failed to decode response %q: %w", string(data), err)
	}

	return nil
}
