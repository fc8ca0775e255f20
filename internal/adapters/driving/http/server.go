package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/custodia-labs/sercha-docqa/internal/core/domain"
	"github.com/custodia-labs/sercha-docqa/internal/core/ports/driving"
)

// DefaultMaxUploadBytes bounds the size of an uploaded document
const DefaultMaxUploadBytes = 50 << 20

// Pinger is a simple health check interface
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	version    string
	logger     *slog.Logger

	maxUploadBytes int64
	allowedOrigins []string

	// Services
	docService driving.DocumentService
	askService driving.AskService

	// Infrastructure
	runtimeConfig *domain.RuntimeConfig // AI availability (optional)
	checks        map[string]Pinger     // Backend health checks by name
}

// Config holds server configuration
type Config struct {
	Host           string
	Port           int
	Version        string
	MaxUploadBytes int64
	AllowedOrigins []string

	// Generation can take far longer than a normal request, so the
	// write timeout must exceed the LLM timeout.
	WriteTimeout time.Duration
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:           "0.0.0.0",
		Port:           8000,
		Version:        "dev",
		MaxUploadBytes: DefaultMaxUploadBytes,
		AllowedOrigins: []string{"*"},
		WriteTimeout:   150 * time.Second,
	}
}

// Dependencies are the services and backends the server exposes
type Dependencies struct {
	Documents     driving.DocumentService
	Ask           driving.AskService
	RuntimeConfig *domain.RuntimeConfig
	Checks        map[string]Pinger
	Logger        *slog.Logger
}

// NewServer creates a new HTTP server
func NewServer(cfg Config, deps Dependencies) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	defaults := DefaultConfig()
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaults.MaxUploadBytes
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaults.WriteTimeout
	}
	if cfg.AllowedOrigins == nil {
		cfg.AllowedOrigins = defaults.AllowedOrigins
	}

	s := &Server{
		router:         http.NewServeMux(),
		version:        cfg.Version,
		logger:         logger.With("component", "http"),
		maxUploadBytes: cfg.MaxUploadBytes,
		allowedOrigins: cfg.AllowedOrigins,
		docService:     deps.Documents,
		askService:     deps.Ask,
		runtimeConfig:  deps.RuntimeConfig,
		checks:         deps.Checks,
	}

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.Handler(),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	// Health endpoints
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)

	// Document endpoints
	s.router.HandleFunc("POST /api/v1/documents", s.handleUploadDocument)
	s.router.HandleFunc("GET /api/v1/documents", s.handleListDocuments)
	s.router.HandleFunc("GET /api/v1/documents/{id}", s.handleGetDocument)
	s.router.HandleFunc("POST /api/v1/documents/{id}/index", s.handleReindexDocument)

	// Question endpoints
	s.router.HandleFunc("POST /api/v1/ask", s.handleAsk)
	s.router.HandleFunc("DELETE /api/v1/sessions/{session_id}/documents/{id}", s.handleForgetSession)

	// Unversioned paths kept for existing clients
	s.router.HandleFunc("POST /upload/", s.handleUploadDocument)
	s.router.HandleFunc("GET /documents", s.handleListDocuments)
	s.router.HandleFunc("POST /ask", s.handleAsk)
}

// Handler returns the router wrapped in the middleware chain
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.router
	h = NewCORSMiddleware(s.allowedOrigins).Handler(h)
	h = NewLoggingMiddleware(s.logger).Handler(h)
	h = NewRecoveryMiddleware(s.logger).Handler(h)
	return h
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
