// Package server provides the HTTP API over the state-custody layer.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/jonathan/pathway-advisor/internal/consent"
	"github.com/jonathan/pathway-advisor/internal/custody"
	"github.com/jonathan/pathway-advisor/internal/server/ratelimit"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// SessionHeader carries the caller's session ID. Keeping it out of paths keeps
// it out of access logs.
const SessionHeader = "X-Session-ID"

// Server represents the HTTP server
type Server struct {
	echo            *echo.Echo
	svc             *custody.Service
	consent         *consent.Engine
	rateLimiter     *ratelimit.Limiter
	addr            string
	shutdownTimeout time.Duration
}

// Config holds server configuration
type Config struct {
	Addr            string
	ShutdownTimeout time.Duration
	RateLimit       *ratelimit.Config
	BodyLimit       string
	// IPExtractor resolves the client address used for rate limiting.
	// Defaults to the connection's remote address; forwarding headers are
	// only honored when a proxy-aware extractor is supplied.
	IPExtractor echo.IPExtractor
}

// New creates a new server instance
func New(svc *custody.Service, engine *consent.Engine, cfg Config) *Server {
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.BodyLimit == "" {
		cfg.BodyLimit = "2M"
	}
	if cfg.IPExtractor == nil {
		cfg.IPExtractor = echo.ExtractIPDirect()
	}

	s := &Server{
		echo:            echo.New(),
		svc:             svc,
		consent:         engine,
		rateLimiter:     ratelimit.NewLimiter(cfg.RateLimit),
		addr:            cfg.Addr,
		shutdownTimeout: cfg.ShutdownTimeout,
	}

	e := s.echo
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.handleHTTPError
	e.IPExtractor = cfg.IPExtractor

	// Middleware
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: newRequestID}))
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, SessionHeader},
	}))
	e.Use(s.withRateLimit)

	s.RegisterRoutes(e)
	return s
}

// RegisterRoutes registers routes with the echo server.
func (s *Server) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", s.handleHealth)

	v1 := e.Group("/v1")

	// Sessions and runs
	v1.POST("/sessions", s.handleCreateSession)
	v1.POST("/runs", s.handleCreateRun)
	v1.GET("/runs/:run_id", s.handleGetRun)
	v1.PUT("/runs/:run_id/status", s.handleSetRunStatus)

	// Run state log
	v1.POST("/runs/:run_id/states", s.handleAppendState)
	v1.GET("/runs/:run_id/states", s.handleListStates)
	v1.GET("/runs/:run_id/states/latest", s.handleLatestState)
	v1.GET("/states/:entry_id", s.handleGetState)

	// Evidence
	v1.POST("/documents", s.handleRegisterDocument)
	v1.GET("/documents", s.handleDocumentsByHash)
	v1.GET("/documents/:document_id", s.handleGetDocument)
	v1.POST("/documents/:document_id/items", s.handleRegisterItems)
	v1.GET("/documents/:document_id/items", s.handleListItems)

	// Role requirement cache
	v1.PUT("/roles", s.handleUpsertRole)
	v1.GET("/roles/:role_id", s.handleGetRole)
	v1.PUT("/roles/:role_id/requirements", s.handleReplaceRequirements)
	v1.GET("/roles/:role_id/requirements", s.handleListRequirements)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server starting on %s", s.addr)
		if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		s.rateLimiter.Stop()
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	// Stop rate limiter cleanup goroutine
	s.rateLimiter.Stop()
	log.Println("Server stopped")
	return nil
}

// handleHealth reports whether the store is reachable.
func (s *Server) handleHealth(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	if err := s.svc.Store().Ping(ctx); err != nil {
		log.Printf("WARN: health check failed: %v", err)
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
