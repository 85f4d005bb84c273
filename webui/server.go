package webui

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Server is the gateway's HTTP server. It wires the handlers, the session
// store, and the logging middleware onto a net/http server.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	config     ServerConfig
	handlers   *Handlers
	loggingMw  *LoggingMiddleware
	logger     *zap.Logger
}

// ServerConfig configures the Server.
type ServerConfig struct {
	// Port to listen on (default: 5000)
	Port int

	// Host to bind to (default: "0.0.0.0")
	Host string

	// ReadTimeout for HTTP requests (default: 30s)
	ReadTimeout time.Duration

	// WriteTimeout for HTTP responses. Must exceed the dispatch timeout or
	// in-flight generations get cut off mid-response (default: 90s).
	WriteTimeout time.Duration

	// IdleTimeout for keep-alive connections (default: 120s)
	IdleTimeout time.Duration

	// ShutdownTimeout for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration

	// LogSkipPaths are paths excluded from request logging
	LogSkipPaths []string
}

// DefaultServerConfig returns a ServerConfig with sensible defaults.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Port:            5000,
		Host:            "0.0.0.0",
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    90 * time.Second,
		IdleTimeout:     120 * time.Second,
		ShutdownTimeout: 30 * time.Second,
		LogSkipPaths:    []string{"/health"},
	}
}

// NewServer creates a Server with the given handlers.
func NewServer(config ServerConfig, handlers *Handlers, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	mux := http.NewServeMux()
	s := &Server{
		mux:       mux,
		config:    config,
		handlers:  handlers,
		loggingMw: NewLoggingMiddleware(logger, config.LogSkipPaths),
		logger:    logger,
	}
	s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", config.Host, config.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.rootHandler(),
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	logger.Info("gateway server created", zap.String("addr", addr))
	return s
}

// setupRoutes configures the HTTP routes.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("POST /generate", s.handlers.HandleGenerate)
	s.mux.HandleFunc("GET /output/{fileId}", s.handlers.HandleOutput)
	s.mux.HandleFunc("GET /status/{jobId}", s.handlers.HandleStatus)
	s.mux.HandleFunc("GET /health", s.handlers.HandleHealth)
}

// rootHandler wraps the mux with middleware.
func (s *Server) rootHandler() http.Handler {
	var handler http.Handler = s.mux
	handler = securityHeaders(handler)
	handler = s.loggingMw.Handler(handler)
	return handler
}

// securityHeaders sets the baseline response headers on every route.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

// Handler returns the fully wired root handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Addr returns the server's listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start begins listening for HTTP requests. Blocks until the server is shut
// down.
func (s *Server) Start() error {
	s.logger.Info("gateway server starting", zap.String("addr", s.httpServer.Addr))

	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, letting in-flight requests
// finish within the configured shutdown timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down gateway server")

	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown error: %w", err)
	}

	s.logger.Info("gateway server stopped")
	return nil
}
