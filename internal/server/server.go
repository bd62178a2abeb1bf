package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/sundayezeilo/shortlink/internal/config"
	"github.com/sundayezeilo/shortlink/internal/httpx"
	"github.com/sundayezeilo/shortlink/internal/identity"
	"github.com/sundayezeilo/shortlink/internal/shortener"
)

// Check reports whether a dependency is reachable.
type Check func(ctx context.Context) error

// Server represents the HTTP server with all dependencies.
type Server struct {
	config   *config.Config
	logger   *slog.Logger
	handler  *shortener.Handler
	identity identity.Provider
	checks   map[string]Check
	server   *http.Server
}

// Options holds the optional collaborators of a Server.
type Options struct {
	Identity identity.Provider // nil treats every request as anonymous
	Checks   map[string]Check  // dependency checks reported by /x/ready
}

// New creates a new Server instance.
func New(cfg *config.Config, logger *slog.Logger, handler *shortener.Handler, opts Options) *Server {
	provider := opts.Identity
	if provider == nil {
		provider = identity.NewStatic(nil)
	}

	return &Server{
		config:   cfg,
		logger:   logger,
		handler:  handler,
		identity: provider,
		checks:   opts.Checks,
	}
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.applyMiddleware(s.setupRoutes())
}

// Start starts the HTTP server and blocks until ctx is done, a shutdown
// signal arrives, or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.config.Server.Addr(),
		Handler:      s.Handler(),
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  s.config.Server.IdleTimeout,
	}

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("starting http server",
			"addr", s.server.Addr,
			"env", s.config.App.Environment,
		)
		serverErrors <- s.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		s.logger.Info("received shutdown signal", "signal", sig.String())

	case <-ctx.Done():
		s.logger.Info("context canceled, stopping server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
	defer cancel()

	if err := s.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	s.logger.Info("server stopped gracefully")
	return nil
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /x/health", s.healthCheckHandler)
	mux.HandleFunc("GET /x/ready", s.readinessHandler)

	mux.HandleFunc("POST /links/shorten", s.handler.Shorten)
	mux.HandleFunc("GET /links/search", s.handler.Search)
	mux.HandleFunc("GET /links/{code}", s.handler.Resolve)
	mux.HandleFunc("PUT /links/{code}", s.handler.Rewrite)
	mux.HandleFunc("DELETE /links/{code}", s.handler.Delete)
	mux.HandleFunc("GET /links/{code}/stats", s.handler.Stats)

	return mux
}

// applyMiddleware wraps the handler with middleware in the correct order.
func (s *Server) applyMiddleware(handler http.Handler) http.Handler {
	return httpx.Chain(
		httpx.Recovery(s.logger), // Outermost: catch panics
		httpx.RequestID,
		httpx.Logger(s.logger),
		httpx.Timeout(s.config.Server.RequestTimeout),
		httpx.Authenticate(s.identity, s.logger),
	)(handler)
}

// healthCheckHandler handles liveness requests.
func (s *Server) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": s.config.Observability.ServiceName,
		"version": s.config.Observability.ServiceVersion,
	})
}

// readinessHandler runs every dependency check and reports 503 if any fails.
func (s *Server) readinessHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	results := make(map[string]string, len(names))
	for _, name := range names {
		if err := s.checks[name](ctx); err != nil {
			s.logger.WarnContext(ctx, "readiness check failed", "check", name, "error", err.Error())
			results[name] = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	httpx.WriteJSON(w, status, map[string]any{
		"status": http.StatusText(status),
		"checks": results,
	})
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	s.logger.Info("shutting down server")

	if err := s.server.Shutdown(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			s.logger.Warn("shutdown timeout exceeded, forcing close")
			return s.server.Close()
		}
		return err
	}

	return nil
}
