package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MagnusDot/Agent/pkg/config"
	"github.com/MagnusDot/Agent/pkg/observability"
	"github.com/MagnusDot/Agent/pkg/runtime"
)

// Server serves the agent HTTP API.
type Server struct {
	cfg    config.ServerConfig
	agents *runtime.AgentRegistry
	obs    *observability.Manager
	log    *slog.Logger

	// now and userInfo parameterize run-input construction. userInfo
	// stands in for an identity lookup; there is no authentication on
	// this surface.
	now      func() time.Time
	userInfo func() string

	http *http.Server
}

// Option configures the server.
type Option func(*Server)

// WithObservability wires tracing and metrics into the middleware chain
// and the /metrics endpoint.
func WithObservability(obs *observability.Manager) Option {
	return func(s *Server) {
		s.obs = obs
	}
}

// WithLogger sets the request logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Server) {
		s.log = log
	}
}

// WithClock fixes the time source used for run dates.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// WithUserInfo overrides the identity attached to runs.
func WithUserInfo(lookup func() string) Option {
	return func(s *Server) {
		s.userInfo = lookup
	}
}

func New(cfg config.ServerConfig, agents *runtime.AgentRegistry, opts ...Option) *Server {
	cfg.SetDefaults()
	s := &Server{
		cfg:      cfg,
		agents:   agents,
		obs:      observability.NoopManager(),
		log:      slog.Default(),
		now:      time.Now,
		userInfo: lookupUserInfo,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// lookupUserInfo is the stand-in identity for unauthenticated runs.
func lookupUserInfo() string {
	return "Operator"
}

// Router builds the handler tree. Exposed so tests can drive it through
// httptest without binding a port.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(observability.HTTPMiddleware(s.obs.GetTracer("http"), s.obs.GetMetrics()))
	r.Use(s.logRequests)
	r.Use(corsMiddleware)

	r.Get("/health", s.handleHealth)
	r.Get("/agents", s.handleListAgents)
	r.Get("/metrics", s.obs.MetricsHandler().ServeHTTP)
	r.Post("/{agent}/invoke", s.handleInvoke)
	r.Post("/{agent}/stream", s.handleStream)

	return r
}

// Start runs the server until ctx is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	// WriteTimeout stays off: SSE responses are open-ended.
	s.http = &http.Server{
		Addr:        addr,
		Handler:     s.Router(),
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	s.log.Info("http server starting", "address", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// Shutdown drains in-flight requests within the configured timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()

	s.log.Info("http server shutting down")
	return s.http.Shutdown(shutdownCtx)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start))
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
