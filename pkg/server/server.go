package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"mercator-hq/relay/pkg/config"
	"mercator-hq/relay/pkg/proxy/handlers"
	"mercator-hq/relay/pkg/proxy/middleware"
	"mercator-hq/relay/pkg/telemetry/health"
	"mercator-hq/relay/pkg/telemetry/metrics"
)

// Route paths served by the relay.
const (
	GeneratePath  = "/api/gemini"
	LivenessPath  = "/health"
	ReadinessPath = "/ready"
	VersionPath   = "/version"
)

// BuildInfo identifies the running binary on the version endpoint.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// Dependencies are the components the server routes to.
type Dependencies struct {
	// Generate serves POST /api/gemini. Required.
	Generate http.Handler

	// Health backs the probe endpoints. A nil checker reports ready.
	Health *health.Checker

	// Metrics is mounted at the configured metrics path when metrics
	// are enabled. May be nil.
	Metrics *metrics.Collector

	Build BuildInfo
}

// Server is the relay's HTTP server.
type Server struct {
	config      config.ServerConfig
	metricsCfg  config.MetricsConfig
	deps        Dependencies
	httpServer  *http.Server
	listener    net.Listener
	mu          sync.RWMutex
	isRunning   bool
	stopOnce    sync.Once
	shutdownErr error
	logger      *slog.Logger
}

// NewServer creates a server from the server and metrics sections of cfg.
func NewServer(cfg *config.Config, deps Dependencies) (*Server, error) {
	if deps.Generate == nil {
		return nil, errors.New("server: generate handler is required")
	}
	if deps.Health == nil {
		deps.Health = health.New(0)
	}

	serverCfg := cfg.Server
	serverCfg.WriteTimeout = cfg.EffectiveWriteTimeout()

	return &Server{
		config:     serverCfg,
		metricsCfg: cfg.Telemetry.Metrics,
		deps:       deps,
		logger:     slog.Default().With("component", "server"),
	}, nil
}

// Start binds the listen address and serves until ctx is canceled, then
// shuts down gracefully. It returns nil after a clean shutdown.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return errors.New("server is already running")
	}

	ln, err := net.Listen("tcp", s.config.ListenAddress)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to listen on %s: %w", s.config.ListenAddress, err)
	}

	s.listener = ln
	s.httpServer = &http.Server{
		Handler:        s.Handler(),
		ReadTimeout:    s.config.ReadTimeout,
		WriteTimeout:   s.config.WriteTimeout,
		IdleTimeout:    s.config.IdleTimeout,
		MaxHeaderBytes: s.config.MaxHeaderBytes,
		ErrorLog:       slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}
	s.isRunning = true
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting relay server", "address", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutdown requested")
		return s.Shutdown(context.WithoutCancel(ctx))
	case err := <-errChan:
		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
		return err
	}
}

// Shutdown stops accepting connections and waits for in-flight requests,
// bounded by the configured shutdown timeout. Calling it more than once
// returns the first result.
func (s *Server) Shutdown(ctx context.Context) error {
	s.stopOnce.Do(func() {
		s.mu.RLock()
		srv, running := s.httpServer, s.isRunning
		s.mu.RUnlock()
		if !running || srv == nil {
			return
		}

		s.logger.Info("initiating graceful shutdown", "timeout", s.config.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("error during server shutdown", "error", err)
			s.shutdownErr = fmt.Errorf("server shutdown error: %w", err)
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		s.logger.Info("relay server stopped")
	})

	return s.shutdownErr
}

// Handler returns the routed handler wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.Handle(GeneratePath, s.deps.Generate)
	mux.Handle("GET "+LivenessPath, s.deps.Health.LivenessHandler())
	mux.Handle("GET "+ReadinessPath, s.deps.Health.ReadinessHandler())
	mux.Handle("GET "+VersionPath, health.VersionHandler(s.deps.Build.Version, s.deps.Build.Commit, s.deps.Build.BuildTime))
	if s.metricsCfg.Enabled && s.deps.Metrics != nil {
		mux.Handle("GET "+s.metricsCfg.Path, s.deps.Metrics.Handler())
	}
	mux.Handle("/", handlers.RootHandler())

	return middleware.Chain(mux)
}

// Addr returns the bound address once Start is listening, or "".
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// IsRunning reports whether the server is serving.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}
