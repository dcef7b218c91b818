package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"oidcconfig/internal/config"
	"oidcconfig/internal/instance"
	"oidcconfig/internal/profile"
	"oidcconfig/internal/registry"
	"oidcconfig/internal/session"
	"oidcconfig/internal/telemetry"
)

// Server serves the introspection, health and metrics endpoints and keeps
// the registry in sync with the persisted profiles
type Server struct {
	config    *config.Config
	handler   http.Handler
	registry  *registry.Memory
	syncer    *profile.Syncer
	watcher   *config.Watcher
	sessions  session.Store
	telemetry *telemetry.Telemetry
	identity  *instance.Identity
	logger    *slog.Logger

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewServer creates a new server
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	return NewBuilder(cfg, logger).Build()
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Registry returns the configuration registry
func (s *Server) Registry() *registry.Memory {
	return s.registry
}

// Identity returns the instance identity
func (s *Server) Identity() *instance.Identity {
	return s.identity
}

// Addr returns the listen address, empty before Start
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Start synchronizes the persisted profiles, starts the watchers and the
// HTTP listener. It is non-blocking: the server runs in the background
// until Stop is called.
func (s *Server) Start(ctx context.Context) error {
	if err := s.syncer.SyncAll(ctx); err != nil {
		// Serving the default configuration beats not serving at all
		s.logger.Warn("Initial profile sync incomplete", "error", err)
	}

	addr := net.JoinHostPort(s.config.Server.Host, fmt.Sprint(s.config.Server.Port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind to %s: %w", addr, err)
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	server := &http.Server{
		Handler:      s.handler,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		BaseContext: func(net.Listener) context.Context {
			return runCtx
		},
	}

	s.mu.Lock()
	s.server = server
	s.listener = listener
	s.cancel = cancel
	s.mu.Unlock()

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		s.syncer.Watch(runCtx)
	}()
	go func() {
		defer s.wg.Done()
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("server error", "error", err)
		}
	}()

	if s.watcher != nil {
		s.watcher.Start()
	}

	s.logger.Info("Server started",
		"addr", listener.Addr().String(),
		"instance_id", s.identity.ID(),
		"profiles", s.registry.Len(),
	)
	return nil
}

// Stop gracefully stops the server and releases its resources
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	server, cancel := s.server, s.cancel
	s.mu.Unlock()

	var errs []error
	if server != nil {
		if err := server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stopping HTTP server: %w", err))
		}
	}
	if cancel != nil {
		cancel()
	}
	if s.watcher != nil {
		if err := s.watcher.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stopping config watcher: %w", err))
		}
	}
	s.wg.Wait()

	if err := s.sessions.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing session store: %w", err))
	}
	if err := s.telemetry.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutting down telemetry: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %w", errors.Join(errs...))
	}

	s.logger.Info("Server stopped")
	return nil
}
