package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"oidcconfig/internal/app/factory"
	"oidcconfig/internal/client"
	"oidcconfig/internal/config"
	"oidcconfig/internal/health"
	"oidcconfig/internal/instance"
	"oidcconfig/internal/management"
	"oidcconfig/internal/metrics"
	"oidcconfig/internal/middleware"
	"oidcconfig/internal/profile"
	"oidcconfig/internal/property"
	"oidcconfig/internal/registry"
	"oidcconfig/internal/selector"
	"oidcconfig/internal/session"
)

// Health routes
const (
	PathHealth = "/health"
	PathReady  = "/ready"
	PathLive   = "/live"
)

const defaultMetricsPath = "/metrics"

// settingsSource names the default configuration's origin
const settingsSource = "settings"

// Builder builds the application
type Builder struct {
	config     *config.Config
	configPath string
	version    string
	prometheus *prometheus.Registry
	logger     *slog.Logger
}

// NewBuilder creates a new application builder
func NewBuilder(cfg *config.Config, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		config: cfg,
		logger: logger,
	}
}

// WithConfigPath watches path and republishes its settings on change
func (b *Builder) WithConfigPath(path string) *Builder {
	b.configPath = path
	return b
}

// WithVersion sets the version reported by the info and health endpoints
func (b *Builder) WithVersion(version string) *Builder {
	b.version = version
	return b
}

// WithPrometheusRegistry registers all metrics with reg instead of a fresh registry
func (b *Builder) WithPrometheusRegistry(reg *prometheus.Registry) *Builder {
	b.prometheus = reg
	return b
}

// Build constructs the server
func (b *Builder) Build() (*Server, error) {
	cfg := b.config
	promRegistry := b.prometheus
	if promRegistry == nil {
		promRegistry = prometheus.NewRegistry()
	}

	m := factory.CreateMetrics(cfg.Metrics, promRegistry)
	tel, err := factory.CreateTelemetry(cfg.Telemetry, promRegistry, b.logger)
	if err != nil {
		return nil, err
	}

	identity, err := instance.Load(cfg.Instance.IDFile, b.logger)
	if err != nil {
		return nil, fmt.Errorf("loading instance identity: %w", err)
	}
	deps := client.Deps{Identity: identity, Logger: b.logger}

	// The default configuration answers from the static settings
	settings := property.NewSettings(cfg.Settings)
	reg := registry.NewMemory(b.logger)
	reg.SetDefault(client.New(client.DefaultHint, settingsSource, settings, deps))

	sources, err := factory.CreateProfileSources(cfg.Profiles, b.logger)
	if err != nil {
		return nil, fmt.Errorf("creating profile sources: %w", err)
	}
	syncer := factory.CreateProfileSyncer(cfg.Profiles, reg, sources, deps, b.logger,
		profile.WithSyncMetrics(m),
		profile.WithSyncTracer(tel.Tracer()),
		profile.WithSyncMeter(tel.Meter()),
	)

	sel := selector.New(reg, b.logger,
		selector.WithCookieName(cfg.Selector.CookieName),
		selector.WithFallbackName(cfg.Selector.FallbackName),
		selector.WithMetrics(m),
		selector.WithTracer(tel.Tracer()),
	)

	backend, err := factory.CreateSessionStore(cfg.Session, b.logger)
	if err != nil {
		return nil, err
	}
	manager := session.NewManager(backend.Store, nil, session.ManagerConfig{
		Backend:    backend.Name,
		CookieName: cfg.Session.CookieName,
		Secure:     cfg.Session.Secure,
		TTL:        cfg.Session.TTL,
	}, m, b.logger)

	checker := health.NewChecker()
	checker.RegisterCheck("registry", health.RegistryCheck(reg))
	checker.RegisterCheck("session-store", backend.Check)
	checker.RegisterCheck("profiles", health.CustomCheck(syncer.Err))
	healthHandler := health.NewHandler(checker, b.version, identity.ID())

	api := management.NewAPI(reg, identity, b.logger,
		management.WithVersion(b.version),
		management.WithSelection(manager.Middleware, sel.Middleware),
	)

	mux := http.NewServeMux()
	mux.Handle("/", api.Handler())
	mux.HandleFunc("GET "+PathHealth, healthHandler.Health)
	mux.HandleFunc("GET "+PathReady, healthHandler.Ready)
	mux.HandleFunc("GET "+PathLive, healthHandler.Live)

	var handler http.Handler = mux
	if m != nil {
		path := cfg.Metrics.Path
		if path == "" {
			path = defaultMetricsPath
		}
		mux.Handle("GET "+path, metrics.Handler(promRegistry))
		handler = metrics.Middleware(m)(handler)
		b.logger.Info("Metrics enabled", "path", path)
	}
	handler = middleware.Default(b.logger, tel.Middleware)(handler)

	var watcher *config.Watcher
	if b.configPath != "" {
		watcher, err = config.NewWatcher(b.configPath, cfg, config.WatcherConfig{
			Debounce: cfg.Reload.Debounce,
			EnvVars:  true,
			OnChange: func(next *config.Config) error {
				settings.Replace(next.Settings)
				b.logger.Info("Static settings reloaded", "keys", len(next.Settings))
				return nil
			},
		}, b.logger)
		if err != nil {
			_ = backend.Store.Close()
			_ = tel.Shutdown(context.Background())
			return nil, fmt.Errorf("creating config watcher: %w", err)
		}
	}

	return &Server{
		config:    cfg,
		handler:   handler,
		registry:  reg,
		syncer:    syncer,
		watcher:   watcher,
		sessions:  backend.Store,
		telemetry: tel,
		identity:  identity,
		logger:    b.logger,
	}, nil
}
