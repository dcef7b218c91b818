// Package management serves the introspection endpoints of the service
package management

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime"
	"time"

	"oidcconfig/internal/core"
	"oidcconfig/internal/registry"
	"oidcconfig/internal/selector"
	"oidcconfig/internal/session"
	"oidcconfig/internal/telemetry"
	"oidcconfig/pkg/errors"
)

// Introspection routes
const (
	PathConfiguration  = "/oidc/configuration"
	PathConfigurations = "/oidc/configurations"
	PathInfo           = "/info"
)

// Registry lists the registered configurations
type Registry interface {
	registry.Registry
	Hints() []string
}

// Middleware wraps a handler
type Middleware func(http.Handler) http.Handler

// API provides the introspection endpoints
type API struct {
	registry  Registry
	identity  core.InstanceIdentity
	version   string
	selection []Middleware
	logger    *slog.Logger
	mux       *http.ServeMux
	startTime time.Time
}

// Option customizes the API
type Option func(*API)

// WithSelection sets the middlewares attaching a session and a selected
// configuration to configuration requests. They run in the given order.
func WithSelection(mw ...Middleware) Option {
	return func(api *API) { api.selection = mw }
}

// WithVersion sets the reported version
func WithVersion(version string) Option {
	return func(api *API) { api.version = version }
}

// NewAPI creates a new management API
func NewAPI(reg Registry, identity core.InstanceIdentity, logger *slog.Logger, opts ...Option) *API {
	if logger == nil {
		logger = slog.Default()
	}
	api := &API{
		registry:  reg,
		identity:  identity,
		logger:    logger.With("component", "management-api"),
		mux:       http.NewServeMux(),
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(api)
	}
	api.setupRoutes()
	return api
}

func (api *API) setupRoutes() {
	var configuration http.Handler = http.HandlerFunc(api.handleConfiguration)
	for i := len(api.selection) - 1; i >= 0; i-- {
		configuration = api.selection[i](configuration)
	}

	api.mux.Handle("GET "+PathConfiguration, configuration)
	api.mux.HandleFunc("GET "+PathConfigurations, api.handleConfigurations)
	api.mux.HandleFunc("GET "+PathInfo, api.handleInfo)
}

// Handler returns the HTTP handler serving all routes
func (api *API) Handler() http.Handler {
	return api.mux
}

// ConfigurationsResponse lists the registered configurations
type ConfigurationsResponse struct {
	Default string   `json:"default,omitempty"`
	Hints   []string `json:"hints"`
}

// InfoResponse describes the running instance
type InfoResponse struct {
	Version    string    `json:"version,omitempty"`
	InstanceID string    `json:"instanceId"`
	StartTime  time.Time `json:"startTime"`
	Uptime     string    `json:"uptime"`
	GoVersion  string    `json:"goVersion"`
}

// handleConfiguration resolves the configuration selected for the request
// through request, session and store
func (api *API) handleConfiguration(w http.ResponseWriter, r *http.Request) {
	c, ok := selector.FromContext(r.Context())
	if !ok {
		api.writeError(w, http.StatusInternalServerError, "no configuration selected")
		return
	}

	snapshot, err := c.For(core.NewRequest(r), session.FromContext(r.Context())).Snapshot()
	if err != nil {
		status := http.StatusInternalServerError
		var e *errors.Error
		if errors.As(err, &e) {
			status = e.HTTPStatusCode()
		}
		telemetry.RecordError(r.Context(), err)
		telemetry.LogEvent(r.Context(), api.logger, slog.LevelDebug, "configuration resolution failed", "hint", c.Hint(), "error", err)
		api.writeError(w, status, err.Error())
		return
	}

	api.writeJSON(w, http.StatusOK, snapshot)
}

func (api *API) handleConfigurations(w http.ResponseWriter, r *http.Request) {
	resp := ConfigurationsResponse{Hints: api.registry.Hints()}
	if resp.Hints == nil {
		resp.Hints = []string{}
	}
	if c, err := api.registry.Default(); err == nil {
		resp.Default = c.Hint()
	}
	api.writeJSON(w, http.StatusOK, resp)
}

func (api *API) handleInfo(w http.ResponseWriter, r *http.Request) {
	resp := InfoResponse{
		Version:   api.version,
		StartTime: api.startTime,
		Uptime:    time.Since(api.startTime).Round(time.Second).String(),
		GoVersion: runtime.Version(),
	}
	if api.identity != nil {
		resp.InstanceID = api.identity.ID()
	}
	api.writeJSON(w, http.StatusOK, resp)
}

// Helper methods
func (api *API) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		api.logger.Error("Failed to encode response", "error", err)
	}
}

func (api *API) writeError(w http.ResponseWriter, status int, message string) {
	api.writeJSON(w, status, map[string]string{
		"error": message,
	})
}
