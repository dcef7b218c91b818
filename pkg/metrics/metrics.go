package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Selection outcomes
const (
	OutcomeCookie   = "cookie"
	OutcomeFallback = "fallback"
	OutcomeDefault  = "default"
	OutcomeError    = "error"
)

// Metrics holds all Prometheus metrics of the service
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ActiveRequests  *prometheus.GaugeVec

	// Selection metrics
	SelectionsTotal   *prometheus.CounterVec
	SelectionDuration prometheus.Histogram

	// Resolution metrics
	ResolutionErrors *prometheus.CounterVec

	// Session metrics
	SessionsActive    *prometheus.GaugeVec
	SessionOperations *prometheus.CounterVec

	// Profile metrics
	ProfilesRegistered *prometheus.GaugeVec
	ProfileSyncTotal   *prometheus.CounterVec
	ProfileRejected    *prometheus.CounterVec
}

// New creates a new Metrics instance with all metrics registered
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a new Metrics instance with a custom registry
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)

	return &Metrics{
		// HTTP metrics
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oidcconfig_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "oidcconfig_http_request_duration_seconds",
				Help:    "HTTP request latencies in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		ActiveRequests: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "oidcconfig_http_requests_active",
				Help: "Number of active HTTP requests",
			},
			[]string{"method", "path"},
		),

		// Selection metrics
		SelectionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oidcconfig_selections_total",
				Help: "Total number of client configuration selections",
			},
			[]string{"hint", "outcome"},
		),
		SelectionDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "oidcconfig_selection_duration_seconds",
				Help:    "Client configuration selection latencies in seconds",
				Buckets: prometheus.ExponentialBuckets(0.00001, 4, 8), // 10µs to ~160ms
			},
		),

		// Resolution metrics
		ResolutionErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oidcconfig_resolution_errors_total",
				Help: "Total number of configuration values that could not be resolved",
			},
			[]string{"hint", "error_type"},
		),

		// Session metrics
		SessionsActive: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "oidcconfig_sessions_active",
				Help: "Number of sessions held by the session store",
			},
			[]string{"backend"},
		),
		SessionOperations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oidcconfig_session_operations_total",
				Help: "Total number of session store operations",
			},
			[]string{"backend", "operation", "status"},
		),

		// Profile metrics
		ProfilesRegistered: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "oidcconfig_profiles_registered",
				Help: "Number of persisted profiles registered per source",
			},
			[]string{"source"},
		),
		ProfileSyncTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oidcconfig_profile_sync_total",
				Help: "Total number of persisted profile synchronizations",
			},
			[]string{"source", "status"},
		),
		ProfileRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oidcconfig_profiles_rejected_total",
				Help: "Total number of persisted profiles that were not registered",
			},
			[]string{"source", "reason"},
		),
	}
}

// NormalizePath normalizes the path for metrics labels to avoid high cardinality
func NormalizePath(path string) string {
	const maxLength = 50
	if len(path) > maxLength {
		return path[:maxLength] + "..."
	}
	return path
}
