package factory

import (
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"oidcconfig/internal/config"
	"oidcconfig/internal/telemetry"
	"oidcconfig/pkg/metrics"
)

// CreateTelemetry creates the OpenTelemetry providers. Instruments are
// exported through registerer when telemetry metrics are enabled.
func CreateTelemetry(cfg telemetry.Config, registerer prometheus.Registerer, logger *slog.Logger) (*telemetry.Telemetry, error) {
	t, err := telemetry.New(cfg, telemetry.WithRegisterer(registerer))
	if err != nil {
		return nil, fmt.Errorf("creating telemetry: %w", err)
	}
	if cfg.Enabled {
		logger.Info("Telemetry enabled", "service", cfg.Service, "version", cfg.Version,
			"tracing", cfg.Tracing.Enabled, "metrics", cfg.Metrics.Enabled)
	}
	return t, nil
}

// CreateMetrics registers the Prometheus metrics with registerer, nil when
// metrics are disabled
func CreateMetrics(cfg config.Metrics, registerer prometheus.Registerer) *metrics.Metrics {
	if !ShouldEnableMetrics(cfg) {
		return nil
	}
	return metrics.NewWithRegistry(registerer)
}

// ShouldEnableMetrics checks if metrics should be enabled based on config
func ShouldEnableMetrics(cfg config.Metrics) bool {
	return cfg.Enabled
}
