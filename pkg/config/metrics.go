package config

import (
	"github.com/marmos91/dittoiod/pkg/metrics"
)

// MetricsResult contains all metrics-related components created from configuration.
type MetricsResult struct {
	// Server is the HTTP server exposing Prometheus metrics (nil if disabled)
	Server *metrics.Server

	// Group collects group request metrics (never nil, noop if disabled)
	Group metrics.GroupMetrics

	// Engine collects task engine metrics (never nil, noop if disabled)
	Engine metrics.EngineMetrics
}

// InitializeMetrics creates the metrics components for cfg.
//
// When metrics are disabled the server is nil and the collectors are
// no-ops.
func InitializeMetrics(cfg *Config) *MetricsResult {
	if !cfg.Metrics.Enabled {
		return &MetricsResult{
			Group:  metrics.NewNoopGroupMetrics(),
			Engine: metrics.NewNoopEngineMetrics(),
		}
	}

	metrics.InitRegistry()

	return &MetricsResult{
		Server: metrics.NewServer(metrics.ServerConfig{Port: cfg.Metrics.Port}),
		Group:  metrics.NewGroupMetrics(cfg.Container.Name),
		Engine: metrics.NewEngineMetrics(),
	}
}
