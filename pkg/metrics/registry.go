// Package metrics provides Prometheus metrics collection for dittoiod.
//
// Metrics are optional. Until InitRegistry is called every constructor
// returns a no-op implementation, so the group handler and the engine
// run the same way with or without collection.
//
// Usage:
//
//	metrics.InitRegistry()
//	handler := group.NewHandler(group.HandlerConfig{
//	    Metrics: metrics.NewGroupMetrics("main"),
//	})
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// registry is written once by InitRegistry and read afterwards
	registry     *prometheus.Registry
	registryOnce sync.Once
)

// InitRegistry initializes the global Prometheus registry.
//
// Safe to call more than once; later calls are ignored. If it is never
// called, GetRegistry returns nil and constructors return no-ops.
func InitRegistry() {
	registryOnce.Do(func() {
		registry = prometheus.NewRegistry()
	})
}

// GetRegistry returns the global Prometheus registry, or nil when metrics
// are disabled.
func GetRegistry() *prometheus.Registry {
	return registry
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	return GetRegistry() != nil
}
