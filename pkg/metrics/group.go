package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// GroupMetrics provides observability for group requests.
//
// This interface is optional - if not provided to the group handler,
// requests proceed without metrics collection (zero overhead).
//
// Example usage:
//
//	handler := group.NewHandler(group.HandlerConfig{
//	    Metrics: metrics.NewGroupMetrics("badger"),
//	})
type GroupMetrics interface {
	// RecordRequest records a completed request.
	//
	// Parameters:
	//   - operation: Request kind ("create", "open", "close", "link")
	//   - duration: Time taken to produce the reply
	//   - status: Reply status (e.g., "ok", "duplicate_name")
	RecordRequest(operation string, duration time.Duration, status string)

	// RecordRequestStart increments the in-flight gauge for operation.
	RecordRequestStart(operation string)

	// RecordRequestEnd decrements the in-flight gauge for operation.
	RecordRequestEnd(operation string)
}

// groupMetrics is the Prometheus implementation of GroupMetrics.
type groupMetrics struct {
	container        string
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight *prometheus.GaugeVec
}

// NewGroupMetrics creates a Prometheus-backed GroupMetrics instance.
//
// Parameters:
//   - container: Container name, used as a label so that several
//     containers served by one process can be told apart
//
// Returns a no-op implementation if metrics are not enabled (InitRegistry
// not called).
func NewGroupMetrics(container string) GroupMetrics {
	if !IsEnabled() {
		return NewNoopGroupMetrics()
	}

	reg := GetRegistry()
	return &groupMetrics{
		container: container,
		requestsTotal: registerCounterVec(reg, prometheus.CounterOpts{
			Name: "dittoiod_group_requests_total",
			Help: "Total number of group requests by container, operation, and status",
		}, []string{"container", "operation", "status"}),
		requestDuration: registerHistogramVec(reg, prometheus.HistogramOpts{
			Name: "dittoiod_group_request_duration_seconds",
			Help: "Duration of group requests in seconds",
			Buckets: []float64{
				0.0001, // 100µs
				0.0005, // 500µs
				0.001,  // 1ms
				0.005,  // 5ms
				0.01,   // 10ms
				0.05,   // 50ms
				0.1,    // 100ms
				0.5,    // 500ms
				1.0,    // 1s
			},
		}, []string{"container", "operation"}),
		requestsInFlight: registerGaugeVec(reg, prometheus.GaugeOpts{
			Name: "dittoiod_group_requests_in_flight",
			Help: "Current number of group requests being processed",
		}, []string{"container", "operation"}),
	}
}

func (m *groupMetrics) RecordRequest(operation string, duration time.Duration, status string) {
	m.requestsTotal.WithLabelValues(m.container, operation, status).Inc()
	m.requestDuration.WithLabelValues(m.container, operation).Observe(duration.Seconds())
}

func (m *groupMetrics) RecordRequestStart(operation string) {
	m.requestsInFlight.WithLabelValues(m.container, operation).Inc()
}

func (m *groupMetrics) RecordRequestEnd(operation string) {
	m.requestsInFlight.WithLabelValues(m.container, operation).Dec()
}

// noopGroupMetrics is a no-op implementation of GroupMetrics with zero overhead.
type noopGroupMetrics struct{}

// NewNoopGroupMetrics returns a GroupMetrics that records nothing.
func NewNoopGroupMetrics() GroupMetrics {
	return noopGroupMetrics{}
}

func (noopGroupMetrics) RecordRequest(operation string, duration time.Duration, status string) {}
func (noopGroupMetrics) RecordRequestStart(operation string)                                  {}
func (noopGroupMetrics) RecordRequestEnd(operation string)                                    {}

// registerCounterVec registers a counter vector, reusing an identical one
// that is already registered. Several handlers may be created for the same
// registry.
func registerCounterVec(reg *prometheus.Registry, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	vec := prometheus.NewCounterVec(opts, labels)
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector.(*prometheus.CounterVec)
		}
		return promauto.With(nil).NewCounterVec(opts, labels)
	}
	return vec
}

func registerHistogramVec(reg *prometheus.Registry, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	vec := prometheus.NewHistogramVec(opts, labels)
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector.(*prometheus.HistogramVec)
		}
		return promauto.With(nil).NewHistogramVec(opts, labels)
	}
	return vec
}

func registerGaugeVec(reg *prometheus.Registry, opts prometheus.GaugeOpts, labels []string) *prometheus.GaugeVec {
	vec := prometheus.NewGaugeVec(opts, labels)
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector.(*prometheus.GaugeVec)
		}
		return promauto.With(nil).NewGaugeVec(opts, labels)
	}
	return vec
}
