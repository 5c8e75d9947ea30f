package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// EngineMetrics provides observability for the task engine.
type EngineMetrics interface {
	// RecordTask records a finished task.
	//
	// Parameters:
	//   - task: Task kind (e.g., "create", "open")
	//   - duration: Time spent running the task, excluding throttling
	//   - err: Error returned by the task, nil if successful
	RecordTask(task string, duration time.Duration, err error)

	// RecordThrottleWait records how long a task waited for the throttle.
	RecordThrottleWait(wait time.Duration)
}

type engineMetrics struct {
	tasksTotal   *prometheus.CounterVec
	taskDuration *prometheus.HistogramVec
	throttleWait prometheus.Histogram
}

// NewEngineMetrics creates a Prometheus-backed EngineMetrics instance.
//
// Returns a no-op implementation if metrics are not enabled (InitRegistry
// not called).
func NewEngineMetrics() EngineMetrics {
	if !IsEnabled() {
		return NewNoopEngineMetrics()
	}

	reg := GetRegistry()
	throttleWait := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "dittoiod_engine_throttle_wait_seconds",
		Help:    "Time tasks spent waiting for the rate limiter",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
	})
	if err := reg.Register(throttleWait); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			throttleWait = are.ExistingCollector.(prometheus.Histogram)
		}
	}

	return &engineMetrics{
		tasksTotal: registerCounterVec(reg, prometheus.CounterOpts{
			Name: "dittoiod_engine_tasks_total",
			Help: "Total number of tasks run by the engine by kind and status",
		}, []string{"task", "status"}),
		taskDuration: registerHistogramVec(reg, prometheus.HistogramOpts{
			Name:    "dittoiod_engine_task_duration_seconds",
			Help:    "Duration of engine tasks in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"task"}),
		throttleWait: throttleWait,
	}
}

func (m *engineMetrics) RecordTask(task string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.tasksTotal.WithLabelValues(task, status).Inc()
	m.taskDuration.WithLabelValues(task).Observe(duration.Seconds())
}

func (m *engineMetrics) RecordThrottleWait(wait time.Duration) {
	m.throttleWait.Observe(wait.Seconds())
}

type noopEngineMetrics struct{}

// NewNoopEngineMetrics returns an EngineMetrics that records nothing.
func NewNoopEngineMetrics() EngineMetrics {
	return noopEngineMetrics{}
}

func (noopEngineMetrics) RecordTask(task string, duration time.Duration, err error) {}
func (noopEngineMetrics) RecordThrottleWait(wait time.Duration)                     {}
