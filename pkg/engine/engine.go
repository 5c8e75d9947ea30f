// Package engine runs group requests as independent units of work.
//
// A request's outcome travels through its reply sink; the error a task
// returns is only recorded. One failing request therefore never cancels
// its siblings. Only cancellation of the batch context stops a batch early.
package engine

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/marmos91/dittoiod/internal/logger"
	"github.com/marmos91/dittoiod/pkg/metrics"
	"golang.org/x/sync/errgroup"
)

// Task is one unit of work.
type Task func(ctx context.Context) error

// Config configures an Engine.
type Config struct {
	// Concurrency caps the number of tasks running at once. Zero means
	// unlimited.
	Concurrency int `mapstructure:"concurrency" yaml:"concurrency" validate:"gte=0"`

	// RequestsPerSecond caps how fast tasks start. Zero means unlimited.
	RequestsPerSecond uint `mapstructure:"requests_per_second" yaml:"requests_per_second"`

	// Burst is the throttle's bucket size.
	Burst uint `mapstructure:"burst" yaml:"burst"`
}

// Engine dispatches tasks with bounded concurrency and rate.
type Engine struct {
	concurrency int
	throttle    *Throttle
	metrics     metrics.EngineMetrics
}

// New creates an Engine. A nil m disables metrics.
func New(cfg Config, m metrics.EngineMetrics) *Engine {
	if m == nil {
		m = metrics.NewNoopEngineMetrics()
	}
	return &Engine{
		concurrency: cfg.Concurrency,
		throttle:    NewThrottle(cfg.RequestsPerSecond, cfg.Burst),
		metrics:     m,
	}
}

// Result summarizes a finished batch.
type Result struct {
	Completed int

	// Failed maps task names to the error they returned
	Failed map[string]error
}

// OK reports whether every task succeeded.
func (r Result) OK() bool {
	return len(r.Failed) == 0
}

// Batch is a set of tasks started with Go and awaited with Wait.
type Batch struct {
	engine *Engine
	ctx    context.Context
	group  *errgroup.Group

	mu     sync.Mutex
	result Result
}

// NewBatch starts an empty batch bound to ctx.
func (e *Engine) NewBatch(ctx context.Context) *Batch {
	g, gctx := errgroup.WithContext(ctx)
	if e.concurrency > 0 {
		g.SetLimit(e.concurrency)
	}
	return &Batch{
		engine: e,
		ctx:    gctx,
		group:  g,
		result: Result{Failed: make(map[string]error)},
	}
}

// Go schedules task under name. It blocks while the batch is at its
// concurrency limit.
func (b *Batch) Go(name string, task Task) {
	b.group.Go(func() error {
		wait, err := b.engine.throttle.Wait(b.ctx)
		if err != nil {
			return err
		}
		b.engine.metrics.RecordThrottleWait(wait)

		start := time.Now()
		err = task(b.ctx)
		b.engine.metrics.RecordTask(kind(name), time.Since(start), err)

		b.mu.Lock()
		b.result.Completed++
		if err != nil {
			b.result.Failed[name] = err
		}
		b.mu.Unlock()

		if err != nil {
			logger.Debug("engine: task %s failed: %v", name, err)
		}
		return nil
	})
}

// Wait waits for every scheduled task. The error is non-nil only if the
// batch context was cancelled before all tasks could start.
func (b *Batch) Wait() (Result, error) {
	err := b.group.Wait()
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.result, err
}

// Run schedules tasks in one batch and waits for them.
func (e *Engine) Run(ctx context.Context, tasks map[string]Task) (Result, error) {
	b := e.NewBatch(ctx)
	for name, task := range tasks {
		b.Go(name, task)
	}
	return b.Wait()
}

// kind returns the metric label of a task name of the form "kind:detail".
func kind(name string) string {
	k, _, _ := strings.Cut(name, ":")
	return k
}
