package engine

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Throttle limits how fast tasks are started, using a token bucket.
//
// A zero rate means unlimited. The burst is the number of tasks that may
// start back to back when the bucket is full; it is raised to 1 when a
// rate is set, since a zero burst would never admit anything.
//
// Thread safety:
// All methods are safe for concurrent use.
type Throttle struct {
	limiter *rate.Limiter
}

// NewThrottle creates a Throttle admitting perSecond tasks per second.
func NewThrottle(perSecond, burst uint) *Throttle {
	if perSecond == 0 {
		return &Throttle{limiter: rate.NewLimiter(rate.Inf, 0)}
	}
	if burst == 0 {
		burst = 1
	}
	return &Throttle{limiter: rate.NewLimiter(rate.Limit(perSecond), int(burst))}
}

// Wait blocks until a task may start or ctx is done, and returns how long
// it waited.
func (t *Throttle) Wait(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	err := t.limiter.Wait(ctx)
	return time.Since(start), err
}

// Allow reports whether a task may start now, consuming a token if so.
func (t *Throttle) Allow() bool {
	return t.limiter.Allow()
}

// Unlimited reports whether the throttle admits tasks without limit.
func (t *Throttle) Unlimited() bool {
	return t.limiter.Limit() == rate.Inf
}

// SetRate changes the sustained rate. Zero removes the limit.
func (t *Throttle) SetRate(perSecond uint) {
	if perSecond == 0 {
		t.limiter.SetLimit(rate.Inf)
		return
	}
	t.limiter.SetLimit(rate.Limit(perSecond))
	if t.limiter.Burst() == 0 {
		t.limiter.SetBurst(1)
	}
}
