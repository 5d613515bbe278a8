// Package readiness is the single retry/backoff shape shared by every
// "is this service up yet" check in the application, parameterized by which
// service is probed. Keeping one shape prevents per-service retry policies
// from drifting apart.
package readiness

import (
	"context"
	"time"
)

// Prober answers a single liveness check.
type Prober interface {
	Probe(ctx context.Context) bool
}

// ProberFunc adapts a function to Prober.
type ProberFunc func(ctx context.Context) bool

func (f ProberFunc) Probe(ctx context.Context) bool { return f(ctx) }

// Defaults applied when corresponding Waiter fields are unset.
const (
	defaultAttempts = 10
	defaultInterval = 2 * time.Second
)

// Waiter probes until success, a fixed attempt ceiling, or ctx cancellation.
// Fixed attempts with a fixed interval; both explicit so tests can run at
// accelerated time.
type Waiter struct {
	Prober   Prober
	Attempts int
	Interval time.Duration
}

// Wait returns true as soon as a probe succeeds. The first probe fires
// immediately; the interval separates subsequent attempts.
func (w Waiter) Wait(ctx context.Context) bool {
	attempts := w.Attempts
	if attempts <= 0 {
		attempts = defaultAttempts
	}
	interval := w.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-time.After(interval):
			case <-ctx.Done():
				return false
			}
		}
		if w.Prober.Probe(ctx) {
			return true
		}
	}
	return false
}
