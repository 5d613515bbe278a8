package orchestrator

import (
	"context"
	"fmt"

	"inferd/internal/readiness"
	"inferd/pkg/types"
)

// StartLocal issues a user-initiated daemon start, then confirms with bounded
// re-probes before refreshing state. Never called automatically — spawning a
// daemon is surprising resource use on hosts without the capability. Fails
// soft: on any failure the state keeps an updated reason and the returned
// error is a reported signal, not a fault. A second call while one is
// outstanding is a no-op.
func (o *Orchestrator) StartLocal(ctx context.Context) error {
	o.mu.Lock()
	if o.starting {
		o.mu.Unlock()
		return nil
	}
	if o.cfg.Environment == types.EnvNetworkOnly {
		o.mu.Unlock()
		reason := "local inference is not supported in this environment"
		o.toUnavailable(reason)
		return startFailedError{reason: reason}
	}
	o.starting = true
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		o.starting = false
		o.mu.Unlock()
	}()

	if err := o.local.Start(ctx); err != nil {
		reason := fmt.Sprintf("could not start the local service: %v", err)
		o.toUnavailable(reason)
		return startFailedError{reason: reason}
	}

	up := readiness.Waiter{
		Prober:   readiness.ProberFunc(o.local.CheckStatus),
		Attempts: o.cfg.ProbeAttempts,
		Interval: o.cfg.ProbeInterval,
	}.Wait(ctx)
	if !up {
		reason := "local service started but is not answering"
		o.toUnavailable(reason)
		return startFailedError{reason: reason}
	}

	if !o.refreshLocal(ctx) {
		return startFailedError{reason: "local service answered but could not report its models"}
	}
	return nil
}
