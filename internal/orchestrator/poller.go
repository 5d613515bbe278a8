package orchestrator

import (
	"context"
	"time"

	"inferd/pkg/types"
)

// RunPoller retries the local daemon in the background while it is
// unavailable, promoting to local_ready as soon as a probe plus model list
// succeeds. Best-effort: ticks that land while another probe-class operation
// is in flight are skipped, keeping transitions serialized. Call from a
// dedicated goroutine; returns when ctx is done.
func (o *Orchestrator) RunPoller(ctx context.Context) {
	ticker := time.NewTicker(o.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			o.mu.RLock()
			state := o.state
			env := o.cfg.Environment
			o.mu.RUnlock()
			if env == types.EnvNetworkOnly {
				return
			}
			if state != types.BackendLocalUnavailable && state != types.BackendCloudFallback {
				continue
			}
			if !o.beginProbe() {
				continue
			}
			o.refreshLocal(ctx)
			o.endProbe()
		case <-ctx.Done():
			return
		}
	}
}
