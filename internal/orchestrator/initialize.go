package orchestrator

import (
	"context"
	"fmt"

	"inferd/internal/catalog"
	"inferd/pkg/types"
)

// Initialize runs the startup sequence: take the hardware profile (pure,
// non-failing), probe the local daemon, and settle into a state where at
// least one usable model id is selected — the cloud id is the universal
// fallback, so initialization always terminates ready. A concurrent
// Initialize while a probe is outstanding is a no-op.
func (o *Orchestrator) Initialize(ctx context.Context) {
	if !o.beginProbe() {
		return
	}
	defer o.endProbe()

	p := o.cfg.Profiler()
	o.mu.Lock()
	o.profile = p
	o.mu.Unlock()

	if o.cfg.Environment == types.EnvNetworkOnly {
		o.toUnavailable("local inference is not supported in this environment")
		return
	}
	o.refreshLocal(ctx)
}

// refreshLocal probes the daemon and transitions accordingly. local_ready is
// only entered off a successful probe AND a fresh model list; a daemon that
// answers liveness but fails the list query is treated as down.
func (o *Orchestrator) refreshLocal(ctx context.Context) bool {
	if !o.local.CheckStatus(ctx) {
		o.toUnavailable("local inference service is not running")
		return false
	}
	installed, err := o.local.ListInstalled(ctx)
	if err != nil {
		o.toUnavailable(fmt.Sprintf("local service is up but the model list could not be read: %v", err))
		return false
	}
	o.toLocalReady(installed)
	return true
}

// toLocalReady replaces the installed set wholesale and recomputes the
// default selection unless the user chose a model this session.
func (o *Orchestrator) toLocalReady(installed []string) {
	o.mu.Lock()
	o.installed = append([]string(nil), installed...)
	if !o.userSelected {
		o.selected = o.defaultSelectionLocked()
	}
	o.mu.Unlock()
	o.setState(types.BackendLocalReady, "")
}

// toUnavailable records the reason and settles: with a stored credential the
// machine rests in cloud_fallback, otherwise in local_unavailable. Either way
// the ready contract holds — the cloud path is assumed usable.
func (o *Orchestrator) toUnavailable(reason string) {
	o.mu.Lock()
	if !o.userSelected || o.selected == "" {
		o.selected = o.cfg.CloudModelID
	}
	o.mu.Unlock()

	o.setState(types.BackendLocalUnavailable, reason)
	if o.creds.Present() {
		o.setState(types.BackendCloudFallback, reason)
	}
}

// defaultSelectionLocked picks the hardware-recommended tier when installed,
// then the first installed model, then the cloud id. Callers hold o.mu.
func (o *Orchestrator) defaultSelectionLocked() string {
	if d, ok := catalog.ForTier(o.cfg.Catalog, o.profile.RecommendedTier); ok {
		for _, name := range o.installed {
			if name == d.Name {
				return name
			}
		}
	}
	if len(o.installed) > 0 {
		return o.installed[0]
	}
	return o.cfg.CloudModelID
}
