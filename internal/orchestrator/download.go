package orchestrator

import (
	"fmt"

	"inferd/pkg/types"
)

// Download starts a background pull of name. Precondition: the local daemon
// must be confirmed running, otherwise the request is rejected immediately
// rather than attempted and failed late. Distinct names may download
// concurrently; a duplicate of an in-flight name is rejected. The transient
// progress record lives only until the operation settles.
func (o *Orchestrator) Download(name string) error {
	if name == "" {
		return fmt.Errorf("empty model name")
	}
	o.mu.Lock()
	if o.state != types.BackendLocalReady {
		o.mu.Unlock()
		return serviceNotRunningError{}
	}
	if _, busy := o.downloads[name]; busy {
		o.mu.Unlock()
		return downloadInFlightError{model: name}
	}
	o.downloads[name] = &types.DownloadProgress{Model: name}
	o.mu.Unlock()

	go o.runDownload(name)
	return nil
}

// Progress returns the transient record for an in-flight download. After the
// download settles the record is gone and ok is false; the installed-model
// set is the source of truth from then on.
func (o *Orchestrator) Progress(name string) (types.DownloadProgress, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	p, ok := o.downloads[name]
	if !ok {
		return types.DownloadProgress{}, false
	}
	return *p, true
}

func (o *Orchestrator) runDownload(name string) {
	ctx := o.cfg.BaseContext
	err := o.local.Pull(ctx, name, func(p types.DownloadProgress) {
		o.mu.Lock()
		if cur, ok := o.downloads[name]; ok && p.Percent >= cur.Percent {
			*cur = p
		}
		o.mu.Unlock()
		o.cfg.Events.Publish(Event{
			Name:    EventDownloadProgress,
			ModelID: name,
			Fields:  map[string]any{"percent": p.Percent, "done": p.Done},
		})
	})

	// Authoritative refresh regardless of outcome: a pull can silently fail
	// to register, and the daemon may have changed out-of-band meanwhile.
	if installed, lerr := o.local.ListInstalled(ctx); lerr == nil {
		o.toLocalReady(installed)
	}

	o.mu.Lock()
	delete(o.downloads, name)
	o.mu.Unlock()

	fields := map[string]any{"ok": err == nil}
	if err != nil {
		fields["error"] = err.Error()
	}
	o.cfg.Events.Publish(Event{Name: EventDownloadSettled, ModelID: name, Fields: fields})
}
