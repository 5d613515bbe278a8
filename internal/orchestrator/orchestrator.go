// Package orchestrator implements the backend availability state machine: it
// decides which inference backend (local daemon or cloud API) serves requests
// and recovers when the preferred one is unavailable. Every externally-facing
// operation converts failures into state or a classified result; a missing
// local runtime is an expected condition, not a fault.
package orchestrator

import (
	"context"
	"sync"

	"inferd/internal/gemini"
	"inferd/internal/ollama"
	"inferd/pkg/types"
)

// Backend labels for the active inference path.
const (
	BackendLocal = "local"
	BackendCloud = "cloud"
)

// LocalClient is the local inference daemon surface the orchestrator needs.
type LocalClient interface {
	CheckStatus(ctx context.Context) bool
	ListInstalled(ctx context.Context) ([]string, error)
	Start(ctx context.Context) error
	Pull(ctx context.Context, name string, onProgress ollama.ProgressFunc) error
	Generate(ctx context.Context, model, prompt string) (string, error)
}

// CloudClient is the remote completion API surface.
type CloudClient interface {
	Generate(ctx context.Context, apiKey, prompt string) (string, error)
	TestConnection(ctx context.Context, apiKey string) gemini.CheckResult
}

// CredentialStore supplies the persisted cloud credential.
type CredentialStore interface {
	Load() (string, error)
	Save(key string) error
	Present() bool
}

// Orchestrator composes the two clients into one availability signal.
// Constructed once per process with its dependencies injected; no hidden
// shared state.
type Orchestrator struct {
	cfg   Config
	local LocalClient
	cloud CloudClient
	creds CredentialStore

	mu           sync.RWMutex
	profile      types.HardwareProfile
	state        types.BackendState
	reason       string
	installed    []string
	selected     string
	userSelected bool
	downloads    map[string]*types.DownloadProgress
	probing      bool
	starting     bool
}

// New wires an orchestrator. State starts at checking until Initialize runs.
func New(local LocalClient, cloud CloudClient, creds CredentialStore, cfg Config) *Orchestrator {
	return &Orchestrator{
		cfg:       cfg.withDefaults(),
		local:     local,
		cloud:     cloud,
		creds:     creds,
		state:     types.BackendChecking,
		downloads: make(map[string]*types.DownloadProgress),
	}
}

// Ready reports whether some inference path is usable — not whether the
// preferred one is. The cloud backend is always assumed available, so this is
// true in every settled state.
func (o *Orchestrator) Ready() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state != types.BackendChecking && o.state != types.BackendError
}

// ActiveBackend returns which path serves generate requests right now.
func (o *Orchestrator) ActiveBackend() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.activeBackendLocked()
}

func (o *Orchestrator) activeBackendLocked() string {
	if o.state == types.BackendLocalReady && o.selected != o.cfg.CloudModelID {
		return BackendLocal
	}
	return BackendCloud
}

// SelectModel is a pure state update. The id is not validated as runnable;
// validation is deferred to first use and the caller interprets execution
// failures.
func (o *Orchestrator) SelectModel(id string) {
	o.mu.Lock()
	o.selected = id
	o.userSelected = true
	o.mu.Unlock()
	o.cfg.Events.Publish(Event{Name: EventModelSelected, ModelID: id})
}

// SelectedModel returns the current selection.
func (o *Orchestrator) SelectedModel() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.selected
}

// Profile returns the hardware snapshot taken at Initialize (or the last
// explicit refresh).
func (o *Orchestrator) Profile() types.HardwareProfile {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.profile
}

// Environment returns the host capability class.
func (o *Orchestrator) Environment() types.Environment {
	return o.cfg.Environment
}

// Catalog returns the configured model catalog.
func (o *Orchestrator) Catalog() []types.ModelDescriptor {
	out := make([]types.ModelDescriptor, len(o.cfg.Catalog))
	copy(out, o.cfg.Catalog)
	return out
}

// CloudModelID returns the universal fallback model id.
func (o *Orchestrator) CloudModelID() string {
	return o.cfg.CloudModelID
}

// RefreshHardware recomputes the profile. The snapshot is otherwise immutable
// after Initialize.
func (o *Orchestrator) RefreshHardware() types.HardwareProfile {
	p := o.cfg.Profiler()
	o.mu.Lock()
	o.profile = p
	o.mu.Unlock()
	return p
}

// Snapshot returns a read-only projection of the state machine.
func (o *Orchestrator) Snapshot() types.BackendStatus {
	o.mu.RLock()
	defer o.mu.RUnlock()
	s := types.BackendStatus{
		State:         o.state,
		Ready:         o.state != types.BackendChecking && o.state != types.BackendError,
		ActiveBackend: o.activeBackendLocked(),
		SelectedModel: o.selected,
	}
	switch o.state {
	case types.BackendLocalReady:
		s.InstalledModels = append([]string(nil), o.installed...)
	case types.BackendLocalUnavailable:
		s.Reason = o.reason
	case types.BackendCloudFallback:
		s.Reason = o.reason
		s.CredentialPresent = o.creds.Present()
	case types.BackendError:
		s.Error = o.reason
	}
	return s
}

// InstalledModels returns the last successfully queried installed set.
func (o *Orchestrator) InstalledModels() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return append([]string(nil), o.installed...)
}

// beginProbe serializes probe-class operations: a probe arriving while one is
// outstanding is ignored rather than allowed to race and apply transitions
// out of order.
func (o *Orchestrator) beginProbe() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.probing {
		return false
	}
	o.probing = true
	return true
}

func (o *Orchestrator) endProbe() {
	o.mu.Lock()
	o.probing = false
	o.mu.Unlock()
}

func (o *Orchestrator) setState(state types.BackendState, reason string) {
	o.mu.Lock()
	changed := o.state != state || o.reason != reason
	o.state = state
	o.reason = reason
	o.mu.Unlock()
	if changed {
		fields := map[string]any{"state": string(state)}
		if reason != "" {
			fields["reason"] = reason
		}
		o.cfg.Events.Publish(Event{Name: EventStateChanged, Fields: fields})
	}
}
