package types

// Environment classifies host capability, computed once at startup and passed
// down instead of re-probed at call sites.
type Environment string

const (
	// EnvDesktop means the host can spawn and talk to a local inference daemon.
	EnvDesktop Environment = "desktop"
	// EnvNetworkOnly means only the cloud backend is reachable (sandboxed or
	// headless contexts without a local runtime).
	EnvNetworkOnly Environment = "network-only"
)

// HardwareProfile is an immutable snapshot of host capacity. It is computed
// once at startup and replaced wholesale on explicit refresh.
type HardwareProfile struct {
	// Total physical memory in GB.
	// example: 16.0
	TotalMemoryGB float64 `json:"total_memory_gb"`
	// Memory currently available to new processes, in GB.
	// example: 9.3
	AvailableMemoryGB float64 `json:"available_memory_gb"`
	// Logical CPU count.
	// example: 8
	CPUCount int `json:"cpu_count"`
	// OS identifier: Windows, macOS, Linux or the raw GOOS value.
	// example: Linux
	OS string `json:"os"`
	// Model tier recommended for this host (see hwprofile tier ladder).
	// example: medical-7b
	RecommendedTier string `json:"recommended_tier"`
	// Whether a 7B-class model is expected to fit.
	CanRun7B bool `json:"can_run_7b"`
	// Whether a mini-class model is expected to fit.
	CanRunMini bool `json:"can_run_mini"`
}

// ModelDescriptor is a static catalog entry for an installable local model.
type ModelDescriptor struct {
	// Unique name/tag understood by the local daemon.
	// example: biomistral:7b
	Name string `json:"name" yaml:"name" toml:"name"`
	// Human-friendly description.
	Description string `json:"description" yaml:"description" toml:"description"`
	// Approximate download size in GB.
	SizeGB float64 `json:"size_gb" yaml:"size_gb" toml:"size_gb"`
	// Minimum recommended RAM in GB.
	MinRAMGB float64 `json:"min_ram_gb" yaml:"min_ram_gb" toml:"min_ram_gb"`
	// Whether the model is specialized for medical research.
	Medical bool `json:"medical" yaml:"medical" toml:"medical"`
	// Tier this model belongs to (tiny, mini, medical-7b).
	Tier string `json:"tier" yaml:"tier" toml:"tier"`
}

// BackendState tags the availability state machine's current state.
type BackendState string

const (
	BackendChecking         BackendState = "checking"
	BackendLocalReady       BackendState = "local_ready"
	BackendLocalUnavailable BackendState = "local_unavailable"
	BackendCloudFallback    BackendState = "cloud_fallback"
	BackendError            BackendState = "error"
)

// BackendStatus is a read-only projection of the availability state machine.
// Exactly one state holds at a time; the per-state fields are meaningful only
// under their tag. Never persisted; re-derived on every process start.
type BackendStatus struct {
	State BackendState `json:"state"`
	// Ready means some inference path is usable, not that the preferred one is.
	Ready bool `json:"ready"`
	// Which backend serves generate requests right now: "local" or "cloud".
	ActiveBackend string `json:"active_backend"`
	// Currently selected model id (a local tag or the cloud model id).
	SelectedModel string `json:"selected_model"`
	// Installed local model names (local_ready only). Replaced wholesale after
	// every successful daemon query.
	InstalledModels []string `json:"installed_models,omitempty"`
	// Why the local daemon is unusable (local_unavailable / cloud_fallback).
	Reason string `json:"reason,omitempty"`
	// Whether a cloud credential is stored (cloud_fallback).
	CredentialPresent bool `json:"credential_present,omitempty"`
	// Terminal fault message (error only).
	Error string `json:"error,omitempty"`
}

// DownloadProgress is a transient per-download record. Percent is synthesized
// (the daemon exposes no verifiable progress stream) and is monotonically
// non-decreasing; it reaches 100 only on success. The record is owned by the
// download that created it and discarded when the operation settles.
type DownloadProgress struct {
	// Model being pulled.
	// example: tinyllama
	Model string `json:"model"`
	// Synthesized completion percentage, 0-100.
	Percent int `json:"percent"`
	// True once the pull settled successfully.
	Done bool `json:"done"`
	// Failure message when the pull settled with an error.
	Error string `json:"error,omitempty"`
}
