package types

// GenerateRequest asks the orchestrator for a completion from whichever
// backend is currently active.
type GenerateRequest struct {
	// Optional model override. If empty, the orchestrator's selected model is used.
	// example: tinyllama
	Model string `json:"model,omitempty"`
	// Required prompt text.
	// example: Which statistical test suits paired pre/post measurements?
	Prompt string `json:"prompt"`
}

// GenerateResponse carries a completion and the backend that produced it.
type GenerateResponse struct {
	// Generated text.
	Response string `json:"response"`
	// Backend that served the request: "local" or "cloud".
	Backend string `json:"backend"`
	// Model that produced the completion.
	Model string `json:"model"`
}

// CatalogEntry combines a descriptor with host-specific advisories.
type CatalogEntry struct {
	ModelDescriptor
	// Whether the local daemon reports this model as installed.
	Installed bool `json:"installed"`
	// Set when the model's RAM floor exceeds this host's memory; a pre-flight
	// advisory, not an error.
	Advisory string `json:"advisory,omitempty"`
}

// ModelsResponse is returned by GET /models.
type ModelsResponse struct {
	// Catalog entries annotated with install state and advisories.
	Models []CatalogEntry `json:"models"`
	// Tier recommended for this host.
	RecommendedTier string `json:"recommended_tier"`
}

// SelectRequest sets the preferred model id. The id is not validated here;
// validation is deferred to first use.
type SelectRequest struct {
	// example: biomistral:7b
	Model string `json:"model"`
}

// PullAccepted is returned when a model download has been started.
type PullAccepted struct {
	// example: tinyllama
	Model string `json:"model"`
	// Always "started".
	Status string `json:"status"`
}

// CredentialRequest stores or tests a cloud API key.
type CredentialRequest struct {
	APIKey string `json:"api_key"`
}

// CredentialCheckResponse reports the three-way classified result of a
// credential test: "ok", "invalid_credential" or "network_error".
type CredentialCheckResponse struct {
	Result string `json:"result"`
}

// SuggestionPayload is a structured suggested-test attachment.
type SuggestionPayload struct {
	Test      string `json:"test"`
	Rationale string `json:"rationale,omitempty"`
}

// AppendMessageRequest appends a chat message to the session log.
type AppendMessageRequest struct {
	// One of: user, assistant, suggestion.
	Role string `json:"role"`
	// Message text.
	Content string `json:"content"`
	// Optional suggested follow-up tests attached to the message.
	Suggestions []SuggestionPayload `json:"suggestions,omitempty"`
}

// SessionStats summarizes the memory governor's view of the session.
type SessionStats struct {
	// Current message count after any trimming.
	Messages int `json:"messages"`
	// Live thread annotation count.
	Threads int `json:"threads"`
	// Total messages removed by the governor since startup.
	TrimmedTotal int `json:"trimmed_total"`
	// Total orphaned thread annotations swept since startup.
	SweptThreadsTotal int `json:"swept_threads_total"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Availability state machine projection.
	Backend BackendStatus `json:"backend"`
	// Hardware snapshot taken at startup (or last explicit refresh).
	Hardware HardwareProfile `json:"hardware"`
	// Host capability class.
	Environment Environment `json:"environment"`
	// Session/memory governor counters.
	Session SessionStats `json:"session"`
	// Uptime of the daemon in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds"`
	// Server time in unix seconds.
	ServerTimeUnix int64 `json:"server_time_unix"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Short, actionable message; never a raw transport error.
	// example: local inference service is not running
	Error string `json:"error"`
	// HTTP status code.
	// example: 409
	Code int `json:"code"`
}
