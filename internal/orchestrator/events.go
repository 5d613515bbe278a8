package orchestrator

// Event represents an orchestrator lifecycle event.
// Minimal and stable: name + model ID and optional fields via key/values.
type Event struct {
	Name    string
	ModelID string
	Fields  map[string]any
}

// Event names published by the orchestrator.
const (
	EventStateChanged     = "state_changed"
	EventModelSelected    = "model_selected"
	EventDownloadProgress = "download_progress"
	EventDownloadSettled  = "download_settled"
)

// EventPublisher receives events from the orchestrator. Implementations
// should be lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}
