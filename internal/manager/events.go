package manager

// Event represents a lifecycle event (load_start, drain_forced, ...).
// Minimal and stable: name + model alias and optional fields.
type Event struct {
	Name   string
	Alias  string
	Fields map[string]any
}

// EventPublisher receives events from the manager. Implementations should
// be lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}
