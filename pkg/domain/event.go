package domain

import "time"

// AuditEvent is a single normalized record from the remote audit log: who did
// what, when. Produced by the fetch engine and treated as immutable downstream;
// analyzers derive aggregates from event lists but never modify them.
//
// Invariant: EventType is always present. UserID may be empty when the remote
// record carries no actor ("unknown").
type AuditEvent struct {
	CreatedAt time.Time
	EventType string
	UserID    string
	Content   map[string]any
}

// HasActor reports whether the event carries an actor identifier.
func (e AuditEvent) HasActor() bool {
	return e.UserID != ""
}

// ContentString returns a string field from the event's action-specific
// content payload, or "" when absent or not a string.
func (e AuditEvent) ContentString(key string) string {
	if e.Content == nil {
		return ""
	}
	if v, ok := e.Content[key].(string); ok {
		return v
	}
	return ""
}

// ContentMap returns a nested map field from the event's content payload.
// Used by summarizers that diff before/after sub-objects.
func (e AuditEvent) ContentMap(key string) map[string]any {
	if e.Content == nil {
		return nil
	}
	if v, ok := e.Content[key].(map[string]any); ok {
		return v
	}
	return nil
}
