package domain

// Entities holds the structured values extracted from one free-text message.
// Zero values mean "not present": extraction never produces empty-string or
// zero placeholders, so callers can test presence directly.
type Entities struct {
	// UserID is a user reference as written: an @handle, a name, or an ID.
	// Free text; the activity analyzer resolves it against the roster.
	UserID string
	// TimePeriod is a canonical relative window: "<count> <unit>"
	// ("3 weeks"), "last <unit>", "this <unit>", "yesterday", "today" or
	// "recent".
	TimePeriod string
	// TimeRange is a coarse named window kept as the raw matched phrase
	// ("last night", "weekend", "between 2pm and 6pm"); consumers re-parse.
	TimeRange string
	// EventType is a lowercased event-domain phrase ("policy", "integration").
	EventType string
	// CountLimit bounds result listings; 0 means unspecified.
	CountLimit int
}

// IsEmpty reports whether nothing was extracted.
func (e Entities) IsEmpty() bool {
	return e == Entities{}
}

// HasWindow reports whether any time constraint was extracted.
func (e Entities) HasWindow() bool {
	return e.TimePeriod != "" || e.TimeRange != ""
}
