package domain

// Intent is the classified purpose of a natural-language query.
// Invariant: the value must be one of the supported intents.
//
// Usage: values are produced by the intent recognizer; the router dispatches
// on them. Construct via ParseIntent at trust boundaries to enforce the
// allowlist; direct casting bypasses validation.
type Intent string

// Supported intents. Declaration order matters to the recognizer: the primary
// pattern pass examines intents in this order and the first match wins.
const (
	IntentEventByUser        Intent = "event_by_user_query"
	IntentSecurityEvents     Intent = "security_events_query"
	IntentUserActivity       Intent = "user_activity_query"
	IntentSuspiciousActivity Intent = "suspicious_activity_query"
	IntentTimeBased          Intent = "time_based_query"
	IntentHelp               Intent = "help_request"
)

// validIntents is the single source of truth for valid intents.
var validIntents = map[Intent]bool{
	IntentEventByUser:        true,
	IntentSecurityEvents:     true,
	IntentUserActivity:       true,
	IntentSuspiciousActivity: true,
	IntentTimeBased:          true,
	IntentHelp:               true,
}

// ParseIntent constructs an Intent from external input.
func ParseIntent(s string) (Intent, bool) {
	v := Intent(s)
	return v, validIntents[v]
}

// String returns the string representation of the intent.
func (i Intent) String() string {
	return string(i)
}

// IsValid reports whether the intent is one of the supported values.
func (i Intent) IsValid() bool {
	return validIntents[i]
}

// IntentResult is the recognizer's verdict for one incoming message.
// Confidence is a heuristic in [0,1]; Message preserves the original text.
type IntentResult struct {
	Intent     Intent
	Confidence float64
	Message    string
}
