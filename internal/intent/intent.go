// Package intent classifies caller transcripts into intents with a
// confidence score, driven by a declarative pattern-group table.
package intent

// Intent is the caller's classified purpose for a single turn.
type Intent string

const (
	Pricing           Intent = "pricing"
	Availability      Intent = "availability"
	Booking           Intent = "booking"
	EscalationRequest Intent = "escalation_request"
	GeneralInfo       Intent = "general_info"
	Goodbye           Intent = "goodbye"
	Unknown           Intent = "unknown"
)

// Result is a classified intent and the confidence behind it.
// Confidence is always in [0,1]; Unknown with confidence 0 means no
// pattern group matched at all, Unknown with a non-zero confidence means
// the top candidates were too close to call.
type Result struct {
	Intent     Intent
	Confidence float64
}
