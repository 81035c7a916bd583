// Package session holds per-call state. One Call exists per active
// conversation, keyed by the provider-issued conversation ID.
package session

import (
	"time"

	"github.com/courtside-ai/frontdesk/internal/entity"
	"github.com/courtside-ai/frontdesk/internal/intent"
	"github.com/courtside-ai/frontdesk/internal/sentiment"
)

// State is the call's dialogue state. Transitions happen only inside the
// dialogue policy; no other component writes it.
type State string

const (
	Greeting   State = "greeting"
	Listening  State = "listening"
	Clarifying State = "clarifying"
	Fulfilling State = "fulfilling"
	Escalating State = "escalating"
	Ended      State = "ended"
)

// EscalationReason records why a call left AI-driven dialogue.
type EscalationReason string

const (
	ReasonLowConfidence      EscalationReason = "low_confidence"
	ReasonFrustration        EscalationReason = "frustration"
	ReasonExplicitRequest    EscalationReason = "explicit_request"
	ReasonFulfillmentFailure EscalationReason = "fulfillment_failure"
)

// Call is the session for one phone call.
type Call struct {
	ConversationID string
	CallerNumber   string

	State                 State
	TurnCount             int
	ClarificationAttempts int

	LastIntent     intent.Intent
	LastConfidence float64

	// SentimentHistory is append-only, one entry per caller utterance.
	SentimentHistory []sentiment.Result

	// Entities merges across turns; later turns win but never erase.
	Entities entity.Set

	EscalationFlag   bool
	EscalationReason EscalationReason

	// LastTranscript and LastTurnProcessed let the orchestrator detect a
	// redelivered speech webhook and treat it as a no-op.
	LastTranscript    string
	LastTurnProcessed int

	// LastResponse is the act rendered for the most recent turn, replayed
	// verbatim when a provider redelivers the same webhook.
	LastResponse Response

	// BookingID is set once a booking has been created this call.
	BookingID string

	// Flushed records that the interaction has been written to customer
	// memory and the summary emitted. Ended calls stay in the store as
	// tombstones until evicted, so a webhook redelivered after call-ended
	// is answered without re-running the turn; Flushed keeps the eviction
	// from flushing the same call twice.
	Flushed bool

	CreatedAt      time.Time
	LastActivityAt time.Time
}

func newCall(conversationID, callerNumber string, now time.Time) *Call {
	return &Call{
		ConversationID: conversationID,
		CallerNumber:   callerNumber,
		State:          Greeting,
		LastIntent:     intent.Unknown,
		Entities:       make(entity.Set),
		CreatedAt:      now,
		LastActivityAt: now,
	}
}

// Response is the provider-facing shape of a dialogue act, kept on the
// call so duplicate webhook deliveries can be answered without re-running
// the turn.
type Response struct {
	Action string `json:"action"`
	Text   string `json:"text,omitempty"`
	Target string `json:"target,omitempty"`
}

// Touch refreshes the idle-eviction clock.
func (c *Call) Touch(now time.Time) {
	c.LastActivityAt = now
}

// Active reports whether the call can still accept events.
func (c *Call) Active() bool {
	return c.State != Ended
}
