package dialogue

import (
	"strings"

	"github.com/courtside-ai/frontdesk/internal/entity"
	"github.com/courtside-ai/frontdesk/internal/intent"
	"github.com/courtside-ai/frontdesk/internal/memory"
	"github.com/courtside-ai/frontdesk/internal/sentiment"
	"github.com/courtside-ai/frontdesk/internal/session"
)

// Policy drives the call state machine. The machine is deliberately flat:
// every transition has one trigger and is testable in isolation.
//
//	GREETING -> LISTENING            first transcript
//	LISTENING -> ESCALATING          frustration or explicit request
//	LISTENING -> FULFILLING          confidence >= HighConfidence
//	LISTENING -> CLARIFYING          confidence below threshold
//	CLARIFYING -> FULFILLING         resolved, attempts reset
//	CLARIFYING -> ESCALATING         attempts exhausted
//	FULFILLING -> LISTENING | ENDED  collaborator success
//	FULFILLING -> ESCALATING         collaborator failure or timeout
type Policy struct {
	HighConfidence    float64
	MaxClarifications int
	StaffNumber       string
}

// TurnInput is the NLU fan-in for one caller utterance.
type TurnInput struct {
	Transcript string
	Intent     intent.Result
	Sentiment  sentiment.Result
	Entities   entity.Set
}

// Outcome is the policy's decision for a turn. When NeedsFulfillment is
// set, the orchestrator must invoke the collaborator matching the call's
// LastIntent and feed the result to ResolveFulfillment; Act is only the
// final answer otherwise.
type Outcome struct {
	Act              Act
	NeedsFulfillment bool
}

// Greet produces the opening act for a call-started event. Not a caller
// utterance, so the turn count is untouched.
func (p *Policy) Greet(call *session.Call, profile *memory.Profile) Act {
	call.State = session.Greeting
	return Ask(greetingFor(profile))
}

// Advance applies one caller utterance to the state machine. Ended
// sessions are immutable; their events are answered without mutation.
func (p *Policy) Advance(call *session.Call, in TurnInput) Outcome {
	if call.State == session.Ended {
		return Outcome{Act: Hangup("")}
	}

	call.TurnCount++
	call.SentimentHistory = append(call.SentimentHistory, in.Sentiment)
	call.Entities = entity.Merge(call.Entities, in.Entities)
	call.LastIntent = in.Intent.Intent
	call.LastConfidence = in.Intent.Confidence
	call.LastTranscript = in.Transcript
	call.LastTurnProcessed = call.TurnCount

	switch call.State {
	case session.Greeting:
		call.State = session.Listening
		return p.listen(call, in)
	case session.Listening, session.Fulfilling:
		return p.listen(call, in)
	case session.Clarifying:
		return p.clarify(call, in)
	default: // Escalating
		return Outcome{Act: Transfer(p.StaffNumber, escalationMessage(call.EscalationReason))}
	}
}

func (p *Policy) listen(call *session.Call, in TurnInput) Outcome {
	if out, ok := p.escalationTriggers(call, in); ok {
		return out
	}
	if p.resolved(in) {
		return p.fulfill(call, in)
	}
	call.State = session.Clarifying
	call.ClarificationAttempts = 1
	return Outcome{Act: Ask(clarificationPrompt(1))}
}

func (p *Policy) clarify(call *session.Call, in TurnInput) Outcome {
	if out, ok := p.escalationTriggers(call, in); ok {
		return out
	}
	if p.resolved(in) {
		call.ClarificationAttempts = 0
		return p.fulfill(call, in)
	}
	call.ClarificationAttempts++
	if call.ClarificationAttempts >= p.MaxClarifications {
		return Outcome{Act: p.Escalate(call, session.ReasonLowConfidence)}
	}
	return Outcome{Act: Ask(clarificationPrompt(call.ClarificationAttempts))}
}

// escalationTriggers covers the immediate escalations that bypass
// clarification entirely: caller frustration and an explicit request for
// a human.
func (p *Policy) escalationTriggers(call *session.Call, in TurnInput) (Outcome, bool) {
	if in.Sentiment.IsFrustrated {
		return Outcome{Act: p.Escalate(call, session.ReasonFrustration)}, true
	}
	if in.Intent.Intent == intent.EscalationRequest {
		return Outcome{Act: p.Escalate(call, session.ReasonExplicitRequest)}, true
	}
	return Outcome{}, false
}

func (p *Policy) resolved(in TurnInput) bool {
	return in.Intent.Intent != intent.Unknown && in.Intent.Confidence >= p.HighConfidence
}

// fulfill routes a resolved intent. Pricing, availability, and booking
// need an external collaborator; the rest are answered in place.
func (p *Policy) fulfill(call *session.Call, in TurnInput) Outcome {
	switch in.Intent.Intent {
	case intent.Pricing, intent.Availability, intent.Booking:
		call.State = session.Fulfilling
		return Outcome{NeedsFulfillment: true}
	case intent.Goodbye:
		call.State = session.Ended
		call.ClarificationAttempts = 0
		return Outcome{Act: Hangup(goodbyeText)}
	default: // GeneralInfo
		call.State = session.Listening
		return Outcome{Act: Ask(generalInfoText)}
	}
}

// ResolveFulfillment completes a FULFILLING turn with the collaborator's
// result. Failures, including timeouts, escalate; they are never retried
// while the caller waits.
func (p *Policy) ResolveFulfillment(call *session.Call, responseText string, err error) Act {
	if err != nil {
		return p.Escalate(call, session.ReasonFulfillmentFailure)
	}
	call.State = session.Listening
	if strings.HasSuffix(responseText, "?") {
		return Ask(responseText)
	}
	return Ask(responseText + followUpSuffix)
}

// RequestSlotDetails backs out of fulfillment when the intent resolved
// but the slot entities did not: ask for the missing details instead of
// calling a collaborator with guesses.
func (p *Policy) RequestSlotDetails(call *session.Call) Act {
	call.State = session.Listening
	return Ask(slotPromptText)
}

// End closes the call on a call-ended event or idle eviction flush.
func (p *Policy) End(call *session.Call) {
	call.State = session.Ended
	call.ClarificationAttempts = 0
}

// Escalate moves the call to the human hand-off state and records why.
// ClarificationAttempts is preserved here: the low-confidence count is
// part of the analytics record for the escalation.
func (p *Policy) Escalate(call *session.Call, reason session.EscalationReason) Act {
	call.State = session.Escalating
	call.EscalationFlag = true
	call.EscalationReason = reason
	return Transfer(p.StaffNumber, escalationMessage(reason))
}

// FailSafe converts an unhandled internal fault into a generic
// apology-and-transfer. A caller must never hear dead air or a raw error.
func (p *Policy) FailSafe(call *session.Call) Act {
	return p.Escalate(call, session.ReasonFulfillmentFailure)
}
