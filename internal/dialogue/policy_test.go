package dialogue

import (
	"errors"
	"testing"
	"time"

	"github.com/courtside-ai/frontdesk/internal/entity"
	"github.com/courtside-ai/frontdesk/internal/intent"
	"github.com/courtside-ai/frontdesk/internal/memory"
	"github.com/courtside-ai/frontdesk/internal/sentiment"
	"github.com/courtside-ai/frontdesk/internal/session"
)

func newTestPolicy() *Policy {
	return &Policy{HighConfidence: 0.7, MaxClarifications: 3, StaffNumber: "+15551234567"}
}

func newTestCall() *session.Call {
	now := time.Date(2026, time.August, 26, 12, 0, 0, 0, time.UTC)
	c := &session.Call{
		ConversationID: "conv-1",
		CallerNumber:   "+15550001111",
		State:          session.Greeting,
		LastIntent:     intent.Unknown,
		Entities:       make(entity.Set),
		CreatedAt:      now,
		LastActivityAt: now,
	}
	return c
}

func turn(in intent.Intent, conf float64) TurnInput {
	return TurnInput{
		Transcript: "test utterance",
		Intent:     intent.Result{Intent: in, Confidence: conf},
	}
}

func TestGreet(t *testing.T) {
	p := newTestPolicy()

	t.Run("new caller", func(t *testing.T) {
		call := newTestCall()
		act := p.Greet(call, nil)
		if act.Type != ActAsk {
			t.Errorf("act = %s, want ask", act.Type)
		}
		if call.State != session.Greeting {
			t.Errorf("state = %s, want greeting", call.State)
		}
	})

	t.Run("returning caller is personalized", func(t *testing.T) {
		call := newTestCall()
		profile := &memory.Profile{
			Preferences: memory.Preferences{FavoriteService: "basketball", TotalBookings: 4},
		}
		act := p.Greet(call, profile)
		cold := p.Greet(newTestCall(), nil)
		if act.Text == cold.Text {
			t.Error("returning-caller greeting should differ from the default")
		}
	})
}

func TestAdvance_GreetingToListening(t *testing.T) {
	p := newTestPolicy()
	call := newTestCall()

	out := p.Advance(call, turn(intent.Unknown, 0.2))

	if call.TurnCount != 1 {
		t.Errorf("turn count = %d, want 1", call.TurnCount)
	}
	// Low confidence first turn: greeting -> listening -> clarifying.
	if call.State != session.Clarifying {
		t.Errorf("state = %s, want clarifying", call.State)
	}
	if out.Act.Type != ActAsk {
		t.Errorf("act = %s, want ask", out.Act.Type)
	}
}

func TestAdvance_HighConfidenceFulfills(t *testing.T) {
	p := newTestPolicy()
	call := newTestCall()
	call.State = session.Listening

	out := p.Advance(call, turn(intent.Pricing, 0.83))

	if call.State != session.Fulfilling {
		t.Errorf("state = %s, want fulfilling", call.State)
	}
	if !out.NeedsFulfillment {
		t.Error("expected NeedsFulfillment")
	}
	if call.LastIntent != intent.Pricing || call.LastConfidence != 0.83 {
		t.Errorf("last intent/confidence = %s/%.2f", call.LastIntent, call.LastConfidence)
	}
}

func TestAdvance_FrustrationEscalatesImmediately(t *testing.T) {
	p := newTestPolicy()
	call := newTestCall()
	call.State = session.Listening

	in := turn(intent.Pricing, 0.95) // confidence is irrelevant here
	in.Sentiment = sentiment.Result{IsFrustrated: true, Emotion: sentiment.Frustrated, Polarity: -1}

	out := p.Advance(call, in)

	if call.State != session.Escalating {
		t.Errorf("state = %s, want escalating", call.State)
	}
	if call.EscalationReason != session.ReasonFrustration {
		t.Errorf("reason = %s, want frustration", call.EscalationReason)
	}
	if !call.EscalationFlag {
		t.Error("escalation flag not set")
	}
	if out.Act.Type != ActTransfer || out.Act.Target != "+15551234567" {
		t.Errorf("act = %+v, want transfer to staff", out.Act)
	}
	if call.ClarificationAttempts != 0 {
		t.Errorf("clarification attempt spent on immediate escalation: %d", call.ClarificationAttempts)
	}
}

func TestAdvance_ExplicitRequestEscalates(t *testing.T) {
	p := newTestPolicy()
	call := newTestCall()
	call.State = session.Listening

	out := p.Advance(call, turn(intent.EscalationRequest, 0.5))

	if call.State != session.Escalating {
		t.Errorf("state = %s, want escalating", call.State)
	}
	if call.EscalationReason != session.ReasonExplicitRequest {
		t.Errorf("reason = %s, want explicit_request", call.EscalationReason)
	}
	if out.Act.Type != ActTransfer {
		t.Errorf("act = %s, want transfer", out.Act.Type)
	}
}

func TestAdvance_ThreeStrikesEscalatesLowConfidence(t *testing.T) {
	p := newTestPolicy()
	call := newTestCall()
	call.State = session.Listening

	confidences := []float64{0.3, 0.35, 0.4}
	var last Outcome
	for _, conf := range confidences {
		last = p.Advance(call, turn(intent.Unknown, conf))
	}

	if call.State != session.Escalating {
		t.Errorf("state = %s, want escalating", call.State)
	}
	if call.EscalationReason != session.ReasonLowConfidence {
		t.Errorf("reason = %s, want low_confidence", call.EscalationReason)
	}
	if call.ClarificationAttempts != 3 {
		t.Errorf("attempts = %d, want 3", call.ClarificationAttempts)
	}
	if last.Act.Type != ActTransfer {
		t.Errorf("final act = %s, want transfer", last.Act.Type)
	}
}

func TestAdvance_ClarificationPromptsVaryByAttempt(t *testing.T) {
	p := newTestPolicy()
	call := newTestCall()
	call.State = session.Listening

	first := p.Advance(call, turn(intent.Unknown, 0.2))
	second := p.Advance(call, turn(intent.Unknown, 0.2))

	if first.Act.Text == second.Act.Text {
		t.Error("clarification prompts should vary by attempt")
	}
	if call.ClarificationAttempts != 2 {
		t.Errorf("attempts = %d, want 2", call.ClarificationAttempts)
	}
}

func TestAdvance_ClarifyResolvedResetsAttempts(t *testing.T) {
	p := newTestPolicy()
	call := newTestCall()
	call.State = session.Clarifying
	call.ClarificationAttempts = 2

	out := p.Advance(call, turn(intent.Booking, 0.85))

	if call.State != session.Fulfilling {
		t.Errorf("state = %s, want fulfilling", call.State)
	}
	if call.ClarificationAttempts != 0 {
		t.Errorf("attempts = %d, want 0 after leaving clarifying", call.ClarificationAttempts)
	}
	if !out.NeedsFulfillment {
		t.Error("expected NeedsFulfillment")
	}
}

func TestAdvance_FrustrationDuringClarifying(t *testing.T) {
	p := newTestPolicy()
	call := newTestCall()
	call.State = session.Clarifying
	call.ClarificationAttempts = 1

	in := turn(intent.Unknown, 0.1)
	in.Sentiment = sentiment.Result{IsFrustrated: true, Emotion: sentiment.Frustrated}

	p.Advance(call, in)

	if call.EscalationReason != session.ReasonFrustration {
		t.Errorf("reason = %s, want frustration (not low_confidence)", call.EscalationReason)
	}
	if call.ClarificationAttempts != 1 {
		t.Errorf("attempts = %d, want unchanged 1", call.ClarificationAttempts)
	}
}

func TestAdvance_GoodbyeEndsCall(t *testing.T) {
	p := newTestPolicy()
	call := newTestCall()
	call.State = session.Listening

	out := p.Advance(call, turn(intent.Goodbye, 0.83))

	if call.State != session.Ended {
		t.Errorf("state = %s, want ended", call.State)
	}
	if out.Act.Type != ActHangup {
		t.Errorf("act = %s, want hangup", out.Act.Type)
	}
}

func TestAdvance_GeneralInfoAnsweredInPlace(t *testing.T) {
	p := newTestPolicy()
	call := newTestCall()
	call.State = session.Listening

	out := p.Advance(call, turn(intent.GeneralInfo, 0.83))

	if call.State != session.Listening {
		t.Errorf("state = %s, want listening", call.State)
	}
	if out.NeedsFulfillment {
		t.Error("general info must not hit a collaborator")
	}
	if out.Act.Type != ActAsk {
		t.Errorf("act = %s, want ask", out.Act.Type)
	}
}

func TestAdvance_EndedIsImmutable(t *testing.T) {
	p := newTestPolicy()
	call := newTestCall()
	call.State = session.Ended
	call.TurnCount = 7

	out := p.Advance(call, turn(intent.Pricing, 0.9))

	if call.TurnCount != 7 {
		t.Errorf("ended session mutated: turn count %d", call.TurnCount)
	}
	if out.Act.Type != ActHangup {
		t.Errorf("act = %s, want hangup", out.Act.Type)
	}
}

func TestAdvance_MergesEntitiesAcrossTurns(t *testing.T) {
	p := newTestPolicy()
	call := newTestCall()
	call.State = session.Listening

	in1 := turn(intent.Unknown, 0.2)
	in1.Entities = entity.Set{entity.ServiceType: {Raw: "basketball", Norm: "basketball"}}
	p.Advance(call, in1)

	in2 := turn(intent.Booking, 0.85)
	in2.Entities = entity.Set{entity.DurationHours: {Raw: "2 hours", Norm: "2"}}
	p.Advance(call, in2)

	if call.Entities[entity.ServiceType].Norm != "basketball" {
		t.Error("entity from earlier turn lost")
	}
	if call.Entities[entity.DurationHours].Norm != "2" {
		t.Error("entity from later turn missing")
	}
	if len(call.SentimentHistory) != 2 {
		t.Errorf("sentiment history length = %d, want 2", len(call.SentimentHistory))
	}
}

func TestResolveFulfillment(t *testing.T) {
	p := newTestPolicy()

	t.Run("success returns to listening", func(t *testing.T) {
		call := newTestCall()
		call.State = session.Fulfilling

		act := p.ResolveFulfillment(call, "The court is available tomorrow at 3 PM.", nil)

		if call.State != session.Listening {
			t.Errorf("state = %s, want listening", call.State)
		}
		if act.Type != ActAsk {
			t.Errorf("act = %s, want ask", act.Type)
		}
	})

	t.Run("failure escalates", func(t *testing.T) {
		call := newTestCall()
		call.State = session.Fulfilling

		act := p.ResolveFulfillment(call, "", errors.New("upstream timeout"))

		if call.State != session.Escalating {
			t.Errorf("state = %s, want escalating", call.State)
		}
		if call.EscalationReason != session.ReasonFulfillmentFailure {
			t.Errorf("reason = %s, want fulfillment_failure", call.EscalationReason)
		}
		if act.Type != ActTransfer {
			t.Errorf("act = %s, want transfer", act.Type)
		}
	})
}

func TestFailSafe(t *testing.T) {
	p := newTestPolicy()
	call := newTestCall()
	call.State = session.Listening

	act := p.FailSafe(call)

	if call.State != session.Escalating {
		t.Errorf("state = %s, want escalating", call.State)
	}
	if act.Type != ActTransfer || act.Text == "" {
		t.Errorf("fail-safe must be an apology transfer, got %+v", act)
	}
}
