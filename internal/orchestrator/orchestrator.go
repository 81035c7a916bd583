// Package orchestrator sequences the per-call pipeline for each inbound
// telephony event: load the session under its per-conversation lock, run
// the NLU fan-in, step the dialogue policy, call out to collaborators
// for resolved intents, and flush finished calls to customer memory.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/courtside-ai/frontdesk/internal/collab"
	"github.com/courtside-ai/frontdesk/internal/dialogue"
	"github.com/courtside-ai/frontdesk/internal/entity"
	"github.com/courtside-ai/frontdesk/internal/events"
	"github.com/courtside-ai/frontdesk/internal/intent"
	"github.com/courtside-ai/frontdesk/internal/memory"
	"github.com/courtside-ai/frontdesk/internal/sentiment"
	"github.com/courtside-ai/frontdesk/internal/session"
)

// PricingClient quotes rates during fulfillment.
type PricingClient interface {
	GetRate(ctx context.Context, serviceType string, start time.Time, hours int) (*collab.Rate, error)
}

// CalendarClient checks and books slots during fulfillment.
type CalendarClient interface {
	CheckAvailability(ctx context.Context, start time.Time, hours int) (bool, error)
	CreateBooking(ctx context.Context, details collab.BookingDetails) (string, error)
}

// EventPublisher fans out lifecycle signals. May be nil.
type EventPublisher interface {
	Publish(subject string, data any) error
}

type Orchestrator struct {
	sessions   *session.Store
	memory     memory.Store
	classifier *intent.Classifier
	policy     *dialogue.Policy
	pricing    PricingClient
	calendar   CalendarClient
	events     EventPublisher
	logger     *slog.Logger

	collabTimeout time.Duration
	now           func() time.Time
}

func New(sessions *session.Store, mem memory.Store, classifier *intent.Classifier,
	policy *dialogue.Policy, pricing PricingClient, calendar CalendarClient,
	pub EventPublisher, collabTimeout time.Duration, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		sessions:      sessions,
		memory:        mem,
		classifier:    classifier,
		policy:        policy,
		pricing:       pricing,
		calendar:      calendar,
		events:        pub,
		collabTimeout: collabTimeout,
		logger:        logger,
		now:           time.Now,
	}
}

// HandleCallStarted creates the session and greets the caller, using the
// customer profile to personalize the opening for returning callers.
func (o *Orchestrator) HandleCallStarted(ctx context.Context, conversationID, callerNumber string) (dialogue.Act, error) {
	var act dialogue.Act
	err := o.sessions.Do(conversationID, callerNumber, o.now(), func(call *session.Call) error {
		if !call.Active() {
			act = dialogue.Hangup("")
			return nil
		}
		if call.State != session.Greeting || call.TurnCount > 0 {
			// Redelivered call-started after the dialogue has begun.
			act = dialogue.Act{Type: dialogue.ActType(call.LastResponse.Action),
				Text: call.LastResponse.Text, Target: call.LastResponse.Target}
			return nil
		}
		profile, err := o.memory.Lookup(ctx, callerNumber)
		if err != nil {
			// A memory miss only costs personalization; the call goes on.
			o.logger.Warn("profile lookup failed", "caller", callerNumber, "error", err)
			profile = nil
		}
		act = o.policy.Greet(call, profile)
		call.Touch(o.now())
		o.remember(call, act)
		return nil
	})
	return act, err
}

// HandleSpeech runs one caller utterance through NLU and the policy.
// A redelivered webhook (same transcript for an already processed turn)
// replays the previous response without re-running the turn.
func (o *Orchestrator) HandleSpeech(ctx context.Context, conversationID, callerNumber, transcript string) (dialogue.Act, error) {
	var act dialogue.Act
	err := o.sessions.Do(conversationID, callerNumber, o.now(), func(call *session.Call) (retErr error) {
		defer func() {
			if r := recover(); r != nil {
				o.logger.Error("speech handler panic", "conversation", conversationID, "panic", r)
				act = o.policy.FailSafe(call)
				o.publishEscalation(call)
				retErr = nil
			}
		}()

		if !call.Active() {
			act = dialogue.Hangup("")
			return nil
		}
		if o.isDuplicate(call, transcript) {
			o.logger.Info("duplicate speech delivery", "conversation", conversationID, "turn", call.TurnCount)
			act = dialogue.Act{Type: dialogue.ActType(call.LastResponse.Action),
				Text: call.LastResponse.Text, Target: call.LastResponse.Target}
			return nil
		}

		now := o.now()
		in := dialogue.TurnInput{
			Transcript: transcript,
			Intent:     o.classifier.Classify(transcript, call.LastIntent),
			Sentiment:  sentiment.Analyze(transcript),
			Entities:   entity.Extract(transcript, now),
		}

		wasEscalated := call.EscalationFlag
		out := o.policy.Advance(call, in)
		act = out.Act
		if out.NeedsFulfillment {
			act = o.fulfill(ctx, call)
		}
		call.Touch(now)
		o.remember(call, act)

		if call.EscalationFlag && !wasEscalated {
			o.publishEscalation(call)
		}
		return nil
	})
	return act, err
}

// HandleDTMF maps keypad input onto the dialogue. Zero is the universal
// "get me a person" key.
func (o *Orchestrator) HandleDTMF(ctx context.Context, conversationID, digits string) (dialogue.Act, error) {
	var act dialogue.Act
	err := o.sessions.Do(conversationID, "", o.now(), func(call *session.Call) error {
		if !call.Active() {
			act = dialogue.Hangup("")
			return nil
		}
		if strings.Contains(digits, "0") {
			wasEscalated := call.EscalationFlag
			act = o.policy.Escalate(call, session.ReasonExplicitRequest)
			if !wasEscalated {
				o.publishEscalation(call)
			}
		} else {
			act = dialogue.Ask("I'm listening — go ahead and tell me what you need.")
		}
		call.Touch(o.now())
		o.remember(call, act)
		return nil
	})
	return act, err
}

// HandleCallEnded closes the session and flushes the interaction summary
// to customer memory. No response is rendered; the line is already down.
// The ended call stays in the store as a tombstone so webhooks the
// provider redelivers after hangup are answered without re-running any
// turn; the janitor purges it once it goes idle.
func (o *Orchestrator) HandleCallEnded(ctx context.Context, conversationID string) error {
	return o.sessions.Do(conversationID, "", o.now(), func(call *session.Call) error {
		if call.Active() {
			o.policy.End(call)
		}
		if !call.Flushed {
			o.flush(ctx, *call)
			call.Flushed = true
		}
		call.Touch(o.now())
		return nil
	})
}

// EvictIdle purges stale sessions. Calls still live when evicted are
// ended through the policy and flushed as abandoned; ended calls whose
// call-ended webhook never arrived are flushed here instead, so a lost
// hangup event cannot lose the interaction. Run periodically by the
// janitor.
func (o *Orchestrator) EvictIdle(ctx context.Context, timeout time.Duration) int {
	evicted := o.sessions.EvictIdle(o.now(), timeout)
	for _, call := range evicted {
		o.logger.Info("evicted idle call", "conversation", call.ConversationID, "state", call.State)
		if call.Active() {
			o.policy.End(&call)
		}
		o.flush(ctx, call)
	}
	return len(evicted)
}

// ActiveSessions exposes in-flight calls for the ops API.
func (o *Orchestrator) ActiveSessions() []session.Call {
	return o.sessions.Active()
}

func (o *Orchestrator) isDuplicate(call *session.Call, transcript string) bool {
	return transcript != "" &&
		call.TurnCount > 0 &&
		call.TurnCount == call.LastTurnProcessed &&
		transcript == call.LastTranscript
}

func (o *Orchestrator) remember(call *session.Call, act dialogue.Act) {
	call.LastResponse = session.Response{Action: string(act.Type), Text: act.Text, Target: act.Target}
}

// fulfill invokes the collaborator matching the resolved intent. The
// call is bounded by the collaborator timeout; a timeout is a failure
// and escalates rather than retrying while the caller waits.
func (o *Orchestrator) fulfill(ctx context.Context, call *session.Call) dialogue.Act {
	cctx, cancel := context.WithTimeout(ctx, o.collabTimeout)
	defer cancel()

	start, hasSlot := call.Entities.StartTime(o.now())
	hours := call.Entities.Hours()
	service := call.Entities.Service("basketball")

	switch call.LastIntent {
	case intent.Pricing:
		if !hasSlot {
			start = o.now()
		}
		rate, err := o.pricing.GetRate(cctx, service, start, hours)
		if err != nil {
			o.logger.Warn("pricing failed", "conversation", call.ConversationID, "error", err)
			return o.policy.ResolveFulfillment(call, "", err)
		}
		text := fmt.Sprintf("For %d hours of %s, the total comes to $%.0f.",
			hours, spoken(service), rate.Total)
		return o.policy.ResolveFulfillment(call, text, nil)

	case intent.Availability:
		if !hasSlot {
			return o.policy.RequestSlotDetails(call)
		}
		free, err := o.calendar.CheckAvailability(cctx, start, hours)
		if err != nil {
			o.logger.Warn("availability check failed", "conversation", call.ConversationID, "error", err)
			return o.policy.ResolveFulfillment(call, "", err)
		}
		if !free {
			return o.policy.ResolveFulfillment(call,
				fmt.Sprintf("I'm sorry, %s is already taken. Would another time work?", spokenSlot(start)), nil)
		}
		return o.policy.ResolveFulfillment(call,
			fmt.Sprintf("Good news — %s is open. Would you like me to book it?", spokenSlot(start)), nil)

	case intent.Booking:
		if !hasSlot {
			return o.policy.RequestSlotDetails(call)
		}
		free, err := o.calendar.CheckAvailability(cctx, start, hours)
		if err != nil {
			o.logger.Warn("availability check failed", "conversation", call.ConversationID, "error", err)
			return o.policy.ResolveFulfillment(call, "", err)
		}
		if !free {
			return o.policy.ResolveFulfillment(call,
				fmt.Sprintf("I'm sorry, %s is already taken. Would another time work?", spokenSlot(start)), nil)
		}
		bookingID, err := o.calendar.CreateBooking(cctx, collab.BookingDetails{
			CallerNumber:  call.CallerNumber,
			Service:       service,
			Start:         start,
			DurationHours: hours,
			GroupSize:     call.Entities.Size(),
		})
		if err != nil {
			o.logger.Warn("booking failed", "conversation", call.ConversationID, "error", err)
			return o.policy.ResolveFulfillment(call, "", err)
		}
		call.BookingID = bookingID
		o.publish(events.SubjectConfirmation, events.Confirmation{
			CallerNumber:   call.CallerNumber,
			BookingID:      bookingID,
			Service:        service,
			Start:          start,
			DurationHours:  hours,
			ConversationID: call.ConversationID,
		})
		text := fmt.Sprintf("You're all set! I've booked %s for %d hours of %s. You'll get a confirmation text shortly.",
			spokenSlot(start), hours, spoken(service))
		return o.policy.ResolveFulfillment(call, text, nil)

	default:
		// The policy only requests fulfillment for the three intents above.
		return o.policy.FailSafe(call)
	}
}

// flush writes the finished call into customer memory and emits the
// summary event. Failures here are logged only; the call is already over.
func (o *Orchestrator) flush(ctx context.Context, call session.Call) {
	outcome := outcomeOf(call)
	in := memory.Interaction{
		ConversationID: call.ConversationID,
		Outcome:        outcome,
		At:             o.now(),
	}
	if call.BookingID != "" {
		start, _ := call.Entities.StartTime(call.CreatedAt)
		in.Booking = &memory.BookingRecord{
			BookingID:     call.BookingID,
			Service:       call.Entities.Service("basketball"),
			Start:         start,
			DurationHours: call.Entities.Hours(),
			GroupSize:     call.Entities.Size(),
			BookedAt:      call.CreatedAt,
		}
	}
	if call.CallerNumber == "" {
		return // nothing to key the profile on
	}
	if err := o.memory.RecordInteraction(ctx, call.CallerNumber, in); err != nil {
		o.logger.Error("memory flush failed", "caller", call.CallerNumber, "error", err)
	}
	o.publish(events.SubjectSummary, events.Summary{
		ConversationID: call.ConversationID,
		CallerNumber:   call.CallerNumber,
		Outcome:        outcome,
		TurnCount:      call.TurnCount,
		LastIntent:     string(call.LastIntent),
		BookingID:      call.BookingID,
		StartedAt:      call.CreatedAt,
		EndedAt:        o.now(),
	})
}

func (o *Orchestrator) publishEscalation(call *session.Call) {
	o.publish(events.SubjectEscalated, events.Escalated{
		ConversationID: call.ConversationID,
		CallerNumber:   call.CallerNumber,
		Reason:         string(call.EscalationReason),
		TurnCount:      call.TurnCount,
		Attempts:       call.ClarificationAttempts,
		At:             o.now(),
	})
}

func (o *Orchestrator) publish(subject string, data any) {
	if o.events == nil {
		return
	}
	if err := o.events.Publish(subject, data); err != nil {
		o.logger.Warn("event publish failed", "subject", subject, "error", err)
	}
}

func outcomeOf(call session.Call) string {
	switch {
	case call.BookingID != "":
		return "booked"
	case call.EscalationFlag:
		return "escalated"
	case call.TurnCount == 0:
		return "abandoned"
	default:
		return "inquiry"
	}
}

func spoken(service string) string {
	return strings.ReplaceAll(service, "_", " ")
}

func spokenSlot(t time.Time) string {
	return t.Format("Monday at 3:04 PM")
}
