// Package events publishes call lifecycle signals to NATS: booking
// confirmations for the notification service, escalations and call
// summaries for analytics. Publishing is fire-and-forget; a failure is
// logged by the caller and never changes session state.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

const (
	SubjectConfirmation = "frontdesk.notify.confirmation"
	SubjectEscalated    = "frontdesk.call.escalated"
	SubjectSummary      = "frontdesk.call.summary"
)

// Confirmation asks the notification service to text the caller their
// booking details.
type Confirmation struct {
	CallerNumber   string    `json:"caller_number"`
	BookingID      string    `json:"booking_id"`
	Service        string    `json:"service"`
	Start          time.Time `json:"start"`
	DurationHours  int       `json:"duration_hours"`
	ConversationID string    `json:"conversation_id"`
}

// Escalated records a hand-off to a human for analytics.
type Escalated struct {
	ConversationID string    `json:"conversation_id"`
	CallerNumber   string    `json:"caller_number"`
	Reason         string    `json:"reason"`
	TurnCount      int       `json:"turn_count"`
	Attempts       int       `json:"clarification_attempts"`
	At             time.Time `json:"at"`
}

// Summary is emitted once per finished call.
type Summary struct {
	ConversationID string    `json:"conversation_id"`
	CallerNumber   string    `json:"caller_number"`
	Outcome        string    `json:"outcome"`
	TurnCount      int       `json:"turn_count"`
	LastIntent     string    `json:"last_intent"`
	BookingID      string    `json:"booking_id,omitempty"`
	StartedAt      time.Time `json:"started_at"`
	EndedAt        time.Time `json:"ended_at"`
}

type Publisher struct {
	conn   *nats.Conn
	logger *slog.Logger
}

func NewPublisher(_ context.Context, url, token string, logger *slog.Logger) (*Publisher, error) {
	opts := []nats.Option{
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &Publisher{conn: nc, logger: logger}, nil
}

// Publish marshals data and publishes it on subject. Safe on a nil
// Publisher so the service runs without NATS configured.
func (p *Publisher) Publish(subject string, data any) error {
	if p == nil {
		return nil
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	if err := p.conn.Publish(subject, payload); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

func (p *Publisher) Close() {
	if p == nil {
		return
	}
	p.conn.Close()
}
