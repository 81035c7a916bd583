// Package api exposes the telephony webhook surface and a small
// bearer-gated ops API. Webhook handlers translate provider events into
// orchestrator calls and render the resulting dialogue act as JSON.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/courtside-ai/frontdesk/internal/dialogue"
	"github.com/courtside-ai/frontdesk/internal/memory"
	"github.com/courtside-ai/frontdesk/internal/session"
)

// CallHandler is the orchestrator surface the server drives.
type CallHandler interface {
	HandleCallStarted(ctx context.Context, conversationID, callerNumber string) (dialogue.Act, error)
	HandleSpeech(ctx context.Context, conversationID, callerNumber, transcript string) (dialogue.Act, error)
	HandleDTMF(ctx context.Context, conversationID, digits string) (dialogue.Act, error)
	HandleCallEnded(ctx context.Context, conversationID string) error
	ActiveSessions() []session.Call
}

type Server struct {
	router   *chi.Mux
	port     int
	handler  CallHandler
	profiles memory.Store
	logger   *slog.Logger
}

func NewServer(port int, apiToken string, handler CallHandler, profiles memory.Store, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:   router,
		port:     port,
		handler:  handler,
		profiles: profiles,
		logger:   logger,
	}

	router.Get("/health", s.health)

	router.Route("/webhooks", func(r chi.Router) {
		r.Post("/call-started", s.callStarted)
		r.Post("/speech", s.speech)
		r.Post("/dtmf", s.dtmf)
		r.Post("/call-ended", s.callEnded)
	})

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(BearerAuthMiddleware(apiToken))
		r.Get("/sessions", s.sessions)
		r.Get("/customers/{number}", s.customer)
	})

	return s
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("API server starting", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

// BearerAuthMiddleware rejects requests whose Authorization header does
// not carry the configured token. An empty configured token disables the
// ops API entirely rather than leaving it open.
func BearerAuthMiddleware(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				http.Error(w, `{"error":"ops API disabled"}`, http.StatusForbidden)
				return
			}
			got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if got != token {
				http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type webhookEvent struct {
	ConversationID string `json:"conversation_id"`
	CallerNumber   string `json:"caller_number"`
	Transcript     string `json:"transcript"`
	Digits         string `json:"digits"`
}

// decodeEvent parses and validates a webhook payload. A malformed event
// is answered with 400 and must not touch any session.
func (s *Server) decodeEvent(w http.ResponseWriter, r *http.Request) (webhookEvent, bool) {
	var ev webhookEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		s.logger.Warn("malformed webhook payload", "path", r.URL.Path, "error", err)
		http.Error(w, fmt.Sprintf(`{"error":"invalid JSON: %v"}`, err), http.StatusBadRequest)
		return webhookEvent{}, false
	}
	if ev.ConversationID == "" {
		s.logger.Warn("webhook missing conversation_id", "path", r.URL.Path)
		http.Error(w, `{"error":"conversation_id is required"}`, http.StatusBadRequest)
		return webhookEvent{}, false
	}
	return ev, true
}

func (s *Server) callStarted(w http.ResponseWriter, r *http.Request) {
	ev, ok := s.decodeEvent(w, r)
	if !ok {
		return
	}
	act, err := s.handler.HandleCallStarted(r.Context(), ev.ConversationID, ev.CallerNumber)
	s.renderAct(w, act, err)
}

func (s *Server) speech(w http.ResponseWriter, r *http.Request) {
	ev, ok := s.decodeEvent(w, r)
	if !ok {
		return
	}
	if ev.Transcript == "" {
		http.Error(w, `{"error":"transcript is required"}`, http.StatusBadRequest)
		return
	}
	act, err := s.handler.HandleSpeech(r.Context(), ev.ConversationID, ev.CallerNumber, ev.Transcript)
	s.renderAct(w, act, err)
}

func (s *Server) dtmf(w http.ResponseWriter, r *http.Request) {
	ev, ok := s.decodeEvent(w, r)
	if !ok {
		return
	}
	if ev.Digits == "" {
		http.Error(w, `{"error":"digits is required"}`, http.StatusBadRequest)
		return
	}
	act, err := s.handler.HandleDTMF(r.Context(), ev.ConversationID, ev.Digits)
	s.renderAct(w, act, err)
}

func (s *Server) callEnded(w http.ResponseWriter, r *http.Request) {
	ev, ok := s.decodeEvent(w, r)
	if !ok {
		return
	}
	if err := s.handler.HandleCallEnded(r.Context(), ev.ConversationID); err != nil {
		s.logger.Error("call-ended handling failed", "conversation", ev.ConversationID, "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) renderAct(w http.ResponseWriter, act dialogue.Act, err error) {
	if err != nil {
		s.logger.Error("webhook handling failed", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(act)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

type sessionSummary struct {
	ConversationID string  `json:"conversation_id"`
	CallerNumber   string  `json:"caller_number"`
	State          string  `json:"state"`
	TurnCount      int     `json:"turn_count"`
	LastIntent     string  `json:"last_intent"`
	LastConfidence float64 `json:"last_confidence"`
	Escalated      bool    `json:"escalated"`
	BookingID      string  `json:"booking_id,omitempty"`
}

func (s *Server) sessions(w http.ResponseWriter, r *http.Request) {
	calls := s.handler.ActiveSessions()
	out := make([]sessionSummary, 0, len(calls))
	for _, c := range calls {
		out = append(out, sessionSummary{
			ConversationID: c.ConversationID,
			CallerNumber:   c.CallerNumber,
			State:          string(c.State),
			TurnCount:      c.TurnCount,
			LastIntent:     string(c.LastIntent),
			LastConfidence: c.LastConfidence,
			Escalated:      c.EscalationFlag,
			BookingID:      c.BookingID,
		})
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"sessions": out, "count": len(out)})
}

func (s *Server) customer(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")
	profile, err := s.profiles.Lookup(r.Context(), number)
	if err != nil {
		s.logger.Error("profile lookup failed", "caller", number, "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if profile == nil {
		http.Error(w, `{"error":"unknown caller"}`, http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(profile)
}
