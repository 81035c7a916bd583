package memory

import (
	"context"
	"sync"
	"time"
)

// InMem is a process-local Store with TTL expiry. It backs tests and
// lets the service run without a database, at the cost of losing
// profiles on restart.
type InMem struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]*inmemEntry
}

type inmemEntry struct {
	profile Profile
	expires time.Time
}

func NewInMem(ttl time.Duration) *InMem {
	return &InMem{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]*inmemEntry),
	}
}

func (s *InMem) Lookup(_ context.Context, callerNumber string) (*Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[callerNumber]
	if !ok {
		return nil, nil
	}
	if s.now().After(e.expires) {
		delete(s.entries, callerNumber)
		return nil, nil
	}
	p := e.profile
	p.BookingHistory = append([]BookingRecord(nil), e.profile.BookingHistory...)
	return &p, nil
}

func (s *InMem) RecordInteraction(_ context.Context, callerNumber string, in Interaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[callerNumber]
	if !ok || s.now().After(e.expires) {
		e = &inmemEntry{profile: Profile{CallerNumber: callerNumber}}
		s.entries[callerNumber] = e
	}

	e.profile.BookingHistory = appendBooking(e.profile.BookingHistory, in.Booking)
	e.profile.Preferences = derivePreferences(e.profile.BookingHistory)
	e.profile.LastUpdated = in.At
	e.expires = s.now().Add(s.ttl)
	return nil
}

func (s *InMem) Close() {}
