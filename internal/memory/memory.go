// Package memory is the cross-call customer store, keyed by caller
// phone number. It is the only writer of customer profiles; writes for a
// given caller are serialized per key.
package memory

import (
	"context"
	"time"
)

// maxHistory bounds the booking history; the oldest entry is evicted on
// overflow.
const maxHistory = 10

// BookingRecord is one completed booking in a customer's history.
type BookingRecord struct {
	BookingID     string    `json:"booking_id"`
	Service       string    `json:"service"`
	Start         time.Time `json:"start"`
	DurationHours int       `json:"duration_hours"`
	GroupSize     int       `json:"group_size,omitempty"`
	BookedAt      time.Time `json:"booked_at"`
}

// Preferences are recomputed from the booking history on every update,
// never hand-edited.
type Preferences struct {
	FavoriteService    string  `json:"favorite_service"`
	PreferredTimeOfDay string  `json:"preferred_time_of_day"`
	TotalBookings      int     `json:"total_bookings"`
	AvgDurationHours   float64 `json:"avg_duration_hours"`
}

// Profile is everything remembered about one caller.
type Profile struct {
	CallerNumber   string          `json:"caller_number"`
	BookingHistory []BookingRecord `json:"booking_history"`
	Preferences    Preferences     `json:"preferences"`
	LastUpdated    time.Time       `json:"last_updated"`
}

// Interaction summarizes one finished call for the profile.
type Interaction struct {
	ConversationID string
	Outcome        string // booked | inquiry | escalated | abandoned
	Booking        *BookingRecord
	At             time.Time
}

// Store is the customer memory contract. Lookup returns (nil, nil) for a
// caller with no remembered profile.
type Store interface {
	Lookup(ctx context.Context, callerNumber string) (*Profile, error)
	RecordInteraction(ctx context.Context, callerNumber string, in Interaction) error
	Close()
}

// derivePreferences recomputes the derived block from a booking history.
// Pure so lookups always observe data consistent with the history.
func derivePreferences(history []BookingRecord) Preferences {
	p := Preferences{TotalBookings: len(history)}
	if len(history) == 0 {
		return p
	}

	services := make(map[string]int)
	periods := make(map[string]int)
	var hours int
	for _, b := range history {
		if b.Service != "" {
			services[b.Service]++
		}
		periods[timeOfDay(b.Start.Hour())]++
		hours += b.DurationHours
	}

	p.FavoriteService = mode(services)
	p.PreferredTimeOfDay = mode(periods)
	p.AvgDurationHours = float64(hours) / float64(len(history))
	return p
}

func timeOfDay(hour int) string {
	switch {
	case hour >= 6 && hour < 12:
		return "morning"
	case hour >= 12 && hour < 18:
		return "afternoon"
	default:
		return "evening"
	}
}

func mode(counts map[string]int) string {
	var best string
	var n int
	for k, c := range counts {
		if c > n || (c == n && k < best) {
			best, n = k, c
		}
	}
	return best
}

// appendBooking applies an interaction to a history, enforcing the
// most-recent-N bound.
func appendBooking(history []BookingRecord, b *BookingRecord) []BookingRecord {
	if b == nil {
		return history
	}
	history = append(history, *b)
	if len(history) > maxHistory {
		history = history[len(history)-maxHistory:]
	}
	return history
}
