package collab

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Calendar checks slot availability and creates bookings.
type Calendar struct {
	baseURL string
	client  *http.Client
}

func NewCalendar(baseURL string, timeout time.Duration) *Calendar {
	return &Calendar{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// BookingDetails is the payload for a new booking. RequestID is an
// idempotency key: the calendar service deduplicates retried creates on
// it, so a caller is never double-booked by a redelivered request.
type BookingDetails struct {
	RequestID     string    `json:"request_id"`
	CallerNumber  string    `json:"caller_number"`
	Service       string    `json:"service"`
	Start         time.Time `json:"start"`
	DurationHours int       `json:"duration_hours"`
	GroupSize     int       `json:"group_size,omitempty"`
}

// CheckAvailability reports whether a slot is free.
func (c *Calendar) CheckAvailability(ctx context.Context, start time.Time, hours int) (bool, error) {
	payload := map[string]any{
		"start":          start.Format(time.RFC3339),
		"duration_hours": hours,
	}
	var result struct {
		Available bool `json:"available"`
	}
	if err := c.post(ctx, "/api/v1/availability/check", payload, &result); err != nil {
		return false, err
	}
	return result.Available, nil
}

// CreateBooking reserves the slot and returns the booking ID. A missing
// RequestID is filled in here so every create carries an idempotency key.
func (c *Calendar) CreateBooking(ctx context.Context, details BookingDetails) (string, error) {
	if details.RequestID == "" {
		details.RequestID = uuid.NewString()
	}
	var result struct {
		BookingID string `json:"booking_id"`
	}
	if err := c.post(ctx, "/api/v1/bookings", details, &result); err != nil {
		return "", err
	}
	if result.BookingID == "" {
		return "", fmt.Errorf("calendar returned no booking id")
	}
	return result.BookingID, nil
}

func (c *Calendar) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("calendar call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("calendar returned %d: %s", resp.StatusCode, raw)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
