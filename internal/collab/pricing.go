// Package collab holds the clients for the external collaborators the
// orchestrator calls during fulfillment. Every client carries an
// aggressive timeout: a live caller is waiting on the line, so a slow
// collaborator is treated as a failed one and never retried mid-call.
package collab

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Pricing answers rate inquiries.
type Pricing struct {
	baseURL string
	client  *http.Client
}

func NewPricing(baseURL string, timeout time.Duration) *Pricing {
	return &Pricing{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// Rate is a quoted price for a service slot.
type Rate struct {
	Total     float64 `json:"total"`
	PerHour   float64 `json:"per_hour"`
	Breakdown string  `json:"breakdown,omitempty"`
}

// GetRate quotes serviceType for a slot of the given start and duration.
func (p *Pricing) GetRate(ctx context.Context, serviceType string, start time.Time, hours int) (*Rate, error) {
	q := url.Values{
		"service":  {serviceType},
		"start":    {start.Format(time.RFC3339)},
		"duration": {strconv.Itoa(hours)},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		p.baseURL+"/api/v1/rates?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pricing call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("pricing returned %d: %s", resp.StatusCode, body)
	}

	var rate Rate
	if err := json.NewDecoder(resp.Body).Decode(&rate); err != nil {
		return nil, fmt.Errorf("decode rate: %w", err)
	}
	return &rate, nil
}
