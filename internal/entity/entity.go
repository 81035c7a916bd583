// Package entity extracts structured values from call transcripts.
// Extraction is a pure function of the transcript and a reference
// timestamp; it never touches session state.
package entity

import (
	"strconv"
	"time"
)

// Kind identifies one extractable entity type.
type Kind string

const (
	Date          Kind = "date"
	Time          Kind = "time"
	DurationHours Kind = "duration_hours"
	GroupSize     Kind = "group_size"
	Phone         Kind = "phone"
	BudgetUSD     Kind = "budget_usd"
	ServiceType   Kind = "service_type"
)

// Value carries the raw matched span and its normalized form. Dates
// normalize to YYYY-MM-DD, times to 24h HH:MM, numbers to decimal
// strings, phones to E.164.
type Value struct {
	Raw  string `json:"raw"`
	Norm string `json:"norm"`
}

// Set is the extraction result for one transcript.
type Set map[Kind]Value

// Merge folds src into dst, most recent wins, but never replaces an
// existing value with an empty one. dst may be nil.
func Merge(dst, src Set) Set {
	if dst == nil {
		dst = make(Set, len(src))
	}
	for k, v := range src {
		if v.Norm == "" {
			continue
		}
		dst[k] = v
	}
	return dst
}

// StartTime combines the set's date and time into a concrete start
// moment. A missing date defaults to the reference day, a missing time to
// 15:00 (mid-afternoon, the facility's most requested slot). Returns
// false when neither part is present.
func (s Set) StartTime(ref time.Time) (time.Time, bool) {
	d, hasDate := s[Date]
	tm, hasTime := s[Time]
	if !hasDate && !hasTime {
		return time.Time{}, false
	}

	day := ref
	if hasDate {
		parsed, err := time.ParseInLocation("2006-01-02", d.Norm, ref.Location())
		if err != nil {
			return time.Time{}, false
		}
		day = parsed
	}

	hour, minute := 15, 0
	if hasTime {
		parsed, err := time.Parse("15:04", tm.Norm)
		if err != nil {
			return time.Time{}, false
		}
		hour, minute = parsed.Hour(), parsed.Minute()
	}

	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, ref.Location()), true
}

// Hours returns the extracted duration in hours, defaulting to 1.
func (s Set) Hours() int {
	if v, ok := s[DurationHours]; ok {
		if n, err := strconv.Atoi(v.Norm); err == nil && n > 0 {
			return n
		}
	}
	return 1
}

// Size returns the extracted group size, or 0 when absent.
func (s Set) Size() int {
	if v, ok := s[GroupSize]; ok {
		if n, err := strconv.Atoi(v.Norm); err == nil {
			return n
		}
	}
	return 0
}

// Service returns the extracted service type, or the given default.
func (s Set) Service(fallback string) string {
	if v, ok := s[ServiceType]; ok && v.Norm != "" {
		return v.Norm
	}
	return fallback
}
