package entity

import (
	"testing"
	"time"
)

// Wednesday afternoon, fixed so relative dates are deterministic.
var ref = time.Date(2026, time.August, 26, 14, 0, 0, 0, time.UTC)

func TestExtract_PricingScenario(t *testing.T) {
	got := Extract("How much for two hours tomorrow at 3pm?", ref)

	if v := got[DurationHours]; v.Norm != "2" {
		t.Errorf("duration = %q, want 2", v.Norm)
	}
	if v := got[Date]; v.Norm != "2026-08-27" {
		t.Errorf("date = %q, want 2026-08-27", v.Norm)
	}
	if v := got[Time]; v.Norm != "15:00" {
		t.Errorf("time = %q, want 15:00", v.Norm)
	}
}

func TestExtract_RelativeDates(t *testing.T) {
	tests := []struct {
		name       string
		transcript string
		want       string
	}{
		{"today", "can we come today", "2026-08-26"},
		{"tonight", "anything open tonight", "2026-08-26"},
		{"tomorrow", "book it for tomorrow", "2026-08-27"},
		{"day after tomorrow", "the day after tomorrow works", "2026-08-28"},
		{"next saturday", "how about next saturday", "2026-08-29"},
		{"this friday", "this friday evening", "2026-08-28"},
		{"same weekday rolls a week", "next wednesday please", "2026-09-02"},
		{"weekend", "sometime this weekend", "2026-08-29"},
		{"next week", "early next week", "2026-08-31"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract(tt.transcript, ref)
			v, ok := got[Date]
			if !ok {
				t.Fatalf("no date extracted from %q", tt.transcript)
			}
			if v.Norm != tt.want {
				t.Errorf("date = %q, want %q", v.Norm, tt.want)
			}
		})
	}
}

func TestExtract_ClockTimes(t *testing.T) {
	tests := []struct {
		name       string
		transcript string
		want       string
	}{
		{"pm", "around 3pm", "15:00"},
		{"pm with minutes", "10:30 pm", "22:30"},
		{"am", "9 am works", "09:00"},
		{"noon hour pm", "12 pm", "12:00"},
		{"midnight as 12am", "12 am", "00:00"},
		{"noon word", "come at noon", "12:00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract(tt.transcript, ref)
			v, ok := got[Time]
			if !ok {
				t.Fatalf("no time extracted from %q", tt.transcript)
			}
			if v.Norm != tt.want {
				t.Errorf("time = %q, want %q", v.Norm, tt.want)
			}
		})
	}
}

func TestExtract_NumbersAndMoney(t *testing.T) {
	got := Extract("a birthday party for 12 kids, budget around $300, call me back at 555-123-4567", ref)

	if v := got[GroupSize]; v.Norm != "12" {
		t.Errorf("group size = %q, want 12", v.Norm)
	}
	if v := got[BudgetUSD]; v.Norm != "300" {
		t.Errorf("budget = %q, want 300", v.Norm)
	}
	if v := got[Phone]; v.Norm != "+15551234567" {
		t.Errorf("phone = %q, want +15551234567", v.Norm)
	}
	if v := got[ServiceType]; v.Norm != "birthday_party" {
		t.Errorf("service = %q, want birthday_party", v.Norm)
	}
}

func TestExtract_ServiceTypes(t *testing.T) {
	tests := []struct {
		transcript string
		want       string
	}{
		{"a full court for basketball", "basketball"},
		{"we want to shoot hoops", "basketball"},
		{"volleyball and dodgeball for the team", "multi_sport"},
	}
	for _, tt := range tests {
		got := Extract(tt.transcript, ref)
		if v := got[ServiceType]; v.Norm != tt.want {
			t.Errorf("Extract(%q) service = %q, want %q", tt.transcript, v.Norm, tt.want)
		}
	}
}

func TestExtract_WordDurations(t *testing.T) {
	tests := []struct {
		transcript string
		want       string
	}{
		{"three hours please", "3"},
		{"just 1 hour", "1"},
		{"half an hour", "1"},
	}
	for _, tt := range tests {
		got := Extract(tt.transcript, ref)
		if v := got[DurationHours]; v.Norm != tt.want {
			t.Errorf("Extract(%q) duration = %q, want %q", tt.transcript, v.Norm, tt.want)
		}
	}
}

func TestExtract_EmptyAndNoise(t *testing.T) {
	for _, transcript := range []string{"", "ummm", "the quick brown fox"} {
		got := Extract(transcript, ref)
		if len(got) != 0 {
			t.Errorf("Extract(%q) = %v, want empty", transcript, got)
		}
	}
}

func TestMerge_NeverOverwritesWithEmpty(t *testing.T) {
	dst := Set{ServiceType: {Raw: "basketball", Norm: "basketball"}}
	src := Set{
		ServiceType:   {Raw: "court", Norm: ""},
		DurationHours: {Raw: "2 hours", Norm: "2"},
	}

	got := Merge(dst, src)

	if got[ServiceType].Norm != "basketball" {
		t.Errorf("empty value overwrote service type: %v", got[ServiceType])
	}
	if got[DurationHours].Norm != "2" {
		t.Errorf("new value not merged: %v", got[DurationHours])
	}
}

func TestMerge_MostRecentWins(t *testing.T) {
	dst := Set{DurationHours: {Raw: "2 hours", Norm: "2"}}
	got := Merge(dst, Set{DurationHours: {Raw: "3 hours", Norm: "3"}})
	if got[DurationHours].Norm != "3" {
		t.Errorf("latest value should win, got %v", got[DurationHours])
	}
}

func TestStartTime(t *testing.T) {
	set := Extract("tomorrow at 3pm", ref)
	start, ok := set.StartTime(ref)
	if !ok {
		t.Fatal("expected a start time")
	}
	want := time.Date(2026, time.August, 27, 15, 0, 0, 0, time.UTC)
	if !start.Equal(want) {
		t.Errorf("start = %s, want %s", start, want)
	}

	// Time only: defaults to the reference day.
	set = Extract("at 9 am", ref)
	start, ok = set.StartTime(ref)
	if !ok {
		t.Fatal("expected a start time")
	}
	if start.Day() != 26 || start.Hour() != 9 {
		t.Errorf("time-only start = %s", start)
	}

	// Neither part present.
	if _, ok := Extract("basketball please", ref).StartTime(ref); ok {
		t.Error("expected no start time without date or time")
	}
}
