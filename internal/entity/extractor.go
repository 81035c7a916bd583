package entity

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	reClockTime = regexp.MustCompile(`\b(\d{1,2})(?::(\d{2}))?\s*([ap])\.?m?\b`)
	reDuration  = regexp.MustCompile(`\b(\d+|one|two|three|four|five|six|seven|eight|nine|ten|eleven|twelve|half an?)\s*(?:hours?|hrs?)\b`)
	reGroupSize = regexp.MustCompile(`\b(\d+)\s*(?:kids|children|people|guests|players|adults|of us)\b`)
	rePhone     = regexp.MustCompile(`\b(?:\+?1[-. ]?)?\(?(\d{3})\)?[-. ]?(\d{3})[-. ]?(\d{4})\b`)
	reBudget    = regexp.MustCompile(`(?:\$\s?(\d+)|\b(\d+)\s?(?:dollars|bucks)\b)`)
)

var wordNumbers = map[string]int{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5, "six": 6,
	"seven": 7, "eight": 8, "nine": 9, "ten": 10, "eleven": 11, "twelve": 12,
}

var serviceTriggers = []struct {
	norm    string
	pattern *regexp.Regexp
}{
	{"basketball", regexp.MustCompile(`\b(basketball|hoops|full court|half court)\b`)},
	{"birthday_party", regexp.MustCompile(`\b(birthday|kids?.{0,10}party|party package)\b`)},
	{"multi_sport", regexp.MustCompile(`\b(dodgeball|volleyball|soccer|multi.?sport)\b`)},
}

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
	"wednesday": time.Wednesday, "thursday": time.Thursday,
	"friday": time.Friday, "saturday": time.Saturday,
}

var reWeekday = regexp.MustCompile(`\b(?:next|this|on)?\s*(sunday|monday|tuesday|wednesday|thursday|friday|saturday)\b`)

// Extract pulls every recognizable entity out of transcript. Relative
// date expressions resolve against ref, the call's timestamp, so the
// result stays stable however late it is re-read. Unparseable spans are
// skipped, never reported as errors.
func Extract(transcript string, ref time.Time) Set {
	text := strings.ToLower(transcript)
	out := make(Set)

	if raw, norm, ok := extractDate(text, ref); ok {
		out[Date] = Value{Raw: raw, Norm: norm}
	}
	if raw, norm, ok := extractClockTime(text); ok {
		out[Time] = Value{Raw: raw, Norm: norm}
	}
	if m := reDuration.FindStringSubmatch(text); m != nil {
		if n, ok := parseCount(m[1]); ok {
			out[DurationHours] = Value{Raw: m[0], Norm: strconv.Itoa(n)}
		}
	}
	if m := reGroupSize.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			out[GroupSize] = Value{Raw: m[0], Norm: strconv.Itoa(n)}
		}
	}
	if m := rePhone.FindStringSubmatch(text); m != nil {
		out[Phone] = Value{Raw: m[0], Norm: "+1" + m[1] + m[2] + m[3]}
	}
	if m := reBudget.FindStringSubmatch(text); m != nil {
		amount := m[1]
		if amount == "" {
			amount = m[2]
		}
		out[BudgetUSD] = Value{Raw: m[0], Norm: amount}
	}
	for _, st := range serviceTriggers {
		if m := st.pattern.FindString(text); m != "" {
			out[ServiceType] = Value{Raw: m, Norm: st.norm}
			break
		}
	}

	return out
}

func extractDate(text string, ref time.Time) (raw, norm string, ok bool) {
	day := func(t time.Time) string { return t.Format("2006-01-02") }

	switch {
	case strings.Contains(text, "day after tomorrow"):
		return "day after tomorrow", day(ref.AddDate(0, 0, 2)), true
	case strings.Contains(text, "tomorrow"):
		return "tomorrow", day(ref.AddDate(0, 0, 1)), true
	case strings.Contains(text, "today"), strings.Contains(text, "tonight"):
		return "today", day(ref), true
	}

	if m := reWeekday.FindStringSubmatch(text); m != nil {
		target := weekdays[m[1]]
		ahead := (int(target) - int(ref.Weekday()) + 7) % 7
		if ahead == 0 {
			ahead = 7
		}
		return m[0], day(ref.AddDate(0, 0, ahead)), true
	}

	if strings.Contains(text, "weekend") {
		ahead := (int(time.Saturday) - int(ref.Weekday()) + 7) % 7
		if ahead == 0 {
			ahead = 7
		}
		return "weekend", day(ref.AddDate(0, 0, ahead)), true
	}
	if strings.Contains(text, "next week") {
		ahead := (int(time.Monday) - int(ref.Weekday()) + 7) % 7
		if ahead == 0 {
			ahead = 7
		}
		return "next week", day(ref.AddDate(0, 0, ahead)), true
	}

	return "", "", false
}

func extractClockTime(text string) (raw, norm string, ok bool) {
	switch {
	case strings.Contains(text, "noon"):
		return "noon", "12:00", true
	case strings.Contains(text, "midnight"):
		return "midnight", "00:00", true
	}

	m := reClockTime.FindStringSubmatch(text)
	if m == nil {
		return "", "", false
	}
	hour, err := strconv.Atoi(m[1])
	if err != nil || hour > 12 || hour < 1 {
		return "", "", false
	}
	minute := 0
	if m[2] != "" {
		minute, err = strconv.Atoi(m[2])
		if err != nil || minute > 59 {
			return "", "", false
		}
	}
	if m[3] == "p" && hour != 12 {
		hour += 12
	}
	if m[3] == "a" && hour == 12 {
		hour = 0
	}
	return m[0], fmt.Sprintf("%02d:%02d", hour, minute), true
}

func parseCount(s string) (int, bool) {
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n, true
	}
	if n, ok := wordNumbers[s]; ok {
		return n, true
	}
	if strings.HasPrefix(s, "half") {
		return 1, true // round a half hour up to the minimum bookable slot
	}
	return 0, false
}
