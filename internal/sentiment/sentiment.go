// Package sentiment scores transcript emotional valence and flags the
// caller states that drive escalation. Analysis is deterministic lexicon
// scoring; the same transcript always yields the same result.
package sentiment

import (
	"regexp"
	"strings"
)

// Emotion is the dominant caller emotion for one turn.
type Emotion string

const (
	Frustrated Emotion = "frustrated"
	Urgent     Emotion = "urgent"
	Confused   Emotion = "confused"
	Satisfied  Emotion = "satisfied"
	Neutral    Emotion = "neutral"
)

// Result is the per-turn sentiment outcome.
type Result struct {
	Polarity     float64 `json:"polarity"`     // [-1,1]
	Subjectivity float64 `json:"subjectivity"` // [0,1]
	Emotion      Emotion `json:"emotion"`
	IsFrustrated bool    `json:"is_frustrated"`
	IsUrgent     bool    `json:"is_urgent"`
	IsConfused   bool    `json:"is_confused"`
}

// negativePolarityFloor is the polarity below which a caller counts as
// frustrated even without an explicit frustration keyword.
const negativePolarityFloor = -0.5

var positiveWords = map[string]bool{
	"great": true, "good": true, "perfect": true, "awesome": true,
	"wonderful": true, "excellent": true, "thanks": true, "thank": true,
	"love": true, "nice": true, "happy": true, "fantastic": true,
	"helpful": true, "appreciate": true,
}

var negativeWords = map[string]bool{
	"bad": true, "terrible": true, "awful": true, "horrible": true,
	"worst": true, "hate": true, "useless": true, "ridiculous": true,
	"stupid": true, "wrong": true, "broken": true, "annoying": true,
	"disappointed": true, "unacceptable": true, "slow": true,
}

// Subjectivity markers: first-person opinion and intensity words.
var subjectiveWords = map[string]bool{
	"i": true, "me": true, "my": true, "think": true, "feel": true,
	"really": true, "very": true, "totally": true, "absolutely": true,
	"honestly": true, "definitely": true, "so": true,
}

var frustrationPhrases = []string{
	"frustrated", "annoyed", "upset", "angry", "ridiculous", "terrible",
	"awful", "worst", "hate", "stupid", "useless", "fed up", "on hold forever",
	"sick of", "this is insane",
}

var urgencyPhrases = []string{
	"urgent", "asap", "emergency", "immediately", "right now", "right away",
	"quickly", "hurry", "need it now", "as soon as possible",
}

var confusionPhrases = []string{
	"confused", "don't understand", "do not understand", "what do you mean",
	"unclear", "not sure", "i don't know", "can you explain", "makes no sense",
}

var reWords = regexp.MustCompile(`[a-z']+`)

// Analyze scores one transcript. Empty or unintelligible input degrades
// to a neutral result, never an error.
func Analyze(transcript string) Result {
	text := strings.ToLower(transcript)
	words := reWords.FindAllString(text, -1)

	var pos, neg, subj int
	for _, w := range words {
		if positiveWords[w] {
			pos++
		}
		if negativeWords[w] {
			neg++
		}
		if subjectiveWords[w] {
			subj++
		}
	}

	var polarity float64
	if pos+neg > 0 {
		polarity = float64(pos-neg) / float64(pos+neg)
	}
	var subjectivity float64
	if len(words) > 0 {
		subjectivity = float64(subj+pos+neg) / float64(len(words))
		if subjectivity > 1 {
			subjectivity = 1
		}
	}

	r := Result{
		Polarity:     polarity,
		Subjectivity: subjectivity,
		// A lone mildly negative word should not flag frustration; the
		// polarity path needs a consistently negative turn.
		IsFrustrated: containsAny(text, frustrationPhrases) || (neg >= 2 && polarity < negativePolarityFloor),
		IsUrgent:     containsAny(text, urgencyPhrases),
		IsConfused:   containsAny(text, confusionPhrases),
	}

	switch {
	case r.IsFrustrated:
		r.Emotion = Frustrated
	case r.IsUrgent:
		r.Emotion = Urgent
	case r.IsConfused:
		r.Emotion = Confused
	case polarity > 0.3:
		r.Emotion = Satisfied
	default:
		r.Emotion = Neutral
	}
	return r
}

func containsAny(text string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}
