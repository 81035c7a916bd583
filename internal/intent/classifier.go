package intent

import (
	"sort"
	"strings"
	"sync"
)

// scoreScale normalizes raw group-weight sums into [0,1] confidence.
// A single strong phrase group plus a keyword group clears 0.7.
const scoreScale = 3.0

// continuityBonus is the raw-score bonus applied when a candidate intent
// matches the previous turn's intent (topic continuity).
const continuityBonus = 0.45

// Classifier scores transcripts against a pattern table. Safe for
// concurrent use; Reload swaps the table atomically under a lock so a
// hot-reloaded pattern file never disturbs in-flight calls.
type Classifier struct {
	mu     sync.RWMutex
	table  compiledTable
	margin float64
}

// New builds a classifier over the given table. margin is the minimum
// confidence gap between the top two candidates before the winner is
// trusted; closer races are declared Unknown.
func New(table Table, margin float64) (*Classifier, error) {
	ct, err := compile(table)
	if err != nil {
		return nil, err
	}
	return &Classifier{table: ct, margin: margin}, nil
}

// Reload replaces the pattern table. Returns without swapping if the new
// table fails to compile.
func (c *Classifier) Reload(table Table) error {
	ct, err := compile(table)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.table = ct
	c.mu.Unlock()
	return nil
}

// Classify maps a transcript to an intent and confidence. recent is the
// previous turn's intent (Unknown when there is none) and earns a
// continuity bonus. Never fails: an empty or unmatched transcript yields
// Unknown with confidence 0.
func (c *Classifier) Classify(transcript string, recent Intent) Result {
	text := strings.ToLower(strings.TrimSpace(transcript))
	if text == "" {
		return Result{Intent: Unknown, Confidence: 0}
	}

	c.mu.RLock()
	table := c.table
	c.mu.RUnlock()

	type candidate struct {
		intent Intent
		score  float64
	}
	var candidates []candidate
	for in, groups := range table {
		var score float64
		for _, g := range groups {
			for _, re := range g.patterns {
				if re.MatchString(text) {
					score += g.weight
					break // one hit per group; specificity over repetition
				}
			}
		}
		if score == 0 {
			continue
		}
		if in == recent && recent != Unknown {
			score += continuityBonus
		}
		candidates = append(candidates, candidate{intent: in, score: score})
	}

	if len(candidates) == 0 {
		return Result{Intent: Unknown, Confidence: 0}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].intent < candidates[j].intent
	})

	conf := clamp(candidates[0].score / scoreScale)
	if len(candidates) > 1 {
		second := clamp(candidates[1].score / scoreScale)
		if conf-second < c.margin {
			// Too close to call. Ambiguity is a normal outcome that the
			// dialogue policy resolves with a clarification, not a guess.
			return Result{Intent: Unknown, Confidence: conf}
		}
	}
	return Result{Intent: candidates[0].intent, Confidence: conf}
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
