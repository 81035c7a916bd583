package intent

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Group is one trigger group for an intent: a set of alternative patterns
// sharing a specificity weight. Multi-word phrase groups carry a higher
// weight than single-keyword groups.
type Group struct {
	Weight   float64  `yaml:"weight"`
	Patterns []string `yaml:"patterns"`
}

// Table maps each intent to its trigger groups. The table is pure data so
// classification stays a pure function over it.
type Table map[Intent][]Group

type tableFile struct {
	Intents map[string][]Group `yaml:"intents"`
}

// DefaultTable returns the baked-in pattern table for a sports facility
// rental line.
func DefaultTable() Table {
	return Table{
		Pricing: {
			{Weight: 1.0, Patterns: []string{
				`\b(price|prices|cost|costs|rate|rates|fee|fees|charge|pricing|expensive|cheap)\b`,
				`\bhow much\b`,
			}},
			{Weight: 1.5, Patterns: []string{
				`\bhow much\b`,
				`\bwhat does it cost\b`,
				`\bprice for\b`,
				`\bhow much does\b`,
			}},
			{Weight: 1.0, Patterns: []string{
				`\b(hourly|per hour|party package|membership)\b`,
			}},
		},
		Availability: {
			{Weight: 1.0, Patterns: []string{
				`\b(available|availability|vacant|openings?)\b`,
			}},
			{Weight: 1.5, Patterns: []string{
				`\bdo you have\b.*\b(open|free|slot)\b`,
				`\bwhen can\b`,
				`\bwhat times\b`,
				`\bis\b.*\bavailable\b`,
				`\bany (slots|openings|courts) (open|free|left)\b`,
			}},
			{Weight: 0.5, Patterns: []string{
				`\b(time slot|free slot|open slot)\b`,
			}},
		},
		Booking: {
			{Weight: 1.0, Patterns: []string{
				`\b(book|reserve|schedule|rent|hire)\b`,
			}},
			{Weight: 1.5, Patterns: []string{
				`\bwant to book\b`,
				`\bneed to reserve\b`,
				`\blike to (book|rent|reserve)\b`,
				`\bbook (me|it|us)\b`,
				`\bmake a (booking|reservation)\b`,
				`\bgo ahead\b`,
			}},
			{Weight: 1.0, Patterns: []string{
				`\b(booking|reservation|appointment)\b`,
			}},
		},
		EscalationRequest: {
			{Weight: 1.0, Patterns: []string{
				`\b(human|real person|representative|manager|operator|staff member)\b`,
			}},
			{Weight: 2.0, Patterns: []string{
				`\b(speak|talk) (to|with) (a|an|the|some)?\s?(person|human|someone|manager|staff)\b`,
				`\btransfer me\b`,
				`\bconnect me\b`,
				`\bget me (a|the) (manager|person|human)\b`,
			}},
		},
		GeneralInfo: {
			{Weight: 1.0, Patterns: []string{
				`\b(location|address|directions|parking|amenities|facilities)\b`,
			}},
			{Weight: 1.5, Patterns: []string{
				`\b(your|opening|business) hours\b`,
				`\bwhat (do you offer|services)\b`,
				`\btell me about\b`,
				`\bhow does\b.*\bwork\b`,
				`\bwhere are you\b`,
			}},
		},
		Goodbye: {
			{Weight: 2.5, Patterns: []string{
				`\b(goodbye|bye bye)\b`,
				`\bthat'?s (all|everything|it for now)\b`,
				`\bi'?m (all set|done|good|finished)\b`,
				`\bnothing else\b`,
				`\bhang up\b`,
			}},
		},
	}
}

// LoadTable reads a YAML pattern file and merges it over the defaults:
// any intent present in the file replaces that intent's groups, intents
// absent from the file keep the baked-in groups.
func LoadTable(path string) (Table, error) {
	table := DefaultTable()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pattern file: %w", err)
	}
	var f tableFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse pattern file: %w", err)
	}
	for name, groups := range f.Intents {
		table[Intent(name)] = groups
	}
	return table, nil
}

// compiledGroup is a trigger group with its patterns compiled.
type compiledGroup struct {
	weight   float64
	patterns []*regexp.Regexp
}

type compiledTable map[Intent][]compiledGroup

func compile(t Table) (compiledTable, error) {
	ct := make(compiledTable, len(t))
	for in, groups := range t {
		for _, g := range groups {
			cg := compiledGroup{weight: g.Weight}
			for _, p := range g.Patterns {
				re, err := regexp.Compile(`(?i)` + p)
				if err != nil {
					return nil, fmt.Errorf("intent %s: compile %q: %w", in, p, err)
				}
				cg.patterns = append(cg.patterns, re)
			}
			ct[in] = append(ct[in], cg)
		}
	}
	return ct, nil
}
