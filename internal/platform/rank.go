package platform

import (
	"sort"

	"rulesmith/internal/schema"
)

// Tier groups ranked rules. Lower tiers are kept first when limiting.
type Tier uint8

const (
	TierPriority Tier = iota
	TierPattern
	TierDirect
)

func (t Tier) String() string {
	switch t {
	case TierPriority:
		return "priority"
	case TierPattern:
		return "pattern"
	}
	return "direct"
}

// Ranked is one rule with its ranking tier and score.
type Ranked struct {
	schema.Correction
	Tier         Tier
	Score        float64
	Pattern      bool
	Replacements int
}

// Rank orders rules by usefulness: rules for priority words first, then
// patterns by the summed frequency of the words they replace, then direct
// corrections by word frequency.
func Rank(corrections []schema.Correction, patterns []schema.Pattern, freq map[string]float64, priority map[string]bool) []Ranked {
	ranked := make([]Ranked, 0, len(corrections)+len(patterns))

	for _, p := range patterns {
		r := Ranked{Correction: p.Correction, Tier: TierPattern, Pattern: true, Replacements: len(p.Replacements)}
		for _, rep := range p.Replacements {
			r.Score += freq[rep.Word]
		}
		if priority[p.Word] {
			r.Tier = TierPriority
		}
		ranked = append(ranked, r)
	}
	for _, c := range corrections {
		r := Ranked{Correction: c, Tier: TierDirect, Score: freq[c.Word]}
		if priority[c.Word] {
			r.Tier = TierPriority
		}
		ranked = append(ranked, r)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Tier != b.Tier {
			return a.Tier < b.Tier
		}
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Replacements != b.Replacements {
			return a.Replacements > b.Replacements
		}
		return a.Correction.Less(b.Correction)
	})
	return ranked
}
// Limit keeps the first n ranked rules. An n of 0 keeps everything.
func Limit(ranked []Ranked, n int) (kept, dropped []Ranked) {
	if n <= 0 || len(ranked) <= n {
		return ranked, nil
	}
	return ranked[:n], ranked[n:]
}
