package schema

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// IterationCounts holds the state sizes observed after one solver iteration.
type IterationCounts struct {
	Iteration   int `json:"iteration" msgpack:"iteration"`
	Corrections int `json:"corrections" msgpack:"corrections"`
	Patterns    int `json:"patterns" msgpack:"patterns"`
	Graveyard   int `json:"graveyard" msgpack:"graveyard"`
}

// RuleSet is the serializable outcome of a solver run.
type RuleSet struct {
	Name        string            `json:"name"`
	Platform    string            `json:"platform"`
	GeneratedAt string            `json:"generated_at"`
	Converged   bool              `json:"converged"`
	Iterations  int               `json:"iterations"`
	Corrections []Correction      `json:"corrections"`
	Patterns    []Pattern         `json:"patterns"`
	Graveyard   []GraveyardEntry  `json:"graveyard,omitempty"`
	History     []IterationCounts `json:"history,omitempty"`
}

// NewRuleSet creates a new RuleSet.
func NewRuleSet(name, platform string) *RuleSet {
	return &RuleSet{
		Name:        name,
		Platform:    platform,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
	}
}

// Count returns the number of active rules.
func (r *RuleSet) Count() int {
	return len(r.Corrections) + len(r.Patterns)
}

// Rules returns corrections and patterns as one sorted slice.
func (r *RuleSet) Rules() []Correction {
	rules := make([]Correction, 0, r.Count())
	rules = append(rules, r.Corrections...)
	for _, p := range r.Patterns {
		rules = append(rules, p.Correction)
	}
	SortCorrections(rules)
	return rules
}

// ReasonCounts tallies graveyard entries by reason.
func (r *RuleSet) ReasonCounts() map[RejectionReason]int {
	counts := make(map[RejectionReason]int)
	for _, e := range r.Graveyard {
		counts[e.Rejection.Reason]++
	}
	return counts
}

// Save saves the rule set to a JSON file.
func (r *RuleSet) Save(filePath string) error {
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	file, err := os.Create(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	sort.Slice(r.Graveyard, func(i, j int) bool {
		return r.Graveyard[i].Correction.Less(r.Graveyard[j].Correction)
	})

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(r)
}

// LoadRuleSet reads a rule set written by Save.
func LoadRuleSet(filePath string) (*RuleSet, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	var r RuleSet
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filePath, err)
	}
	return &r, nil
}
