// Package snapshot stores the final solver state as msgpack so a run can be
// inspected after the fact.
package snapshot

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"rulesmith/internal/config"
	"rulesmith/internal/schema"
	"rulesmith/internal/solver"
	"rulesmith/internal/state"
)

// FileName is the snapshot written next to the rule output.
const FileName = "state.msgpack"

// Version is bumped whenever the layout changes incompatibly.
const Version = 1

// Snapshot is the persisted outcome of one solver run.
type Snapshot struct {
	Version     int                      `msgpack:"v"`
	Name        string                   `msgpack:"name"`
	Platform    string                   `msgpack:"platform"`
	CreatedAt   time.Time                `msgpack:"created_at"`
	Config      config.Solver            `msgpack:"config"`
	Converged   bool                     `msgpack:"converged"`
	Iterations  int                      `msgpack:"iterations"`
	Corrections []schema.Correction      `msgpack:"corrections"`
	Patterns    []schema.Pattern         `msgpack:"patterns"`
	Graveyard   []schema.GraveyardEntry  `msgpack:"graveyard"`
	History     []schema.IterationCounts `msgpack:"history"`
	Skips       []state.Skip             `msgpack:"skips,omitempty"`
	Trace       []state.TraceEntry       `msgpack:"trace,omitempty"`
}

// New captures res.
func New(name, platformName string, cfg config.Solver, res *solver.Result) *Snapshot {
	return &Snapshot{
		Version:     Version,
		Name:        name,
		Platform:    platformName,
		CreatedAt:   time.Now().UTC(),
		Config:      cfg,
		Converged:   res.Converged,
		Iterations:  res.Iterations,
		Corrections: res.Corrections,
		Patterns:    res.Patterns,
		Graveyard:   res.Graveyard,
		History:     res.History,
		Skips:       res.Skips,
		Trace:       res.Trace,
	}
}

// Save writes the snapshot to path, replacing any previous file only once
// the new one is complete.
func (s *Snapshot) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	tmp := path + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	if err := msgpack.NewEncoder(w).Encode(s); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// Load reads a snapshot written by Save.
func Load(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var s Snapshot
	if err := msgpack.NewDecoder(bufio.NewReader(f)).Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	if s.Version != Version {
		return nil, fmt.Errorf("%s: snapshot version %d, want %d", path, s.Version, Version)
	}
	return &s, nil
}

// RuleSet converts the snapshot into its JSON form.
func (s *Snapshot) RuleSet() *schema.RuleSet {
	rs := schema.NewRuleSet(s.Name, s.Platform)
	rs.GeneratedAt = s.CreatedAt.Format(time.RFC3339)
	rs.Converged = s.Converged
	rs.Iterations = s.Iterations
	rs.Corrections = s.Corrections
	rs.Patterns = s.Patterns
	rs.Graveyard = s.Graveyard
	rs.History = s.History
	return rs
}

// Typos returns every typo the snapshot knows about, active or buried.
func (s *Snapshot) Typos() []string {
	seen := make(map[string]bool)
	var out []string
	add := func(t string) {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	for _, c := range s.Corrections {
		add(c.Typo)
	}
	for _, p := range s.Patterns {
		for _, r := range p.Replacements {
			add(r.Typo)
		}
	}
	for _, g := range s.Graveyard {
		add(g.Typo)
	}
	for _, sk := range s.Skips {
		add(sk.Typo)
	}
	return out
}
