// Package state holds the mutable dictionary the solver passes work on.
package state

import (
	"sort"

	"rulesmith/internal/schema"
)

// Counts is a size snapshot used for convergence checks.
type Counts struct {
	Corrections int `json:"corrections" msgpack:"corrections"`
	Patterns    int `json:"patterns" msgpack:"patterns"`
	Graveyard   int `json:"graveyard" msgpack:"graveyard"`
}

// Skip records a typo that was passed over without graveyarding.
type Skip struct {
	Typo      string                 `json:"typo" msgpack:"typo"`
	Reason    schema.RejectionReason `json:"reason" msgpack:"reason"`
	Detail    string                 `json:"detail,omitempty" msgpack:"detail,omitempty"`
	Iteration int                    `json:"iteration" msgpack:"iteration"`
}

// TraceEntry records one mutation touching a debug word or typo.
type TraceEntry struct {
	Iteration  int               `json:"iteration" msgpack:"iteration"`
	Pass       string            `json:"pass" msgpack:"pass"`
	Action     string            `json:"action" msgpack:"action"`
	Correction schema.Correction `json:"correction" msgpack:"correction"`
	Detail     string            `json:"detail,omitempty" msgpack:"detail,omitempty"`
}

// Trace actions.
const (
	ActionAdded           = "added"
	ActionRemoved         = "removed"
	ActionDropped         = "dropped"
	ActionRestored        = "restored"
	ActionBuried          = "buried"
	ActionPatternAdded    = "pattern_added"
	ActionPatternRemoved  = "pattern_removed"
	ActionReplacementsAdd = "replacements_added"
)

type debugTypo struct {
	typo     string
	boundary schema.Boundary
	exact    bool
}

// Option configures a DictionaryState.
type Option func(*DictionaryState)

// WithDebug traces every mutation of the given words, and of the given typos.
// A typo written with ':' markers only matches that boundary.
func WithDebug(words, typos []string) Option {
	return func(s *DictionaryState) {
		for _, w := range words {
			s.debugWords[w] = true
		}
		for _, t := range typos {
			core, b := schema.ParseMarkers(t)
			s.debugTypos = append(s.debugTypos, debugTypo{typo: core, boundary: b, exact: core != t})
		}
	}
}

// DictionaryState is the shared state of one solver run. It is not safe for
// concurrent use; the solver lends it to one pass at a time.
type DictionaryState struct {
	raw   map[string][]schema.Candidate
	typos []string

	corrections map[schema.Correction]struct{}
	patterns    map[schema.Correction][]schema.Correction
	graveyard   map[schema.Correction]schema.Rejection
	coverage    map[string]int
	skips       map[string]Skip

	debugWords map[string]bool
	debugTypos []debugTypo
	trace      []TraceEntry

	iteration int
	dirty     bool
}

// New creates a state over the raw candidate map. The map is not copied and
// must not be modified afterwards.
func New(candidates map[string][]schema.Candidate, opts ...Option) *DictionaryState {
	s := &DictionaryState{
		raw:         candidates,
		typos:       make([]string, 0, len(candidates)),
		corrections: make(map[schema.Correction]struct{}),
		patterns:    make(map[schema.Correction][]schema.Correction),
		graveyard:   make(map[schema.Correction]schema.Rejection),
		coverage:    make(map[string]int),
		skips:       make(map[string]Skip),
		debugWords:  make(map[string]bool),
	}
	for typo := range candidates {
		s.typos = append(s.typos, typo)
	}
	sort.Strings(s.typos)

	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StartIteration advances the iteration counter and clears the dirty flag.
func (s *DictionaryState) StartIteration() {
	s.iteration++
	s.dirty = false
}

// Iteration returns the current iteration, starting at 1.
func (s *DictionaryState) Iteration() int {
	return s.iteration
}

// Dirty reports whether anything changed since StartIteration.
func (s *DictionaryState) Dirty() bool {
	return s.dirty
}

// Typos returns the raw typos in sorted order. The slice is shared.
func (s *DictionaryState) Typos() []string {
	return s.typos
}

// Candidates returns the raw candidates for typo. The slice is shared.
func (s *DictionaryState) Candidates(typo string) []schema.Candidate {
	return s.raw[typo]
}

// RawCandidates returns the raw candidate map. It is never modified, so
// workers may read it while passes run.
func (s *DictionaryState) RawCandidates() map[string][]schema.Candidate {
	return s.raw
}

// HasCorrection reports whether c is an active correction.
func (s *DictionaryState) HasCorrection(c schema.Correction) bool {
	_, ok := s.corrections[c]
	return ok
}

// HasPattern reports whether p is an active pattern.
func (s *DictionaryState) HasPattern(p schema.Correction) bool {
	_, ok := s.patterns[p]
	return ok
}

// AddCorrection activates c unless it is already active or graveyarded.
func (s *DictionaryState) AddCorrection(c schema.Correction, pass string) bool {
	if s.HasCorrection(c) || s.isBuried(c) {
		return false
	}
	s.corrections[c] = struct{}{}
	s.coverage[c.Typo]++
	s.dirty = true
	s.record(pass, ActionAdded, c, "")
	return true
}

// RemoveCorrection moves an active correction to the graveyard.
func (s *DictionaryState) RemoveCorrection(c schema.Correction, reason schema.RejectionReason, blocker *schema.Correction, detail, pass string) bool {
	if !s.HasCorrection(c) {
		return false
	}
	s.deleteCorrection(c)
	s.bury(c, reason, blocker, detail, pass)
	s.record(pass, ActionRemoved, c, string(reason))
	return true
}

// DropCorrection deactivates a correction subsumed by a pattern without graveyarding it.
func (s *DictionaryState) DropCorrection(c schema.Correction, pass string) bool {
	if !s.HasCorrection(c) {
		return false
	}
	s.deleteCorrection(c)
	s.record(pass, ActionDropped, c, "")
	return true
}

func (s *DictionaryState) deleteCorrection(c schema.Correction) {
	delete(s.corrections, c)
	s.uncover(c.Typo)
	s.dirty = true
}

// AddPattern activates p with the corrections it replaces, unless p is already
// active or graveyarded.
func (s *DictionaryState) AddPattern(p schema.Correction, replacements []schema.Correction, pass string) bool {
	if s.HasPattern(p) || s.isBuried(p) {
		return false
	}
	reps := make([]schema.Correction, 0, len(replacements))
	seen := make(map[schema.Correction]bool, len(replacements))
	for _, r := range replacements {
		if seen[r] {
			continue
		}
		seen[r] = true
		reps = append(reps, r)
		s.coverage[r.Typo]++
	}
	s.patterns[p] = reps
	s.coverage[p.Typo]++
	s.dirty = true
	s.record(pass, ActionPatternAdded, p, "")
	for _, r := range reps {
		s.record(pass, ActionDropped, r, "replaced by pattern "+p.String())
	}
	return true
}

// AddReplacements extends an active pattern's replacement list.
func (s *DictionaryState) AddReplacements(p schema.Correction, cs ...schema.Correction) {
	reps, ok := s.patterns[p]
	if !ok {
		return
	}
	for _, c := range cs {
		dup := false
		for _, r := range reps {
			if r == c {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		reps = append(reps, c)
		s.coverage[c.Typo]++
		s.record("", ActionReplacementsAdd, c, "replaced by pattern "+p.String())
	}
	s.patterns[p] = reps
}

// RemovePattern moves an active pattern to the graveyard and restores every
// replacement that is not itself graveyarded. It returns the restored corrections.
func (s *DictionaryState) RemovePattern(p schema.Correction, reason schema.RejectionReason, blocker *schema.Correction, detail, pass string) []schema.Correction {
	reps, ok := s.patterns[p]
	if !ok {
		return nil
	}
	delete(s.patterns, p)
	s.uncover(p.Typo)
	for _, r := range reps {
		s.uncover(r.Typo)
	}
	s.dirty = true
	s.bury(p, reason, blocker, detail, pass)
	s.record(pass, ActionPatternRemoved, p, string(reason))

	var restored []schema.Correction
	for _, r := range reps {
		if s.AddCorrection(r, pass) {
			restored = append(restored, r)
			s.record(pass, ActionRestored, r, "pattern "+p.String()+" removed")
		}
	}
	return restored
}

// Replacements returns the corrections an active pattern stands in for.
func (s *DictionaryState) Replacements(p schema.Correction) []schema.Correction {
	reps := s.patterns[p]
	out := make([]schema.Correction, len(reps))
	copy(out, reps)
	return out
}

// Bury graveyards a triple that was attempted but never activated.
// It is a no-op for triples already in the graveyard and refuses triples that
// are active as a correction or a pattern; use RemoveCorrection or
// RemovePattern for those.
func (s *DictionaryState) Bury(c schema.Correction, reason schema.RejectionReason, blocker *schema.Correction, detail, pass string) bool {
	if s.HasCorrection(c) || s.HasPattern(c) || s.isBuried(c) {
		return false
	}
	s.bury(c, reason, blocker, detail, pass)
	s.record(pass, ActionBuried, c, string(reason)+": "+detail)
	return true
}

func (s *DictionaryState) bury(c schema.Correction, reason schema.RejectionReason, blocker *schema.Correction, detail, pass string) {
	if s.isBuried(c) {
		return
	}
	var b *schema.Correction
	if blocker != nil {
		cp := *blocker
		b = &cp
	}
	s.graveyard[c] = schema.Rejection{
		Reason:    reason,
		Blocker:   b,
		Detail:    detail,
		Pass:      pass,
		Iteration: s.iteration,
	}
	s.dirty = true
}

func (s *DictionaryState) isBuried(c schema.Correction) bool {
	_, ok := s.graveyard[c]
	return ok
}

// IsGraveyarded reports whether the triple has been rejected.
func (s *DictionaryState) IsGraveyarded(typo, word string, b schema.Boundary) bool {
	return s.isBuried(schema.Correction{Typo: typo, Word: word, Boundary: b})
}

// Rejection returns the graveyard record for c.
func (s *DictionaryState) Rejection(c schema.Correction) (schema.Rejection, bool) {
	r, ok := s.graveyard[c]
	return r, ok
}

// IsCovered reports whether typo is handled by an active correction, an active
// pattern, or a pattern replacement.
func (s *DictionaryState) IsCovered(typo string) bool {
	return s.coverage[typo] > 0
}

func (s *DictionaryState) uncover(typo string) {
	if s.coverage[typo] <= 1 {
		delete(s.coverage, typo)
		return
	}
	s.coverage[typo]--
}

// RecordSkip notes a typo passed over for reason. The latest skip per typo wins.
func (s *DictionaryState) RecordSkip(typo string, reason schema.RejectionReason, detail string) {
	s.skips[typo] = Skip{Typo: typo, Reason: reason, Detail: detail, Iteration: s.iteration}
}

// Skips returns the recorded skips for typos that are still uncovered, sorted by typo.
func (s *DictionaryState) Skips() []Skip {
	out := make([]Skip, 0, len(s.skips))
	for typo, sk := range s.skips {
		if s.IsCovered(typo) {
			continue
		}
		out = append(out, sk)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Typo < out[j].Typo })
	return out
}

// SnapshotCounts returns the current sizes.
func (s *DictionaryState) SnapshotCounts() Counts {
	return Counts{
		Corrections: len(s.corrections),
		Patterns:    len(s.patterns),
		Graveyard:   len(s.graveyard),
	}
}

// Corrections returns the active corrections, sorted.
func (s *DictionaryState) Corrections() []schema.Correction {
	out := make([]schema.Correction, 0, len(s.corrections))
	for c := range s.corrections {
		out = append(out, c)
	}
	schema.SortCorrections(out)
	return out
}

// Patterns returns the active patterns with sorted replacements, sorted.
func (s *DictionaryState) Patterns() []schema.Pattern {
	out := make([]schema.Pattern, 0, len(s.patterns))
	for p, reps := range s.patterns {
		cp := make([]schema.Correction, len(reps))
		copy(cp, reps)
		schema.SortCorrections(cp)
		out = append(out, schema.Pattern{Correction: p, Replacements: cp})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Correction.Less(out[j].Correction) })
	return out
}

// Graveyard returns every rejection, sorted by triple.
func (s *DictionaryState) Graveyard() []schema.GraveyardEntry {
	out := make([]schema.GraveyardEntry, 0, len(s.graveyard))
	for c, r := range s.graveyard {
		out = append(out, schema.GraveyardEntry{Correction: c, Rejection: r})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Correction.Less(out[j].Correction) })
	return out
}

// GraveyardSet returns a copy of the graveyard keys.
func (s *DictionaryState) GraveyardSet() map[schema.Correction]bool {
	out := make(map[schema.Correction]bool, len(s.graveyard))
	for c := range s.graveyard {
		out[c] = true
	}
	return out
}

// CoverageSet returns a copy of the covered typos.
func (s *DictionaryState) CoverageSet() map[string]bool {
	out := make(map[string]bool, len(s.coverage))
	for t := range s.coverage {
		out[t] = true
	}
	return out
}

// Trace returns the debug trace in recording order.
func (s *DictionaryState) Trace() []TraceEntry {
	out := make([]TraceEntry, len(s.trace))
	copy(out, s.trace)
	return out
}

func (s *DictionaryState) isDebugTarget(c schema.Correction) bool {
	if s.debugWords[c.Word] {
		return true
	}
	for _, d := range s.debugTypos {
		if d.typo == c.Typo && (!d.exact || d.boundary == c.Boundary) {
			return true
		}
	}
	return false
}

func (s *DictionaryState) record(pass, action string, c schema.Correction, detail string) {
	if len(s.debugWords) == 0 && len(s.debugTypos) == 0 {
		return
	}
	if !s.isDebugTarget(c) {
		return
	}
	s.trace = append(s.trace, TraceEntry{
		Iteration:  s.iteration,
		Pass:       pass,
		Action:     action,
		Correction: c,
		Detail:     detail,
	})
}
