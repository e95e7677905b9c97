package solver

import (
	"fmt"
	"math"
	"sort"

	"rulesmith/internal/index"
	"rulesmith/internal/schema"
	"rulesmith/internal/state"
)

// CandidateSelection promotes raw candidates to corrections. It resolves
// collisions between candidate words and picks the least restrictive boundary
// that does not falsely trigger.
type CandidateSelection struct {
	in      *Inputs
	workers int
}

// NewCandidateSelection creates the pass.
func NewCandidateSelection(in *Inputs, workers int) *CandidateSelection {
	return &CandidateSelection{in: in, workers: workers}
}

func (p *CandidateSelection) Name() string { return PassCandidateSelection }

// candidateSnapshot is the read-only view a worker receives. It holds no
// reference to the live state: the raw candidate map is immutable and the
// graveyard is a copy.
type candidateSnapshot struct {
	in         *Inputs
	candidates map[string][]schema.Candidate
	graveyard  map[schema.Correction]bool
	validation map[string]index.Matches
	sources    map[string]index.Matches
}

type burial struct {
	c      schema.Correction
	reason schema.RejectionReason
	detail string
}

type candidateProposal struct {
	typo   string
	add    *schema.Correction
	bury   []burial
	skip   schema.RejectionReason
	detail string
}

func (p *CandidateSelection) Run(st *state.DictionaryState) {
	var typos []string
	for _, typo := range st.Typos() {
		if st.IsCovered(typo) || p.in.Validation.Contains(typo) {
			continue
		}
		typos = append(typos, typo)
	}
	if len(typos) == 0 {
		return
	}

	snap := &candidateSnapshot{
		in:         p.in,
		candidates: st.RawCandidates(),
		graveyard:  st.GraveyardSet(),
		validation: p.in.Validation.BatchCheck(typos),
		sources:    p.in.Sources.BatchCheck(typos),
	}

	proposals := parallelChunks(typos, p.workers, func(chunk []string) []candidateProposal {
		out := make([]candidateProposal, 0, len(chunk))
		for _, typo := range chunk {
			out = append(out, snap.propose(typo))
		}
		return out
	})

	for _, prop := range proposals {
		for _, b := range prop.bury {
			st.Bury(b.c, b.reason, nil, b.detail, p.Name())
		}
		if prop.add != nil {
			st.AddCorrection(*prop.add, p.Name())
		}
		if prop.skip != "" {
			st.RecordSkip(prop.typo, prop.skip, prop.detail)
		}
	}
}

func (s *candidateSnapshot) propose(typo string) candidateProposal {
	prop := candidateProposal{typo: typo}

	winner, detail, ok := resolveCollision(s.candidates[typo], s.in.Frequencies, s.in.Priority, s.in.Config.CollisionThreshold)
	if !ok {
		prop.skip = schema.ReasonAmbiguousCollision
		prop.detail = detail
		return prop
	}

	boundaries := boundaryOrder(winner.Boundary)
	if len(typo) < s.in.Config.MinTypoLength {
		if !s.in.Priority[winner.Word] {
			prop.skip = schema.ReasonTooShort
			prop.detail = fmt.Sprintf("shorter than %d", s.in.Config.MinTypoLength)
			return prop
		}
		boundaries = []schema.Boundary{schema.BoundaryBoth}
	}

	for _, b := range boundaries {
		c := schema.Correction{Typo: typo, Word: winner.Word, Boundary: b}
		if s.graveyard[c] {
			continue
		}
		if rule := s.in.Exclusions.Match(c); rule != "" {
			prop.bury = append(prop.bury, burial{c: c, reason: schema.ReasonExcluded, detail: rule})
			continue
		}
		if reason := s.unsafe(c); reason != "" {
			prop.bury = append(prop.bury, burial{c: c, reason: schema.ReasonFalseTrigger, detail: reason})
			continue
		}
		prop.add = &c
		break
	}
	return prop
}

// unsafe is falseTrigger answered from the precomputed batch matches.
func (s *candidateSnapshot) unsafe(c schema.Correction) string {
	if c.Boundary == schema.BoundaryBoth {
		return ""
	}
	if s.validation[c.Typo].Fires(c.Boundary) {
		return fmt.Sprintf("fires inside validation word %q", s.in.Validation.Triggers(c.Typo, c.Boundary))
	}
	if s.sources[c.Typo].Fires(c.Boundary) {
		return fmt.Sprintf("fires inside source word %q", s.in.Sources.Triggers(c.Typo, c.Boundary))
	}
	if index.FiresIn(c.Typo, c.Word, c.Boundary) {
		return fmt.Sprintf("fires inside target word %q", c.Word)
	}
	return ""
}

// boundaryOrder lists the boundaries to try for an implied boundary, least
// restrictive first. LEFT and RIGHT exclude each other.
func boundaryOrder(implied schema.Boundary) []schema.Boundary {
	switch implied {
	case schema.BoundaryLeft:
		return []schema.Boundary{schema.BoundaryLeft, schema.BoundaryBoth}
	case schema.BoundaryRight:
		return []schema.Boundary{schema.BoundaryRight, schema.BoundaryBoth}
	case schema.BoundaryBoth:
		return []schema.Boundary{schema.BoundaryBoth}
	}
	return []schema.Boundary{schema.BoundaryNone, schema.BoundaryLeft, schema.BoundaryRight, schema.BoundaryBoth}
}

// resolveCollision picks the word a typo should map to. Candidates are
// deduplicated by word in input order. A priority word wins outright;
// otherwise the most frequent word wins when its ratio to the runner-up is
// strictly above threshold.
func resolveCollision(cands []schema.Candidate, freq map[string]float64, priority map[string]bool, threshold float64) (schema.Candidate, string, bool) {
	seen := make(map[string]bool, len(cands))
	unique := make([]schema.Candidate, 0, len(cands))
	for _, c := range cands {
		if seen[c.Word] {
			continue
		}
		seen[c.Word] = true
		unique = append(unique, c)
	}

	switch len(unique) {
	case 0:
		return schema.Candidate{}, "no candidate words", false
	case 1:
		return unique[0], "", true
	}

	for _, c := range unique {
		if priority[c.Word] {
			return c, "", true
		}
	}

	sort.SliceStable(unique, func(i, j int) bool {
		fi, fj := freq[unique[i].Word], freq[unique[j].Word]
		if fi != fj {
			return fi > fj
		}
		return unique[i].Word < unique[j].Word
	})

	top, second := freq[unique[0].Word], freq[unique[1].Word]
	var ratio float64
	switch {
	case top == 0:
		return schema.Candidate{}, fmt.Sprintf("%s and %s have no frequency", unique[0].Word, unique[1].Word), false
	case second == 0:
		ratio = math.Inf(1)
	default:
		ratio = top / second
	}

	if ratio > threshold {
		return unique[0], "", true
	}
	return schema.Candidate{}, fmt.Sprintf("%s vs %s ratio %.2f <= %.2f", unique[0].Word, unique[1].Word, ratio, threshold), false
}
