package solver

import (
	"fmt"

	"rulesmith/internal/pattern"
	"rulesmith/internal/schema"
	"rulesmith/internal/state"
)

// PatternGeneralization replaces families of corrections sharing an affix
// with a single pattern rule.
type PatternGeneralization struct {
	in      *Inputs
	workers int
}

// NewPatternGeneralization creates the pass.
func NewPatternGeneralization(in *Inputs, workers int) *PatternGeneralization {
	return &PatternGeneralization{in: in, workers: workers}
}

func (p *PatternGeneralization) Name() string { return PassPatternGeneralization }

func (p *PatternGeneralization) Run(st *state.DictionaryState) {
	p.reconcile(st)

	active := st.Corrections()
	candidates := pattern.Extract(active, p.in.Config.MinPatternLength)
	if len(candidates) == 0 {
		return
	}

	v := pattern.NewValidator(p.in.Validation, p.in.Sources, active, st.GraveyardSet())
	decisions := parallelChunks(candidates, p.workers, func(chunk []pattern.Candidate) []pattern.Decision {
		out := make([]pattern.Decision, 0, len(chunk))
		for _, c := range chunk {
			out = append(out, v.Choose(c))
		}
		return out
	})

	consumed := make(map[schema.Correction]bool)
	for _, d := range decisions {
		for _, r := range d.Rejected {
			// A triple that failed as a pattern may still be a sound direct correction.
			if st.HasCorrection(r.Pattern) {
				continue
			}
			st.Bury(r.Pattern, schema.ReasonPatternValidationFailed, nil, r.Detail, p.Name())
		}
		if !d.Accepted {
			continue
		}
		p.apply(st, d, consumed)
	}
}

func (p *PatternGeneralization) apply(st *state.DictionaryState, d pattern.Decision, consumed map[schema.Correction]bool) {
	// A longer pattern earlier in the batch may already have taken some occurrences.
	var occs []schema.Correction
	for _, occ := range d.Candidate.Occurrences {
		if consumed[occ] || !st.HasCorrection(occ) {
			continue
		}
		occs = append(occs, occ)
	}
	if len(occs) < pattern.MinOccurrences {
		return
	}

	pat := d.Pattern
	for _, b := range schema.AllBoundaries {
		if b == pat.Boundary {
			continue
		}
		direct := schema.Correction{Typo: pat.Typo, Word: pat.Word, Boundary: b}
		if st.HasCorrection(direct) {
			st.Bury(pat, schema.ReasonCrossBoundaryConflict, &direct,
				fmt.Sprintf("direct correction uses %s boundary", b), p.Name())
			return
		}
	}

	st.DropCorrection(pat, p.Name())
	for _, occ := range occs {
		st.DropCorrection(occ, p.Name())
		consumed[occ] = true
	}
	st.AddPattern(pat, occs, p.Name())
}

// reconcile removes patterns that duplicate a direct correction's typo and
// word under another boundary.
func (p *PatternGeneralization) reconcile(st *state.DictionaryState) {
	direct := make(map[[2]string][]schema.Correction)
	for _, c := range st.Corrections() {
		k := [2]string{c.Typo, c.Word}
		direct[k] = append(direct[k], c)
	}
	for _, pat := range st.Patterns() {
		for _, c := range direct[[2]string{pat.Typo, pat.Word}] {
			if c.Boundary == pat.Boundary {
				continue
			}
			blocker := c
			st.RemovePattern(pat.Correction, schema.ReasonCrossBoundaryConflict, &blocker,
				fmt.Sprintf("direct correction uses %s boundary", c.Boundary), p.Name())
			break
		}
	}
}
