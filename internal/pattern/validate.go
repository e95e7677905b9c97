package pattern

import (
	"fmt"

	"rulesmith/internal/index"
	"rulesmith/internal/schema"
)

// Validator checks pattern candidates against a frozen view of the solver state.
// It is read-only after construction and safe for concurrent use.
type Validator struct {
	validation *index.BoundaryIndex
	sources    *index.BoundaryIndex
	active     *index.SubstringIndex
	graveyard  map[schema.Correction]bool
}

// NewValidator builds a validator. sources may be nil. active holds the
// corrections a pattern must not corrupt; graveyard is not copied.
func NewValidator(validation, sources *index.BoundaryIndex, active []schema.Correction, graveyard map[schema.Correction]bool) *Validator {
	ix := index.NewSubstringIndex()
	for _, c := range active {
		ix.Add(c.Typo, c)
	}
	return &Validator{
		validation: validation,
		sources:    sources,
		active:     ix.Freeze(),
		graveyard:  graveyard,
	}
}

// Rejection is a failed validation attempt.
type Rejection struct {
	Pattern schema.Correction
	Detail  string
}

// Decision is the outcome of trying a candidate at each of its boundaries.
type Decision struct {
	Candidate Candidate
	Pattern   schema.Correction
	Accepted  bool
	Rejected  []Rejection
}

// Choose tries the candidate at NONE, then at its shape boundary, and accepts
// the first boundary that validates. Graveyarded triples are skipped.
func (v *Validator) Choose(c Candidate) Decision {
	d := Decision{Candidate: c}
	for _, b := range c.Boundaries() {
		p := c.Triple(b)
		if v.graveyard[p] {
			continue
		}
		if detail := v.Validate(c, b); detail != "" {
			d.Rejected = append(d.Rejected, Rejection{Pattern: p, Detail: detail})
			continue
		}
		d.Pattern = p
		d.Accepted = true
		return d
	}
	return d
}

// Validate returns why the candidate fails under boundary b, or "" when it passes.
func (v *Validator) Validate(c Candidate, b schema.Boundary) string {
	if b == schema.BoundaryBoth {
		return "patterns cannot use both boundaries"
	}
	if len(c.Occurrences) < MinOccurrences {
		return fmt.Sprintf("only %d occurrence(s)", len(c.Occurrences))
	}
	p := c.Triple(b)

	occurrence := make(map[schema.Correction]bool, len(c.Occurrences))
	for _, occ := range c.Occurrences {
		occurrence[occ] = true
		got, ok := schema.Apply(p, occ.Typo)
		if !ok || got != occ.Word {
			return fmt.Sprintf("round trip fails on %s: got %q", occ, got)
		}
	}

	if detail := v.roundTripActive(p, occurrence); detail != "" {
		return detail
	}

	if v.validation != nil {
		if v.validation.Contains(p.Typo) {
			return fmt.Sprintf("%q is a validation word", p.Typo)
		}
		if w := v.validation.Triggers(p.Typo, b); w != "" {
			return fmt.Sprintf("false trigger in %q", w)
		}
	}
	for _, occ := range c.Occurrences {
		if index.FiresIn(p.Typo, occ.Word, b) {
			return fmt.Sprintf("false trigger in target word %q", occ.Word)
		}
	}

	if v.sources != nil {
		if w := v.sources.Triggers(p.Typo, b); w != "" {
			return fmt.Sprintf("would corrupt source word %q", w)
		}
	}
	return ""
}

// roundTripActive checks every active correction p would fire on.
func (v *Validator) roundTripActive(p schema.Correction, skip map[schema.Correction]bool) string {
	triggers := v.active.Containing(p.Typo)
	triggers = append(triggers, p.Typo)
	for _, t := range triggers {
		for _, o := range v.active.Owners(t) {
			if skip[o] {
				continue
			}
			got, ok := schema.Apply(p, o.Typo)
			if ok && got != o.Word {
				return fmt.Sprintf("round trip fails on %s: got %q", o, got)
			}
		}
	}
	return ""
}
