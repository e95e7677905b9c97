package snapshot

import (
	"rulesmith/internal/schema"
	"rulesmith/internal/state"
)

// Status summarizes what happened to a typo.
type Status string

const (
	StatusActive   Status = "active"
	StatusCovered  Status = "covered by pattern"
	StatusRejected Status = "rejected"
	StatusSkipped  Status = "skipped"
	StatusUnknown  Status = "unknown"
)

// Explanation gathers everything a snapshot records about one typo.
type Explanation struct {
	Typo      string
	Active    []schema.Correction
	CoveredBy []schema.Pattern
	Buried    []schema.GraveyardEntry
	Skips     []state.Skip
	Trace     []state.TraceEntry
}

// Status reports the most specific outcome for the typo.
func (e *Explanation) Status() Status {
	switch {
	case len(e.Active) > 0:
		return StatusActive
	case len(e.CoveredBy) > 0:
		return StatusCovered
	case len(e.Buried) > 0:
		return StatusRejected
	case len(e.Skips) > 0:
		return StatusSkipped
	}
	return StatusUnknown
}

// Explain collects the active rules, covering patterns, graveyard entries,
// skips and trace lines for typo.
func (s *Snapshot) Explain(typo string) *Explanation {
	e := &Explanation{Typo: typo}
	for _, c := range s.Corrections {
		if c.Typo == typo {
			e.Active = append(e.Active, c)
		}
	}
	for _, p := range s.Patterns {
		if p.Typo == typo {
			e.Active = append(e.Active, p.Correction)
		}
		for _, r := range p.Replacements {
			if r.Typo == typo {
				e.CoveredBy = append(e.CoveredBy, p)
				break
			}
		}
	}
	for _, g := range s.Graveyard {
		if g.Typo == typo {
			e.Buried = append(e.Buried, g)
		}
	}
	for _, sk := range s.Skips {
		if sk.Typo == typo {
			e.Skips = append(e.Skips, sk)
		}
	}
	for _, t := range s.Trace {
		if t.Correction.Typo == typo {
			e.Trace = append(e.Trace, t)
		}
	}
	return e
}
