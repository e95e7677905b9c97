package solver

import (
	"fmt"
	"sort"

	"rulesmith/internal/schema"
	"rulesmith/internal/state"
)

// PlatformConstraints rejects entities the platform cannot express.
type PlatformConstraints struct {
	in *Inputs
}

// NewPlatformConstraints creates the pass.
func NewPlatformConstraints(in *Inputs) *PlatformConstraints {
	return &PlatformConstraints{in: in}
}

func (p *PlatformConstraints) Name() string { return PassPlatformConstraints }

func (p *PlatformConstraints) Run(st *state.DictionaryState) {
	var entities []entity
	for _, c := range st.Corrections() {
		entities = append(entities, entity{c: c})
	}
	for _, pat := range st.Patterns() {
		entities = append(entities, entity{c: pat.Correction, pattern: true})
	}

	var kept []entity
	for _, e := range entities {
		if detail := p.in.Platform.Check(e.c); detail != "" {
			p.reject(st, e, nil, detail)
			continue
		}
		kept = append(kept, e)
	}

	if p.in.Platform.BoundaryMarkers {
		return
	}

	byTypo := make(map[string][]entity)
	var typos []string
	for _, e := range kept {
		if _, ok := byTypo[e.c.Typo]; !ok {
			typos = append(typos, e.c.Typo)
		}
		byTypo[e.c.Typo] = append(byTypo[e.c.Typo], e)
	}
	sort.Strings(typos)

	for _, typo := range typos {
		group := byTypo[typo]
		sort.Slice(group, func(i, j int) bool {
			a, b := group[i], group[j]
			if ra, rb := a.c.Boundary.Restrictiveness(), b.c.Boundary.Restrictiveness(); ra != rb {
				return ra < rb
			}
			if a.pattern != b.pattern {
				return a.pattern
			}
			return a.c.Less(b.c)
		})
		winner := group[0]
		for _, e := range group[1:] {
			blocker := winner.c
			p.reject(st, e, &blocker, fmt.Sprintf("%s has no boundary markers", p.in.Platform.Name))
		}
		if winner.c.Boundary != schema.BoundaryNone {
			p.reject(st, winner, nil, fmt.Sprintf("%s has no boundary markers", p.in.Platform.Name))
		}
	}
}

func (p *PlatformConstraints) reject(st *state.DictionaryState, e entity, blocker *schema.Correction, detail string) {
	if e.pattern {
		st.RemovePattern(e.c, schema.ReasonPlatformConstraint, blocker, detail, p.Name())
		return
	}
	st.RemoveCorrection(e.c, schema.ReasonPlatformConstraint, blocker, detail, p.Name())
}
