package solver

import (
	"fmt"
	"sort"

	"rulesmith/internal/index"
	"rulesmith/internal/platform"
	"rulesmith/internal/schema"
	"rulesmith/internal/state"
)

// PlatformSubstringConflicts resolves rendered triggers that occur inside
// other rendered triggers, which the target platform cannot disambiguate.
type PlatformSubstringConflicts struct {
	in      *Inputs
	workers int

	// The index persists across iterations and is synced against the active
	// entities at the start of each run.
	index    *index.SubstringIndex
	rendered map[schema.Correction]string
}

// NewPlatformSubstringConflicts creates the pass.
func NewPlatformSubstringConflicts(in *Inputs, workers int) *PlatformSubstringConflicts {
	return &PlatformSubstringConflicts{
		in:       in,
		workers:  workers,
		index:    index.NewSubstringIndex(),
		rendered: make(map[schema.Correction]string),
	}
}

func (p *PlatformSubstringConflicts) Name() string { return PassPlatformSubstringConflicts }

type entity struct {
	c       schema.Correction
	render  string
	pattern bool
}

type entityPair struct {
	a, b entity
}

func (p *PlatformSubstringConflicts) Run(st *state.DictionaryState) {
	entities := p.sync(st)
	if len(entities) < 2 {
		return
	}
	byTriple := make(map[schema.Correction]entity, len(entities))
	for _, e := range entities {
		byTriple[e.c] = e
	}

	ix := p.index.Freeze()
	found := parallelChunks(entities, p.workers, func(chunk []entity) []entityPair {
		var out []entityPair
		for _, e := range chunk {
			var triggers []string
			triggers = append(triggers, ix.ContainedIn(e.render)...)
			triggers = append(triggers, ix.Containing(e.render)...)
			triggers = append(triggers, e.render)
			for _, t := range triggers {
				for _, o := range ix.Owners(t) {
					if o == e.c {
						continue
					}
					out = append(out, normalizePair(e, byTriple[o]))
				}
			}
		}
		return out
	})

	pairs := dedupePairs(found)
	removed := make(map[schema.Correction]bool)
	for _, pr := range pairs {
		if removed[pr.a.c] || removed[pr.b.c] {
			continue
		}
		winner, loser := p.resolve(pr.a, pr.b)
		reason := schema.ReasonPlatformConstraint
		if winner.c.Boundary != loser.c.Boundary {
			reason = schema.ReasonCrossBoundaryConflict
		}
		detail := fmt.Sprintf("trigger %q overlaps %q", loser.render, winner.render)
		blocker := winner.c
		if loser.pattern {
			st.RemovePattern(loser.c, reason, &blocker, detail, p.Name())
		} else {
			st.RemoveCorrection(loser.c, reason, &blocker, detail, p.Name())
		}
		removed[loser.c] = true
	}
}

// sync brings the persistent index in line with the active entities and
// returns them sorted.
func (p *PlatformSubstringConflicts) sync(st *state.DictionaryState) []entity {
	current := make(map[schema.Correction]entity)
	for _, c := range st.Corrections() {
		current[c] = entity{c: c, render: p.in.Platform.Render(c.Typo, c.Boundary)}
	}
	for _, pat := range st.Patterns() {
		current[pat.Correction] = entity{c: pat.Correction, render: p.in.Platform.Render(pat.Typo, pat.Boundary), pattern: true}
	}

	for c, render := range p.rendered {
		if e, ok := current[c]; ok && e.render == render {
			continue
		}
		p.index.Remove(render, c)
		delete(p.rendered, c)
	}

	entities := make([]entity, 0, len(current))
	for c, e := range current {
		if _, ok := p.rendered[c]; !ok {
			p.index.Add(e.render, c)
			p.rendered[c] = e.render
		}
		entities = append(entities, e)
	}
	sort.Slice(entities, func(i, j int) bool { return entityLess(entities[i], entities[j]) })
	return entities
}

func entityLess(a, b entity) bool {
	if len(a.render) != len(b.render) {
		return len(a.render) < len(b.render)
	}
	if a.render != b.render {
		return a.render < b.render
	}
	if a.c.Word != b.c.Word {
		return a.c.Word < b.c.Word
	}
	return a.c.Less(b.c)
}

func normalizePair(x, y entity) entityPair {
	if entityLess(y, x) {
		x, y = y, x
	}
	return entityPair{a: x, b: y}
}

func dedupePairs(pairs []entityPair) []entityPair {
	seen := make(map[[2]schema.Correction]bool, len(pairs))
	out := make([]entityPair, 0, len(pairs))
	for _, pr := range pairs {
		k := [2]schema.Correction{pr.a.c, pr.b.c}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, pr)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].a.c != out[j].a.c {
			return entityLess(out[i].a, out[j].a)
		}
		return entityLess(out[i].b, out[j].b)
	})
	return out
}

// resolve returns the entity to keep and the one to remove. a sorts before b.
func (p *PlatformSubstringConflicts) resolve(a, b entity) (winner, loser entity) {
	ra, rb := a.c.Boundary.Restrictiveness(), b.c.Boundary.Restrictiveness()
	if ra != rb {
		less, more := a, b
		if rb < ra {
			less, more = b, a
		}
		if falseTrigger(p.in, less.c.Typo, less.c.Word, less.c.Boundary) == "" {
			return less, more
		}
		return more, less
	}

	if a.render == b.render {
		switch {
		case a.pattern && !b.pattern:
			return a, b
		case b.pattern && !a.pattern:
			return b, a
		case a.c.Word != b.c.Word:
			if a.c.Word < b.c.Word {
				return a, b
			}
			return b, a
		}
		if a.c.Less(b.c) {
			return a, b
		}
		return b, a
	}

	// a has the shorter render.
	if p.in.Platform.Direction == platform.RightToLeft {
		return b, a
	}
	return a, b
}
