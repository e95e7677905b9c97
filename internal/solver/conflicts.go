package solver

import (
	"fmt"
	"sort"
	"sync"

	"rulesmith/internal/schema"
	"rulesmith/internal/state"
)

// ConflictRemoval removes corrections made redundant by a shorter trigger of
// the same boundary that already produces the same result.
type ConflictRemoval struct {
	in *Inputs
}

// NewConflictRemoval creates the pass.
func NewConflictRemoval(in *Inputs) *ConflictRemoval {
	return &ConflictRemoval{in: in}
}

func (p *ConflictRemoval) Name() string { return PassConflictRemoval }

type conflictEntry struct {
	c       schema.Correction
	pattern bool
}

type shadow struct {
	blocked schema.Correction
	blocker conflictEntry
}

var conflictGroups = []schema.Boundary{schema.BoundaryNone, schema.BoundaryLeft, schema.BoundaryRight}

func (p *ConflictRemoval) Run(st *state.DictionaryState) {
	groups := make(map[schema.Boundary][]conflictEntry, len(conflictGroups))
	for _, c := range st.Corrections() {
		groups[c.Boundary] = append(groups[c.Boundary], conflictEntry{c: c})
	}
	for _, pat := range st.Patterns() {
		groups[pat.Boundary] = append(groups[pat.Boundary], conflictEntry{c: pat.Correction, pattern: true})
	}

	results := make([][]shadow, len(conflictGroups))
	var wg sync.WaitGroup
	for i, b := range conflictGroups {
		if len(groups[b]) == 0 {
			continue
		}
		wg.Add(1)
		go func(i int, b schema.Boundary, entries []conflictEntry) {
			defer wg.Done()
			results[i] = findShadows(b, entries)
		}(i, b, groups[b])
	}
	wg.Wait()

	for _, shadows := range results {
		p.apply(st, shadows)
	}
}

func (p *ConflictRemoval) apply(st *state.DictionaryState, shadows []shadow) {
	promoted := make(map[schema.Correction][]schema.Correction)
	var order []schema.Correction

	for _, s := range shadows {
		blocker := s.blocker.c
		detail := fmt.Sprintf("%q already produces %q", blocker.Typo, s.blocked.Word)
		if !st.RemoveCorrection(s.blocked, schema.ReasonBlockedByConflict, &blocker, detail, p.Name()) {
			continue
		}
		if s.blocker.pattern {
			st.AddReplacements(blocker, s.blocked)
			continue
		}
		if _, ok := promoted[blocker]; !ok {
			order = append(order, blocker)
		}
		promoted[blocker] = append(promoted[blocker], s.blocked)
	}

	for _, blocker := range order {
		if !st.HasCorrection(blocker) {
			continue
		}
		if st.AddPattern(blocker, promoted[blocker], p.Name()) {
			st.DropCorrection(blocker, p.Name())
		}
	}
}

// findShadows walks entries shortest typo first. An entry is shadowed when a
// surviving shorter trigger fires on its typo and yields its word. Shadowed
// entries never block others. Patterns only block.
func findShadows(b schema.Boundary, entries []conflictEntry) []shadow {
	sort.Slice(entries, func(i, j int) bool {
		a, c := entries[i].c, entries[j].c
		if len(a.Typo) != len(c.Typo) {
			return len(a.Typo) < len(c.Typo)
		}
		if a.Typo != c.Typo {
			return a.Typo < c.Typo
		}
		if a.Word != c.Word {
			return a.Word < c.Word
		}
		return !entries[i].pattern && entries[j].pattern
	})

	survivors := make(map[string][]conflictEntry)
	var out []shadow
	for _, e := range entries {
		if !e.pattern {
			if blocker, ok := shadowedBy(b, e.c, survivors); ok {
				out = append(out, shadow{blocked: e.c, blocker: blocker})
				continue
			}
		}
		survivors[e.c.Typo] = append(survivors[e.c.Typo], e)
	}
	return out
}

func shadowedBy(b schema.Boundary, c schema.Correction, survivors map[string][]conflictEntry) (conflictEntry, bool) {
	for n := 1; n < len(c.Typo); n++ {
		var affix string
		if b == schema.BoundaryRight {
			affix = c.Typo[len(c.Typo)-n:]
		} else {
			affix = c.Typo[:n]
		}
		for _, s := range survivors[affix] {
			var got string
			if b == schema.BoundaryRight {
				got = c.Typo[:len(c.Typo)-n] + s.c.Word
			} else {
				got = s.c.Word + c.Typo[n:]
			}
			if got == c.Word {
				return s, true
			}
		}
	}
	return conflictEntry{}, false
}
