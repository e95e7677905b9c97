// Package pattern finds affix rules shared by families of corrections and validates them.
package pattern

import (
	"sort"
	"strings"

	"rulesmith/internal/schema"
)

// MinOccurrences is the smallest family a pattern may stand in for.
const MinOccurrences = 2

// Candidate is an affix pair shared by two or more active corrections.
type Candidate struct {
	TypoAffix   string
	WordAffix   string
	Shape       schema.Shape
	Occurrences []schema.Correction
}

// Triple returns the pattern correction for boundary b.
func (c Candidate) Triple(b schema.Boundary) schema.Correction {
	return schema.Correction{Typo: c.TypoAffix, Word: c.WordAffix, Boundary: b}
}

// Boundaries lists the boundaries a candidate is tried at: NONE, then the
// boundary implied by its shape.
func (c Candidate) Boundaries() []schema.Boundary {
	return []schema.Boundary{schema.BoundaryNone, c.Shape.NaturalBoundary()}
}

type key struct {
	typo, word string
	shape      schema.Shape
}

// Extract groups corrections by shared affixes. RIGHT corrections yield suffix
// candidates, LEFT corrections prefix candidates, NONE corrections both, and
// BOTH corrections none. For each affix length from longest down to minLength,
// a correction contributes when the rest of its typo is non-empty and appears
// unchanged in its word. Candidates are returned longest affix first.
func Extract(corrections []schema.Correction, minLength int) []Candidate {
	if minLength < 1 {
		minLength = 1
	}
	groups := make(map[key][]schema.Correction)

	for _, c := range corrections {
		switch c.Boundary {
		case schema.BoundaryRight:
			addSuffixes(groups, c, minLength)
		case schema.BoundaryLeft:
			addPrefixes(groups, c, minLength)
		case schema.BoundaryNone:
			addSuffixes(groups, c, minLength)
			addPrefixes(groups, c, minLength)
		}
	}

	out := make([]Candidate, 0, len(groups))
	for k, occ := range groups {
		if len(occ) < MinOccurrences {
			continue
		}
		schema.SortCorrections(occ)
		out = append(out, Candidate{TypoAffix: k.typo, WordAffix: k.word, Shape: k.shape, Occurrences: occ})
	}
	SortCandidates(out)
	return out
}

// SortCandidates orders candidates longest typo affix first, then lexically.
func SortCandidates(cs []Candidate) {
	sort.Slice(cs, func(i, j int) bool {
		a, b := cs[i], cs[j]
		if len(a.TypoAffix) != len(b.TypoAffix) {
			return len(a.TypoAffix) > len(b.TypoAffix)
		}
		if a.TypoAffix != b.TypoAffix {
			return a.TypoAffix < b.TypoAffix
		}
		if a.WordAffix != b.WordAffix {
			return a.WordAffix < b.WordAffix
		}
		return a.Shape < b.Shape
	})
}

func addSuffixes(groups map[key][]schema.Correction, c schema.Correction, minLength int) {
	for l := len(c.Typo) - 1; l >= minLength; l-- {
		rest := c.Typo[:len(c.Typo)-l]
		if !strings.HasPrefix(c.Word, rest) {
			continue
		}
		k := key{typo: c.Typo[len(rest):], word: c.Word[len(rest):], shape: schema.ShapeSuffix}
		if k.typo == k.word {
			continue
		}
		groups[k] = append(groups[k], c)
	}
}

func addPrefixes(groups map[key][]schema.Correction, c schema.Correction, minLength int) {
	for l := len(c.Typo) - 1; l >= minLength; l-- {
		rest := c.Typo[l:]
		if !strings.HasSuffix(c.Word, rest) {
			continue
		}
		k := key{typo: c.Typo[:l], word: c.Word[:len(c.Word)-len(rest)], shape: schema.ShapePrefix}
		if k.typo == k.word {
			continue
		}
		groups[k] = append(groups[k], c)
	}
}
