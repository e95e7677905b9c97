// Package schema defines the correction, pattern and rejection types shared by rulesmith.
package schema

import (
	"fmt"
	"sort"
	"strings"
)

// Boundary constrains where a trigger must align with word edges to fire.
type Boundary uint8

const (
	BoundaryNone Boundary = iota
	BoundaryLeft
	BoundaryRight
	BoundaryBoth
)

// AllBoundaries lists boundaries from least to most restrictive.
var AllBoundaries = []Boundary{BoundaryNone, BoundaryLeft, BoundaryRight, BoundaryBoth}

// String returns the lowercase boundary name.
func (b Boundary) String() string {
	switch b {
	case BoundaryNone:
		return "none"
	case BoundaryLeft:
		return "left"
	case BoundaryRight:
		return "right"
	case BoundaryBoth:
		return "both"
	}
	return fmt.Sprintf("boundary(%d)", uint8(b))
}

// Restrictiveness orders boundaries: NONE < LEFT = RIGHT < BOTH.
func (b Boundary) Restrictiveness() int {
	switch b {
	case BoundaryNone:
		return 0
	case BoundaryLeft, BoundaryRight:
		return 1
	}
	return 2
}

// MarshalText implements encoding.TextMarshaler.
func (b Boundary) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *Boundary) UnmarshalText(text []byte) error {
	parsed, err := ParseBoundary(string(text))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

// ParseBoundary parses a boundary name.
func ParseBoundary(s string) (Boundary, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return BoundaryNone, nil
	case "left":
		return BoundaryLeft, nil
	case "right":
		return BoundaryRight, nil
	case "both":
		return BoundaryBoth, nil
	}
	return BoundaryNone, fmt.Errorf("unknown boundary: %q", s)
}

// ParseMarkers strips ':' boundary markers from a trigger.
// ":teh" is LEFT, "teh:" is RIGHT, ":teh:" is BOTH.
func ParseMarkers(s string) (string, Boundary) {
	left := strings.HasPrefix(s, ":")
	right := strings.HasSuffix(s, ":") && len(s) > 1
	core := strings.TrimSuffix(strings.TrimPrefix(s, ":"), ":")
	switch {
	case left && right:
		return core, BoundaryBoth
	case left:
		return core, BoundaryLeft
	case right:
		return core, BoundaryRight
	}
	return core, BoundaryNone
}

// FormatMarkers renders a typo with ':' boundary markers.
func FormatMarkers(typo string, b Boundary) string {
	switch b {
	case BoundaryLeft:
		return ":" + typo
	case BoundaryRight:
		return typo + ":"
	case BoundaryBoth:
		return ":" + typo + ":"
	}
	return typo
}

// Correction is one autocorrect rule. The triple is its identity.
type Correction struct {
	Typo     string   `json:"typo" msgpack:"typo"`
	Word     string   `json:"word" msgpack:"word"`
	Boundary Boundary `json:"boundary" msgpack:"boundary"`
}

// String returns "typo → word (boundary)".
func (c Correction) String() string {
	return fmt.Sprintf("%s → %s (%s)", c.Typo, c.Word, c.Boundary)
}

// Less orders corrections by typo, word, then boundary.
func (c Correction) Less(o Correction) bool {
	if c.Typo != o.Typo {
		return c.Typo < o.Typo
	}
	if c.Word != o.Word {
		return c.Word < o.Word
	}
	return c.Boundary < o.Boundary
}

// SortCorrections sorts corrections in place.
func SortCorrections(cs []Correction) {
	sort.Slice(cs, func(i, j int) bool { return cs[i].Less(cs[j]) })
}

// Shape tells which end of a word a pattern affix sits on.
type Shape uint8

const (
	ShapeSuffix Shape = iota
	ShapePrefix
)

func (s Shape) String() string {
	if s == ShapePrefix {
		return "prefix"
	}
	return "suffix"
}

// NaturalBoundary is the boundary implied by the affix shape.
func (s Shape) NaturalBoundary() Boundary {
	if s == ShapePrefix {
		return BoundaryLeft
	}
	return BoundaryRight
}

// Pattern is a correction over affixes standing in for the full corrections it replaces.
type Pattern struct {
	Correction   `msgpack:",inline"`
	Replacements []Correction `json:"replacements" msgpack:"replacements"`
}

// Apply performs the pattern's transform on a full typo.
// ok is false when the pattern would not fire on typo under its boundary.
func Apply(p Correction, typo string) (result string, ok bool) {
	switch p.Boundary {
	case BoundaryRight:
		if !strings.HasSuffix(typo, p.Typo) {
			return "", false
		}
		return typo[:len(typo)-len(p.Typo)] + p.Word, true
	case BoundaryLeft:
		if !strings.HasPrefix(typo, p.Typo) {
			return "", false
		}
		return p.Word + typo[len(p.Typo):], true
	case BoundaryNone:
		switch {
		case strings.HasSuffix(typo, p.Typo):
			return typo[:len(typo)-len(p.Typo)] + p.Word, true
		case strings.HasPrefix(typo, p.Typo):
			return p.Word + typo[len(p.Typo):], true
		case strings.Contains(typo, p.Typo):
			return strings.Replace(typo, p.Typo, p.Word, 1), true
		}
		return "", false
	}
	if typo == p.Typo {
		return p.Word, true
	}
	return "", false
}

// Candidate is one raw (word, implied boundary) pair proposed for a typo.
type Candidate struct {
	Word     string   `json:"word" msgpack:"word"`
	Boundary Boundary `json:"boundary" msgpack:"boundary"`
}

// RejectionReason is drawn from a fixed taxonomy.
type RejectionReason string

const (
	ReasonAmbiguousCollision      RejectionReason = "AMBIGUOUS_COLLISION"
	ReasonFalseTrigger            RejectionReason = "FALSE_TRIGGER"
	ReasonBlockedByConflict       RejectionReason = "BLOCKED_BY_CONFLICT"
	ReasonPlatformConstraint      RejectionReason = "PLATFORM_CONSTRAINT"
	ReasonPatternValidationFailed RejectionReason = "PATTERN_VALIDATION_FAILED"
	ReasonCrossBoundaryConflict   RejectionReason = "CROSS_BOUNDARY_CONFLICT"
	ReasonExcluded                RejectionReason = "EXCLUDED"
	ReasonTooShort                RejectionReason = "TOO_SHORT"
)

// Rejection is a graveyard record.
type Rejection struct {
	Reason    RejectionReason `json:"reason" msgpack:"reason"`
	Blocker   *Correction     `json:"blocker,omitempty" msgpack:"blocker,omitempty"`
	Detail    string          `json:"detail,omitempty" msgpack:"detail,omitempty"`
	Pass      string          `json:"pass" msgpack:"pass"`
	Iteration int             `json:"iteration" msgpack:"iteration"`
}

// GraveyardEntry pairs a buried triple with its rejection record.
type GraveyardEntry struct {
	Correction `msgpack:",inline"`
	Rejection  Rejection `json:"rejection" msgpack:"rejection"`
}
