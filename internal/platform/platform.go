// Package platform describes autocorrect targets and how they render and rank rules.
package platform

import (
	"fmt"
	"strings"

	"rulesmith/internal/config"
	"rulesmith/internal/schema"
)

// Direction is the order in which a platform scans typed text for triggers.
type Direction uint8

const (
	LeftToRight Direction = iota
	RightToLeft
)

func (d Direction) String() string {
	if d == RightToLeft {
		return "rtl"
	}
	return "ltr"
}

// ParseDirection parses "ltr" or "rtl".
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ltr":
		return LeftToRight, nil
	case "rtl":
		return RightToLeft, nil
	}
	return LeftToRight, fmt.Errorf("unknown match direction: %q", s)
}

// Descriptor holds the limits and capabilities of one target platform.
// Zero limits mean unlimited; an empty AllowedChars allows anything.
type Descriptor struct {
	Name            string
	AllowedChars    string
	MaxRules        int
	Direction       Direction
	BoundaryMarkers bool
	InlineMarkers   bool
	MinTypoLength   int
	MaxTypoLength   int
	MaxWordLength   int
}

// Espanso matches left to right and expresses boundaries as match options.
func Espanso() Descriptor {
	return Descriptor{
		Name:            "espanso",
		Direction:       LeftToRight,
		BoundaryMarkers: true,
	}
}

// QMK matches right to left over a small alphabet and writes boundaries inline as ':'.
func QMK() Descriptor {
	return Descriptor{
		Name:            "qmk",
		AllowedChars:    "abcdefghijklmnopqrstuvwxyz'",
		MaxRules:        6000,
		Direction:       RightToLeft,
		BoundaryMarkers: true,
		InlineMarkers:   true,
		MaxTypoLength:   62,
		MaxWordLength:   62,
	}
}

// Generic is a plain find-and-replace target without boundary support.
func Generic() Descriptor {
	return Descriptor{
		Name:      "generic",
		Direction: LeftToRight,
	}
}

// Preset returns the named platform.
func Preset(name string) (Descriptor, error) {
	switch strings.ToLower(name) {
	case "espanso":
		return Espanso(), nil
	case "qmk":
		return QMK(), nil
	case "generic":
		return Generic(), nil
	}
	return Descriptor{}, fmt.Errorf("unknown platform: %q", name)
}

// FromConfig starts from the named preset and applies the overrides set in cfg.
func FromConfig(cfg config.Platform) (Descriptor, error) {
	d, err := Preset(cfg.Name)
	if err != nil {
		return d, err
	}
	if cfg.AllowedChars != "" {
		d.AllowedChars = cfg.AllowedChars
	}
	if cfg.MaxRules > 0 {
		d.MaxRules = cfg.MaxRules
	}
	if cfg.MatchDirection != "" {
		dir, err := ParseDirection(cfg.MatchDirection)
		if err != nil {
			return d, err
		}
		d.Direction = dir
	}
	if cfg.BoundaryMarkers != nil {
		d.BoundaryMarkers = *cfg.BoundaryMarkers
	}
	if cfg.InlineMarkers != nil {
		d.InlineMarkers = *cfg.InlineMarkers
	}
	if cfg.MinTypoLength > 0 {
		d.MinTypoLength = cfg.MinTypoLength
	}
	if cfg.MaxTypoLength > 0 {
		d.MaxTypoLength = cfg.MaxTypoLength
	}
	if cfg.MaxWordLength > 0 {
		d.MaxWordLength = cfg.MaxWordLength
	}
	return d, nil
}

// Render returns the trigger text the platform sees for typo under boundary.
func (d Descriptor) Render(typo string, b schema.Boundary) string {
	if d.InlineMarkers {
		return schema.FormatMarkers(typo, b)
	}
	return typo
}

// AllowsChars reports whether every byte of s is in the allowed set.
func (d Descriptor) AllowsChars(s string) bool {
	if d.AllowedChars == "" {
		return true
	}
	for _, r := range s {
		if !strings.ContainsRune(d.AllowedChars, r) {
			return false
		}
	}
	return true
}

// Check returns why c cannot be expressed on the platform, or "" when it can.
// Boundary support is not checked here.
func (d Descriptor) Check(c schema.Correction) string {
	switch {
	case !d.AllowsChars(c.Typo):
		return fmt.Sprintf("typo %q has characters outside %s charset", c.Typo, d.Name)
	case !d.AllowsChars(c.Word):
		return fmt.Sprintf("word %q has characters outside %s charset", c.Word, d.Name)
	case d.MinTypoLength > 0 && len(c.Typo) < d.MinTypoLength:
		return fmt.Sprintf("typo shorter than %d", d.MinTypoLength)
	case d.MaxTypoLength > 0 && len(c.Typo) > d.MaxTypoLength:
		return fmt.Sprintf("typo longer than %d", d.MaxTypoLength)
	case d.MaxWordLength > 0 && len(c.Word) > d.MaxWordLength:
		return fmt.Sprintf("word longer than %d", d.MaxWordLength)
	}
	return ""
}
