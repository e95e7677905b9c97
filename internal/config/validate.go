package config

import (
	"errors"
	"fmt"
	"strings"
)

// KnownPlatforms lists the platform presets a config may name.
var KnownPlatforms = []string{"espanso", "qmk", "generic"}

// Validate reports every malformed setting at once.
func (c *Config) Validate() error {
	var errs []error

	if err := c.Solver.Validate(); err != nil {
		errs = append(errs, err)
	}

	p := c.Platform
	if !isKnownPlatform(p.Name) {
		errs = append(errs, fmt.Errorf("platform.name %q is unknown (available: %s)", p.Name, strings.Join(KnownPlatforms, ", ")))
	}
	switch strings.ToLower(p.MatchDirection) {
	case "", "ltr", "rtl":
	default:
		errs = append(errs, fmt.Errorf("platform.match_direction must be ltr or rtl, got %q", p.MatchDirection))
	}
	if p.MinTypoLength < 0 || p.MaxTypoLength < 0 || p.MaxWordLength < 0 || p.MaxRules < 0 {
		errs = append(errs, errors.New("platform limits must be >= 0"))
	}
	if p.MaxTypoLength > 0 && p.MinTypoLength > p.MaxTypoLength {
		errs = append(errs, fmt.Errorf("platform.min_typo_length %d exceeds max_typo_length %d", p.MinTypoLength, p.MaxTypoLength))
	}

	switch strings.ToLower(c.Output.Format) {
	case "", "espanso", "qmk", "json":
	default:
		errs = append(errs, fmt.Errorf("output.format must be espanso, qmk or json, got %q", c.Output.Format))
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("invalid config: %w", errors.Join(errs...))
}

// Validate reports malformed solver tunables.
func (s Solver) Validate() error {
	var errs []error
	if s.CollisionThreshold < 0 {
		errs = append(errs, fmt.Errorf("solver.collision_threshold must be >= 0, got %g", s.CollisionThreshold))
	}
	if s.MinTypoLength <= 0 {
		errs = append(errs, fmt.Errorf("solver.min_typo_length must be > 0, got %d", s.MinTypoLength))
	}
	if s.MinWordLength <= 0 {
		errs = append(errs, fmt.Errorf("solver.min_word_length must be > 0, got %d", s.MinWordLength))
	}
	if s.MinPatternLength <= 0 {
		errs = append(errs, fmt.Errorf("solver.min_pattern_length must be > 0, got %d", s.MinPatternLength))
	}
	if s.MaxIterations <= 0 {
		errs = append(errs, fmt.Errorf("solver.max_iterations must be > 0, got %d", s.MaxIterations))
	}
	if s.Workers < 0 {
		errs = append(errs, fmt.Errorf("solver.workers must be >= 0, got %d", s.Workers))
	}
	return errors.Join(errs...)
}

func isKnownPlatform(name string) bool {
	for _, k := range KnownPlatforms {
		if strings.EqualFold(k, name) {
			return true
		}
	}
	return false
}
