package solver

import (
	"fmt"
	"regexp"
	"strings"

	"rulesmith/internal/schema"
)

type exclusionRule struct {
	raw      string
	typo     *regexp.Regexp
	word     *regexp.Regexp
	boundary *schema.Boundary
}

// Exclusions holds user rules that keep corrections out of the result, and
// word patterns that are ignored when checking for false triggers.
//
// A rule "typo -> word" excludes matching corrections. Either side may use '*'
// wildcards and the typo may carry ':' boundary markers to restrict the rule
// to that boundary. A rule without "->" names validation words to ignore.
type Exclusions struct {
	rules []exclusionRule
	words []*regexp.Regexp
}

// ParseExclusions parses exclusion rules. Blank lines and '#' comments are skipped.
func ParseExclusions(lines []string) (*Exclusions, error) {
	ex := &Exclusions{}
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := ex.add(line); err != nil {
			return nil, err
		}
	}
	return ex, nil
}

func (ex *Exclusions) add(line string) error {
	typoPat, wordPat, ok := strings.Cut(line, "->")
	if !ok {
		re, err := wildcard(line)
		if err != nil {
			return fmt.Errorf("bad exclusion %q: %w", line, err)
		}
		ex.words = append(ex.words, re)
		return nil
	}

	typoPat = strings.TrimSpace(typoPat)
	wordPat = strings.TrimSpace(wordPat)
	rule := exclusionRule{raw: line}
	if strings.ContainsRune(typoPat, ':') {
		core, b := schema.ParseMarkers(typoPat)
		typoPat = core
		rule.boundary = &b
	}
	if typoPat == "" || wordPat == "" {
		return fmt.Errorf("bad exclusion %q: both sides of -> are required", line)
	}

	var err error
	if rule.typo, err = wildcard(typoPat); err != nil {
		return fmt.Errorf("bad exclusion %q: %w", line, err)
	}
	if rule.word, err = wildcard(wordPat); err != nil {
		return fmt.Errorf("bad exclusion %q: %w", line, err)
	}
	ex.rules = append(ex.rules, rule)
	return nil
}

// BlockWords excludes every correction targeting one of words.
func (ex *Exclusions) BlockWords(words ...string) {
	for _, w := range words {
		if w == "" {
			continue
		}
		ex.rules = append(ex.rules, exclusionRule{
			raw:  "* -> " + w + " (blocklist)",
			typo: regexp.MustCompile(`^.*$`),
			word: regexp.MustCompile("^" + regexp.QuoteMeta(w) + "$"),
		})
	}
}

// Len returns the number of correction rules.
func (ex *Exclusions) Len() int {
	if ex == nil {
		return 0
	}
	return len(ex.rules)
}

// Match returns the rule excluding c, or "" when none does.
func (ex *Exclusions) Match(c schema.Correction) string {
	if ex == nil {
		return ""
	}
	for _, r := range ex.rules {
		if r.boundary != nil && *r.boundary != c.Boundary {
			continue
		}
		if r.typo.MatchString(c.Typo) && r.word.MatchString(c.Word) {
			return r.raw
		}
	}
	return ""
}

// IgnoresWord reports whether a validation word matches a word-only pattern.
func (ex *Exclusions) IgnoresWord(w string) bool {
	if ex == nil {
		return false
	}
	for _, re := range ex.words {
		if re.MatchString(w) {
			return true
		}
	}
	return false
}

// FilterValidation drops validation words that match a word-only pattern.
func (ex *Exclusions) FilterValidation(words []string) []string {
	if ex == nil || len(ex.words) == 0 {
		return words
	}
	out := make([]string, 0, len(words))
	for _, w := range words {
		if !ex.IgnoresWord(w) {
			out = append(out, w)
		}
	}
	return out
}

// wildcard compiles a '*' glob into an anchored regexp.
func wildcard(pattern string) (*regexp.Regexp, error) {
	parts := strings.Split(pattern, "*")
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	return regexp.Compile("^" + strings.Join(parts, ".*") + "$")
}
