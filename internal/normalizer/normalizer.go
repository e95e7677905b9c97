// Package normalizer folds words and typos to the lowercase ASCII form the solver works on.
package normalizer

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldMap covers letters that do not decompose into an ASCII base plus marks.
var foldMap = map[rune]string{
	'ß': "ss",
	'æ': "ae", 'Æ': "ae",
	'œ': "oe", 'Œ': "oe",
	'ø': "o", 'Ø': "o",
	'ł': "l", 'Ł': "l",
	'ı': "i",
	'đ': "d", 'Đ': "d",
	'þ': "th", 'Þ': "th",
	'’': "'", 'ʼ': "'",
}

var wordPattern = regexp.MustCompile(`^[a-z]+('[a-z]+)*$`)

// newFolder strips combining marks after canonical decomposition.
// A transform.Transformer is stateful, so each call builds its own chain.
func newFolder() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

// Fold lowercases s and removes diacritics.
func Fold(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if repl, ok := foldMap[r]; ok {
			b.WriteString(repl)
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}

	folded, _, err := transform.String(newFolder(), b.String())
	if err != nil {
		return b.String()
	}
	return folded
}

// IsValidWord reports whether s is lowercase a-z with optional inner apostrophes.
func IsValidWord(s string) bool {
	return wordPattern.MatchString(s)
}

// Normalize trims, folds and validates s. It returns "" when s is not usable.
func Normalize(s string) string {
	folded := Fold(strings.TrimSpace(s))
	if IsValidWord(folded) {
		return folded
	}
	return ""
}

// NormalizeAll normalizes every entry and drops unusable or duplicate ones.
// Input order is preserved.
func NormalizeAll(words []string) []string {
	seen := make(map[string]bool, len(words))
	out := make([]string, 0, len(words))
	for _, w := range words {
		n := Normalize(w)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
