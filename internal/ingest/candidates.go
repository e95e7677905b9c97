package ingest

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"rulesmith/internal/normalizer"
	"rulesmith/internal/schema"
)

// LoadCandidates reads "typo -> word" lines into a raw candidate map. ':'
// markers on the typo set the implied boundary, and a line may list several
// comma-separated words. Words keep their order of first appearance per typo.
func LoadCandidates(filePath string) (map[string][]schema.Candidate, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open candidate file: %w", err)
	}
	defer file.Close()

	out := make(map[string][]schema.Candidate)
	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		typo, boundary, words, err := ParseCandidateLine(line)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", filePath, lineNum, err)
		}
		if typo == "" {
			continue
		}
		for _, w := range words {
			AddCandidate(out, typo, schema.Candidate{Word: w, Boundary: boundary})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading candidate file: %w", err)
	}
	return out, nil
}

// ParseCandidateLine splits one "typo -> word[, word]" line. An empty typo
// means the line normalized away and should be skipped.
func ParseCandidateLine(line string) (string, schema.Boundary, []string, error) {
	left, right, ok := strings.Cut(line, "->")
	if !ok {
		return "", 0, nil, fmt.Errorf("missing \"->\" in %q", line)
	}
	core, boundary := schema.ParseMarkers(strings.TrimSpace(left))
	typo := normalizer.Normalize(core)
	if typo == "" {
		return "", 0, nil, nil
	}

	var words []string
	for _, w := range strings.Split(right, ",") {
		if n := normalizer.Normalize(w); n != "" && n != typo {
			words = append(words, n)
		}
	}
	if len(words) == 0 {
		return "", 0, nil, fmt.Errorf("no usable word in %q", line)
	}
	return typo, boundary, words, nil
}

// AddCandidate appends c to typo's candidates unless the same word and
// boundary are already present.
func AddCandidate(m map[string][]schema.Candidate, typo string, c schema.Candidate) {
	for _, existing := range m[typo] {
		if existing == c {
			return
		}
	}
	m[typo] = append(m[typo], c)
}

// MergeCandidates adds every candidate of src into dst.
func MergeCandidates(dst, src map[string][]schema.Candidate) {
	for typo, cs := range src {
		for _, c := range cs {
			AddCandidate(dst, typo, c)
		}
	}
}
