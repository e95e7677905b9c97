package ingest

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"rulesmith/internal/normalizer"
)

// LoadFrequencies reads "word count" lines separated by a tab or spaces. The
// count may be an integer or a float. Words folding to the same form keep the
// sum of their counts. Only ratios between counts matter to the solver.
//
// A file whose first entry has no count is read as a ranked list, most
// common word first, and weighted by RankFrequencies.
func LoadFrequencies(filePath string) (map[string]float64, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open frequency file: %w", err)
	}
	defer file.Close()

	freq := make(map[string]float64)
	var ranked []string
	mode := 0 // fields per line, fixed by the first entry
	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if mode == 0 && len(fields) <= 2 {
			mode = len(fields)
		}
		if len(fields) != mode {
			return nil, fmt.Errorf("%s:%d: want \"word count\" or \"word\", got %q", filePath, lineNum, line)
		}
		if mode == 1 {
			ranked = append(ranked, fields[0])
			continue
		}
		count, err := strconv.ParseFloat(fields[1], 64)
		if err != nil || count < 0 {
			return nil, fmt.Errorf("%s:%d: bad count %q", filePath, lineNum, fields[1])
		}
		word := normalizer.Normalize(fields[0])
		if word == "" {
			continue
		}
		freq[word] += count
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading frequency file: %w", err)
	}
	if mode == 1 {
		return RankFrequencies(normalizer.NormalizeAll(ranked)), nil
	}
	return freq, nil
}

// RankFrequencies gives words without a frequency list a Zipf-like weight
// from their position, so earlier words are treated as more common.
func RankFrequencies(words []string) map[string]float64 {
	freq := make(map[string]float64, len(words))
	for i, w := range words {
		if _, ok := freq[w]; !ok {
			freq[w] = 1 / float64(i+1)
		}
	}
	return freq
}
