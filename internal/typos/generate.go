package typos

import (
	"sync"

	"rulesmith/internal/schema"
)

// Options configures candidate generation.
type Options struct {
	Workers       int
	Keyboard      bool
	MinWordLength int
	// Validation holds real words; a typo that is a real word is never generated.
	Validation map[string]bool
}

type pair struct {
	typo, word string
}

// Generate builds the raw candidate map for words. Each typo lists its source
// words in the order of words, so the result does not depend on Workers.
func Generate(words []string, opts Options) map[string][]schema.Candidate {
	var eligible []string
	for _, w := range words {
		if len(w) >= opts.MinWordLength {
			eligible = append(eligible, w)
		}
	}

	out := make(map[string][]schema.Candidate)
	for _, chunk := range generateChunks(eligible, opts) {
		for _, p := range chunk {
			add(out, p.typo, p.word)
		}
	}
	return out
}

func add(m map[string][]schema.Candidate, typo, word string) {
	for _, c := range m[typo] {
		if c.Word == word {
			return
		}
	}
	m[typo] = append(m[typo], schema.Candidate{Word: word, Boundary: schema.BoundaryNone})
}

func generateChunks(words []string, opts Options) [][]pair {
	if len(words) == 0 {
		return nil
	}
	workers := opts.Workers
	if workers <= 1 {
		return [][]pair{typosFor(words, opts)}
	}

	size := max(len(words)/(workers*4), 1)
	var chunks [][]string
	for i := 0; i < len(words); i += size {
		chunks = append(chunks, words[i:min(i+size, len(words))])
	}

	results := make([][]pair, len(chunks))
	jobs := make(chan int, len(chunks))
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = typosFor(chunks[i], opts)
			}
		}()
	}
	for i := range chunks {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return results
}

func typosFor(words []string, opts Options) []pair {
	var out []pair
	for _, w := range words {
		seen := make(map[string]bool)
		for _, t := range All(w, opts.Keyboard) {
			if t == w || seen[t] || opts.Validation[t] {
				continue
			}
			seen[t] = true
			out = append(out, pair{typo: t, word: w})
		}
	}
	return out
}
