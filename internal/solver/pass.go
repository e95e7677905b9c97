package solver

import (
	"sync"

	"rulesmith/internal/state"
)

// Pass names, as recorded in the graveyard and trace.
const (
	PassCandidateSelection         = "candidate_selection"
	PassPatternGeneralization      = "pattern_generalization"
	PassConflictRemoval            = "conflict_removal"
	PassPlatformSubstringConflicts = "platform_substring_conflicts"
	PassPlatformConstraints        = "platform_constraints"
)

// Pass is one optimization step over the shared state. Passes never retain st.
type Pass interface {
	Name() string
	Run(st *state.DictionaryState)
}

// DefaultPasses returns the passes in their fixed order.
func DefaultPasses(in *Inputs, workers int) []Pass {
	return []Pass{
		NewCandidateSelection(in, workers),
		NewPatternGeneralization(in, workers),
		NewConflictRemoval(in),
		NewPlatformSubstringConflicts(in, workers),
		NewPlatformConstraints(in),
	}
}

// parallelChunks splits items into chunks of len/(workers*4) and runs fn on
// each chunk from a pool of workers. Results keep chunk order. With one worker
// or less it runs fn on all items in the calling goroutine.
func parallelChunks[T, R any](items []T, workers int, fn func([]T) []R) []R {
	if len(items) == 0 {
		return nil
	}
	if workers <= 1 {
		return fn(items)
	}

	size := len(items) / (workers * 4)
	if size < 1 {
		size = 1
	}
	var chunks [][]T
	for i := 0; i < len(items); i += size {
		chunks = append(chunks, items[i:min(i+size, len(items))])
	}

	results := make([][]R, len(chunks))
	jobs := make(chan int, len(chunks))
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = fn(chunks[i])
			}
		}()
	}
	for i := range chunks {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	var out []R
	for _, r := range results {
		out = append(out, r...)
	}
	return out
}
