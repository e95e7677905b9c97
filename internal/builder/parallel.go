package builder

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"sync"
)

// ParallelBuildConfig configures parallel build operations.
type ParallelBuildConfig struct {
	Workers int // Number of parallel workers for file writing
}

// DefaultParallelBuildConfig returns sensible defaults.
func DefaultParallelBuildConfig() ParallelBuildConfig {
	return ParallelBuildConfig{
		Workers: 4,
	}
}

// ParallelBuild writes the rules in format, writing Espanso match files
// concurrently. Only Espanso output spans several files; other formats are
// written by Build.
func (b *RuleBuilder) ParallelBuild(ctx context.Context, format Format, config ParallelBuildConfig) (*BuildStats, error) {
	if config.Workers <= 1 || format != FormatEspanso {
		return b.Build(format) // Fall back to sequential
	}

	// Check for cancellation before starting
	if err := ctx.Err(); err != nil {
		return NewBuildStats(), err
	}

	stats := b.newStats()
	jobs := b.espansoJobs()

	var (
		mu   sync.Mutex
		errs []error
	)
	jobsChan := make(chan espansoJob, len(jobs))
	var wg sync.WaitGroup

	for w := 0; w < config.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobsChan {
				if ctx.Err() != nil {
					return
				}
				err := writeMatchFile(job.filePath, job.file)
				mu.Lock()
				if err != nil {
					errs = append(errs, err)
				} else {
					stats.FilesWritten = append(stats.FilesWritten, job.filePath)
					stats.ByFile[filepath.Base(job.filePath)] = len(job.file.Matches)
				}
				mu.Unlock()
			}
		}()
	}

	// Send jobs (check context between sends)
	for _, job := range jobs {
		select {
		case <-ctx.Done():
			close(jobsChan)
			wg.Wait()
			return stats, ctx.Err()
		case jobsChan <- job:
		}
	}
	close(jobsChan)
	wg.Wait()

	sort.Strings(stats.FilesWritten)
	if err := ctx.Err(); err != nil {
		errs = append(errs, err)
	}
	return stats, errors.Join(errs...)
}
