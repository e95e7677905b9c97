package ingest

import (
	"path/filepath"
	"sync"
)

// ParallelConfig configures parallel processing behavior.
type ParallelConfig struct {
	Workers      int  // Number of parallel workers (0 = sequential)
	ParseWorkers int  // Line workers per dictionary (<= 1 = sequential)
	Force        bool // Force re-download
	MinLength    int
	MaxLength    int
}

// LanguageResult holds the result for a single language.
type LanguageResult struct {
	Language string
	Result   *WordList
	Error    error
	Cached   bool
}

// ProgressCallback is called when a language completes processing.
type ProgressCallback func(lang string, result *LanguageResult)

// ParallelDownloadAndIngest downloads and ingests multiple languages in parallel.
// Results keep the order of languages.
func ParallelDownloadAndIngest(
	languages []string,
	cacheDir string,
	config ParallelConfig,
	callback ProgressCallback,
) []*LanguageResult {
	results := make([]*LanguageResult, len(languages))

	if config.Workers <= 1 {
		for i, lang := range languages {
			result := downloadAndIngestLanguage(lang, cacheDir, config)
			results[i] = result
			if callback != nil {
				callback(lang, result)
			}
		}
		return results
	}

	type done struct {
		index  int
		result *LanguageResult
	}

	jobs := make(chan int, len(languages))
	resultsChan := make(chan done, len(languages))

	var wg sync.WaitGroup
	for w := 0; w < config.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				resultsChan <- done{i, downloadAndIngestLanguage(languages[i], cacheDir, config)}
			}
		}()
	}

	go func() {
		for i := range languages {
			jobs <- i
		}
		close(jobs)
	}()

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	// The callback runs on this goroutine only.
	for r := range resultsChan {
		results[r.index] = r.result
		if callback != nil {
			callback(r.result.Language, r.result)
		}
	}

	return results
}

func downloadAndIngestLanguage(language, cacheDir string, config ParallelConfig) *LanguageResult {
	langCacheDir := filepath.Join(cacheDir, language)

	ingestConfig := IngestConfig{
		Language:  language,
		Category:  "standard",
		MinLength: config.MinLength,
		MaxLength: config.MaxLength,
	}

	cached := !config.Force && fileExists(filepath.Join(langCacheDir, language+".dic"))
	var result *WordList
	path, err := Download(language, langCacheDir, config.Force)
	if err == nil {
		if config.ParseWorkers > 1 {
			parseConfig := DefaultParseConfig()
			parseConfig.Workers = config.ParseWorkers
			result, err = ParallelIngestHunspell(path, ingestConfig, parseConfig)
		} else {
			result, err = IngestHunspell(path, ingestConfig)
		}
	}

	return &LanguageResult{
		Language: language,
		Result:   result,
		Error:    err,
		Cached:   cached,
	}
}

// ParallelStats holds aggregate statistics from parallel processing.
type ParallelStats struct {
	TotalLanguages  int
	Successful      int
	Failed          int
	Cached          int
	TotalRaw        int
	TotalValid      int
	TotalDuplicates int
}

// AggregateResults computes statistics from parallel results.
func AggregateResults(results []*LanguageResult) *ParallelStats {
	stats := &ParallelStats{
		TotalLanguages: len(results),
	}

	for _, r := range results {
		if r.Error != nil {
			stats.Failed++
			continue
		}
		stats.Successful++
		if r.Cached {
			stats.Cached++
		}
		if r.Result != nil {
			stats.TotalRaw += r.Result.TotalRaw
			stats.TotalValid += r.Result.TotalValid
			stats.TotalDuplicates += r.Result.TotalDuplicates
		}
	}

	return stats
}

// Lists returns the successful word lists.
func Lists(results []*LanguageResult) []*WordList {
	var out []*WordList
	for _, r := range results {
		if r.Error == nil && r.Result != nil {
			out = append(out, r.Result)
		}
	}
	return out
}
