package ingest

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"rulesmith/internal/normalizer"
)

// ParseConfig configures parallel file parsing.
type ParseConfig struct {
	Workers   int // Number of parallel workers for line processing
	ChunkSize int // Lines per chunk (0 = auto)
}

// DefaultParseConfig returns sensible defaults.
func DefaultParseConfig() ParseConfig {
	return ParseConfig{
		Workers:   4,
		ChunkSize: 1000,
	}
}

type lineChunk struct {
	lines     []string
	startLine int
}

type chunkResult struct {
	words    map[string]bool
	rawCount int
	dupCount int
}

// ParallelIngestHunspell ingests a Hunspell dictionary with parallel line processing.
func ParallelIngestHunspell(filePath string, config IngestConfig, parseConfig ParseConfig) (*WordList, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}

	if parseConfig.Workers <= 1 || len(lines) < parseConfig.ChunkSize*2 {
		return IngestHunspell(filePath, config)
	}

	chunkSize := parseConfig.ChunkSize
	if chunkSize <= 0 {
		chunkSize = max(len(lines)/parseConfig.Workers, 100)
	}

	var chunks []lineChunk
	for i := 0; i < len(lines); i += chunkSize {
		chunks = append(chunks, lineChunk{
			lines:     lines[i:min(i+chunkSize, len(lines))],
			startLine: i + 1, // 1-indexed
		})
	}

	results := make([]chunkResult, len(chunks))
	var wg sync.WaitGroup
	jobs := make(chan int, len(chunks))
	for w := 0; w < parseConfig.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				results[idx] = processChunk(chunks[idx], config)
			}
		}()
	}
	for i := range chunks {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	merged := make(map[string]bool)
	totalRaw, totalDup := 0, 0
	for _, r := range results {
		totalRaw += r.rawCount
		totalDup += r.dupCount
		for w := range r.words {
			if merged[w] {
				totalDup++
				continue
			}
			merged[w] = true
		}
	}

	absPath, _ := filepath.Abs(filePath)
	words := sortedKeys(merged)
	return &WordList{
		Words:           words,
		SourcePath:      absPath,
		Name:            "hunspell_" + config.Language,
		Language:        config.Language,
		Category:        config.Category,
		TotalRaw:        totalRaw,
		TotalValid:      len(words),
		TotalDuplicates: totalDup,
	}, nil
}

func processChunk(chunk lineChunk, config IngestConfig) chunkResult {
	result := chunkResult{words: make(map[string]bool)}

	for i, line := range chunk.lines {
		raw, ok := parseLine(line, chunk.startLine+i, true)
		if !ok {
			continue
		}
		result.rawCount++

		word := normalizer.Normalize(raw)
		if word == "" || !config.accepts(word) {
			continue
		}
		if result.words[word] {
			result.dupCount++
			continue
		}
		result.words[word] = true
	}
	return result
}
