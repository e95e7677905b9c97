// Package ingest loads the word lists, frequencies, candidates and priority
// words the solver consumes.
package ingest

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"rulesmith/internal/logger"
	"rulesmith/internal/normalizer"
)

var log = logger.New("ingest")

// HunspellURLs maps language codes to Hunspell dictionary URLs.
var HunspellURLs = map[string]string{
	"en": "https://raw.githubusercontent.com/wooorm/dictionaries/main/dictionaries/en/index.dic",
	"tr": "https://raw.githubusercontent.com/wooorm/dictionaries/main/dictionaries/tr/index.dic",
	"de": "https://raw.githubusercontent.com/wooorm/dictionaries/main/dictionaries/de/index.dic",
	"fr": "https://raw.githubusercontent.com/wooorm/dictionaries/main/dictionaries/fr/index.dic",
	"es": "https://raw.githubusercontent.com/wooorm/dictionaries/main/dictionaries/es/index.dic",
	"it": "https://raw.githubusercontent.com/wooorm/dictionaries/main/dictionaries/it/index.dic",
	"pt": "https://raw.githubusercontent.com/wooorm/dictionaries/main/dictionaries/pt/index.dic",
	"nl": "https://raw.githubusercontent.com/wooorm/dictionaries/main/dictionaries/nl/index.dic",
	"pl": "https://raw.githubusercontent.com/wooorm/dictionaries/main/dictionaries/pl/index.dic",
	"ru": "https://raw.githubusercontent.com/wooorm/dictionaries/main/dictionaries/ru/index.dic",
}

// WordList holds the normalized words read from one source.
type WordList struct {
	Words           []string
	SourcePath      string
	Name            string
	Language        string
	Category        string
	TotalRaw        int
	TotalValid      int
	TotalDuplicates int
}

// IngestConfig configures ingestion behavior. A zero MaxLength means no limit.
type IngestConfig struct {
	Language  string
	Category  string
	MinLength int
	MaxLength int
}

// DefaultConfig returns default ingestion config.
func DefaultConfig(language string) IngestConfig {
	return IngestConfig{
		Language:  language,
		Category:  "standard",
		MinLength: 3,
		MaxLength: 30,
	}
}

func (c IngestConfig) accepts(word string) bool {
	if len(word) < c.MinLength {
		return false
	}
	return c.MaxLength <= 0 || len(word) <= c.MaxLength
}

// Download downloads a Hunspell dictionary to the cache directory.
func Download(language, cacheDir string, force bool) (string, error) {
	url, ok := HunspellURLs[language]
	if !ok {
		return "", fmt.Errorf("unsupported language: %s", language)
	}
	return fetch(url, filepath.Join(cacheDir, language+".dic"), force)
}

// fetch downloads url to path unless a cached copy exists.
func fetch(url, path string, force bool) (string, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create cache dir: %w", err)
	}

	if !force && fileExists(path) {
		log.Debug("using cached file", "path", path)
		return path, nil
	}

	log.Info("downloading", "url", url)
	resp, err := http.Get(url)
	if err != nil {
		return "", fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download failed with status: %d", resp.StatusCode)
	}

	tmp := path + ".part"
	file, err := os.Create(tmp)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	if _, err := io.Copy(file, resp.Body); err != nil {
		file.Close()
		os.Remove(tmp)
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("failed to move download into place: %w", err)
	}

	log.Info("saved", "path", path)
	return path, nil
}

// IngestHunspell ingests a Hunspell .dic file: an optional word count header,
// then one word per line with optional "/FLAGS" affix suffixes.
func IngestHunspell(filePath string, config IngestConfig) (*WordList, error) {
	return ingestFile(filePath, config, "hunspell_"+config.Language, true)
}

// IngestWordList ingests a plain list with one word per line. Blank lines and
// '#' comments are skipped.
func IngestWordList(filePath string, config IngestConfig) (*WordList, error) {
	name := strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))
	return ingestFile(filePath, config, name, false)
}

// LoadWords ingests a word file, choosing the Hunspell reader for .dic files.
func LoadWords(filePath string, config IngestConfig) (*WordList, error) {
	if strings.EqualFold(filepath.Ext(filePath), ".dic") {
		return IngestHunspell(filePath, config)
	}
	return IngestWordList(filePath, config)
}

func ingestFile(filePath string, config IngestConfig, name string, hunspell bool) (*WordList, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	absPath, _ := filepath.Abs(filePath)
	result := &WordList{
		SourcePath: absPath,
		Name:       name,
		Language:   config.Language,
		Category:   config.Category,
	}

	seen := make(map[string]bool)
	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		raw, ok := parseLine(scanner.Text(), lineNum, hunspell)
		if !ok {
			continue
		}
		result.TotalRaw++

		word := normalizer.Normalize(raw)
		if word == "" || !config.accepts(word) {
			continue
		}
		if seen[word] {
			result.TotalDuplicates++
			continue
		}
		seen[word] = true
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}

	result.Words = sortedKeys(seen)
	result.TotalValid = len(result.Words)
	return result, nil
}

// parseLine extracts the raw word from a line. ok is false for lines that do
// not hold a word.
func parseLine(line string, lineNum int, hunspell bool) (string, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", false
	}
	if !hunspell {
		return line, true
	}
	if lineNum == 1 && isDigits(line) {
		return "", false
	}
	if idx := strings.Index(line, "/"); idx != -1 {
		line = line[:idx]
	}
	return line, line != ""
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// GetSupportedLanguages returns the supported language codes, sorted.
func GetSupportedLanguages() []string {
	langs := make([]string, 0, len(HunspellURLs))
	for lang := range HunspellURLs {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

// Merge combines word lists into one sorted, deduplicated slice.
func Merge(lists ...*WordList) []string {
	seen := make(map[string]bool)
	for _, l := range lists {
		if l == nil {
			continue
		}
		for _, w := range l.Words {
			seen[w] = true
		}
	}
	return sortedKeys(seen)
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
