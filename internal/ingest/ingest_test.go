package ingest

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeFile(t testing.TB, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}
	return path
}

func TestHunspellURLs(t *testing.T) {
	for _, lang := range []string{"en", "tr", "de", "fr", "es", "it", "pt", "nl", "pl", "ru"} {
		if _, ok := HunspellURLs[lang]; !ok {
			t.Errorf("HunspellURLs missing language: %s", lang)
		}
	}
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig("en")

	if config.Language != "en" {
		t.Errorf("Language = %q, want en", config.Language)
	}
	if config.Category != "standard" {
		t.Errorf("Category = %q, want standard", config.Category)
	}
	if config.MinLength != 3 {
		t.Errorf("MinLength = %d, want 3", config.MinLength)
	}
}

func TestIngestHunspell(t *testing.T) {
	path := writeFile(t, "test.dic", `10
hello
world
testing/ABC
sample/XYZ
python
short
ab
a
`)
	config := IngestConfig{Language: "en", Category: "standard", MinLength: 4, MaxLength: 10}

	result, err := IngestHunspell(path, config)
	if err != nil {
		t.Fatalf("IngestHunspell failed: %v", err)
	}

	want := []string{"hello", "python", "sample", "short", "testing", "world"}
	if !reflect.DeepEqual(result.Words, want) {
		t.Errorf("Words = %v, want %v", result.Words, want)
	}
	if result.TotalRaw != 8 {
		t.Errorf("TotalRaw = %d, want 8", result.TotalRaw)
	}
	if result.Name != "hunspell_en" {
		t.Errorf("Name = %q, want hunspell_en", result.Name)
	}
}

func TestIngestHunspellFoldsDiacritics(t *testing.T) {
	path := writeFile(t, "tr.dic", "5\nçare\nşeker\nmerhaba\ntest\n")

	result, err := IngestHunspell(path, DefaultConfig("tr"))
	if err != nil {
		t.Fatalf("IngestHunspell failed: %v", err)
	}

	want := []string{"care", "merhaba", "seker", "test"}
	if !reflect.DeepEqual(result.Words, want) {
		t.Errorf("Words = %v, want %v", result.Words, want)
	}
}

func TestIngestHunspellAffixStripping(t *testing.T) {
	path := writeFile(t, "test.dic", "3\nword/ABC\nanother/XYZ/123\nplain\n")

	result, err := IngestHunspell(path, DefaultConfig("en"))
	if err != nil {
		t.Fatalf("IngestHunspell failed: %v", err)
	}

	want := []string{"another", "plain", "word"}
	if !reflect.DeepEqual(result.Words, want) {
		t.Errorf("Words = %v, want %v", result.Words, want)
	}
}

func TestIngestHunspellDuplicates(t *testing.T) {
	path := writeFile(t, "test.dic", "5\nhello\nHELLO\nHello\nHeLLo\nworld\n")

	result, err := IngestHunspell(path, DefaultConfig("en"))
	if err != nil {
		t.Fatalf("IngestHunspell failed: %v", err)
	}

	if result.TotalValid != 2 {
		t.Errorf("TotalValid = %d, want 2 (hello + world)", result.TotalValid)
	}
	if result.TotalDuplicates != 3 {
		t.Errorf("TotalDuplicates = %d, want 3", result.TotalDuplicates)
	}
}

func TestIngestHunspellSkipsWordCount(t *testing.T) {
	path := writeFile(t, "test.dic", "123456\nword\ntest\n")

	result, err := IngestHunspell(path, DefaultConfig("en"))
	if err != nil {
		t.Fatalf("IngestHunspell failed: %v", err)
	}
	if result.TotalValid != 2 {
		t.Errorf("TotalValid = %d, want 2", result.TotalValid)
	}
}

func TestIngestHunspellEmptyLines(t *testing.T) {
	path := writeFile(t, "test.dic", "5\n\nhello\n\nworld\n\n")

	result, err := IngestHunspell(path, DefaultConfig("en"))
	if err != nil {
		t.Fatalf("IngestHunspell failed: %v", err)
	}
	if result.TotalValid != 2 {
		t.Errorf("TotalValid = %d, want 2", result.TotalValid)
	}
}

func TestLoadWordsDispatch(t *testing.T) {
	// Plain lists have no count header.
	plain := writeFile(t, "words.txt", "# header\n2024\nthe\ndon't\nnaïve\n")
	list, err := LoadWords(plain, IngestConfig{MinLength: 1})
	if err != nil {
		t.Fatalf("LoadWords failed: %v", err)
	}
	want := []string{"don't", "naive", "the"}
	if !reflect.DeepEqual(list.Words, want) {
		t.Errorf("Words = %v, want %v", list.Words, want)
	}
	if list.TotalRaw != 4 {
		t.Errorf("TotalRaw = %d, want 4", list.TotalRaw)
	}
	if list.Name != "words" {
		t.Errorf("Name = %q, want words", list.Name)
	}

	if _, err := LoadWords(filepath.Join(t.TempDir(), "missing.dic"), DefaultConfig("en")); err == nil {
		t.Error("LoadWords on a missing file should fail")
	}
}

func TestMerge(t *testing.T) {
	a := &WordList{Words: []string{"the", "and"}}
	b := &WordList{Words: []string{"and", "form"}}
	got := Merge(a, nil, b)
	want := []string{"and", "form", "the"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Merge = %v, want %v", got, want)
	}
}

func TestGetSupportedLanguages(t *testing.T) {
	langs := GetSupportedLanguages()
	if len(langs) != len(HunspellURLs) {
		t.Errorf("len = %d, want %d", len(langs), len(HunspellURLs))
	}
	if langs[0] != "de" {
		t.Errorf("languages not sorted: %v", langs)
	}
}

func TestDownloadUnsupported(t *testing.T) {
	if _, err := Download("xx", t.TempDir(), false); err == nil {
		t.Error("Download of an unknown language should fail")
	}
}

func TestDownloadUsesCache(t *testing.T) {
	dir := t.TempDir()
	cached := filepath.Join(dir, "en.dic")
	if err := os.WriteFile(cached, []byte("1\nhello\n"), 0644); err != nil {
		t.Fatal(err)
	}

	path, err := Download("en", dir, false)
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	if path != cached {
		t.Errorf("path = %q, want cached %q", path, cached)
	}
}

func TestParallelDownloadAndIngestCached(t *testing.T) {
	cacheDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(cacheDir, "en"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(cacheDir, "en", "en.dic"), []byte("2\nhello\nworld\n"), 0644); err != nil {
		t.Fatal(err)
	}

	for _, workers := range []int{1, 2} {
		var seen []string
		results := ParallelDownloadAndIngest([]string{"en", "xx"}, cacheDir, ParallelConfig{Workers: workers, ParseWorkers: workers, MinLength: 3},
			func(lang string, _ *LanguageResult) { seen = append(seen, lang) })

		if len(results) != 2 || len(seen) != 2 {
			t.Fatalf("workers=%d: %d results, %d callbacks; want 2, 2", workers, len(results), len(seen))
		}
		en, xx := results[0], results[1]
		if en.Error != nil || !en.Cached || !reflect.DeepEqual(en.Result.Words, []string{"hello", "world"}) {
			t.Errorf("workers=%d: en = %+v", workers, en)
		}
		if xx.Error == nil {
			t.Errorf("workers=%d: unsupported language should fail", workers)
		}
	}
}

func TestAggregateResults(t *testing.T) {
	results := []*LanguageResult{
		{Language: "en", Result: &WordList{Words: []string{"a"}, TotalRaw: 10, TotalValid: 8, TotalDuplicates: 1}, Cached: true},
		{Language: "de", Result: &WordList{TotalRaw: 5, TotalValid: 5}},
		{Language: "xx", Error: os.ErrNotExist},
	}
	stats := AggregateResults(results)
	if stats.Successful != 2 || stats.Failed != 1 || stats.Cached != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.TotalRaw != 15 || stats.TotalValid != 13 || stats.TotalDuplicates != 1 {
		t.Errorf("totals = %+v", stats)
	}
	if got := Lists(results); len(got) != 2 {
		t.Errorf("Lists = %d, want 2", len(got))
	}
}
