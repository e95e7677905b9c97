package ingest

import (
	"reflect"
	"testing"
)

func TestCursewordURLs(t *testing.T) {
	for _, lang := range []string{"en", "tr", "de", "fr"} {
		if _, ok := CursewordURLs[lang]; !ok {
			t.Errorf("Missing curseword URL for language: %s", lang)
		}
	}
}

func TestCursewordConfig(t *testing.T) {
	cfg := CursewordConfig("en")

	if cfg.Language != "en" {
		t.Errorf("Language = %q, want en", cfg.Language)
	}
	if cfg.Category != "curseword" {
		t.Errorf("Category = %q, want curseword", cfg.Category)
	}
}

func TestIngestCursewords(t *testing.T) {
	path := writeFile(t, "test_cursewords.txt", `# Test curseword list
badword
another
test
short
ab
`)
	config := IngestConfig{Language: "en", MinLength: 3, MaxLength: 10}

	result, err := IngestCursewords(path, config)
	if err != nil {
		t.Fatalf("IngestCursewords failed: %v", err)
	}

	want := []string{"another", "badword", "short", "test"}
	if !reflect.DeepEqual(result.Words, want) {
		t.Errorf("Words = %v, want %v", result.Words, want)
	}
	if result.Category != "curseword" {
		t.Errorf("Category = %q, want curseword", result.Category)
	}
	if result.Name != "cursewords_en" {
		t.Errorf("Name = %q, want cursewords_en", result.Name)
	}
}

func TestLoadBlocklistSkipsUnsupported(t *testing.T) {
	words, errs := LoadBlocklist([]string{"xx", "yy"}, t.TempDir(), false)
	if len(words) != 0 || len(errs) != 0 {
		t.Errorf("LoadBlocklist = %v, %v; want nothing", words, errs)
	}
}

func TestHasCursewordSupport(t *testing.T) {
	if !HasCursewordSupport("en") {
		t.Error("Expected curseword support for 'en'")
	}
	if HasCursewordSupport("xyz") {
		t.Error("Expected no curseword support for 'xyz'")
	}
}

func TestGetCursewordLanguages(t *testing.T) {
	langs := GetCursewordLanguages()
	if len(langs) != len(CursewordURLs) {
		t.Fatalf("len = %d, want %d", len(langs), len(CursewordURLs))
	}
	for i := 1; i < len(langs); i++ {
		if langs[i-1] > langs[i] {
			t.Fatalf("languages not sorted: %v", langs)
		}
	}
}
