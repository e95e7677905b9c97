package ingest

import (
	"fmt"
	"path/filepath"
	"sort"
)

// CursewordURLs maps language codes to profanity list URLs.
var CursewordURLs = map[string]string{
	"en": "https://raw.githubusercontent.com/LDNOOBW/List-of-Dirty-Naughty-Obscene-and-Otherwise-Bad-Words/master/en",
	"tr": "https://raw.githubusercontent.com/LDNOOBW/List-of-Dirty-Naughty-Obscene-and-Otherwise-Bad-Words/master/tr",
	"de": "https://raw.githubusercontent.com/LDNOOBW/List-of-Dirty-Naughty-Obscene-and-Otherwise-Bad-Words/master/de",
	"fr": "https://raw.githubusercontent.com/LDNOOBW/List-of-Dirty-Naughty-Obscene-and-Otherwise-Bad-Words/master/fr",
	"es": "https://raw.githubusercontent.com/LDNOOBW/List-of-Dirty-Naughty-Obscene-and-Otherwise-Bad-Words/master/es",
	"it": "https://raw.githubusercontent.com/LDNOOBW/List-of-Dirty-Naughty-Obscene-and-Otherwise-Bad-Words/master/it",
	"pt": "https://raw.githubusercontent.com/LDNOOBW/List-of-Dirty-Naughty-Obscene-and-Otherwise-Bad-Words/master/pt",
	"nl": "https://raw.githubusercontent.com/LDNOOBW/List-of-Dirty-Naughty-Obscene-and-Otherwise-Bad-Words/master/nl",
	"pl": "https://raw.githubusercontent.com/LDNOOBW/List-of-Dirty-Naughty-Obscene-and-Otherwise-Bad-Words/master/pl",
	"ru": "https://raw.githubusercontent.com/LDNOOBW/List-of-Dirty-Naughty-Obscene-and-Otherwise-Bad-Words/master/ru",
}

// CursewordConfig returns config for blocklist ingestion.
func CursewordConfig(language string) IngestConfig {
	return IngestConfig{
		Language:  language,
		Category:  "curseword",
		MinLength: 3,
		MaxLength: 15, // Cursewords can be longer compound words
	}
}

// DownloadCursewords downloads a profanity list to the cache directory.
func DownloadCursewords(language, cacheDir string, force bool) (string, error) {
	url, ok := CursewordURLs[language]
	if !ok {
		return "", fmt.Errorf("no curseword list for language: %s", language)
	}
	return fetch(url, filepath.Join(cacheDir, language+"_cursewords.txt"), force)
}

// IngestCursewords ingests a plain text profanity list.
func IngestCursewords(filePath string, config IngestConfig) (*WordList, error) {
	config.Category = "curseword"
	return ingestFile(filePath, config, "cursewords_"+config.Language, false)
}

// DownloadAndIngestCursewords downloads and ingests a profanity list.
func DownloadAndIngestCursewords(language, cacheDir string, config IngestConfig, force bool) (*WordList, error) {
	path, err := DownloadCursewords(language, cacheDir, force)
	if err != nil {
		return nil, err
	}
	return IngestCursewords(path, config)
}

// LoadBlocklist collects the profanity lists of every supported language.
// Languages without a list are skipped. Failures are returned alongside the
// words that did load.
func LoadBlocklist(languages []string, cacheDir string, force bool) ([]string, []error) {
	var lists []*WordList
	var errs []error
	for _, lang := range languages {
		if !HasCursewordSupport(lang) {
			continue
		}
		list, err := DownloadAndIngestCursewords(lang, filepath.Join(cacheDir, lang), CursewordConfig(lang), force)
		if err != nil {
			errs = append(errs, fmt.Errorf("blocklist %s: %w", lang, err))
			continue
		}
		lists = append(lists, list)
	}
	return Merge(lists...), errs
}

// GetCursewordLanguages returns the languages with a profanity list, sorted.
func GetCursewordLanguages() []string {
	langs := make([]string, 0, len(CursewordURLs))
	for lang := range CursewordURLs {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

// HasCursewordSupport checks if a language has a profanity list available.
func HasCursewordSupport(language string) bool {
	_, ok := CursewordURLs[language]
	return ok
}
