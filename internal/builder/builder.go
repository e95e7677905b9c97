// Package builder writes solved rules in each platform's output format.
package builder

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	"rulesmith/internal/schema"
)

// Format is an output file layout.
type Format string

const (
	FormatEspanso Format = "espanso"
	FormatQMK     Format = "qmk"
	FormatJSON    Format = "json"
)

// ParseFormat parses a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatEspanso, FormatQMK, FormatJSON:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format: %q", s)
}

// FormatFor returns the native format of a platform. Platforms without one
// get JSON.
func FormatFor(platformName string) Format {
	switch strings.ToLower(platformName) {
	case "espanso":
		return FormatEspanso
	case "qmk":
		return FormatQMK
	}
	return FormatJSON
}

// QMKSeparator sits between trigger and word in autocorrect.txt.
const QMKSeparator = " -> "

// DefaultMaxEntriesPerFile caps the matches in one Espanso file.
const DefaultMaxEntriesPerFile = 500

// BuildStats holds statistics from a build operation.
type BuildStats struct {
	TotalRules   int
	ByBoundary   map[string]int
	ByFile       map[string]int
	FilesWritten []string
}

// NewBuildStats creates a new BuildStats.
func NewBuildStats() *BuildStats {
	return &BuildStats{
		ByBoundary: make(map[string]int),
		ByFile:     make(map[string]int),
	}
}

// Match is one Espanso match.
type Match struct {
	Trigger       string `yaml:"trigger"`
	Replace       string `yaml:"replace"`
	PropagateCase bool   `yaml:"propagate_case"`
	Word          bool   `yaml:"word,omitempty"`
	LeftWord      bool   `yaml:"left_word,omitempty"`
	RightWord     bool   `yaml:"right_word,omitempty"`
}

// MatchFile is the document written to each Espanso match file.
type MatchFile struct {
	Matches []Match `yaml:"matches"`
}

// ToMatch maps a correction's boundary onto Espanso's word options.
func ToMatch(c schema.Correction) Match {
	m := Match{Trigger: c.Typo, Replace: c.Word, PropagateCase: true}
	switch c.Boundary {
	case schema.BoundaryBoth:
		m.Word = true
	case schema.BoundaryLeft:
		m.LeftWord = true
	case schema.BoundaryRight:
		m.RightWord = true
	}
	return m
}

// FromMatch is the inverse of ToMatch.
func FromMatch(m Match) schema.Correction {
	c := schema.Correction{Typo: m.Trigger, Word: m.Replace}
	switch {
	case m.Word, m.LeftWord && m.RightWord:
		c.Boundary = schema.BoundaryBoth
	case m.LeftWord:
		c.Boundary = schema.BoundaryLeft
	case m.RightWord:
		c.Boundary = schema.BoundaryRight
	}
	return c
}

// QMKLine renders one autocorrect.txt line.
func QMKLine(c schema.Correction) string {
	return schema.FormatMarkers(c.Typo, c.Boundary) + QMKSeparator + c.Word
}

// ParseQMKLine parses a line written by QMKLine.
func ParseQMKLine(line string) (schema.Correction, error) {
	trigger, word, ok := strings.Cut(line, QMKSeparator)
	trigger, word = strings.TrimSpace(trigger), strings.TrimSpace(word)
	if !ok || trigger == "" || word == "" {
		return schema.Correction{}, fmt.Errorf("malformed rule line: %q", line)
	}
	typo, b := schema.ParseMarkers(trigger)
	return schema.Correction{Typo: typo, Word: word, Boundary: b}, nil
}

// RuleBuilder collects the final rules and writes them out.
type RuleBuilder struct {
	OutputDir         string
	MaxEntriesPerFile int
	rules             map[schema.Correction]bool
}

// NewRuleBuilder creates a new RuleBuilder.
func NewRuleBuilder(outputDir string) *RuleBuilder {
	return &RuleBuilder{
		OutputDir:         outputDir,
		MaxEntriesPerFile: DefaultMaxEntriesPerFile,
		rules:             make(map[schema.Correction]bool),
	}
}

// AddRules adds rules. Duplicates are ignored.
func (b *RuleBuilder) AddRules(rules ...schema.Correction) {
	for _, r := range rules {
		b.rules[r] = true
	}
}

// Len returns the number of distinct rules.
func (b *RuleBuilder) Len() int {
	return len(b.rules)
}

// Rules returns the rules ordered by word, then typo, then boundary.
func (b *RuleBuilder) Rules() []schema.Correction {
	out := make([]schema.Correction, 0, len(b.rules))
	for r := range b.rules {
		out = append(out, r)
	}
	SortByWord(out)
	return out
}

// SortByWord orders rules the way the output files list them.
func SortByWord(rules []schema.Correction) {
	sort.Slice(rules, func(i, j int) bool {
		a, c := rules[i], rules[j]
		if a.Word != c.Word {
			return a.Word < c.Word
		}
		return a.Less(c)
	})
}

// Lines renders every rule as an autocorrect.txt line, in file order.
func (b *RuleBuilder) Lines() []string {
	rules := b.Rules()
	lines := make([]string, len(rules))
	for i, r := range rules {
		lines[i] = QMKLine(r)
	}
	return lines
}

// Build writes the rules in format.
func (b *RuleBuilder) Build(format Format) (*BuildStats, error) {
	switch format {
	case FormatEspanso:
		stats := b.newStats()
		for _, job := range b.espansoJobs() {
			if err := writeMatchFile(job.filePath, job.file); err != nil {
				return stats, err
			}
			stats.FilesWritten = append(stats.FilesWritten, job.filePath)
			stats.ByFile[filepath.Base(job.filePath)] = len(job.file.Matches)
		}
		return stats, nil
	case FormatQMK:
		return b.buildQMK()
	case FormatJSON:
		return b.newStats(), nil
	}
	return nil, fmt.Errorf("unknown output format: %q", format)
}

// WriteRuleSet saves rs as rules.json in the output directory.
func (b *RuleBuilder) WriteRuleSet(rs *schema.RuleSet) (string, error) {
	path := filepath.Join(b.OutputDir, "rules.json")
	if err := rs.Save(path); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

func (b *RuleBuilder) newStats() *BuildStats {
	stats := NewBuildStats()
	for r := range b.rules {
		stats.TotalRules++
		stats.ByBoundary[r.Boundary.String()]++
	}
	return stats
}

func (b *RuleBuilder) buildQMK() (*BuildStats, error) {
	stats := b.newStats()
	if err := os.MkdirAll(b.OutputDir, 0755); err != nil {
		return stats, err
	}
	path := filepath.Join(b.OutputDir, "autocorrect.txt")
	lines := b.Lines()
	if err := writeLines(path, lines); err != nil {
		return stats, fmt.Errorf("failed to write %s: %w", path, err)
	}
	stats.FilesWritten = append(stats.FilesWritten, path)
	stats.ByFile[filepath.Base(path)] = len(lines)
	return stats, nil
}

// espansoJob represents one match file to write.
type espansoJob struct {
	filePath string
	file     MatchFile
}

// fileKey groups rules by the first letter of their word.
func fileKey(word string) string {
	if word == "" {
		return "symbols"
	}
	r := []rune(word)[0]
	if unicode.IsLetter(r) {
		return string(unicode.ToLower(r))
	}
	return "symbols"
}

func (b *RuleBuilder) espansoJobs() []espansoJob {
	byKey := make(map[string][]schema.Correction)
	for _, r := range b.Rules() {
		k := fileKey(r.Word)
		byKey[k] = append(byKey[k], r)
	}

	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	limit := b.MaxEntriesPerFile
	if limit <= 0 {
		limit = DefaultMaxEntriesPerFile
	}
	matchDir := filepath.Join(b.OutputDir, "match")

	var jobs []espansoJob
	for _, k := range keys {
		rules := byKey[k]
		for i := 0; i < len(rules); i += limit {
			chunk := rules[i:min(i+limit, len(rules))]

			var name string
			switch {
			case len(rules) <= limit:
				name = fmt.Sprintf("typos_%s.yml", k)
			case k == "symbols":
				name = fmt.Sprintf("typos_symbols_%03d.yml", i/limit+1)
			default:
				name = fmt.Sprintf("typos_%s_to_%s.yml", chunk[0].Word, chunk[len(chunk)-1].Word)
			}

			file := MatchFile{Matches: make([]Match, len(chunk))}
			for j, r := range chunk {
				file.Matches[j] = ToMatch(r)
			}
			jobs = append(jobs, espansoJob{filePath: filepath.Join(matchDir, name), file: file})
		}
	}
	return jobs
}

func writeMatchFile(path string, file MatchFile) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	if err := enc.Encode(file); err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return enc.Close()
}

// ReadMatchFile loads the rules from an Espanso match file.
func ReadMatchFile(path string) ([]schema.Correction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file MatchFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	rules := make([]schema.Correction, len(file.Matches))
	for i, m := range file.Matches {
		rules[i] = FromMatch(m)
	}
	return rules, nil
}

// ReadQMKFile loads the rules from an autocorrect.txt file.
func ReadQMKFile(path string) ([]schema.Correction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var rules []schema.Correction
	scanner := bufio.NewScanner(f)
	for n := 1; scanner.Scan(); n++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		r, err := ParseQMKLine(line)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, n, err)
		}
		rules = append(rules, r)
	}
	return rules, scanner.Err()
}

// ReadRules loads rules from a rules.json, an Espanso match file or
// directory, or an autocorrect.txt.
func ReadRules(path string) ([]schema.Correction, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		files, err := filepath.Glob(filepath.Join(path, "*.yml"))
		if err != nil {
			return nil, err
		}
		sort.Strings(files)
		var rules []schema.Correction
		for _, f := range files {
			rs, err := ReadMatchFile(f)
			if err != nil {
				return nil, err
			}
			rules = append(rules, rs...)
		}
		return rules, nil
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		rs, err := schema.LoadRuleSet(path)
		if err != nil {
			return nil, err
		}
		return rs.Rules(), nil
	case ".yml", ".yaml":
		return ReadMatchFile(path)
	}
	return ReadQMKFile(path)
}

func writeLines(path string, lines []string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	for _, line := range lines {
		w.WriteString(line)
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
