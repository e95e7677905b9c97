package metrics

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// DefaultKeepRuns is how many per-run files survive pruning.
const DefaultKeepRuns = 20

// Reporter writes run metrics under <output>/metrics:
//
//	latest.json      full metrics of the last run
//	runs/<id>.json   full metrics per run, pruned to the newest KeepRuns
//	history.jsonl    one HistoryEntry per run, never pruned
type Reporter struct {
	dir      string
	KeepRuns int
}

// HistoryEntry is the condensed record appended to history.jsonl.
type HistoryEntry struct {
	RunID      string    `json:"run_id"`
	Timestamp  time.Time `json:"timestamp"`
	Platform   string    `json:"platform,omitempty"`
	Typos      int64     `json:"typos"`
	Rules      int64     `json:"rules"`
	Iterations int       `json:"iterations"`
	Converged  bool      `json:"converged"`
	DurationMs int64     `json:"duration_ms"`
	SolveMs    int64     `json:"solve_ms"`
}

// NewReporter creates a reporter rooted at outputDir/metrics.
func NewReporter(outputDir string) *Reporter {
	return &Reporter{
		dir:      filepath.Join(outputDir, "metrics"),
		KeepRuns: DefaultKeepRuns,
	}
}

// Write stores m as latest.json and runs/<id>.json, appends its history
// entry, and prunes old run files.
func (r *Reporter) Write(m *RunMetrics) error {
	runsDir := filepath.Join(r.dir, "runs")
	if err := os.MkdirAll(runsDir, 0755); err != nil {
		return fmt.Errorf("failed to create metrics dir: %w", err)
	}

	if err := writeJSON(filepath.Join(r.dir, "latest.json"), m); err != nil {
		return fmt.Errorf("failed to write latest.json: %w", err)
	}
	if err := writeJSON(filepath.Join(runsDir, m.RunID+".json"), m); err != nil {
		return fmt.Errorf("failed to write run file: %w", err)
	}
	if err := r.appendHistory(Entry(m)); err != nil {
		return fmt.Errorf("failed to append history: %w", err)
	}
	return r.prune(runsDir)
}

// Entry condenses m into a history line.
func Entry(m *RunMetrics) HistoryEntry {
	e := HistoryEntry{RunID: m.RunID, Timestamp: m.Timestamp}
	if p, ok := m.Config["platform"].(string); ok {
		e.Platform = p
	}
	if m.Totals != nil {
		e.Typos = m.Totals.TyposProcessed
		e.Rules = m.Totals.RulesWritten
		e.Iterations = m.Totals.Iterations
		e.Converged = m.Totals.Converged
		e.DurationMs = m.Totals.DurationMs
	}
	if s, ok := m.Stages["solve"]; ok {
		e.SolveMs = s.DurationMs
	}
	return e
}

// writeJSON writes v through a temp file so readers never see a partial file.
func writeJSON(path string, v interface{}) error {
	tmp := path + ".part"
	file, err := os.Create(tmp)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		file.Close()
		os.Remove(tmp)
		return err
	}
	if err := file.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func (r *Reporter) appendHistory(e HistoryEntry) error {
	file, err := os.OpenFile(filepath.Join(r.dir, "history.jsonl"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer file.Close()

	line, err := json.Marshal(e)
	if err != nil {
		return err
	}
	_, err = file.Write(append(line, '\n'))
	return err
}

// prune removes the oldest run files beyond KeepRuns. Run IDs start with a
// timestamp, so name order is age order.
func (r *Reporter) prune(runsDir string) error {
	if r.KeepRuns <= 0 {
		return nil
	}
	names, err := filepath.Glob(filepath.Join(runsDir, "*.json"))
	if err != nil {
		return err
	}
	if len(names) <= r.KeepRuns {
		return nil
	}
	sort.Strings(names)
	for _, name := range names[:len(names)-r.KeepRuns] {
		if err := os.Remove(name); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to prune %s: %w", filepath.Base(name), err)
		}
	}
	return nil
}

// ReadHistory reads the last limit history entries, oldest first.
// Malformed lines are skipped.
func (r *Reporter) ReadHistory(limit int) ([]HistoryEntry, error) {
	file, err := os.Open(filepath.Join(r.dir, "history.jsonl"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	var entries []HistoryEntry
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var e HistoryEntry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return entries, nil
}

// GetLastRun returns the full metrics of the previous run, or nil when
// there is none.
func (r *Reporter) GetLastRun() (*RunMetrics, error) {
	data, err := os.ReadFile(filepath.Join(r.dir, "latest.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var m RunMetrics
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse latest.json: %w", err)
	}
	return &m, nil
}

// StageDiff is the change in one stage's duration between two runs.
type StageDiff struct {
	Stage   string `json:"stage"`
	DeltaMs int64  `json:"delta_ms"`
}

// Comparison is the difference between two runs.
type Comparison struct {
	CurrentRunID   string      `json:"current_run_id"`
	PreviousRunID  string      `json:"previous_run_id"`
	SpeedupFactor  float64     `json:"speedup_factor"`
	TimeSavedMs    int64       `json:"time_saved_ms"`
	RulesDiff      int64       `json:"rules_diff"`
	IterationsDiff int         `json:"iterations_diff"`
	Stages         []StageDiff `json:"stages,omitempty"`
}

// CompareRuns compares two runs. Stage diffs cover the top-level stages both
// runs recorded, largest change first; per-iteration stages are left out.
func CompareRuns(current, previous *RunMetrics) *Comparison {
	if current == nil || previous == nil || current.Totals == nil || previous.Totals == nil {
		return nil
	}

	speedup := float64(1)
	if current.Totals.DurationMs > 0 {
		speedup = float64(previous.Totals.DurationMs) / float64(current.Totals.DurationMs)
	}

	c := &Comparison{
		CurrentRunID:   current.RunID,
		PreviousRunID:  previous.RunID,
		SpeedupFactor:  speedup,
		TimeSavedMs:    previous.Totals.DurationMs - current.Totals.DurationMs,
		RulesDiff:      current.Totals.RulesWritten - previous.Totals.RulesWritten,
		IterationsDiff: current.Totals.Iterations - previous.Totals.Iterations,
	}
	for name, stage := range current.Stages {
		if strings.HasPrefix(name, "iteration_") {
			continue
		}
		if prev, ok := previous.Stages[name]; ok {
			c.Stages = append(c.Stages, StageDiff{Stage: name, DeltaMs: stage.DurationMs - prev.DurationMs})
		}
	}
	sort.Slice(c.Stages, func(i, j int) bool {
		a, b := abs(c.Stages[i].DeltaMs), abs(c.Stages[j].DeltaMs)
		if a != b {
			return a > b
		}
		return c.Stages[i].Stage < c.Stages[j].Stage
	})
	return c
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}

// FormatComparison returns a human-readable comparison string.
func FormatComparison(c *Comparison) string {
	if c == nil {
		return "No previous run to compare"
	}

	direction := "faster"
	if c.SpeedupFactor < 1 {
		direction = "slower"
	}

	s := fmt.Sprintf(
		"%.2fx %s than previous run (%+dms, %+d rules, %+d iterations)",
		c.SpeedupFactor,
		direction,
		-c.TimeSavedMs,
		c.RulesDiff,
		c.IterationsDiff,
	)
	if len(c.Stages) > 0 && c.Stages[0].DeltaMs != 0 {
		s += fmt.Sprintf("; most changed stage: %s %+dms", c.Stages[0].Stage, c.Stages[0].DeltaMs)
	}
	return s
}
