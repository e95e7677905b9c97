package metrics

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestCollector(t *testing.T) {
	c := NewCollector()

	if c.GetRunID() == "" {
		t.Error("Expected non-empty run ID")
	}

	c.SetConfig("platform", "qmk")
	c.SetConfig("workers", 4)

	c.StartStage("load")
	time.Sleep(10 * time.Millisecond)
	c.IncrementCounter("files", 2)
	c.SetGauge("words_per_sec", 1024.5)
	c.EndStage("load")

	c.StartStage("solve")
	c.SetCounter("corrections", 8500)
	c.EndStage("solve")

	m := c.Finalize(Summary{TyposProcessed: 10000, RulesWritten: 8500, FilesWritten: 16, Iterations: 3, Converged: true})

	if m.RunID == "" {
		t.Error("Expected non-empty run ID in metrics")
	}
	if m.Totals.TyposProcessed != 10000 {
		t.Errorf("TyposProcessed = %d, want 10000", m.Totals.TyposProcessed)
	}
	if m.Totals.RulesWritten != 8500 || m.Totals.FilesWritten != 16 {
		t.Errorf("Totals = %+v, want 8500 rules in 16 files", m.Totals)
	}
	if !m.Totals.Converged || m.Totals.Iterations != 3 {
		t.Errorf("Totals = %+v, want converged in 3 iterations", m.Totals)
	}

	load := m.Stages["load"]
	if load == nil {
		t.Fatal("Expected load stage in metrics")
	}
	if load.Counters["files"] != 2 {
		t.Errorf("files counter = %d, want 2", load.Counters["files"])
	}
	if load.DurationMs < 10 {
		t.Errorf("load duration = %dms, want >= 10ms", load.DurationMs)
	}
	if m.Stages["solve"].Counters["corrections"] != 8500 {
		t.Errorf("corrections counter = %d, want 8500", m.Stages["solve"].Counters["corrections"])
	}
}

func TestCountersIgnoredWithoutActiveStage(t *testing.T) {
	c := NewCollector()
	c.StartStage("rank")
	c.EndStage("rank")
	c.IncrementCounter("late", 1)

	if got := c.StageCounters("rank")["late"]; got != 0 {
		t.Errorf("counter after EndStage = %d, want 0", got)
	}
}

func TestStageNames(t *testing.T) {
	c := NewCollector()
	for _, name := range []string{"iteration_2", "load", "iteration_1"} {
		c.StartStage(name)
		c.EndStage(name)
	}
	c.SetStageCounter("iteration_1", "candidates_corrections", 12)

	names := c.StageNames("iteration_")
	if len(names) != 2 || names[0] != "iteration_1" || names[1] != "iteration_2" {
		t.Errorf("StageNames = %v, want [iteration_1 iteration_2]", names)
	}
	if got := c.StageCounters("iteration_1")["candidates_corrections"]; got != 12 {
		t.Errorf("StageCounters = %d, want 12", got)
	}
	if c.StageCounters("missing") != nil {
		t.Error("StageCounters of unknown stage should be nil")
	}
}

func TestCollectorConcurrentCounters(t *testing.T) {
	c := NewCollector()
	c.StartStage("generate")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.IncrementCounter("typos", 1)
			}
		}()
	}
	wg.Wait()
	c.EndStage("generate")

	if got := c.StageCounters("generate")["typos"]; got != 800 {
		t.Errorf("typos = %d, want 800", got)
	}
}

func TestReporter(t *testing.T) {
	tmpDir := t.TempDir()
	reporter := NewReporter(tmpDir)

	c := NewCollector()
	c.SetConfig("platform", "espanso")
	c.StartStage("write")
	c.SetCounter("files", 5)
	c.EndStage("write")
	m := c.Finalize(Summary{TyposProcessed: 100, RulesWritten: 60, FilesWritten: 5, Iterations: 2, Converged: true})

	if err := reporter.Write(m); err != nil {
		t.Fatalf("Failed to write metrics: %v", err)
	}

	for _, name := range []string{"latest.json", "history.jsonl", filepath.Join("runs", m.RunID+".json")} {
		if _, err := os.Stat(filepath.Join(tmpDir, "metrics", name)); err != nil {
			t.Errorf("Expected %s to exist: %v", name, err)
		}
	}

	entries, err := reporter.ReadHistory(10)
	if err != nil {
		t.Fatalf("Failed to read history: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 run in history, got %d", len(entries))
	}
	e := entries[0]
	if e.RunID != m.RunID || e.Platform != "espanso" || e.Rules != 60 || e.Iterations != 2 || !e.Converged {
		t.Errorf("history entry = %+v", e)
	}

	lastRun, err := reporter.GetLastRun()
	if err != nil {
		t.Fatalf("Failed to get last run: %v", err)
	}
	if lastRun.RunID != m.RunID {
		t.Errorf("Expected run ID %s, got %s", m.RunID, lastRun.RunID)
	}
	if lastRun.Totals.RulesWritten != 60 {
		t.Errorf("RulesWritten = %d, want 60", lastRun.Totals.RulesWritten)
	}
	if got := lastRun.Stages["write"].Counters["files"]; got != 5 {
		t.Errorf("write files = %d, want 5", got)
	}
}

func TestReporterPrune(t *testing.T) {
	tmpDir := t.TempDir()
	reporter := NewReporter(tmpDir)
	reporter.KeepRuns = 2

	for _, id := range []string{"20240101-000001-aa", "20240101-000002-bb", "20240101-000003-cc"} {
		m := NewCollector().Finalize(Summary{})
		m.RunID = id
		if err := reporter.Write(m); err != nil {
			t.Fatalf("Write(%s): %v", id, err)
		}
	}

	names, err := filepath.Glob(filepath.Join(tmpDir, "metrics", "runs", "*.json"))
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 2 {
		t.Fatalf("run files = %v, want 2", names)
	}
	if filepath.Base(names[0]) != "20240101-000002-bb.json" {
		t.Errorf("oldest kept = %s, want 20240101-000002-bb.json", filepath.Base(names[0]))
	}

	entries, _ := reporter.ReadHistory(0)
	if len(entries) != 3 {
		t.Errorf("history entries = %d, want 3", len(entries))
	}
	entries, _ = reporter.ReadHistory(1)
	if len(entries) != 1 || entries[0].RunID != "20240101-000003-cc" {
		t.Errorf("ReadHistory(1) = %+v", entries)
	}
}

func TestReporterNoHistory(t *testing.T) {
	last, err := NewReporter(t.TempDir()).GetLastRun()
	if err != nil || last != nil {
		t.Errorf("GetLastRun() = %v, %v; want nil, nil", last, err)
	}
}

func TestComparison(t *testing.T) {
	m1 := NewCollector().Finalize(Summary{RulesWritten: 1000, Iterations: 4})
	m1.Totals.DurationMs = 1000

	m2 := NewCollector().Finalize(Summary{RulesWritten: 1100, Iterations: 3})
	m2.Totals.DurationMs = 500

	comparison := CompareRuns(m2, m1)
	if comparison == nil {
		t.Fatal("Expected non-nil comparison")
	}
	if comparison.SpeedupFactor != 2.0 {
		t.Errorf("SpeedupFactor = %.2f, want 2.00", comparison.SpeedupFactor)
	}
	if comparison.TimeSavedMs != 500 {
		t.Errorf("TimeSavedMs = %d, want 500", comparison.TimeSavedMs)
	}
	if comparison.RulesDiff != 100 || comparison.IterationsDiff != -1 {
		t.Errorf("diffs = %d rules, %d iterations; want 100, -1", comparison.RulesDiff, comparison.IterationsDiff)
	}

	if len(comparison.Stages) != 0 {
		t.Errorf("Stages = %v, want none without shared stages", comparison.Stages)
	}

	formatted := FormatComparison(comparison)
	if !strings.Contains(formatted, "faster") || !strings.Contains(formatted, "+100 rules") {
		t.Errorf("FormatComparison = %q", formatted)
	}
	if FormatComparison(nil) != "No previous run to compare" {
		t.Error("FormatComparison(nil) should explain there is nothing to compare")
	}
}

func TestComparisonStages(t *testing.T) {
	stages := func(ms map[string]int64) map[string]*StageMetrics {
		out := make(map[string]*StageMetrics)
		for name, d := range ms {
			out[name] = &StageMetrics{Name: name, DurationMs: d}
		}
		return out
	}
	prev := &RunMetrics{RunID: "a", Totals: &TotalMetrics{DurationMs: 1000},
		Stages: stages(map[string]int64{"load": 100, "solve": 800, "write": 100, "iteration_1": 400})}
	cur := &RunMetrics{RunID: "b", Totals: &TotalMetrics{DurationMs: 700},
		Stages: stages(map[string]int64{"load": 120, "solve": 480, "write": 100, "iteration_1": 100, "rank": 5})}

	c := CompareRuns(cur, prev)
	want := []StageDiff{{"solve", -320}, {"load", 20}, {"write", 0}}
	if !reflect.DeepEqual(c.Stages, want) {
		t.Errorf("Stages = %v, want %v", c.Stages, want)
	}
	if got := FormatComparison(c); !strings.Contains(got, "most changed stage: solve -320ms") {
		t.Errorf("FormatComparison = %q", got)
	}
}
