package snapshot

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/vmihailenco/msgpack/v5"

	"rulesmith/internal/config"
	"rulesmith/internal/schema"
	"rulesmith/internal/solver"
	"rulesmith/internal/state"
)

func testResult() *solver.Result {
	teh := schema.Correction{Typo: "teh", Word: "the", Boundary: schema.BoundaryNone}
	atoin := schema.Correction{Typo: "atoin", Word: "ation", Boundary: schema.BoundaryRight}
	blocker := schema.Correction{Typo: "toin", Word: "tion", Boundary: schema.BoundaryRight}
	return &solver.Result{
		Corrections: []schema.Correction{teh},
		Patterns: []schema.Pattern{{
			Correction:   blocker,
			Replacements: []schema.Correction{atoin},
		}},
		Graveyard: []schema.GraveyardEntry{{
			Correction: schema.Correction{Typo: "nto", Word: "not", Boundary: schema.BoundaryNone},
			Rejection: schema.Rejection{
				Reason:    schema.ReasonAmbiguousCollision,
				Blocker:   &blocker,
				Detail:    "ratio 1.00",
				Pass:      "candidate_selection",
				Iteration: 1,
			},
		}},
		History: []schema.IterationCounts{
			{Iteration: 1, Corrections: 2, Graveyard: 1},
			{Iteration: 2, Corrections: 1, Patterns: 1, Graveyard: 1},
		},
		Converged:  true,
		Iterations: 2,
		Skips:      []state.Skip{{Typo: "ab", Reason: schema.ReasonTooShort, Iteration: 1}},
		Trace: []state.TraceEntry{{
			Iteration: 1, Pass: "candidate_selection", Action: state.ActionAdded, Correction: teh,
		}},
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", FileName)
	snap := New("test", "espanso", config.Default().Solver, testResult())

	if err := snap.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := os.Stat(path + ".part"); !os.IsNotExist(err) {
		t.Error("temporary file left behind")
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !got.CreatedAt.Equal(snap.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, snap.CreatedAt)
	}
	got.CreatedAt = snap.CreatedAt
	if !reflect.DeepEqual(got, snap) {
		t.Errorf("Load = %+v, want %+v", got, snap)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := Load(filepath.Join(dir, "missing.msgpack")); err == nil {
		t.Error("Load of a missing file should fail")
	}

	garbage := filepath.Join(dir, "garbage.msgpack")
	os.WriteFile(garbage, []byte("not msgpack"), 0644)
	if _, err := Load(garbage); err == nil {
		t.Error("Load of garbage should fail")
	}

	old := filepath.Join(dir, "old.msgpack")
	data, err := msgpack.Marshal(&Snapshot{Version: Version + 1})
	if err != nil {
		t.Fatal(err)
	}
	os.WriteFile(old, data, 0644)
	if _, err := Load(old); err == nil {
		t.Error("Load of a different version should fail")
	}
}

func TestExplain(t *testing.T) {
	snap := New("test", "espanso", config.Default().Solver, testResult())

	tests := []struct {
		typo   string
		status Status
	}{
		{"teh", StatusActive},
		{"toin", StatusActive},
		{"atoin", StatusCovered},
		{"nto", StatusRejected},
		{"ab", StatusSkipped},
		{"zzz", StatusUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.typo, func(t *testing.T) {
			if got := snap.Explain(tt.typo).Status(); got != tt.status {
				t.Errorf("Status = %q, want %q", got, tt.status)
			}
		})
	}

	e := snap.Explain("nto")
	if len(e.Buried) != 1 || e.Buried[0].Rejection.Blocker.Typo != "toin" {
		t.Errorf("Buried = %+v", e.Buried)
	}
	if len(snap.Explain("teh").Trace) != 1 {
		t.Error("trace for teh missing")
	}
}

func TestTyposAndRuleSet(t *testing.T) {
	snap := New("test", "qmk", config.Default().Solver, testResult())

	want := []string{"teh", "atoin", "nto", "ab"}
	if got := snap.Typos(); !reflect.DeepEqual(got, want) {
		t.Errorf("Typos = %v, want %v", got, want)
	}

	rs := snap.RuleSet()
	if rs.Platform != "qmk" || rs.Count() != 2 || !rs.Converged {
		t.Errorf("RuleSet = %+v", rs)
	}
}
