package solver

import (
	"fmt"
	"reflect"
	"testing"

	"rulesmith/internal/config"
	"rulesmith/internal/index"
	"rulesmith/internal/logger"
	"rulesmith/internal/metrics"
	"rulesmith/internal/platform"
	"rulesmith/internal/schema"
	"rulesmith/internal/state"
)

func testConfig() config.Solver {
	return config.Solver{
		CollisionThreshold: 2.0,
		MinTypoLength:      3,
		MinWordLength:      3,
		MinPatternLength:   3,
		MaxIterations:      20,
		Workers:            1,
	}
}

func cand(word string, b schema.Boundary) schema.Candidate {
	return schema.Candidate{Word: word, Boundary: b}
}

func corr(typo, word string, b schema.Boundary) schema.Correction {
	return schema.Correction{Typo: typo, Word: word, Boundary: b}
}

func run(t *testing.T, in Inputs, cands map[string][]schema.Candidate, opts ...Option) *Result {
	t.Helper()
	opts = append([]Option{WithLogger(logger.Discard())}, opts...)
	s, err := New(in, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s.Solve(state.New(cands))
}

func rejection(res *Result, c schema.Correction) (schema.Rejection, bool) {
	for _, g := range res.Graveyard {
		if g.Correction == c {
			return g.Rejection, true
		}
	}
	return schema.Rejection{}, false
}

func TestSingleCandidate(t *testing.T) {
	res := run(t, Inputs{Config: testConfig()}, map[string][]schema.Candidate{
		"teh": {cand("the", schema.BoundaryNone)},
	})

	want := []schema.Correction{corr("teh", "the", schema.BoundaryNone)}
	if !reflect.DeepEqual(res.Corrections, want) {
		t.Errorf("Corrections = %v, want %v", res.Corrections, want)
	}
	if !res.Converged || res.Iterations != 2 {
		t.Errorf("Converged = %v after %d iterations, want true after 2", res.Converged, res.Iterations)
	}
	if len(res.History) != 2 || res.History[0].Corrections != 1 {
		t.Errorf("History = %+v", res.History)
	}
}

func TestCollisionAtThresholdIsAmbiguous(t *testing.T) {
	cfg := testConfig()
	cfg.CollisionThreshold = 10.0
	res := run(t, Inputs{
		Config:      cfg,
		Frequencies: map[string]float64{"not": 10, "into": 1},
	}, map[string][]schema.Candidate{
		"nto": {cand("not", schema.BoundaryNone), cand("into", schema.BoundaryNone)},
	})

	if len(res.Corrections) != 0 {
		t.Errorf("Corrections = %v, want none", res.Corrections)
	}
	if len(res.Graveyard) != 0 {
		t.Errorf("Graveyard = %v, want none", res.Graveyard)
	}
	if len(res.Skips) != 1 || res.Skips[0].Reason != schema.ReasonAmbiguousCollision {
		t.Errorf("Skips = %+v, want one AMBIGUOUS_COLLISION", res.Skips)
	}
}

func TestCollisionResolution(t *testing.T) {
	tests := []struct {
		name      string
		cands     []schema.Candidate
		freq      map[string]float64
		priority  map[string]bool
		threshold float64
		want      string
		ok        bool
	}{
		{"single", []schema.Candidate{cand("the", 0)}, nil, nil, 2, "the", true},
		{"above threshold", []schema.Candidate{cand("not", 0), cand("into", 0)}, map[string]float64{"not": 10.5, "into": 1}, nil, 10, "not", true},
		{"equal to threshold", []schema.Candidate{cand("not", 0), cand("into", 0)}, map[string]float64{"not": 10, "into": 1}, nil, 10, "", false},
		{"zero runner-up", []schema.Candidate{cand("into", 0), cand("not", 0)}, map[string]float64{"not": 0.5}, nil, 10, "not", true},
		{"both zero", []schema.Candidate{cand("not", 0), cand("into", 0)}, nil, nil, 1, "", false},
		{"priority bypasses frequency", []schema.Candidate{cand("not", 0), cand("into", 0)}, map[string]float64{"not": 100, "into": 1}, map[string]bool{"into": true}, 2, "into", true},
		{"first priority wins", []schema.Candidate{cand("form", 0), cand("from", 0)}, nil, map[string]bool{"from": true, "form": true}, 2, "form", true},
		{"duplicates collapse", []schema.Candidate{cand("the", 0), cand("the", schema.BoundaryLeft)}, nil, nil, 2, "the", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _, ok := resolveCollision(tt.cands, tt.freq, tt.priority, tt.threshold)
			if ok != tt.ok || got.Word != tt.want {
				t.Errorf("resolveCollision() = %q, %v; want %q, %v", got.Word, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestConflictPromotesShorterTrigger(t *testing.T) {
	// No vocabulary: nothing but the length floor keeps "er" -> "re" out.
	res := run(t, Inputs{Config: testConfig()}, map[string][]schema.Candidate{
		"aer":  {cand("are", schema.BoundaryRight)},
		"baer": {cand("bare", schema.BoundaryRight)},
	})

	if len(res.Corrections) != 0 {
		t.Errorf("Corrections = %v, want none", res.Corrections)
	}
	want := []schema.Pattern{{
		Correction:   corr("aer", "are", schema.BoundaryRight),
		Replacements: []schema.Correction{corr("baer", "bare", schema.BoundaryRight)},
	}}
	if !reflect.DeepEqual(res.Patterns, want) {
		t.Errorf("Patterns = %v, want %v", res.Patterns, want)
	}

	r, ok := rejection(res, corr("baer", "bare", schema.BoundaryRight))
	if !ok || r.Reason != schema.ReasonBlockedByConflict {
		t.Fatalf("baer rejection = %+v, %v; want BLOCKED_BY_CONFLICT", r, ok)
	}
	if r.Blocker == nil || *r.Blocker != corr("aer", "are", schema.BoundaryRight) {
		t.Errorf("Blocker = %v, want aer → are (right)", r.Blocker)
	}
	if len(res.Graveyard) != 1 {
		t.Errorf("Graveyard = %v, want only baer", res.Graveyard)
	}
}

func TestPatternRejectedWhenRoundTripFails(t *testing.T) {
	cfg := testConfig()
	cfg.MinTypoLength = 4
	res := run(t, Inputs{Config: cfg}, map[string][]schema.Candidate{
		"atoin": {cand("ation", schema.BoundaryRight)},
		"etoin": {cand("etion", schema.BoundaryRight)},
		"stoin": {cand("stone", schema.BoundaryRight)},
	})

	want := []schema.Correction{
		corr("atoin", "ation", schema.BoundaryRight),
		corr("etoin", "etion", schema.BoundaryRight),
		corr("stoin", "stone", schema.BoundaryRight),
	}
	if !reflect.DeepEqual(res.Corrections, want) {
		t.Errorf("Corrections = %v, want %v", res.Corrections, want)
	}
	if len(res.Patterns) != 0 {
		t.Errorf("Patterns = %v, want none", res.Patterns)
	}
	for _, b := range []schema.Boundary{schema.BoundaryNone, schema.BoundaryRight} {
		if r, ok := rejection(res, corr("toin", "tion", b)); !ok || r.Reason != schema.ReasonPatternValidationFailed {
			t.Errorf("toin → tion (%s) rejection = %+v, %v; want PATTERN_VALIDATION_FAILED", b, r, ok)
		}
	}
	if !res.Converged {
		t.Error("expected convergence")
	}
}

func TestPatternReplacesFamily(t *testing.T) {
	res := run(t, Inputs{Config: testConfig()}, map[string][]schema.Candidate{
		"actoin": {cand("action", schema.BoundaryNone)},
		"motoin": {cand("motion", schema.BoundaryNone)},
	})

	if len(res.Corrections) != 0 {
		t.Errorf("Corrections = %v, want none", res.Corrections)
	}
	if len(res.Patterns) != 1 {
		t.Fatalf("Patterns = %v, want one", res.Patterns)
	}
	p := res.Patterns[0]
	if p.Correction != corr("toin", "tion", schema.BoundaryNone) {
		t.Errorf("pattern = %v, want toin → tion (none)", p.Correction)
	}
	if len(p.Replacements) != 2 {
		t.Errorf("Replacements = %v, want actoin and motoin", p.Replacements)
	}
	for _, r := range p.Replacements {
		if got, ok := schema.Apply(p.Correction, r.Typo); !ok || got != r.Word {
			t.Errorf("Apply(%v, %q) = %q, want %q", p.Correction, r.Typo, got, r.Word)
		}
	}
}

func TestFalseTriggerRetriesNextBoundary(t *testing.T) {
	res := run(t, Inputs{
		Config:     testConfig(),
		Validation: index.NewBoundaryIndex([]string{"tehran"}),
	}, map[string][]schema.Candidate{
		"teh": {cand("the", schema.BoundaryNone)},
	})

	want := []schema.Correction{corr("teh", "the", schema.BoundaryRight)}
	if !reflect.DeepEqual(res.Corrections, want) {
		t.Errorf("Corrections = %v, want %v", res.Corrections, want)
	}
	for _, b := range []schema.Boundary{schema.BoundaryNone, schema.BoundaryLeft} {
		r, ok := rejection(res, corr("teh", "the", b))
		if !ok || r.Reason != schema.ReasonFalseTrigger {
			t.Errorf("teh (%s) rejection = %+v, %v; want FALSE_TRIGGER", b, r, ok)
		}
	}
}

func TestTargetWordFalseTrigger(t *testing.T) {
	// "ehr" occurs inside "ehre" so only the end-anchored boundaries are safe.
	res := run(t, Inputs{Config: testConfig()}, map[string][]schema.Candidate{
		"ehr": {cand("ehre", schema.BoundaryNone)},
	})
	want := []schema.Correction{corr("ehr", "ehre", schema.BoundaryRight)}
	if !reflect.DeepEqual(res.Corrections, want) {
		t.Errorf("Corrections = %v, want %v", res.Corrections, want)
	}
}

func TestShortTypos(t *testing.T) {
	cfg := testConfig()
	cfg.MinTypoLength = 4
	cands := map[string][]schema.Candidate{
		"teh": {cand("the", schema.BoundaryNone)},
		"adn": {cand("and", schema.BoundaryNone)},
	}
	res := run(t, Inputs{Config: cfg, Priority: map[string]bool{"the": true}}, cands)

	want := []schema.Correction{corr("teh", "the", schema.BoundaryBoth)}
	if !reflect.DeepEqual(res.Corrections, want) {
		t.Errorf("Corrections = %v, want %v", res.Corrections, want)
	}
	if len(res.Skips) != 1 || res.Skips[0].Typo != "adn" || res.Skips[0].Reason != schema.ReasonTooShort {
		t.Errorf("Skips = %+v, want adn TOO_SHORT", res.Skips)
	}
}

func TestValidationWordsAreNotTypos(t *testing.T) {
	res := run(t, Inputs{
		Config:     testConfig(),
		Validation: index.NewBoundaryIndex([]string{"form"}),
	}, map[string][]schema.Candidate{
		"form": {cand("from", schema.BoundaryNone)},
	})
	if len(res.Corrections) != 0 || len(res.Graveyard) != 0 {
		t.Errorf("got %v, %v; want nothing", res.Corrections, res.Graveyard)
	}
}

func TestExcludedTriplesAreBuried(t *testing.T) {
	ex, err := ParseExclusions([]string{"teh -> the"})
	if err != nil {
		t.Fatal(err)
	}
	res := run(t, Inputs{Config: testConfig(), Exclusions: ex}, map[string][]schema.Candidate{
		"teh": {cand("the", schema.BoundaryNone)},
	})

	if len(res.Corrections) != 0 {
		t.Errorf("Corrections = %v, want none", res.Corrections)
	}
	if len(res.Graveyard) != 4 {
		t.Fatalf("Graveyard = %v, want all four boundaries", res.Graveyard)
	}
	for _, g := range res.Graveyard {
		if g.Rejection.Reason != schema.ReasonExcluded {
			t.Errorf("%v reason = %s, want EXCLUDED", g.Correction, g.Rejection.Reason)
		}
	}
}

func TestGraveyardedTriplesStayInactive(t *testing.T) {
	cands := map[string][]schema.Candidate{
		"teh":   {cand("the", schema.BoundaryNone)},
		"aer":   {cand("are", schema.BoundaryRight)},
		"baer":  {cand("bare", schema.BoundaryRight)},
		"atoin": {cand("ation", schema.BoundaryRight)},
		"stoin": {cand("stone", schema.BoundaryRight)},
	}
	res := run(t, Inputs{
		Config:     testConfig(),
		Validation: index.NewBoundaryIndex([]string{"tehran", "other"}),
	}, cands)

	buried := make(map[schema.Correction]bool)
	for _, g := range res.Graveyard {
		buried[g.Correction] = true
	}
	for _, c := range res.Corrections {
		if buried[c] {
			t.Errorf("%v is both active and graveyarded", c)
		}
	}
	for _, p := range res.Patterns {
		if buried[p.Correction] {
			t.Errorf("pattern %v is both active and graveyarded", p.Correction)
		}
	}
}

func TestDeterministicAcrossWorkers(t *testing.T) {
	words := []string{"action", "motion", "nation", "station", "the", "their", "there", "about", "bare", "are"}
	cands := make(map[string][]schema.Candidate)
	freq := make(map[string]float64)
	for i, w := range words {
		freq[w] = float64(i + 1)
		for j := 0; j+1 < len(w); j++ {
			b := []byte(w)
			b[j], b[j+1] = b[j+1], b[j]
			typo := string(b)
			if typo == w {
				continue
			}
			cands[typo] = append(cands[typo], cand(w, schema.BoundaryNone))
		}
	}

	var results []*Result
	for _, workers := range []int{1, 4} {
		cfg := testConfig()
		cfg.Workers = workers
		results = append(results, run(t, Inputs{Config: cfg, Frequencies: freq}, cands))
	}

	a, b := results[0], results[1]
	if !reflect.DeepEqual(a.Corrections, b.Corrections) {
		t.Errorf("Corrections differ:\n1 worker:  %v\n4 workers: %v", a.Corrections, b.Corrections)
	}
	if !reflect.DeepEqual(a.Patterns, b.Patterns) {
		t.Errorf("Patterns differ:\n1 worker:  %v\n4 workers: %v", a.Patterns, b.Patterns)
	}
	if !reflect.DeepEqual(a.Graveyard, b.Graveyard) {
		t.Errorf("Graveyard differs")
	}
}

func TestIterationCap(t *testing.T) {
	res := run(t, Inputs{Config: testConfig()}, map[string][]schema.Candidate{
		"teh": {cand("the", schema.BoundaryNone)},
	}, WithMaxIterations(1))

	if res.Converged {
		t.Error("Converged = true, want false")
	}
	if res.Iterations != 1 {
		t.Errorf("Iterations = %d, want 1", res.Iterations)
	}
	if len(res.Corrections) != 1 {
		t.Errorf("Corrections = %v, want the best state so far", res.Corrections)
	}
}

// churn buries a new triple every run so the state never settles.
type churn struct{}

func (churn) Name() string { return "churn" }

func (churn) Run(st *state.DictionaryState) {
	st.Bury(corr(fmt.Sprintf("x%d", st.Iteration()), "x", schema.BoundaryBoth), schema.ReasonExcluded, nil, "", "churn")
}

func TestNonConvergenceStopsAtCap(t *testing.T) {
	cfg := testConfig()
	cfg.MaxIterations = 5
	res := run(t, Inputs{Config: cfg}, nil, WithPasses(churn{}))

	if res.Converged || res.Iterations != 5 {
		t.Errorf("Converged = %v after %d iterations, want false after 5", res.Converged, res.Iterations)
	}
	if len(res.History) != 5 || res.History[4].Graveyard != 5 {
		t.Errorf("History = %+v", res.History)
	}
}

func TestCollectorStages(t *testing.T) {
	c := metrics.NewCollector()
	run(t, Inputs{Config: testConfig()}, map[string][]schema.Candidate{
		"teh": {cand("the", schema.BoundaryNone)},
	}, WithCollector(c))

	names := c.StageNames("iteration_")
	if len(names) != 2 {
		t.Fatalf("StageNames = %v, want two iterations", names)
	}
	if got := c.StageCounters("iteration_1")[PassCandidateSelection+"_corrections"]; got != 1 {
		t.Errorf("candidate_selection_corrections = %d, want 1", got)
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.MinTypoLength = 0
	if _, err := New(Inputs{Config: cfg}); err == nil {
		t.Error("New() error = nil, want invalid config")
	}
}

func TestDebugTrace(t *testing.T) {
	s, err := New(Inputs{Config: testConfig()}, WithLogger(logger.Discard()))
	if err != nil {
		t.Fatal(err)
	}
	st := state.New(map[string][]schema.Candidate{
		"teh": {cand("the", schema.BoundaryNone)},
		"adn": {cand("and", schema.BoundaryNone)},
	}, state.WithDebug([]string{"the"}, nil))
	res := s.Solve(st)

	if len(res.Trace) != 1 {
		t.Fatalf("Trace = %+v, want one entry", res.Trace)
	}
	if e := res.Trace[0]; e.Action != state.ActionAdded || e.Pass != PassCandidateSelection {
		t.Errorf("Trace[0] = %+v", e)
	}
}

func TestParallelChunks(t *testing.T) {
	items := make([]int, 103)
	for i := range items {
		items[i] = i
	}
	for _, workers := range []int{0, 1, 3, 8} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			got := parallelChunks(items, workers, func(chunk []int) []int {
				out := make([]int, len(chunk))
				for i, v := range chunk {
					out[i] = v * 2
				}
				return out
			})
			if len(got) != len(items) {
				t.Fatalf("len = %d, want %d", len(got), len(items))
			}
			for i, v := range got {
				if v != i*2 {
					t.Fatalf("got[%d] = %d, want %d", i, v, i*2)
				}
			}
		})
	}
	if got := parallelChunks(nil, 4, func(chunk []int) []int { return chunk }); got != nil {
		t.Errorf("parallelChunks(nil) = %v, want nil", got)
	}
}

func BenchmarkSolve(b *testing.B) {
	words := []string{"action", "motion", "nation", "station", "relation", "the", "their", "there", "about", "because", "would", "should"}
	cands := make(map[string][]schema.Candidate)
	for _, w := range words {
		for j := 0; j+1 < len(w); j++ {
			t := []byte(w)
			t[j], t[j+1] = t[j+1], t[j]
			if string(t) != w {
				cands[string(t)] = append(cands[string(t)], cand(w, schema.BoundaryNone))
			}
		}
	}
	vocab := index.NewBoundaryIndex(words)

	for _, workers := range []int{1, 4} {
		b.Run(fmt.Sprintf("workers=%d", workers), func(b *testing.B) {
			cfg := testConfig()
			cfg.Workers = workers
			s, err := New(Inputs{Config: cfg, Validation: vocab, Platform: platform.QMK()}, WithLogger(logger.Discard()))
			if err != nil {
				b.Fatal(err)
			}
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				s.Solve(state.New(cands))
			}
		})
	}
}
