// Package solver runs the ordered rule passes over a DictionaryState until it stops changing.
package solver

import (
	"fmt"

	"github.com/charmbracelet/log"

	"rulesmith/internal/config"
	"rulesmith/internal/index"
	"rulesmith/internal/logger"
	"rulesmith/internal/metrics"
	"rulesmith/internal/platform"
	"rulesmith/internal/schema"
	"rulesmith/internal/state"
)

// Inputs holds the read-only data every pass consults.
type Inputs struct {
	Config      config.Solver
	Platform    platform.Descriptor
	Validation  *index.BoundaryIndex
	Sources     *index.BoundaryIndex
	Frequencies map[string]float64
	Priority    map[string]bool
	Exclusions  *Exclusions
}

// Result is the outcome of a solver run.
type Result struct {
	Corrections []schema.Correction
	Patterns    []schema.Pattern
	Graveyard   []schema.GraveyardEntry
	History     []schema.IterationCounts
	Converged   bool
	Iterations  int
	Skips       []state.Skip
	Trace       []state.TraceEntry
}

// RuleSet converts the result into its serializable form.
func (r *Result) RuleSet(name, platformName string) *schema.RuleSet {
	rs := schema.NewRuleSet(name, platformName)
	rs.Converged = r.Converged
	rs.Iterations = r.Iterations
	rs.Corrections = r.Corrections
	rs.Patterns = r.Patterns
	rs.Graveyard = r.Graveyard
	rs.History = r.History
	return rs
}

// Option configures a Solver.
type Option func(*Solver)

// WithMaxIterations overrides the iteration cap from the config.
func WithMaxIterations(n int) Option {
	return func(s *Solver) {
		s.maxIterations = n
	}
}

// WithLogger sets the logger used for pass deltas and convergence.
func WithLogger(l *log.Logger) Option {
	return func(s *Solver) {
		s.logger = l
	}
}

// WithCollector records an iteration_N stage per iteration.
func WithCollector(c *metrics.Collector) Option {
	return func(s *Solver) {
		s.collector = c
	}
}

// WithPasses replaces the default pass list.
func WithPasses(passes ...Pass) Option {
	return func(s *Solver) {
		s.passes = passes
	}
}

// Solver drives the fixed-point loop.
type Solver struct {
	in            *Inputs
	passes        []Pass
	maxIterations int
	logger        *log.Logger
	collector     *metrics.Collector
}

// New validates the configuration and builds a solver with the default passes.
func New(in Inputs, opts ...Option) (*Solver, error) {
	if err := in.Config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid solver config: %w", err)
	}
	if in.Validation == nil {
		in.Validation = index.NewBoundaryIndex(nil)
	}
	if in.Sources == nil {
		in.Sources = index.NewBoundaryIndex(nil)
	}
	if in.Frequencies == nil {
		in.Frequencies = map[string]float64{}
	}
	if in.Priority == nil {
		in.Priority = map[string]bool{}
	}
	if in.Exclusions == nil {
		in.Exclusions = &Exclusions{}
	}
	if in.Platform.Name == "" {
		in.Platform = platform.Espanso()
	}

	s := &Solver{
		in:            &in,
		maxIterations: in.Config.MaxIterations,
		logger:        logger.New("solver"),
	}
	workers := config.ResolveWorkers(in.Config.Workers)
	s.passes = DefaultPasses(s.in, workers)

	for _, opt := range opts {
		opt(s)
	}
	if s.maxIterations <= 0 {
		return nil, fmt.Errorf("max iterations must be > 0, got %d", s.maxIterations)
	}
	return s, nil
}

// Inputs returns the inputs after defaults were applied.
func (s *Solver) Inputs() *Inputs {
	return s.in
}

// Solve runs every pass once per iteration until the state counts stop
// changing or the iteration cap is reached.
func (s *Solver) Solve(st *state.DictionaryState) *Result {
	res := &Result{}
	prev := st.SnapshotCounts()

	for i := 0; i < s.maxIterations; i++ {
		st.StartIteration()
		n := st.Iteration()
		stage := fmt.Sprintf("iteration_%d", n)
		if s.collector != nil {
			s.collector.StartStage(stage)
		}

		for _, p := range s.passes {
			before := st.SnapshotCounts()
			p.Run(st)
			after := st.SnapshotCounts()

			s.logger.Debug(fmt.Sprintf("%s: corrections: %+d, patterns: %+d, graveyard: %+d",
				p.Name(),
				after.Corrections-before.Corrections,
				after.Patterns-before.Patterns,
				after.Graveyard-before.Graveyard,
			), "iteration", n)

			if s.collector != nil {
				s.collector.SetStageCounter(stage, p.Name()+"_corrections", int64(after.Corrections-before.Corrections))
				s.collector.SetStageCounter(stage, p.Name()+"_patterns", int64(after.Patterns-before.Patterns))
				s.collector.SetStageCounter(stage, p.Name()+"_graveyard", int64(after.Graveyard-before.Graveyard))
			}
		}

		counts := st.SnapshotCounts()
		res.History = append(res.History, schema.IterationCounts{
			Iteration:   n,
			Corrections: counts.Corrections,
			Patterns:    counts.Patterns,
			Graveyard:   counts.Graveyard,
		})
		res.Iterations = n
		if s.collector != nil {
			s.collector.EndStage(stage)
		}

		if counts == prev {
			res.Converged = true
			break
		}
		prev = counts
	}

	if res.Converged {
		s.logger.Info("converged", "iterations", res.Iterations,
			"corrections", prev.Corrections, "patterns", prev.Patterns, "graveyard", prev.Graveyard)
	} else {
		s.logger.Warn("did not converge, returning best state", "max_iterations", s.maxIterations)
	}

	res.Corrections = st.Corrections()
	res.Patterns = st.Patterns()
	res.Graveyard = st.Graveyard()
	res.Skips = st.Skips()
	res.Trace = st.Trace()
	return res
}

// falseTrigger returns why typo would fire inside a real word under b, or "".
// It checks the validation vocabulary, the source words, and the target word.
func falseTrigger(in *Inputs, typo, word string, b schema.Boundary) string {
	if b == schema.BoundaryBoth {
		return ""
	}
	if w := in.Validation.Triggers(typo, b); w != "" {
		return fmt.Sprintf("fires inside validation word %q", w)
	}
	if w := in.Sources.Triggers(typo, b); w != "" {
		return fmt.Sprintf("fires inside source word %q", w)
	}
	if index.FiresIn(typo, word, b) {
		return fmt.Sprintf("fires inside target word %q", word)
	}
	return ""
}
