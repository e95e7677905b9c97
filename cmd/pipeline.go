package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"rulesmith/internal/builder"
	"rulesmith/internal/config"
	"rulesmith/internal/index"
	"rulesmith/internal/ingest"
	"rulesmith/internal/metrics"
	"rulesmith/internal/platform"
	"rulesmith/internal/report"
	"rulesmith/internal/schema"
	"rulesmith/internal/snapshot"
	"rulesmith/internal/solver"
	"rulesmith/internal/state"
	"rulesmith/internal/typos"
	"rulesmith/internal/ui"
)

const totalPhases = 5

// pipeline carries one run from loading inputs to writing rules.
type pipeline struct {
	cfg       *config.Config
	name      string
	platform  platform.Descriptor
	format    builder.Format
	workers   int
	term      *ui.UI
	benchmark bool

	collector *metrics.Collector

	sources    []string
	validation []string
	freq       map[string]float64
	priority   map[string]bool
	exclusions *solver.Exclusions
	candidates map[string][]schema.Candidate

	result  *solver.Result
	kept    []platform.Ranked
	dropped []platform.Ranked
}

func (p *pipeline) run(ctx context.Context) error {
	start := time.Now()
	p.collector = metrics.NewCollector()
	p.collector.SetConfigMap(map[string]interface{}{
		"platform":            p.platform.Name,
		"format":              string(p.format),
		"languages":           p.cfg.Inputs.Languages,
		"collision_threshold": p.cfg.Solver.CollisionThreshold,
		"min_typo_length":     p.cfg.Solver.MinTypoLength,
		"max_iterations":      p.cfg.Solver.MaxIterations,
		"workers":             p.workers,
	})

	phases := []struct {
		stage string
		title string
		fn    func(context.Context) error
	}{
		{"load", "Loading word lists", p.load},
		{"generate", "Building candidates", p.generate},
		{"solve", "Solving", p.solve},
		{"rank", "Ranking", p.rank},
	}
	for i, ph := range phases {
		p.phase(i+1, ph.title)
		p.collector.StartStage(ph.stage)
		err := ph.fn(ctx)
		p.collector.EndStage(ph.stage)
		if err != nil {
			return err
		}
	}

	p.phase(totalPhases, "Writing output")
	p.collector.StartStage("write")
	files, err := p.write(ctx)
	p.collector.EndStage("write")
	if err != nil {
		return err
	}

	runMetrics := p.collector.Finalize(metrics.Summary{
		TyposProcessed: int64(len(p.candidates)),
		RulesWritten:   int64(len(p.kept)),
		FilesWritten:   files,
		Iterations:     p.result.Iterations,
		Converged:      p.result.Converged,
	})

	if p.cfg.Output.Metrics || p.benchmark {
		reporter := metrics.NewReporter(p.cfg.Output.Dir)
		previousRun, _ := reporter.GetLastRun()
		if err := reporter.Write(runMetrics); err != nil {
			p.warn(fmt.Sprintf("Failed to write metrics: %v", err))
		} else {
			p.term.Debug(fmt.Sprintf("Metrics written: %s", runMetrics.RunID))
		}
		if previousRun != nil && !p.benchmark {
			if comparison := metrics.CompareRuns(runMetrics, previousRun); comparison != nil {
				p.term.Info(metrics.FormatComparison(comparison))
			}
			if entries, err := reporter.ReadHistory(5); err == nil {
				p.term.Table("Recent runs", historyRows(entries))
			}
		}
	}

	if p.benchmark {
		fmt.Printf(`{"run_id":"%s","duration_ms":%d,"throughput":%.2f,"typos":%d,"rules":%d,"iterations":%d,"converged":%t,"platform":"%s","workers":%d}`,
			runMetrics.RunID,
			runMetrics.Totals.DurationMs,
			runMetrics.Totals.Throughput,
			runMetrics.Totals.TyposProcessed,
			runMetrics.Totals.RulesWritten,
			runMetrics.Totals.Iterations,
			runMetrics.Totals.Converged,
			p.platform.Name,
			p.workers,
		)
		fmt.Println()
		return nil
	}

	p.term.FinalReport(ui.Summary{
		Rules:        len(p.kept),
		Patterns:     countPatterns(p.kept),
		Rejected:     len(p.result.Graveyard),
		Dropped:      len(p.dropped),
		FilesWritten: files,
		Iterations:   p.result.Iterations,
		Converged:    p.result.Converged,
		Duration:     time.Since(start),
	})
	p.term.Done()
	return nil
}

func (p *pipeline) phase(n int, title string) {
	if !p.benchmark {
		p.term.Phase(n, totalPhases, title)
	}
}

func (p *pipeline) warn(msg string) {
	if !p.benchmark {
		p.term.Warning(msg)
	}
}

// load reads source words, validation words, frequencies, priority words and
// exclusions.
func (p *pipeline) load(ctx context.Context) error {
	in := p.cfg.Inputs
	minLen := p.cfg.Solver.MinWordLength

	var lists []*ingest.WordList
	if len(in.Languages) > 0 {
		var mu sync.Mutex
		results := ingest.ParallelDownloadAndIngest(in.Languages, in.CacheDir, ingest.ParallelConfig{
			Workers:      p.workers,
			ParseWorkers: p.workers,
			Force:        in.Force,
			MinLength:    minLen,
		}, func(lang string, r *ingest.LanguageResult) {
			mu.Lock()
			defer mu.Unlock()
			if p.benchmark {
				return
			}
			if r.Error != nil {
				p.term.SourceStatus(lang, "error", r.Error.Error())
				return
			}
			details := fmt.Sprintf("%d words", r.Result.TotalValid)
			if r.Cached {
				details += " (cached)"
			}
			p.term.SourceStatus(lang, "ok", details)
		})

		stats := ingest.AggregateResults(results)
		p.collector.SetCounter("languages_cached", int64(stats.Cached))
		p.collector.SetCounter("languages_failed", int64(stats.Failed))
		lists = append(lists, ingest.Lists(results)...)
	}

	for _, path := range in.Words {
		list, err := ingest.LoadWords(path, ingest.IngestConfig{MinLength: minLen})
		if err != nil {
			return fmt.Errorf("failed to load word list: %w", err)
		}
		p.status(list.Name, list)
		lists = append(lists, list)
	}
	p.sources = ingest.Merge(lists...)
	if len(p.sources) == 0 && in.Candidates == "" {
		return fmt.Errorf("no source words or candidates: set inputs.languages, inputs.words or inputs.candidates")
	}

	var validationLists []*ingest.WordList
	for _, path := range in.Validation {
		list, err := ingest.LoadWords(path, ingest.IngestConfig{MinLength: 1})
		if err != nil {
			return fmt.Errorf("failed to load validation list: %w", err)
		}
		p.status(list.Name, list)
		validationLists = append(validationLists, list)
	}

	var err error
	if p.exclusions, err = solver.ParseExclusions(p.cfg.Exclusions); err != nil {
		return err
	}
	if in.Blocklist {
		blocked, errs := ingest.LoadBlocklist(in.Languages, in.CacheDir, in.Force)
		for _, e := range errs {
			p.warn(fmt.Sprintf("blocklist: %v", e))
		}
		p.exclusions.BlockWords(blocked...)
		p.collector.SetCounter("blocked_words", int64(len(blocked)))
	}
	p.validation = p.exclusions.FilterValidation(ingest.Merge(validationLists...))

	if in.Frequencies != "" {
		if p.freq, err = ingest.LoadFrequencies(in.Frequencies); err != nil {
			return err
		}
	} else {
		p.warn("No frequency list; collisions are only resolved by priority words")
	}

	if p.priority, err = p.loadPriority(ctx); err != nil {
		return err
	}

	p.collector.SetCounter("source_words", int64(len(p.sources)))
	p.collector.SetCounter("validation_words", int64(len(p.validation)))
	p.collector.SetCounter("priority_words", int64(len(p.priority)))
	p.collector.SetCounter("exclusions", int64(p.exclusions.Len()))
	return nil
}

func (p *pipeline) status(name string, list *ingest.WordList) {
	if !p.benchmark {
		p.term.SourceStatus(name, "ok", fmt.Sprintf("%d words", list.TotalValid))
	}
}

// loadPriority merges configured words, the priority file and the Redis set.
// An unreachable Redis degrades to a warning.
func (p *pipeline) loadPriority(ctx context.Context) (map[string]bool, error) {
	pc := p.cfg.Priority
	sources := [][]string{pc.Words}

	if pc.File != "" {
		words, err := ingest.LoadPriorityFile(pc.File)
		if err != nil {
			return nil, err
		}
		sources = append(sources, words)
	}

	if pc.RedisAddr != "" {
		store := ingest.DialPriorityStore(pc.RedisAddr, pc.RedisDB, pc.RedisKey)
		defer store.Close()

		rctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		words, err := store.Words(rctx)
		if err != nil {
			p.warn(fmt.Sprintf("priority words from %s: %v", pc.RedisAddr, err))
		} else {
			sources = append(sources, words)
		}
	}
	return ingest.PrioritySet(sources...), nil
}

// generate builds the raw candidate map from generated typos and the
// candidate file.
func (p *pipeline) generate(context.Context) error {
	in := p.cfg.Inputs
	p.candidates = make(map[string][]schema.Candidate)

	if in.Generate && len(p.sources) > 0 {
		known := make(map[string]bool, len(p.sources)+len(p.validation))
		for _, w := range p.sources {
			known[w] = true
		}
		for _, w := range p.validation {
			known[w] = true
		}
		p.candidates = typos.Generate(p.sources, typos.Options{
			Workers:       p.workers,
			Keyboard:      in.Keyboard,
			MinWordLength: p.cfg.Solver.MinWordLength,
			Validation:    known,
		})
		p.collector.SetCounter("generated_typos", int64(len(p.candidates)))
	}

	if in.Candidates != "" {
		fromFile, err := ingest.LoadCandidates(in.Candidates)
		if err != nil {
			return err
		}
		ingest.MergeCandidates(p.candidates, fromFile)
		p.collector.SetCounter("file_typos", int64(len(fromFile)))
	}

	if !p.benchmark {
		p.term.Info(fmt.Sprintf("%d typos to solve", len(p.candidates)))
	}
	p.collector.SetCounter("typos", int64(len(p.candidates)))
	return nil
}

func (p *pipeline) solve(context.Context) error {
	s, err := solver.New(solver.Inputs{
		Config:      p.cfg.Solver,
		Platform:    p.platform,
		Validation:  index.NewBoundaryIndex(p.validation),
		Sources:     index.NewBoundaryIndex(p.sources),
		Frequencies: p.freq,
		Priority:    p.priority,
		Exclusions:  p.exclusions,
	}, solver.WithCollector(p.collector))
	if err != nil {
		return err
	}

	st := state.New(p.candidates, state.WithDebug(p.cfg.Debug.Words, p.cfg.Debug.Typos))

	var spinner interface{ Stop() error }
	if !p.benchmark {
		spinner = p.term.Spinner(fmt.Sprintf("Solving %d typos...", len(p.candidates)))
	}
	p.result = s.Solve(st)
	if spinner != nil {
		spinner.Stop()
	}

	if !p.result.Converged {
		p.warn(fmt.Sprintf("Did not converge within %d iterations; writing the last state", p.cfg.Solver.MaxIterations))
	}
	if !p.benchmark {
		p.term.Table("Iterations", report.HistoryRows(p.result.History))
		p.term.Table("Rejections", report.GraveyardRows(report.ReasonTotals(p.result.Graveyard)))
		if len(p.result.Trace) > 0 {
			rows := [][]string{{"Iteration", "Pass", "Action", "Rule", "Detail"}}
			for _, t := range p.result.Trace {
				rows = append(rows, []string{fmt.Sprint(t.Iteration), t.Pass, t.Action, t.Correction.String(), t.Detail})
			}
			p.term.Table("Debug trace", rows)
		}
	}
	return nil
}

func (p *pipeline) rank(context.Context) error {
	ranked := platform.Rank(p.result.Corrections, p.result.Patterns, p.freq, p.priority)
	p.kept, p.dropped = platform.Limit(ranked, p.platform.MaxRules)
	p.collector.SetCounter("kept", int64(len(p.kept)))
	p.collector.SetCounter("dropped", int64(len(p.dropped)))
	if len(p.dropped) > 0 {
		p.warn(fmt.Sprintf("%d rules over the %s limit of %d were dropped", len(p.dropped), p.platform.Name, p.platform.MaxRules))
	}
	return nil
}

// write emits the platform files, rules.json, the snapshot and the report,
// and returns the number of files written.
func (p *pipeline) write(ctx context.Context) (int, error) {
	dir := p.cfg.Output.Dir
	rulesPath := filepath.Join(dir, "rules.json")

	var previous []string
	if _, err := os.Stat(rulesPath); err == nil {
		if rules, err := builder.ReadRules(rulesPath); err == nil {
			prev := builder.NewRuleBuilder(dir)
			prev.AddRules(rules...)
			previous = prev.Lines()
		} else {
			p.warn(fmt.Sprintf("previous run unreadable: %v", err))
		}
	}

	b := builder.NewRuleBuilder(dir)
	patterns := make(map[schema.Correction]schema.Pattern, len(p.result.Patterns))
	for _, pat := range p.result.Patterns {
		patterns[pat.Correction] = pat
	}
	rs := p.result.RuleSet(p.name, p.platform.Name)
	rs.Corrections, rs.Patterns = []schema.Correction{}, []schema.Pattern{}
	for _, r := range p.kept {
		b.AddRules(r.Correction)
		if r.Pattern {
			rs.Patterns = append(rs.Patterns, patterns[r.Correction])
		} else {
			rs.Corrections = append(rs.Corrections, r.Correction)
		}
	}

	stats, err := b.ParallelBuild(ctx, p.format, builder.ParallelBuildConfig{Workers: p.workers})
	if err != nil {
		return 0, err
	}
	files := len(stats.FilesWritten)

	if _, err := b.WriteRuleSet(rs); err != nil {
		return files, err
	}
	files++

	if p.cfg.Output.Snapshot {
		snap := snapshot.New(p.name, p.platform.Name, p.cfg.Solver, p.result)
		if err := snap.Save(filepath.Join(dir, snapshot.FileName)); err != nil {
			p.warn(fmt.Sprintf("Failed to write snapshot: %v", err))
		} else {
			files++
			if !p.benchmark {
				p.term.Success("Snapshot saved; explain a typo with rulesmith-inspect -s " + filepath.Join(dir, snapshot.FileName))
			}
		}
	}

	var diff *report.Diff
	if previous != nil {
		diff = report.DiffLines(previous, b.Lines())
		if !p.benchmark && !diff.Empty() {
			p.term.Diff(diff.Added, diff.Removed, 20)
		}
	}
	if err := report.WriteFile(filepath.Join(dir, report.FileName), rs, diff); err != nil {
		p.warn(fmt.Sprintf("Failed to write report: %v", err))
	} else {
		files++
	}

	p.collector.SetCounter("files", int64(files))
	if !p.benchmark {
		p.term.Stats("Output", map[string]interface{}{
			"rules":     stats.TotalRules,
			"none":      stats.ByBoundary["none"],
			"left":      stats.ByBoundary["left"],
			"right":     stats.ByBoundary["right"],
			"both":      stats.ByBoundary["both"],
			"directory": dir,
		})
	}
	return files, nil
}

func countPatterns(ranked []platform.Ranked) int {
	n := 0
	for _, r := range ranked {
		if r.Pattern {
			n++
		}
	}
	return n
}

func historyRows(entries []metrics.HistoryEntry) [][]string {
	rows := [][]string{{"Run", "Platform", "Rules", "Iterations", "Converged", "Solve", "Total"}}
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		rows = append(rows, []string{
			e.RunID,
			e.Platform,
			fmt.Sprintf("%d", e.Rules),
			fmt.Sprintf("%d", e.Iterations),
			fmt.Sprintf("%t", e.Converged),
			fmt.Sprintf("%dms", e.SolveMs),
			fmt.Sprintf("%dms", e.DurationMs),
		})
	}
	return rows
}
