// rulesmith CLI - autocorrect rule solver.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/pflag"

	"rulesmith/internal/builder"
	"rulesmith/internal/config"
	"rulesmith/internal/ingest"
	"rulesmith/internal/logger"
	"rulesmith/internal/platform"
	"rulesmith/internal/ui"
)

func main() {
	// Flags
	configPath := pflag.StringP("config", "C", "", "Path to rulesmith.toml (default: search cwd and parents)")
	name := pflag.String("name", "rulesmith", "Name recorded in rules.json")
	platformName := pflag.StringP("platform", "P", "", "Target platform: espanso, qmk or generic")
	format := pflag.String("format", "", "Output format: espanso, qmk or json (default: platform's own)")
	outputDir := pflag.StringP("output-dir", "o", "", "Output directory")
	cacheDir := pflag.StringP("cache-dir", "c", "", "Cache directory for downloaded sources")
	languages := pflag.StringP("languages", "l", "", "Comma-separated Hunspell language codes ("+strings.Join(ingest.GetSupportedLanguages(), ", ")+")")
	words := pflag.StringSlice("words", nil, "Word list files to generate typos for")
	validation := pflag.StringSlice("validation", nil, "Word list files typos must not fire inside")
	frequencies := pflag.String("frequencies", "", "Word frequency file")
	candidates := pflag.String("candidates", "", "Candidate file with \"typo -> word\" lines")
	noGenerate := pflag.Bool("no-generate", false, "Only use the candidate file, do not generate typos")
	noKeyboard := pflag.Bool("no-keyboard", false, "Skip keyboard-adjacency typos")
	blocklist := pflag.Bool("blocklist", false, "Exclude corrections to profanity")
	force := pflag.BoolP("force", "f", false, "Force re-download of dictionaries")
	exclude := pflag.StringArray("exclude", nil, "Exclusion rule, repeatable (\"typo -> word\", wildcards allowed)")
	priority := pflag.StringSlice("priority", nil, "Words that always win collisions")
	priorityFile := pflag.String("priority-file", "", "File of priority words")
	redisAddr := pflag.String("redis", "", "Redis address holding the priority word set")
	threshold := pflag.Float64("threshold", 0, "Collision frequency ratio a winner must exceed")
	minTypo := pflag.Int("min-typo-length", 0, "Minimum typo length")
	maxIterations := pflag.Int("max-iterations", 0, "Iteration cap")
	maxRules := pflag.Int("max-rules", 0, "Keep only the best N rules")
	debugWords := pflag.StringSlice("debug-words", nil, "Trace every change to these words")
	debugTypos := pflag.StringSlice("debug-typos", nil, "Trace every change to these typos (':' markers allowed)")
	noSnapshot := pflag.Bool("no-snapshot", false, "Do not write state.msgpack")
	writeMetrics := pflag.Bool("metrics", true, "Write metrics to output directory")
	quiet := pflag.BoolP("quiet", "q", false, "Suppress progress output")
	verbose := pflag.BoolP("verbose", "v", false, "Verbose logging")
	benchmark := pflag.Bool("benchmark", false, "Run in benchmark mode (JSON output only)")

	// Parallel processing flags
	workers := pflag.IntP("workers", "w", 0, "Number of parallel workers (0 = auto)")

	pflag.Parse()

	logger.SetVerbose(*verbose)
	term := ui.New(*quiet || *benchmark, *verbose)

	cfg, err := config.Load(*configPath)
	if err != nil {
		term.Error(err.Error())
		os.Exit(1)
	}

	// Flags override the config file only when given.
	set := pflag.CommandLine.Changed
	if set("platform") {
		cfg.Platform.Name = *platformName
	}
	if set("format") {
		cfg.Output.Format = *format
	}
	if set("output-dir") {
		cfg.Output.Dir = *outputDir
	}
	if set("cache-dir") {
		cfg.Inputs.CacheDir = *cacheDir
	}
	if set("languages") {
		cfg.Inputs.Languages = splitList(*languages)
	}
	if set("words") {
		cfg.Inputs.Words = *words
	}
	if set("validation") {
		cfg.Inputs.Validation = *validation
	}
	if set("frequencies") {
		cfg.Inputs.Frequencies = *frequencies
	}
	if set("candidates") {
		cfg.Inputs.Candidates = *candidates
	}
	if *noGenerate {
		cfg.Inputs.Generate = false
	}
	if *noKeyboard {
		cfg.Inputs.Keyboard = false
	}
	if *blocklist {
		cfg.Inputs.Blocklist = true
	}
	if *force {
		cfg.Inputs.Force = true
	}
	cfg.Exclusions = append(cfg.Exclusions, *exclude...)
	cfg.Priority.Words = append(cfg.Priority.Words, *priority...)
	if set("priority-file") {
		cfg.Priority.File = *priorityFile
	}
	if set("redis") {
		cfg.Priority.RedisAddr = *redisAddr
	}
	if set("threshold") {
		cfg.Solver.CollisionThreshold = *threshold
	}
	if set("min-typo-length") {
		cfg.Solver.MinTypoLength = *minTypo
	}
	if set("max-iterations") {
		cfg.Solver.MaxIterations = *maxIterations
	}
	if set("max-rules") {
		cfg.Platform.MaxRules = *maxRules
	}
	if set("workers") {
		cfg.Solver.Workers = *workers
	}
	cfg.Debug.Words = append(cfg.Debug.Words, *debugWords...)
	cfg.Debug.Typos = append(cfg.Debug.Typos, *debugTypos...)
	if *noSnapshot {
		cfg.Output.Snapshot = false
	}
	if set("metrics") {
		cfg.Output.Metrics = *writeMetrics
	}

	if err := cfg.Validate(); err != nil {
		term.Error(err.Error())
		os.Exit(1)
	}

	desc, err := platform.FromConfig(cfg.Platform)
	if err != nil {
		term.Error(err.Error())
		os.Exit(1)
	}
	outFormat := builder.FormatFor(desc.Name)
	if cfg.Output.Format != "" {
		if outFormat, err = builder.ParseFormat(cfg.Output.Format); err != nil {
			term.Error(err.Error())
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	p := &pipeline{
		cfg:       cfg,
		name:      *name,
		platform:  desc,
		format:    outFormat,
		workers:   config.ResolveWorkers(cfg.Solver.Workers),
		term:      term,
		benchmark: *benchmark,
	}

	if !*benchmark {
		term.Banner()
		source := "built-in defaults"
		if cfg.Path != "" {
			source = cfg.Path
		}
		term.Config([][]string{
			{"Config", source},
			{"Platform", fmt.Sprintf("%s (%s)", desc.Name, desc.Direction)},
			{"Languages", strings.Join(cfg.Inputs.Languages, ", ")},
			{"Output", fmt.Sprintf("%s (%s)", cfg.Output.Dir, outFormat)},
			{"Threshold", fmt.Sprintf("%g", cfg.Solver.CollisionThreshold)},
			{"Workers", fmt.Sprintf("%d", p.workers)},
		})
	}

	if err := p.run(ctx); err != nil {
		term.Error(err.Error())
		os.Exit(1)
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
