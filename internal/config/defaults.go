// Package config loads rulesmith.toml and provides defaults for every setting.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"
)

// FileName is the config file searched for by Load.
const FileName = "rulesmith.toml"

// MaxWorkers is the cap for parallel workers
const MaxWorkers = 8

// Config represents the structure of rulesmith.toml
type Config struct {
	Solver     Solver   `toml:"solver"`
	Platform   Platform `toml:"platform"`
	Inputs     Inputs   `toml:"inputs"`
	Output     Output   `toml:"output"`
	Debug      Debug    `toml:"debug"`
	Priority   Priority `toml:"priority"`
	Exclusions []string `toml:"exclusions"`

	// Path is the file the config was read from, empty for fallback defaults.
	Path string `toml:"-"`
}

// Solver holds the tunables of the iterative solver.
type Solver struct {
	CollisionThreshold float64 `toml:"collision_threshold"`
	MinTypoLength      int     `toml:"min_typo_length"`
	MinWordLength      int     `toml:"min_word_length"`
	MinPatternLength   int     `toml:"min_pattern_length"`
	MaxIterations      int     `toml:"max_iterations"`
	Workers            int     `toml:"workers"`
}

// Platform selects a target platform preset and optionally overrides its limits.
// Zero values and nil pointers keep the preset's value.
type Platform struct {
	Name            string `toml:"name"`
	AllowedChars    string `toml:"allowed_chars"`
	MaxRules        int    `toml:"max_rules"`
	MatchDirection  string `toml:"match_direction"`
	BoundaryMarkers *bool  `toml:"boundary_markers"`
	InlineMarkers   *bool  `toml:"inline_markers"`
	MinTypoLength   int    `toml:"min_typo_length"`
	MaxTypoLength   int    `toml:"max_typo_length"`
	MaxWordLength   int    `toml:"max_word_length"`
}

// Inputs lists the files and sources the pipeline reads.
type Inputs struct {
	Words       []string `toml:"words"`
	Languages   []string `toml:"languages"`
	Validation  []string `toml:"validation"`
	Frequencies string   `toml:"frequencies"`
	Candidates  string   `toml:"candidates"`
	Generate    bool     `toml:"generate"`
	Keyboard    bool     `toml:"keyboard"`
	Blocklist   bool     `toml:"blocklist"`
	CacheDir    string   `toml:"cache_dir"`
	Force       bool     `toml:"force"`
}

// Output controls where results are written.
type Output struct {
	Dir      string `toml:"dir"`
	Format   string `toml:"format"`
	Snapshot bool   `toml:"snapshot"`
	Metrics  bool   `toml:"metrics"`
}

// Debug names words and typos whose every state change is traced.
type Debug struct {
	Words []string `toml:"words"`
	Typos []string `toml:"typos"`
}

// Priority lists words that always win collisions and rank first.
type Priority struct {
	Words     []string `toml:"words"`
	File      string   `toml:"file"`
	RedisAddr string   `toml:"redis_addr"`
	RedisKey  string   `toml:"redis_key"`
	RedisDB   int      `toml:"redis_db"`
}

// Hardcoded fallback defaults (used if rulesmith.toml not found)
var fallbackSolver = Solver{
	CollisionThreshold: 2.0,
	MinTypoLength:      4,
	MinWordLength:      3,
	MinPatternLength:   3,
	MaxIterations:      20,
	Workers:            0,
}

// Default returns a config populated with fallback defaults.
func Default() *Config {
	return &Config{
		Solver:   fallbackSolver,
		Platform: Platform{Name: "espanso"},
		Inputs: Inputs{
			Languages: []string{"en"},
			Generate:  true,
			Keyboard:  true,
			CacheDir:  "sources",
		},
		Output: Output{
			Dir:      "output",
			Snapshot: true,
			Metrics:  true,
		},
		Priority: Priority{
			RedisKey: "rulesmith:priority",
		},
	}
}

// searchPaths lists candidate config locations: cwd and its parents,
// then the executable's directory and its parents.
func searchPaths() []string {
	paths := []string{
		FileName,
		filepath.Join("..", FileName),
		filepath.Join("..", "..", FileName),
	}
	if exe, err := os.Executable(); err == nil {
		dir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(dir, FileName),
			filepath.Join(dir, "..", FileName),
			filepath.Join(dir, "..", "..", FileName),
		)
	}
	return paths
}

// Load reads the config at path, or searches the default locations when path
// is empty. File values are merged over the fallback defaults. A missing file
// in the search case is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		cfg.Path = path
		return cfg, nil
	}

	for _, p := range searchPaths() {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if _, err := toml.DecodeFile(p, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", p, err)
		}
		cfg.Path = p
		return cfg, nil
	}
	return cfg, nil
}

// Decode parses TOML text merged over the fallback defaults.
func Decode(data string) (*Config, error) {
	cfg := Default()
	if _, err := toml.Decode(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// ResolveWorkers maps 0 (auto) to the CPU count, capped at MaxWorkers.
func ResolveWorkers(n int) int {
	if n > 0 {
		return n
	}
	n = runtime.NumCPU()
	if n > MaxWorkers {
		n = MaxWorkers
	}
	return n
}
