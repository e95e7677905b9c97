// Benchmark runner for rulesmith.
// Run with: go run runner.go [options]
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

type Config struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Workers int    `json:"workers"`
}

type Group struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Platform    string   `json:"platform"`
	Languages   []string `json:"languages"`
	Words       []string `json:"words,omitempty"`
	Configs     []Config `json:"configs"`
}

type ConfigFile struct {
	Groups []Group `json:"groups"`
}

type BenchmarkResult struct {
	ConfigID   string  `json:"config_id"`
	Group      string  `json:"group"`
	Platform   string  `json:"platform"`
	Languages  string  `json:"languages"`
	DurationMs int64   `json:"duration_ms"`
	Throughput float64 `json:"throughput"`
	Typos      int     `json:"typos"`
	Rules      int     `json:"rules"`
	Iterations int     `json:"iterations"`
	Converged  bool    `json:"converged"`
	Workers    int     `json:"workers"`
}

func main() {
	configPath := pflag.String("config", "configs.json", "Path to benchmark configs")
	outputDir := pflag.String("output", "results", "Output directory for results")
	group := pflag.String("group", "", "Run only this group (empty = all)")
	iterations := pflag.Int("iterations", 1, "Number of iterations per config")
	force := pflag.Bool("force", false, "Force re-download dictionaries")
	pflag.Parse()

	data, err := os.ReadFile(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading config: %v\n", err)
		os.Exit(1)
	}

	var cfg ConfigFile
	if err := json.Unmarshal(data, &cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing config: %v\n", err)
		os.Exit(1)
	}

	binary := findRulesmith()
	if binary == "" {
		fmt.Fprintln(os.Stderr, "Error: rulesmith binary not found. Build with 'go build -o rulesmith ./cmd' first.")
		os.Exit(1)
	}

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output dir: %v\n", err)
		os.Exit(1)
	}

	var results []BenchmarkResult
	total := countConfigs(cfg.Groups, *group)
	current := 0

	for _, g := range cfg.Groups {
		if *group != "" && g.Name != *group {
			continue
		}

		fmt.Printf("\n=== Group: %s (%s) ===\n", g.Name, g.Description)
		fmt.Printf("Platform: %s, Languages: %s\n", g.Platform, strings.Join(g.Languages, ", "))

		for _, c := range g.Configs {
			current++
			fmt.Printf("\n[%d/%d] Running: %s\n", current, total, c.Name)

			var durations []int64
			var lastResult BenchmarkResult

			for i := 0; i < *iterations; i++ {
				if *iterations > 1 {
					fmt.Printf("  Iteration %d/%d...", i+1, *iterations)
				}

				runDir := filepath.Join(*outputDir, "runs", c.ID)
				result, err := runBenchmark(binary, runDir, g, c, *force && i == 0)
				if err != nil {
					fmt.Printf(" ERROR: %v\n", err)
					continue
				}

				durations = append(durations, result.DurationMs)
				lastResult = result

				if *iterations > 1 {
					fmt.Printf(" %dms\n", result.DurationMs)
				} else {
					fmt.Printf("  Duration: %dms, Typos: %d, Rules: %d, Iterations: %d\n",
						result.DurationMs, result.Typos, result.Rules, result.Iterations)
				}
			}

			if len(durations) > 0 {
				if *iterations > 1 {
					var sum int64
					for _, d := range durations {
						sum += d
					}
					lastResult.DurationMs = sum / int64(len(durations))
					fmt.Printf("  Average: %dms\n", lastResult.DurationMs)
				}
				results = append(results, lastResult)
			}
		}
	}

	resultsFile := filepath.Join(*outputDir, fmt.Sprintf("benchmark_%s.json",
		time.Now().Format("2006-01-02_15-04-05")))

	output := map[string]interface{}{
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"iterations": *iterations,
		"results":    results,
	}

	data, _ = json.MarshalIndent(output, "", "  ")
	if err := os.WriteFile(resultsFile, data, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing results: %v\n", err)
	} else {
		fmt.Printf("\nResults written to: %s\n", resultsFile)
	}

	printSummary(results)
}

func findRulesmith() string {
	candidates := []string{
		"../rulesmith",
		"../rulesmith.exe",
		"rulesmith",
		"rulesmith.exe",
	}

	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}

	path, err := exec.LookPath("rulesmith")
	if err == nil {
		return path
	}

	return ""
}

func countConfigs(groups []Group, filter string) int {
	count := 0
	for _, g := range groups {
		if filter != "" && g.Name != filter {
			continue
		}
		count += len(g.Configs)
	}
	return count
}

func runBenchmark(binary, runDir string, g Group, c Config, force bool) (BenchmarkResult, error) {
	args := []string{
		"--benchmark",
		"--output-dir", runDir,
		"--platform", g.Platform,
		"--languages", strings.Join(g.Languages, ","),
		"--workers", fmt.Sprintf("%d", c.Workers),
	}
	if len(g.Words) > 0 {
		args = append(args, "--words", strings.Join(g.Words, ","))
	}
	if force {
		args = append(args, "--force")
	}

	cmd := exec.Command(binary, args...)
	output, err := cmd.Output()
	if err != nil {
		return BenchmarkResult{}, fmt.Errorf("command failed: %w", err)
	}

	var result struct {
		RunID      string  `json:"run_id"`
		DurationMs int64   `json:"duration_ms"`
		Throughput float64 `json:"throughput"`
		Typos      int     `json:"typos"`
		Rules      int     `json:"rules"`
		Iterations int     `json:"iterations"`
		Converged  bool    `json:"converged"`
		Platform   string  `json:"platform"`
		Workers    int     `json:"workers"`
	}

	if err := json.Unmarshal(output, &result); err != nil {
		return BenchmarkResult{}, fmt.Errorf("failed to parse output: %w (output: %s)", err, string(output))
	}

	return BenchmarkResult{
		ConfigID:   c.ID,
		Group:      g.Name,
		Platform:   result.Platform,
		Languages:  strings.Join(g.Languages, ","),
		DurationMs: result.DurationMs,
		Throughput: result.Throughput,
		Typos:      result.Typos,
		Rules:      result.Rules,
		Iterations: result.Iterations,
		Converged:  result.Converged,
		Workers:    result.Workers,
	}, nil
}

func printSummary(results []BenchmarkResult) {
	if len(results) == 0 {
		return
	}

	fmt.Println("\n" + strings.Repeat("=", 70))
	fmt.Println("BENCHMARK SUMMARY")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("%-30s %10s %10s %8s\n", "Config", "Duration", "Rules", "Speedup")
	fmt.Println(strings.Repeat("-", 70))

	groups := make(map[string][]BenchmarkResult)
	var order []string
	for _, r := range results {
		if _, ok := groups[r.Group]; !ok {
			order = append(order, r.Group)
		}
		groups[r.Group] = append(groups[r.Group], r)
	}

	for _, groupName := range order {
		groupResults := groups[groupName]
		fmt.Printf("\n[%s]\n", groupName)

		// Baseline is the single-worker run.
		var baseline int64
		for _, r := range groupResults {
			if r.Workers == 1 {
				baseline = r.DurationMs
				break
			}
		}

		for _, r := range groupResults {
			speedup := "-"
			if baseline > 0 && r.DurationMs > 0 {
				speedup = fmt.Sprintf("%.2fx", float64(baseline)/float64(r.DurationMs))
			}

			name := r.ConfigID
			if len(name) > 30 {
				name = name[:27] + "..."
			}

			fmt.Printf("%-30s %8dms %10d %8s\n", name, r.DurationMs, r.Rules, speedup)
		}
	}

	fmt.Println(strings.Repeat("=", 70))
}
