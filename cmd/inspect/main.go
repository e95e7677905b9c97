// rulesmith-inspect - explain what a solver run did with a typo.
// Usage: rulesmith-inspect [options] <typo>...
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/pterm/pterm"
	"github.com/spf13/pflag"

	"rulesmith/internal/similarity"
	"rulesmith/internal/snapshot"
)

func main() {
	// Flags
	snapPath := pflag.StringP("snapshot", "s", filepath.Join("output", snapshot.FileName), "Path to state.msgpack")
	suggest := pflag.IntP("suggest", "n", 5, "Suggestions to show for unknown typos")
	distance := pflag.IntP("distance", "d", 2, "Maximum edit distance for suggestions")
	jsonOutput := pflag.BoolP("json", "j", false, "Output as JSON")

	pflag.Parse()

	if pflag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: rulesmith-inspect [options] <typo>...")
		fmt.Fprintln(os.Stderr, "\nOptions:")
		pflag.PrintDefaults()
		os.Exit(1)
	}

	snap, err := snapshot.Load(*snapPath)
	if err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}

	var tree *similarity.BKTree
	var typos []string

	var out []result
	for _, typo := range pflag.Args() {
		typo = strings.ToLower(typo)
		r := result{Explanation: snap.Explain(typo)}
		r.Status = r.Explanation.Status()
		if r.Status == snapshot.StatusUnknown && *suggest > 0 {
			if tree == nil {
				typos = snap.Typos()
				tree = similarity.Build(typos)
			}
			r.Suggestions = suggestions(tree, typos, typo, *distance, *suggest)
		}
		out = append(out, r)
	}

	if *jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			pterm.Error.Println(err)
			os.Exit(1)
		}
		return
	}

	pterm.Info.Printf("%s (%s, %d iterations, converged: %v)\n",
		snap.Name, snap.Platform, snap.Iterations, snap.Converged)
	for _, r := range out {
		render(r)
	}
}

type result struct {
	*snapshot.Explanation
	Status      snapshot.Status `json:"status"`
	Suggestions []string        `json:"suggestions,omitempty"`
}

// suggestions returns close typos by edit distance, then fills up with
// fuzzy subsequence matches.
func suggestions(tree *similarity.BKTree, typos []string, typo string, distance, limit int) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range tree.Nearest(typo, distance, limit) {
		seen[r.Word] = true
		out = append(out, r.Word)
	}
	if len(out) >= limit {
		return out
	}

	ranks := fuzzy.RankFindFold(typo, typos)
	sort.Sort(ranks)
	for _, r := range ranks {
		if len(out) >= limit {
			break
		}
		if !seen[r.Target] && r.Target != typo {
			seen[r.Target] = true
			out = append(out, r.Target)
		}
	}
	return out
}

func render(r result) {
	e := r.Explanation
	pterm.DefaultSection.Println(fmt.Sprintf("%s: %s", e.Typo, r.Status))

	if len(e.Active) > 0 {
		rows := [][]string{{"Typo", "Word", "Boundary"}}
		for _, c := range e.Active {
			rows = append(rows, []string{c.Typo, c.Word, c.Boundary.String()})
		}
		table("Active rules", rows)
	}

	if len(e.CoveredBy) > 0 {
		rows := [][]string{{"Pattern", "Word", "Boundary", "Replaces"}}
		for _, p := range e.CoveredBy {
			rows = append(rows, []string{p.Typo, p.Word, p.Boundary.String(), fmt.Sprintf("%d", len(p.Replacements))})
		}
		table("Covered by", rows)
	}

	if len(e.Buried) > 0 {
		rows := [][]string{{"Word", "Boundary", "Reason", "Blocker", "Pass", "Iteration"}}
		for _, g := range e.Buried {
			blocker := ""
			if g.Rejection.Blocker != nil {
				blocker = g.Rejection.Blocker.String()
			}
			if g.Rejection.Detail != "" {
				blocker = strings.TrimSpace(blocker + " " + g.Rejection.Detail)
			}
			rows = append(rows, []string{
				g.Word, g.Boundary.String(), string(g.Rejection.Reason), blocker,
				g.Rejection.Pass, fmt.Sprintf("%d", g.Rejection.Iteration),
			})
		}
		table("Rejected", rows)
	}

	if len(e.Skips) > 0 {
		rows := [][]string{{"Reason", "Detail", "Iteration"}}
		for _, s := range e.Skips {
			rows = append(rows, []string{string(s.Reason), s.Detail, fmt.Sprintf("%d", s.Iteration)})
		}
		table("Skipped", rows)
	}

	if len(e.Trace) > 0 {
		rows := [][]string{{"Iteration", "Pass", "Action", "Rule", "Detail"}}
		for _, t := range e.Trace {
			rows = append(rows, []string{
				fmt.Sprintf("%d", t.Iteration), t.Pass, t.Action, t.Correction.String(), t.Detail,
			})
		}
		table("Trace", rows)
	}

	if r.Status == snapshot.StatusUnknown {
		if len(r.Suggestions) == 0 {
			pterm.Warning.Println("not seen in this run")
			return
		}
		pterm.Warning.Println("not seen in this run, did you mean: " + strings.Join(r.Suggestions, ", "))
	}
}

func table(title string, rows [][]string) {
	pterm.DefaultSection.WithLevel(2).Println(title)
	pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
}
