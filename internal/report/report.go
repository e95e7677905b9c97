// Package report summarizes a solver run: why triples were rejected, how the
// state evolved per iteration, and what changed since the previous run.
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pterm/pterm"

	"rulesmith/internal/schema"
)

// FileName is the report written next to the rule output.
const FileName = "report.txt"

// ReasonCount is the number of graveyard entries for a reason, optionally
// narrowed to one pass.
type ReasonCount struct {
	Reason schema.RejectionReason
	Pass   string
	Count  int
}

// GraveyardSummary counts graveyard entries per (reason, pass), largest first.
func GraveyardSummary(entries []schema.GraveyardEntry) []ReasonCount {
	return tally(entries, func(e schema.GraveyardEntry) string { return e.Rejection.Pass })
}

// ReasonTotals counts graveyard entries per reason, largest first.
func ReasonTotals(entries []schema.GraveyardEntry) []ReasonCount {
	return tally(entries, func(schema.GraveyardEntry) string { return "" })
}

func tally(entries []schema.GraveyardEntry, pass func(schema.GraveyardEntry) string) []ReasonCount {
	type key struct {
		reason schema.RejectionReason
		pass   string
	}
	counts := make(map[key]int)
	for _, e := range entries {
		counts[key{e.Rejection.Reason, pass(e)}]++
	}

	out := make([]ReasonCount, 0, len(counts))
	for k, n := range counts {
		out = append(out, ReasonCount{Reason: k.reason, Pass: k.pass, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		if a.Reason != b.Reason {
			return a.Reason < b.Reason
		}
		return a.Pass < b.Pass
	})
	return out
}

// HistoryRows renders the iteration history as table rows, header first.
// Deltas are relative to the previous iteration.
func HistoryRows(history []schema.IterationCounts) [][]string {
	rows := [][]string{{"Iteration", "Corrections", "Patterns", "Graveyard", "Δ Corrections", "Δ Patterns", "Δ Graveyard"}}
	var prev schema.IterationCounts
	for _, h := range history {
		rows = append(rows, []string{
			strconv.Itoa(h.Iteration),
			strconv.Itoa(h.Corrections),
			strconv.Itoa(h.Patterns),
			strconv.Itoa(h.Graveyard),
			signed(h.Corrections - prev.Corrections),
			signed(h.Patterns - prev.Patterns),
			signed(h.Graveyard - prev.Graveyard),
		})
		prev = h
	}
	return rows
}

// GraveyardRows renders a graveyard summary as table rows, header first.
func GraveyardRows(summary []ReasonCount) [][]string {
	rows := [][]string{{"Reason", "Pass", "Count"}}
	for _, rc := range summary {
		rows = append(rows, []string{string(rc.Reason), rc.Pass, strconv.Itoa(rc.Count)})
	}
	return rows
}

func signed(n int) string {
	return fmt.Sprintf("%+d", n)
}

// Write renders the plain-text report for rs. diff may be nil when there is
// no previous run.
func Write(w io.Writer, rs *schema.RuleSet, diff *Diff) error {
	status := "converged"
	if !rs.Converged {
		status = "did not converge"
	}
	fmt.Fprintf(w, "%s (%s)\n", rs.Name, rs.Platform)
	fmt.Fprintf(w, "generated %s, %s after %d iterations\n", rs.GeneratedAt, status, rs.Iterations)
	fmt.Fprintf(w, "%d corrections, %d patterns, %d rejected\n\n", len(rs.Corrections), len(rs.Patterns), len(rs.Graveyard))

	sections := []struct {
		title string
		rows  [][]string
	}{
		{"Iterations", HistoryRows(rs.History)},
		{"Rejections", GraveyardRows(GraveyardSummary(rs.Graveyard))},
	}
	for _, s := range sections {
		fmt.Fprintf(w, "## %s\n", s.title)
		if len(s.rows) > 1 {
			table, err := pterm.DefaultTable.WithHasHeader().WithData(s.rows).Srender()
			if err != nil {
				return err
			}
			fmt.Fprintln(w, pterm.RemoveColorFromString(table))
		}
		fmt.Fprintln(w)
	}

	if diff != nil {
		fmt.Fprintf(w, "## Changes since last run (+%d -%d)\n", len(diff.Added), len(diff.Removed))
		if _, err := io.WriteString(w, diff.String()); err != nil {
			return err
		}
	}
	return nil
}

// WriteFile writes the report to path.
func WriteFile(path string, rs *schema.RuleSet, diff *Diff) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	var b strings.Builder
	if err := Write(&b, rs, diff); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	return os.WriteFile(path, []byte(b.String()), 0644)
}
