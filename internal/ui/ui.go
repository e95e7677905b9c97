// Package ui provides terminal UI components using pterm.
package ui

import (
	"fmt"
	"sort"
	"time"

	"github.com/pterm/pterm"
)

// Theme colors for consistent styling
var (
	ColorPrimary   = pterm.FgCyan
	ColorSecondary = pterm.FgLightBlue
	ColorSuccess   = pterm.FgGreen
	ColorWarning   = pterm.FgYellow
	ColorError     = pterm.FgRed
	ColorMuted     = pterm.FgGray
)

// UI wraps pterm components for rulesmith.
type UI struct {
	quiet   bool
	verbose bool
}

// New creates a new UI instance.
func New(quiet, verbose bool) *UI {
	if quiet {
		pterm.DisableOutput()
	}
	return &UI{quiet: quiet, verbose: verbose}
}

// Banner prints the application banner.
func (u *UI) Banner() {
	pterm.DefaultBigText.WithLetters(
		pterm.NewLettersFromStringWithStyle("rule", pterm.NewStyle(ColorPrimary)),
		pterm.NewLettersFromStringWithStyle("smith", pterm.NewStyle(ColorSecondary)),
	).Render()

	pterm.DefaultCenter.Println(
		ColorMuted.Sprint("Autocorrect Rule Solver"),
	)
	fmt.Println()
}

// Config prints the configuration summary. Rows are label/value pairs.
func (u *UI) Config(rows [][]string) {
	pterm.DefaultSection.Println("Configuration")
	pterm.DefaultTable.WithData(rows).Render()
	fmt.Println()
}

// Phase prints a phase header.
func (u *UI) Phase(number int, total int, name string) {
	pterm.DefaultSection.WithLevel(2).Println(
		fmt.Sprintf("[%d/%d] %s", number, total, name),
	)
}

// Spinner creates a spinner for long operations.
func (u *UI) Spinner(message string) *pterm.SpinnerPrinter {
	spinner, _ := pterm.DefaultSpinner.
		WithRemoveWhenDone(true).
		Start(message)
	return spinner
}

// SourceStatus prints status for one input source, such as a language dictionary.
func (u *UI) SourceStatus(source string, status string, details string) {
	prefix := ColorPrimary.Sprintf("[%s]", source)
	switch status {
	case "ok":
		pterm.Success.Println(prefix, details)
	case "skip":
		pterm.Warning.Println(prefix, details)
	case "error":
		pterm.Error.Println(prefix, details)
	case "info":
		pterm.Info.Println(prefix, details)
	default:
		fmt.Printf("%s %s\n", prefix, details)
	}
}

// Stats prints key/value statistics in a table, sorted by key.
func (u *UI) Stats(title string, stats map[string]interface{}) {
	pterm.DefaultSection.WithLevel(2).Println(title)

	keys := make([]string, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var data [][]string
	for _, k := range keys {
		data = append(data, []string{k, fmt.Sprintf("%v", stats[k])})
	}

	pterm.DefaultTable.WithData(data).Render()
	fmt.Println()
}

// Table prints rows with the first row as header. A table with only a
// header is skipped.
func (u *UI) Table(title string, rows [][]string) {
	if len(rows) < 2 {
		return
	}
	pterm.DefaultSection.WithLevel(2).Println(title)
	pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
	fmt.Println()
}

// Diff prints added and removed rule lines.
func (u *UI) Diff(added, removed []string, limit int) {
	pterm.DefaultSection.WithLevel(2).Println(
		fmt.Sprintf("Changes since last run (%s %s)",
			ColorSuccess.Sprintf("+%d", len(added)),
			ColorError.Sprintf("-%d", len(removed))),
	)
	show := func(lines []string, prefix string, color pterm.Color) {
		for i, line := range lines {
			if limit > 0 && i == limit {
				fmt.Println(ColorMuted.Sprintf("  ... %d more", len(lines)-limit))
				return
			}
			fmt.Println(color.Sprint(prefix + line))
		}
	}
	show(removed, "- ", ColorError)
	show(added, "+ ", ColorSuccess)
	fmt.Println()
}

// Summary is what FinalReport shows.
type Summary struct {
	Rules        int
	Patterns     int
	Rejected     int
	Dropped      int
	FilesWritten int
	Iterations   int
	Converged    bool
	Duration     time.Duration
}

// FinalReport prints the final summary report.
func (u *UI) FinalReport(s Summary) {
	pterm.DefaultSection.Println("Summary")

	converged := ColorSuccess.Sprint("yes")
	if !s.Converged {
		converged = ColorWarning.Sprint("no (iteration cap reached)")
	}

	panel := pterm.DefaultBox.WithTitle("Results").Sprint(
		fmt.Sprintf(
			"  Rules:          %s (%s patterns)\n"+
				"  Rejected:       %s\n"+
				"  Over limit:     %s\n"+
				"  Iterations:     %s\n"+
				"  Converged:      %s\n"+
				"  Files Written:  %s\n"+
				"  Duration:       %s",
			ColorSuccess.Sprintf("%d", s.Rules),
			ColorPrimary.Sprintf("%d", s.Patterns),
			ColorWarning.Sprintf("%d", s.Rejected),
			ColorWarning.Sprintf("%d", s.Dropped),
			ColorPrimary.Sprintf("%d", s.Iterations),
			converged,
			ColorPrimary.Sprintf("%d", s.FilesWritten),
			pterm.FgYellow.Sprint(s.Duration.Round(time.Millisecond)),
		),
	)
	fmt.Println(panel)
}

// Success prints a success message.
func (u *UI) Success(message string) {
	pterm.Success.Println(message)
}

// Error prints an error message.
func (u *UI) Error(message string) {
	pterm.Error.Println(message)
}

// Warning prints a warning message.
func (u *UI) Warning(message string) {
	pterm.Warning.Println(message)
}

// Info prints an info message.
func (u *UI) Info(message string) {
	pterm.Info.Println(message)
}

// Debug prints a debug message (only in verbose mode).
func (u *UI) Debug(message string) {
	if u.verbose {
		pterm.Debug.Println(message)
	}
}

// Done prints the completion message.
func (u *UI) Done() {
	fmt.Println()
	pterm.DefaultCenter.Println(
		ColorSuccess.Sprint("✓ Done!"),
	)
}
