// rulesmith-rulediff - compare two rule outputs.
// Usage: rulesmith-rulediff [options] <old> <new>
//
// Either side may be an espanso match directory or file, a QMK
// autocorrect.txt, or a rules.json.
package main

import (
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/pflag"

	"rulesmith/internal/builder"
	"rulesmith/internal/report"
)

func main() {
	output := pflag.StringP("output", "o", "", "Write the diff to this file instead of stdout")
	stat := pflag.Bool("stat", false, "Only print counts")
	exitCode := pflag.Bool("exit-code", false, "Exit with status 1 when the outputs differ")
	pflag.Parse()

	if pflag.NArg() != 2 {
		fmt.Fprintln(os.Stderr, "Usage: rulesmith-rulediff [options] <old> <new>")
		pflag.PrintDefaults()
		os.Exit(2)
	}

	prev, err := lines(pflag.Arg(0))
	if err != nil {
		pterm.Error.Println(err)
		os.Exit(2)
	}
	next, err := lines(pflag.Arg(1))
	if err != nil {
		pterm.Error.Println(err)
		os.Exit(2)
	}

	diff := report.DiffLines(prev, next)

	switch {
	case *stat:
		fmt.Printf("%d added, %d removed, %d unchanged\n", len(diff.Added), len(diff.Removed), diff.Unchanged)
	case *output != "":
		if err := os.WriteFile(*output, []byte(diff.String()), 0644); err != nil {
			pterm.Error.Println(err)
			os.Exit(2)
		}
		pterm.Success.Printf("Wrote %s (+%d -%d)\n", *output, len(diff.Added), len(diff.Removed))
	default:
		fmt.Print(diff.String())
	}

	if *exitCode && !diff.Empty() {
		os.Exit(1)
	}
}

// lines loads rules from path and renders them in autocorrect.txt order so
// both sides compare the same way regardless of format.
func lines(path string) ([]string, error) {
	rules, err := builder.ReadRules(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	b := builder.NewRuleBuilder("")
	b.AddRules(rules...)
	return b.Lines(), nil
}
