package report

import (
	"strings"

	godiff "github.com/sergi/go-diff/diffmatchpatch"
)

// Diff is a line-level comparison of two rule renderings.
type Diff struct {
	Added     []string
	Removed   []string
	Unchanged int
	diffs     []godiff.Diff
}

// DiffLines compares two renderings line by line.
func DiffLines(prev, next []string) *Diff {
	dmp := godiff.New()
	a, b, lines := dmp.DiffLinesToChars(joinLines(prev), joinLines(next))
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	d := &Diff{diffs: diffs}
	for _, df := range diffs {
		for _, line := range splitLines(df.Text) {
			switch df.Type {
			case godiff.DiffInsert:
				d.Added = append(d.Added, line)
			case godiff.DiffDelete:
				d.Removed = append(d.Removed, line)
			default:
				d.Unchanged++
			}
		}
	}
	return d
}

// Empty reports whether the renderings are identical.
func (d *Diff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0
}

// String renders changed lines prefixed with "+" or "-", in file order.
func (d *Diff) String() string {
	var b strings.Builder
	for _, df := range d.diffs {
		var prefix string
		switch df.Type {
		case godiff.DiffInsert:
			prefix = "+ "
		case godiff.DiffDelete:
			prefix = "- "
		default:
			continue
		}
		for _, line := range splitLines(df.Text) {
			b.WriteString(prefix)
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func joinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

func splitLines(text string) []string {
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}
