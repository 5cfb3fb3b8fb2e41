package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
)

const maxFileWidth = 64

// TextWriter prints an aligned per-file table.
type TextWriter struct{}

func (w *TextWriter) Extension() string { return "txt" }

func (w *TextWriter) Write(out io.Writer, doc *Document) error {
	width := runewidth.StringWidth("FILE")
	for _, f := range doc.Summary.Files {
		width = max(width, runewidth.StringWidth(truncate(f.File, maxFileWidth)))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s)\n", doc.Name, doc.Format)
	row := func(file, regions, statements, covered, percent string) {
		fmt.Fprintf(&b, "%s  %8s  %10s  %10s  %7s\n",
			runewidth.FillRight(truncate(file, maxFileWidth), width),
			regions, statements, covered, percent)
	}
	row("FILE", "REGIONS", "STATEMENTS", "COVERED", "PERCENT")
	for _, f := range doc.Summary.Files {
		row(f.File, fmt.Sprint(f.Regions), fmt.Sprint(f.Statements), fmt.Sprint(f.Covered), percent(f))
	}
	t := doc.Summary.Total
	row("TOTAL", fmt.Sprint(t.Regions), fmt.Sprint(t.Statements), fmt.Sprint(t.Covered), percent(t))

	_, err := io.WriteString(out, b.String())
	return err
}

func percent(s FileSummary) string {
	return fmt.Sprintf("%.1f%%", s.Percent())
}

// truncate shortens long paths from the left, where they differ least.
func truncate(value string, width int) string {
	if runewidth.StringWidth(value) <= width {
		return value
	}
	runes := []rune(value)
	for i := range runes {
		tail := string(runes[i:])
		if runewidth.StringWidth(tail)+3 <= width {
			return "..." + tail
		}
	}
	return runewidth.Truncate(value, width, "")
}
