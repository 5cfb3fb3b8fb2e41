package report

import (
	"fmt"
	"io"
	"strings"
)

// MarkdownWriter renders a summary suitable for pull request comments.
type MarkdownWriter struct{}

func (w *MarkdownWriter) Extension() string { return "md" }

func (w *MarkdownWriter) Write(out io.Writer, doc *Document) error {
	var content strings.Builder
	fmt.Fprintf(&content, "# Coverage Report: %s\n\n", doc.Name)
	fmt.Fprintf(&content, "**Format:** %s\n\n", doc.Format)

	t := doc.Summary.Total
	fmt.Fprintf(&content, "**Total:** %.1f%% (%d of %d statements in %d regions)\n\n",
		t.Percent(), t.Covered, t.Statements, t.Regions)

	if len(doc.Summary.Files) > 0 {
		content.WriteString("## Files\n\n")
		content.WriteString("| File | Regions | Statements | Covered | % |\n")
		content.WriteString("|---|---:|---:|---:|---:|\n")
		for _, f := range doc.Summary.Files {
			fmt.Fprintf(&content, "| `%s` | %d | %d | %d | %.1f |\n",
				strings.ReplaceAll(f.File, "|", `\|`), f.Regions, f.Statements, f.Covered, f.Percent())
		}
	}

	_, err := io.WriteString(out, content.String())
	return err
}
