// Package report renders converted coverage reports for people and tools.
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/zjy-dev/covingest/internal/coverage"
)

// Document is a named report as it is written out.
type Document struct {
	Name    string            `json:"name" msgpack:"name"`
	Format  string            `json:"format" msgpack:"format"`
	Summary Summary           `json:"summary" msgpack:"summary"`
	Regions []coverage.Region `json:"regions" msgpack:"regions"`
}

// NewDocument summarizes report under the given name.
func NewDocument(name string, format coverage.Format, report *coverage.Report) *Document {
	return &Document{
		Name:    name,
		Format:  format.String(),
		Summary: Summarize(report),
		Regions: report.Regions,
	}
}

// Writer renders a document to an output stream.
type Writer interface {
	Write(w io.Writer, doc *Document) error
	// Extension is the file extension used by Save, without the dot.
	Extension() string
}

// Output names accepted by New.
const (
	OutputText     = "text"
	OutputJSON     = "json"
	OutputMsgpack  = "msgpack"
	OutputMarkdown = "markdown"
)

// Outputs lists the names accepted by New.
func Outputs() []string {
	return []string{OutputText, OutputJSON, OutputMsgpack, OutputMarkdown}
}

// New returns the writer for an output name.
func New(output string) (Writer, error) {
	switch output {
	case OutputText, "":
		return &TextWriter{}, nil
	case OutputJSON:
		return &JSONWriter{Indent: "  "}, nil
	case OutputMsgpack:
		return &MsgpackWriter{}, nil
	case OutputMarkdown, "md":
		return &MarkdownWriter{}, nil
	default:
		return nil, fmt.Errorf("unknown output %q", output)
	}
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Save writes doc into dir as <name>_<unix nanos>.<ext> and returns the path.
func Save(dir string, w Writer, doc *Document) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	name := unsafeName.ReplaceAllString(doc.Name, "_")
	if name == "" {
		name = "report"
	}
	path := filepath.Join(dir, fmt.Sprintf("%s_%d.%s", name, time.Now().UnixNano(), w.Extension()))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create report file: %w", err)
	}
	if err := w.Write(f, doc); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close report file: %w", err)
	}
	return path, nil
}
