// Package goprofile reads the cover profile written by `go test -coverprofile`
// and converts it into the canonical coverage model.
//
// The format is a mode line followed by one region per line:
//
//	mode: set
//	github.com/owner/repo/file.go:1.2,3.4 5 6
//
// A region line is file:startLine.startCol,endLine.endCol statements count.
package goprofile

import (
	"fmt"
	"strings"

	"github.com/zjy-dev/covingest/internal/coverage"
	"github.com/zjy-dev/covingest/internal/scan"
)

// Mode is the counting discipline of the profile.
type Mode int

const (
	// Set records whether a statement ran at all.
	Set Mode = iota
	// Count records how many times a statement ran. Not safe in concurrent programs.
	Count
	// Atomic records how many times a statement ran using atomic counters.
	Atomic
)

var modeNames = []string{"set", "count", "atomic"}

func (m Mode) String() string {
	if int(m) >= 0 && int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// LineRegion is one region line of the profile.
type LineRegion struct {
	// FilePath is usually the import path of the package followed by the file name.
	FilePath    string
	StartLine   uint32
	StartColumn uint32
	EndLine     uint32
	EndColumn   uint32
	// Statements is the number of statements in the region.
	Statements uint32
	// Executed is how often the region ran. It is not limited by Statements.
	Executed uint32
}

// Profile is a parsed Go cover profile.
type Profile struct {
	Mode    Mode
	Regions []LineRegion
}

// Parse reads a whole cover profile.
// Any line that does not match the grammar rejects the entire document; no
// semantic checks happen here.
func Parse(s string) (*Profile, error) {
	c := scan.New(s)
	mode, err := parseMode(c)
	if err != nil {
		return nil, fmt.Errorf("failed to parse mode line: %w", err)
	}

	profile := &Profile{Mode: mode, Regions: []LineRegion{}}

	body := c.Remaining()
	body = strings.TrimSuffix(body, "\n")
	body = strings.TrimSuffix(body, "\r")
	if body == "" {
		return profile, nil
	}

	for i, line := range strings.Split(body, "\n") {
		region, err := parseRegion(strings.TrimSuffix(line, "\r"))
		if err != nil {
			return nil, fmt.Errorf("failed to parse region on line %d: %w", i+2, err)
		}
		profile.Regions = append(profile.Regions, region)
	}
	return profile, nil
}

// parseMode reads "mode: <kind>" and the line ending after it, if any.
func parseMode(c *scan.Cursor) (Mode, error) {
	if err := scan.Tag("mode", c.Literal("mode: ")); err != nil {
		return 0, err
	}
	kind, err := scan.Read(c, "mode", func(c *scan.Cursor) (string, error) {
		return c.OneOf(modeNames...)
	})
	if err != nil {
		return 0, err
	}
	if !c.Accept("\n") && !c.Accept("\r\n") && !c.Done() {
		return 0, scan.Tag("mode", c.Fail("line ending"))
	}

	for i, name := range modeNames {
		if name == kind {
			return Mode(i), nil
		}
	}
	return 0, scan.Tag("mode", c.Fail("known mode"))
}

// parseRegion reads "file:startLine.startCol,endLine.endCol statements executed".
func parseRegion(line string) (LineRegion, error) {
	c := scan.New(line)
	var (
		r   LineRegion
		err error
	)

	if r.FilePath, err = scan.Read(c, "file path", func(c *scan.Cursor) (string, error) {
		return c.Until(":")
	}); err != nil {
		return r, err
	}
	if err = c.Literal(":"); err != nil {
		return r, err
	}
	if r.StartLine, err = scan.Terminated(c, "start line", (*scan.Cursor).Uint32, "."); err != nil {
		return r, err
	}
	if r.StartColumn, err = scan.Terminated(c, "start column", (*scan.Cursor).Uint32, ","); err != nil {
		return r, err
	}
	if r.EndLine, err = scan.Terminated(c, "end line", (*scan.Cursor).Uint32, "."); err != nil {
		return r, err
	}
	if r.EndColumn, err = scan.Terminated(c, "end column", (*scan.Cursor).Uint32, " "); err != nil {
		return r, err
	}
	if r.Statements, err = scan.Terminated(c, "statements", (*scan.Cursor).Uint32, " "); err != nil {
		return r, err
	}
	if r.Executed, err = scan.Read(c, "executed", (*scan.Cursor).Uint32); err != nil {
		return r, err
	}
	return r, c.End()
}

// Convert maps the profile onto the canonical model, one region per line
// region. Zero or backwards line numbers fail with coverage.ErrLineNumberInvalid.
func (p *Profile) Convert() (*coverage.Report, error) {
	b := coverage.NewBuilder(len(p.Regions))
	for i, r := range p.Regions {
		from := coverage.Position{Line: r.StartLine, Column: r.StartColumn}
		to := coverage.Position{Line: r.EndLine, Column: r.EndColumn}
		if err := b.AddSpan(r.FilePath, from, to, r.Statements, r.Executed); err != nil {
			return nil, fmt.Errorf("region %d: %w", i+1, err)
		}
	}
	return b.Report(), nil
}
