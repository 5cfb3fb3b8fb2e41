package coverage

import "fmt"

// Format identifies one of the supported coverage report formats.
type Format int

const (
	// FormatGo is the cover profile written by `go test -coverprofile`.
	FormatGo Format = iota
	// FormatJaCoCo is the JaCoCo XML report used by JVM toolchains.
	FormatJaCoCo
	// FormatLCOV is the LCOV trace file used by gcov, llvm-cov, Jest and others.
	FormatLCOV
)

var formatNames = map[Format]string{
	FormatGo:     "go",
	FormatJaCoCo: "jacoco",
	FormatLCOV:   "lcov",
}

// String returns the lower-case name of the format.
func (f Format) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return fmt.Sprintf("format(%d)", int(f))
}

// ParseFormat converts a format name back into a Format.
func ParseFormat(name string) (Format, error) {
	for f, n := range formatNames {
		if n == name {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unknown coverage format %q", name)
}

// Formats returns every supported format in detection order.
func Formats() []Format {
	return []Format{FormatGo, FormatJaCoCo, FormatLCOV}
}

// Position is a point in a source file.
// Line is 1-based and never zero. Column is 0-based; a zero column on the end
// of a region means "end of the previous line".
type Position struct {
	Line   uint32 `json:"line" msgpack:"line"`
	Column uint32 `json:"column" msgpack:"column"`
}

// String formats the position as line.column, the way cover profiles do.
func (p Position) String() string {
	return fmt.Sprintf("%d.%d", p.Line, p.Column)
}

// Region is a contiguous span of one source file together with its counts.
type Region struct {
	// File is the source path as written in the report. Regions of the same
	// report that name the same path share one string.
	File string   `json:"file" msgpack:"file"`
	From Position `json:"from" msgpack:"from"`
	To   Position `json:"to" msgpack:"to"`

	// Statements counts the executable units in the region. What a unit is
	// depends on the source format: Go statements, JVM instructions, or 1 for
	// LCOV where only presence is known.
	Statements uint32 `json:"statements" msgpack:"statements"`

	// Executions counts how often the region ran. It is not bounded by
	// Statements.
	Executions uint32 `json:"executions" msgpack:"executions"`
}

// Covered reports whether the region ran at least once.
func (r Region) Covered() bool {
	return r.Executions > 0
}

// Report is the canonical, format-agnostic coverage report.
type Report struct {
	Regions []Region `json:"regions" msgpack:"regions"`
}

// Files returns the distinct file paths of the report in first-seen order.
func (r *Report) Files() []string {
	seen := make(map[string]struct{})
	var files []string
	for _, region := range r.Regions {
		if _, ok := seen[region.File]; ok {
			continue
		}
		seen[region.File] = struct{}{}
		files = append(files, region.File)
	}
	return files
}
