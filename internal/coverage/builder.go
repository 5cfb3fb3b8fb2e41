package coverage

import (
	"fmt"

	"fortio.org/safecast"
)

// Builder assembles a Report while enforcing the region invariants.
// A Builder is scoped to one report; converters create a new one per call.
type Builder struct {
	paths   *PathTable
	regions []Region
}

// NewBuilder creates a Builder with room for sizeHint regions.
func NewBuilder(sizeHint int) *Builder {
	if sizeHint < 0 {
		sizeHint = 0
	}
	return &Builder{
		paths:   NewPathTable(),
		regions: make([]Region, 0, sizeHint),
	}
}

// AddSpan appends a region with explicit start and end positions.
func (b *Builder) AddSpan(file string, from, to Position, statements, executions uint32) error {
	if from.Line == 0 {
		return fmt.Errorf("%w: start line is 0 in %s", ErrLineNumberInvalid, file)
	}
	if to.Line == 0 {
		return fmt.Errorf("%w: end line is 0 in %s", ErrLineNumberInvalid, file)
	}
	if to.Line < from.Line {
		return fmt.Errorf("%w: end line %d before start line %d in %s", ErrLineNumberInvalid, to.Line, from.Line, file)
	}

	b.regions = append(b.regions, Region{
		File:       b.paths.Intern(file),
		From:       from,
		To:         to,
		Statements: statements,
		Executions: executions,
	})
	return nil
}

// AddLine appends a region covering exactly one line, for formats without
// column information. The region ends at column 0 of the next line.
func (b *Builder) AddLine(file string, line, statements, executions uint32) error {
	if line == 0 {
		return fmt.Errorf("%w: line is 0 in %s", ErrLineNumberInvalid, file)
	}
	next, err := safecast.Conv[uint32](uint64(line) + 1)
	if err != nil {
		return fmt.Errorf("%w: line %d in %s has no successor", ErrLineNumberInvalid, line, file)
	}
	return b.AddSpan(file, Position{Line: line}, Position{Line: next}, statements, executions)
}

// Len returns the number of regions added so far.
func (b *Builder) Len() int {
	return len(b.regions)
}

// Report returns the assembled report. The Builder must not be used afterwards.
func (b *Builder) Report() *Report {
	report := &Report{Regions: b.regions}
	b.regions = nil
	return report
}

// SumStatements adds two per-format counts into one statement count,
// failing with ErrStatementsInvalid when the sum does not fit.
func SumStatements(a, b uint32) (uint32, error) {
	sum, err := safecast.Conv[uint32](uint64(a) + uint64(b))
	if err != nil {
		return 0, fmt.Errorf("%w: %d + %d overflows", ErrStatementsInvalid, a, b)
	}
	return sum, nil
}
