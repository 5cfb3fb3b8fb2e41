package lcov

import (
	"fmt"

	"github.com/zjy-dev/covingest/internal/coverage"
)

// Convert turns every DA entry into a one-line region of its record's source
// file. LCOV carries no statement counts, so each line counts as one
// statement that ran once or not at all.
func (t *Tracefile) Convert() (*coverage.Report, error) {
	size := 0
	for _, record := range t.Records {
		size += len(record.Lines)
	}

	b := coverage.NewBuilder(size)
	for _, record := range t.Records {
		for _, line := range record.Lines {
			var executions uint32
			if line.ExecutionCount > 0 {
				executions = 1
			}
			if err := b.AddLine(record.SourceFile, line.Line, 1, executions); err != nil {
				return nil, fmt.Errorf("%s: %w", record.SourceFile, err)
			}
		}
	}
	return b.Report(), nil
}
