package coverage

import "strings"

// PathTable interns file paths for a single report.
// Every region that names the same path gets the same backing string, so a
// report with thousands of regions over a handful of files keeps only a
// handful of path allocations alive.
type PathTable struct {
	index map[string]string
}

// NewPathTable creates an empty table.
func NewPathTable() *PathTable {
	return &PathTable{index: make(map[string]string)}
}

// Intern returns the canonical copy of path.
// The first call for a path stores a private copy so the result never aliases
// the caller's input buffer.
func (t *PathTable) Intern(path string) string {
	if s, ok := t.index[path]; ok {
		return s
	}
	cpy := strings.Clone(path)
	t.index[cpy] = cpy
	return cpy
}

// Len returns the number of distinct paths seen.
func (t *PathTable) Len() int {
	return len(t.index)
}
