// Package lcov reads LCOV trace files and converts them into the canonical
// coverage model.
//
// The format is described in the TRACEFILE FORMAT section of geninfo(1).
// A trace file is a sequence of records, each one test applied to one source
// file and closed by end_of_record.
package lcov

import "cmp"

// Tracefile is a parsed LCOV document.
type Tracefile struct {
	Records []Record
}

// Record is the coverage of one source file under one test.
type Record struct {
	// TestName is the TN field. It may be empty.
	TestName string
	// SourceFile is the SF field, relative to the repository root or absolute.
	SourceFile string

	Functions      []Function
	FunctionsFound uint32
	FunctionsHit   uint32

	Branches      []Branch
	BranchesFound uint32
	BranchesHit   uint32

	MCDC      []MCDCGroup
	MCDCFound uint32
	MCDCHit   uint32

	Lines      []CoveredLine
	LinesFound uint32
	LinesHit   uint32
}

// Function is a function leader (FNL or FN) with the execution data that
// referred to it.
type Function struct {
	Name      string
	StartLine uint32
	// EndLine is nil when the leader carried no end line.
	EndLine *uint32
	// ExecutionCount is the sum over all aliases.
	ExecutionCount uint64
	Aliases        []Alias
}

// Alias is one name a function was reported under, with its own count.
type Alias struct {
	Name           string
	ExecutionCount uint64
}

// Branch is one BRDA entry.
type Branch struct {
	Line uint32
	// Exception marks branches taken only when an exception is thrown.
	Exception bool
	Block     uint32
	// ID identifies the branch within its block. Tools write anything from
	// plain indexes to expressions, so it is kept verbatim.
	ID string
	// Taken is 0 both for "never taken" and for "-", the block never ran.
	Taken uint64
}

// MCDCGroup is one MCDC entry.
type MCDCGroup struct {
	Line      uint32
	GroupSize uint32
	// Sense is true for the "t" condition outcome.
	Sense bool
	// Taken is a counter for some tools and a boolean for others.
	Taken uint64
	// Index is within [0, GroupSize).
	Index      uint32
	Expression string
}

// CoveredLine is one DA entry.
type CoveredLine struct {
	Line           uint32
	ExecutionCount uint64
	// Checksum is empty when the entry carried none.
	Checksum string
}

// FnKey identifies an in-progress function within a record.
// Modern keys come from FNL/FNA indexes, legacy keys from FN/FNDA names.
type FnKey struct {
	legacy bool
	index  uint32
	name   string
}

// ModernKey is the key of an FNL leader.
func ModernKey(index uint32) FnKey {
	return FnKey{index: index}
}

// LegacyKey is the key of an FN leader.
func LegacyKey(name string) FnKey {
	return FnKey{legacy: true, name: name}
}

// Compare orders modern keys before legacy keys, each ascending.
func (k FnKey) Compare(o FnKey) int {
	if k.legacy != o.legacy {
		if k.legacy {
			return 1
		}
		return -1
	}
	if k.legacy {
		return cmp.Compare(k.name, o.name)
	}
	return cmp.Compare(k.index, o.index)
}
