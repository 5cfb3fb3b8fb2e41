package lcov

import (
	"errors"
	"fmt"
)

var (
	// ErrSyntax means a line had a known tag but its value did not parse.
	ErrSyntax = errors.New("malformed field")
	// ErrUnknownTag means a line matched no known record tag.
	ErrUnknownTag = errors.New("unknown tag")
	// ErrDuplicateTestName means TN appeared twice in one record.
	ErrDuplicateTestName = errors.New("test name already set for this record")
	// ErrDuplicateSourceFile means SF appeared twice in one record.
	ErrDuplicateSourceFile = errors.New("source file already set for this record")
	// ErrUnknownFunction means FNA or FNDA referred to a function with no leader.
	ErrUnknownFunction = errors.New("function data without a leader")
	// ErrUnnamedFunction means a function reached end_of_record with an empty
	// name, either an FNL leader without a named FNA alias or an unnamed FN.
	ErrUnnamedFunction = errors.New("function has no name")
	// ErrUnterminatedRecord means input ended inside a record.
	ErrUnterminatedRecord = errors.New("record not closed with end_of_record")
	// ErrCountOverflow means accumulated execution counts do not fit in 64 bits.
	ErrCountOverflow = errors.New("execution count overflow")
)

// ParseError locates a failure within the document.
type ParseError struct {
	// Line is the 1-based input line.
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("lcov: line %d: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
