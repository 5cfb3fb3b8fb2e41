package coverage

import "errors"

var (
	// ErrInvalidReport means no supported format accepted the document.
	// It carries no parser detail.
	ErrInvalidReport = errors.New("the report was formatted incorrectly")

	// ErrLineNumberInvalid means a structurally valid report produced a zero,
	// backwards or overflowing line number.
	ErrLineNumberInvalid = errors.New("invalid line number")

	// ErrStatementsInvalid means a statement count could not be represented.
	ErrStatementsInvalid = errors.New("invalid statement count")
)
