// Package ingest detects the format of a coverage report and converts it into
// the canonical model.
package ingest

import (
	"fmt"
	"strings"

	"github.com/zjy-dev/covingest/internal/coverage"
	"github.com/zjy-dev/covingest/internal/coverage/goprofile"
	"github.com/zjy-dev/covingest/internal/coverage/jacoco"
	"github.com/zjy-dev/covingest/internal/coverage/lcov"
	"github.com/zjy-dev/covingest/internal/logger"
)

// FormatAuto selects detection in ParseNamed.
const FormatAuto = "auto"

// Result is a converted report and the format it was read as.
type Result struct {
	Format coverage.Format
	Report *coverage.Report
}

// Attempt records why one format rejected the input.
type Attempt struct {
	Format coverage.Format
	Err    error
}

// InvalidReportError is returned when no format accepted the input.
// Its message never includes parser detail; the attempts carry that.
type InvalidReportError struct {
	Attempts []Attempt
}

func (e *InvalidReportError) Error() string {
	return coverage.ErrInvalidReport.Error()
}

// Is makes the error match coverage.ErrInvalidReport.
func (e *InvalidReportError) Is(target error) bool {
	return target == coverage.ErrInvalidReport
}

// Detail joins the per-format errors for logs.
func (e *InvalidReportError) Detail() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %v", a.Format, a.Err))
	}
	return strings.Join(parts, "; ")
}

// converter is the intermediate model of one format.
type converter interface {
	Convert() (*coverage.Report, error)
}

type decodeFunc func(raw []byte) (converter, error)

var decoders = map[coverage.Format]decodeFunc{
	coverage.FormatGo: func(raw []byte) (converter, error) {
		profile, err := goprofile.Parse(string(raw))
		if err != nil {
			return nil, err
		}
		return profile, nil
	},
	coverage.FormatJaCoCo: func(raw []byte) (converter, error) {
		report, err := jacoco.Parse(raw)
		if err != nil {
			return nil, err
		}
		return report, nil
	},
	coverage.FormatLCOV: func(raw []byte) (converter, error) {
		tracefile, err := lcov.Parse(string(raw))
		if err != nil {
			return nil, err
		}
		return tracefile, nil
	},
}

// Parse detects the format of raw and converts it.
//
// Formats are tried in the order of coverage.Formats. The first one whose
// parser accepts the input decides the result: if its conversion fails, that
// error is returned and no other format is tried.
func Parse(raw []byte) (*Result, error) {
	var attempts []Attempt
	for _, format := range coverage.Formats() {
		parsed, err := decoders[format](raw)
		if err != nil {
			logger.Debug("%s parser rejected input: %v", format, err)
			attempts = append(attempts, Attempt{Format: format, Err: err})
			continue
		}
		return convert(format, parsed)
	}
	return nil, &InvalidReportError{Attempts: attempts}
}

// ParseAs reads raw as the given format only.
func ParseAs(format coverage.Format, raw []byte) (*Result, error) {
	decode, ok := decoders[format]
	if !ok {
		return nil, fmt.Errorf("unsupported coverage format %s", format)
	}
	parsed, err := decode(raw)
	if err != nil {
		logger.Debug("%s parser rejected input: %v", format, err)
		return nil, &InvalidReportError{Attempts: []Attempt{{Format: format, Err: err}}}
	}
	return convert(format, parsed)
}

// ParseNamed reads raw as the named format, or detects it when name is empty
// or FormatAuto.
func ParseNamed(name string, raw []byte) (*Result, error) {
	if name == "" || name == FormatAuto {
		return Parse(raw)
	}
	format, err := coverage.ParseFormat(name)
	if err != nil {
		return nil, err
	}
	return ParseAs(format, raw)
}

func convert(format coverage.Format, parsed converter) (*Result, error) {
	report, err := parsed.Convert()
	if err != nil {
		return nil, fmt.Errorf("failed to convert %s report: %w", format, err)
	}
	return &Result{Format: format, Report: report}, nil
}
