// Package scan provides a small cursor over line-oriented text together with
// syntax errors that carry the name of the field being read.
// The coverage format parsers build their grammars out of these pieces.
package scan

import (
	"fmt"
	"strconv"
	"strings"

	"fortio.org/safecast"
)

// SyntaxError describes the first point at which input stopped matching.
type SyntaxError struct {
	// Context names the field being parsed, e.g. "start line".
	// It is empty until the error passes through Tag.
	Context string
	// Offset is the byte offset into the cursor's input.
	Offset int
	// Expected describes what the grammar wanted at Offset.
	Expected string
	// Found is a short excerpt of the input at Offset.
	Found string
}

func (e *SyntaxError) Error() string {
	var b strings.Builder
	if e.Context != "" {
		b.WriteString(e.Context)
		b.WriteString(": ")
	}
	fmt.Fprintf(&b, "expected %s at offset %d", e.Expected, e.Offset)
	if e.Found == "" {
		b.WriteString(", found end of input")
	} else {
		fmt.Fprintf(&b, ", found %q", e.Found)
	}
	return b.String()
}

// Tag attaches a context label to err if it is a SyntaxError without one.
// Errors that are not syntax errors, and nil, are returned unchanged.
func Tag(label string, err error) error {
	if se, ok := err.(*SyntaxError); ok && se.Context == "" {
		se.Context = label
	}
	return err
}

// Cursor reads a string from left to right.
type Cursor struct {
	input string
	pos   int
}

// New creates a cursor at the start of s.
func New(s string) *Cursor {
	return &Cursor{input: s}
}

// Pos returns the current byte offset.
func (c *Cursor) Pos() int {
	return c.pos
}

// Reset moves the cursor back to an offset previously returned by Pos.
func (c *Cursor) Reset(pos int) {
	c.pos = pos
}

// Done reports whether all input has been consumed.
func (c *Cursor) Done() bool {
	return c.pos >= len(c.input)
}

// Remaining returns the unconsumed input without consuming it.
func (c *Cursor) Remaining() string {
	return c.input[c.pos:]
}

// Fail builds a SyntaxError at the current position.
func (c *Cursor) Fail(expected string) *SyntaxError {
	found := c.Remaining()
	if i := strings.IndexByte(found, '\n'); i >= 0 {
		found = found[:i]
	}
	if len(found) > 32 {
		found = found[:32]
	}
	return &SyntaxError{Offset: c.pos, Expected: expected, Found: found}
}

// Accept consumes lit if the input continues with it.
func (c *Cursor) Accept(lit string) bool {
	if strings.HasPrefix(c.Remaining(), lit) {
		c.pos += len(lit)
		return true
	}
	return false
}

// Literal consumes lit or fails.
func (c *Cursor) Literal(lit string) error {
	if !c.Accept(lit) {
		return c.Fail(strconv.Quote(lit))
	}
	return nil
}

// OneOf consumes the first of options that matches and returns it.
func (c *Cursor) OneOf(options ...string) (string, error) {
	for _, opt := range options {
		if c.Accept(opt) {
			return opt, nil
		}
	}
	return "", c.Fail("one of " + strings.Join(options, ", "))
}

// digits consumes a non-empty run of ASCII digits.
func (c *Cursor) digits() (string, error) {
	start := c.pos
	for c.pos < len(c.input) && c.input[c.pos] >= '0' && c.input[c.pos] <= '9' {
		c.pos++
	}
	if c.pos == start {
		return "", c.Fail("unsigned integer")
	}
	return c.input[start:c.pos], nil
}

// Uint64 consumes an unsigned decimal integer.
func (c *Cursor) Uint64() (uint64, error) {
	start := c.pos
	s, err := c.digits()
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		c.pos = start
		return 0, c.Fail("unsigned 64-bit integer")
	}
	return n, nil
}

// Uint32 consumes an unsigned decimal integer that fits in 32 bits.
func (c *Cursor) Uint32() (uint32, error) {
	start := c.pos
	n, err := c.Uint64()
	if err != nil {
		return 0, err
	}
	v, err := safecast.Conv[uint32](n)
	if err != nil {
		c.pos = start
		return 0, c.Fail("unsigned 32-bit integer")
	}
	return v, nil
}

// Until consumes the non-empty run of input before the first sep on the
// current line. The separator itself is not consumed.
func (c *Cursor) Until(sep string) (string, error) {
	rest := c.Remaining()
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		rest = rest[:nl]
	}
	i := strings.Index(rest, sep)
	if i <= 0 {
		return "", c.Fail("text followed by " + strconv.Quote(sep))
	}
	c.pos += i
	return rest[:i], nil
}

// Field consumes everything up to the next comma, or to the end of input if
// there is none. The comma is not consumed. The result may be empty.
func (c *Cursor) Field() string {
	rest := c.Remaining()
	if i := strings.IndexByte(rest, ','); i >= 0 {
		rest = rest[:i]
	}
	c.pos += len(rest)
	return rest
}

// Rest consumes and returns all remaining input.
func (c *Cursor) Rest() string {
	rest := c.Remaining()
	c.pos = len(c.input)
	return rest
}

// End fails unless all input has been consumed.
func (c *Cursor) End() error {
	if !c.Done() {
		return c.Fail("end of input")
	}
	return nil
}
