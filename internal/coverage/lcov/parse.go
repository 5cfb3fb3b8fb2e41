package lcov

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"

	"github.com/zjy-dev/covingest/internal/scan"
)

const endOfRecord = "end_of_record"

// Parse reads an LCOV trace file.
//
// Lines are separated by "\n", optionally preceded by "\r". Blank lines around
// the document are ignored, lines starting with "#" are comments. Every
// record must end with end_of_record. A document without records is valid and
// yields an empty trace file.
func Parse(s string) (*Tracefile, error) {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}

	first, last := 0, len(lines)
	for first < last && strings.TrimSpace(lines[first]) == "" {
		first++
	}
	for last > first && strings.TrimSpace(lines[last-1]) == "" {
		last--
	}

	p := newParser()
	for i := first; i < last; i++ {
		if err := p.line(lines[i]); err != nil {
			return nil, &ParseError{Line: i + 1, Err: err}
		}
	}
	if p.dirty {
		return nil, &ParseError{Line: last, Err: ErrUnterminatedRecord}
	}
	return &Tracefile{Records: p.records}, nil
}

// parser accumulates one record at a time.
type parser struct {
	records []Record

	current       Record
	hasTestName   bool
	hasSourceFile bool
	functions     map[FnKey]*Function
	// dirty is set once any field of the current record was read.
	dirty bool
}

func newParser() *parser {
	return &parser{functions: make(map[FnKey]*Function)}
}

func (p *parser) line(line string) error {
	if strings.HasPrefix(line, "#") {
		return nil
	}
	if line == endOfRecord {
		return p.finish()
	}

	tag, value, ok := strings.Cut(line, ":")
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTag, line)
	}

	var err error
	switch tag {
	case "VER":
		return nil
	case "TN":
		err = p.testName(value)
	case "SF":
		err = p.sourceFile(value)
	case "FNL":
		err = p.functionLeader(value)
	case "FNA":
		err = p.functionAlias(value)
	case "FN":
		err = p.legacyFunction(value)
	case "FNDA":
		err = p.legacyFunctionData(value)
	case "FNF":
		err = total(value, &p.current.FunctionsFound)
	case "FNH":
		err = total(value, &p.current.FunctionsHit)
	case "BRDA":
		err = p.branch(value)
	case "BRF":
		err = total(value, &p.current.BranchesFound)
	case "BRH":
		err = total(value, &p.current.BranchesHit)
	case "MCDC":
		err = p.mcdc(value)
	case "MRF":
		err = total(value, &p.current.MCDCFound)
	case "MRH":
		err = total(value, &p.current.MCDCHit)
	case "DA":
		err = p.coveredLine(value)
	case "LF":
		err = total(value, &p.current.LinesFound)
	case "LH":
		err = total(value, &p.current.LinesHit)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownTag, tag)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", tag, err)
	}
	p.dirty = true
	return nil
}

func (p *parser) testName(value string) error {
	if p.hasTestName {
		return ErrDuplicateTestName
	}
	p.current.TestName = value
	p.hasTestName = true
	return nil
}

func (p *parser) sourceFile(value string) error {
	if p.hasSourceFile {
		return ErrDuplicateSourceFile
	}
	p.current.SourceFile = value
	p.hasSourceFile = true
	return nil
}

// FNL:<index>,<start>[,<end>]
func (p *parser) functionLeader(value string) error {
	c := scan.New(value)
	index, err := scan.Terminated(c, "index", (*scan.Cursor).Uint32, ",")
	if err != nil {
		return syntax(err)
	}
	start, err := scan.Read(c, "start line", (*scan.Cursor).Uint32)
	if err != nil {
		return syntax(err)
	}
	var end *uint32
	if c.Accept(",") {
		n, err := scan.Read(c, "end line", (*scan.Cursor).Uint32)
		if err != nil {
			return syntax(err)
		}
		end = &n
	}
	if err := c.End(); err != nil {
		return syntax(err)
	}

	p.functions[ModernKey(index)] = &Function{StartLine: start, EndLine: end}
	return nil
}

// FNA:<index>,<count>,<name>
func (p *parser) functionAlias(value string) error {
	c := scan.New(value)
	index, err := scan.Terminated(c, "index", (*scan.Cursor).Uint32, ",")
	if err != nil {
		return syntax(err)
	}
	count, err := scan.Terminated(c, "execution count", (*scan.Cursor).Uint64, ",")
	if err != nil {
		return syntax(err)
	}
	name := c.Rest()

	fn, ok := p.functions[ModernKey(index)]
	if !ok {
		return fmt.Errorf("%w: index %d", ErrUnknownFunction, index)
	}
	if len(fn.Aliases) == 0 {
		fn.Name = name
	}
	return fn.addAlias(name, count)
}

// FN:<start>[,<end>],<name>
func (p *parser) legacyFunction(value string) error {
	c := scan.New(value)
	start, err := scan.Terminated(c, "start line", (*scan.Cursor).Uint32, ",")
	if err != nil {
		return syntax(err)
	}
	var end *uint32
	if n, ok := scan.Optional(c, scan.Uint32Then(",")); ok {
		end = &n
	}
	name := c.Rest()

	p.functions[LegacyKey(name)] = &Function{Name: name, StartLine: start, EndLine: end}
	return nil
}

// FNDA:<count>,<name>
func (p *parser) legacyFunctionData(value string) error {
	c := scan.New(value)
	count, err := scan.Terminated(c, "execution count", (*scan.Cursor).Uint64, ",")
	if err != nil {
		return syntax(err)
	}
	name := c.Rest()

	fn, ok := p.functions[LegacyKey(name)]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownFunction, name)
	}
	return fn.addAlias(name, count)
}

func (fn *Function) addAlias(name string, count uint64) error {
	if fn.ExecutionCount > math.MaxUint64-count {
		return fmt.Errorf("%w: function %q", ErrCountOverflow, fn.Name)
	}
	fn.ExecutionCount += count
	fn.Aliases = append(fn.Aliases, Alias{Name: name, ExecutionCount: count})
	return nil
}

// BRDA:<line>,[e]<block>,<id>,<taken or ->
func (p *parser) branch(value string) error {
	c := scan.New(value)
	line, err := scan.Terminated(c, "line", (*scan.Cursor).Uint32, ",")
	if err != nil {
		return syntax(err)
	}
	exception := c.Accept("e")
	block, err := scan.Terminated(c, "block", (*scan.Cursor).Uint32, ",")
	if err != nil {
		return syntax(err)
	}
	id := c.Field()
	if err := c.Literal(","); err != nil {
		return syntax(scan.Tag("branch id", err))
	}
	var taken uint64
	if !c.Accept("-") {
		taken, err = scan.Read(c, "taken", (*scan.Cursor).Uint64)
		if err != nil {
			return syntax(err)
		}
	}
	if err := c.End(); err != nil {
		return syntax(err)
	}

	p.current.Branches = append(p.current.Branches, Branch{
		Line:      line,
		Exception: exception,
		Block:     block,
		ID:        id,
		Taken:     taken,
	})
	return nil
}

// MCDC:<line>,<group size>,<t or f>,<taken>,<index>,<expression>
func (p *parser) mcdc(value string) error {
	c := scan.New(value)
	line, err := scan.Terminated(c, "line", (*scan.Cursor).Uint32, ",")
	if err != nil {
		return syntax(err)
	}
	size, err := scan.Terminated(c, "group size", (*scan.Cursor).Uint32, ",")
	if err != nil {
		return syntax(err)
	}
	sense, err := scan.Terminated(c, "sense", func(c *scan.Cursor) (string, error) {
		return c.OneOf("t", "f")
	}, ",")
	if err != nil {
		return syntax(err)
	}
	taken, err := scan.Terminated(c, "taken", (*scan.Cursor).Uint64, ",")
	if err != nil {
		return syntax(err)
	}
	index, err := scan.Terminated(c, "index", (*scan.Cursor).Uint32, ",")
	if err != nil {
		return syntax(err)
	}

	p.current.MCDC = append(p.current.MCDC, MCDCGroup{
		Line:       line,
		GroupSize:  size,
		Sense:      sense == "t",
		Taken:      taken,
		Index:      index,
		Expression: c.Rest(),
	})
	return nil
}

// DA:<line>,<count>[,<checksum>]
func (p *parser) coveredLine(value string) error {
	c := scan.New(value)
	line, err := scan.Terminated(c, "line", (*scan.Cursor).Uint32, ",")
	if err != nil {
		return syntax(err)
	}
	count, err := scan.Read(c, "execution count", (*scan.Cursor).Uint64)
	if err != nil {
		return syntax(err)
	}
	var checksum string
	if c.Accept(",") {
		checksum = c.Rest()
	}
	if err := c.End(); err != nil {
		return syntax(err)
	}

	p.current.Lines = append(p.current.Lines, CoveredLine{
		Line:           line,
		ExecutionCount: count,
		Checksum:       checksum,
	})
	return nil
}

func (p *parser) finish() error {
	keys := slices.SortedFunc(maps.Keys(p.functions), FnKey.Compare)
	functions := make([]Function, 0, len(keys))
	for _, key := range keys {
		fn := p.functions[key]
		if fn.Name == "" {
			if key.legacy {
				return fmt.Errorf("%w: legacy function", ErrUnnamedFunction)
			}
			return fmt.Errorf("%w: index %d", ErrUnnamedFunction, key.index)
		}
		functions = append(functions, *fn)
	}
	p.current.Functions = functions

	p.records = append(p.records, p.current)
	p.current = Record{}
	p.hasTestName = false
	p.hasSourceFile = false
	p.functions = make(map[FnKey]*Function)
	p.dirty = false
	return nil
}

func total(value string, dst *uint32) error {
	c := scan.New(value)
	n, err := scan.Read(c, "total", (*scan.Cursor).Uint32)
	if err != nil {
		return syntax(err)
	}
	if err := c.End(); err != nil {
		return syntax(err)
	}
	*dst = n
	return nil
}

func syntax(err error) error {
	return fmt.Errorf("%w: %w", ErrSyntax, err)
}
