// Package jacoco reads JaCoCo XML reports and converts them into the
// canonical coverage model.
//
// The document structure follows the JaCoCo report DTD:
// https://github.com/jacoco/jacoco/blob/master/org.jacoco.report/src/org/jacoco/report/xml/report.dtd
package jacoco

import "fmt"

// CounterType differentiates the semantic meaning of a counter's missed and
// covered fields.
type CounterType int

const (
	// CounterInstruction counts JVM bytecode instructions.
	CounterInstruction CounterType = iota
	// CounterLine counts executable lines. Blank lines, comments and lines
	// with only braces hold no instructions and are not counted.
	CounterLine
	// CounterBranch counts branches of conditional jumps and switches.
	CounterBranch
	// CounterComplexity counts cyclomatic complexity paths.
	CounterComplexity
	// CounterMethod counts methods; every method is executable.
	CounterMethod
	// CounterClass counts classes.
	CounterClass
)

var counterTypeNames = map[string]CounterType{
	"INSTRUCTION": CounterInstruction,
	"LINE":        CounterLine,
	"BRANCH":      CounterBranch,
	"COMPLEXITY":  CounterComplexity,
	"METHOD":      CounterMethod,
	"CLASS":       CounterClass,
}

// ParseCounterType maps the @type attribute of a counter.
func ParseCounterType(s string) (CounterType, error) {
	if t, ok := counterTypeNames[s]; ok {
		return t, nil
	}
	return 0, fmt.Errorf("unknown counter type %q", s)
}

func (t CounterType) String() string {
	for name, v := range counterTypeNames {
		if v == t {
			return name
		}
	}
	return fmt.Sprintf("CounterType(%d)", int(t))
}

// Counter is a missed/covered pair whose meaning depends on Type.
type Counter struct {
	Type    CounterType
	Missed  uint32
	Covered uint32
}

// Report is the root of a JaCoCo document.
type Report struct {
	// Name is usually the Maven/Gradle project name.
	Name     string
	Counters []Counter
	Packages []Package
	Groups   []Group
}

// Group bundles packages, e.g. per module in a multi-module build.
type Group struct {
	Name     string
	Counters []Counter
	Packages []Package
	Groups   []Group
}

// Package is one JVM package. Subpackages are separate entries.
type Package struct {
	// Name uses slashes like bytecode does; the default package is "".
	Name        string
	Counters    []Counter
	Classes     []Class
	SourceFiles []SourceFile
}

// Class is a class within a package.
type Class struct {
	// Name is fully qualified with slashes, e.g. dev/example/Sample.
	Name string
	// SourceFileName is the bare file name, e.g. Sample.java.
	SourceFileName string
	Methods        []Method
	Counters       []Counter
}

// Method is a method within a class.
type Method struct {
	// Name may be any Unicode text the source language allows, and includes
	// the special names <init> and <clinit>.
	Name string
	// Desc is the bytecode descriptor, e.g. (Ljava/lang/String;)V.
	Desc string
	// Line is the first line with executable code, 0 if unknown.
	Line     uint32
	Counters []Counter
}

// SourceFile is one source file of a package.
type SourceFile struct {
	Name     string
	Lines    []Line
	Counters []Counter
}

// Line carries instruction and branch statistics for one source line.
type Line struct {
	Number              uint32
	MissedInstructions  uint32
	CoveredInstructions uint32
	MissedBranches      uint32
	CoveredBranches     uint32
}
