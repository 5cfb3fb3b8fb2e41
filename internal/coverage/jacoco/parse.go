package jacoco

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrMissingAttribute is returned when a required attribute is absent.
var ErrMissingAttribute = errors.New("missing required attribute")

// The xml* types mirror the document. Required attributes are pointers so a
// missing attribute can be told apart from an empty or zero one.

type xmlCounter struct {
	Type    *string `xml:"type,attr"`
	Missed  *uint32 `xml:"missed,attr"`
	Covered *uint32 `xml:"covered,attr"`
}

type xmlLine struct {
	Nr *uint32 `xml:"nr,attr"`
	Mi *uint32 `xml:"mi,attr"`
	Ci *uint32 `xml:"ci,attr"`
	Mb *uint32 `xml:"mb,attr"`
	Cb *uint32 `xml:"cb,attr"`
}

type xmlSourceFile struct {
	Name     *string      `xml:"name,attr"`
	Lines    []xmlLine    `xml:"line"`
	Counters []xmlCounter `xml:"counter"`
}

type xmlMethod struct {
	Name     *string      `xml:"name,attr"`
	Desc     string       `xml:"desc,attr"`
	Line     uint32       `xml:"line,attr"`
	Counters []xmlCounter `xml:"counter"`
}

type xmlClass struct {
	Name           *string      `xml:"name,attr"`
	SourceFileName string       `xml:"sourcefilename,attr"`
	Methods        []xmlMethod  `xml:"method"`
	Counters       []xmlCounter `xml:"counter"`
}

type xmlPackage struct {
	Name        *string         `xml:"name,attr"`
	Classes     []xmlClass      `xml:"class"`
	SourceFiles []xmlSourceFile `xml:"sourcefile"`
	Counters    []xmlCounter    `xml:"counter"`
}

type xmlGroup struct {
	Name     *string      `xml:"name,attr"`
	Groups   []xmlGroup   `xml:"group"`
	Packages []xmlPackage `xml:"package"`
	Counters []xmlCounter `xml:"counter"`
}

type xmlReport struct {
	XMLName  xml.Name     `xml:"report"`
	Name     *string      `xml:"name,attr"`
	Groups   []xmlGroup   `xml:"group"`
	Packages []xmlPackage `xml:"package"`
	Counters []xmlCounter `xml:"counter"`
}

// Parse decodes a JaCoCo XML report.
// Elements the model does not use, such as <sessioninfo>, are skipped.
func Parse(data []byte) (*Report, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))

	var doc xmlReport
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}
	if err := expectEOF(dec); err != nil {
		return nil, err
	}
	return doc.model()
}

// expectEOF accepts only whitespace, comments and processing instructions
// after the root element.
func expectEOF(dec *xml.Decoder) error {
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read after root element: %w", err)
		}
		switch t := tok.(type) {
		case xml.CharData:
			if strings.TrimSpace(string(t)) != "" {
				return fmt.Errorf("unexpected text after root element")
			}
		case xml.Comment, xml.ProcInst, xml.Directive:
		default:
			return fmt.Errorf("unexpected %T after root element", tok)
		}
	}
}

func requireString(v *string, element, attr string) (string, error) {
	if v == nil {
		return "", fmt.Errorf("%w: <%s> @%s", ErrMissingAttribute, element, attr)
	}
	return *v, nil
}

func requireUint(v *uint32, element, attr string) (uint32, error) {
	if v == nil {
		return 0, fmt.Errorf("%w: <%s> @%s", ErrMissingAttribute, element, attr)
	}
	return *v, nil
}

func (x *xmlReport) model() (*Report, error) {
	name, err := requireString(x.Name, "report", "name")
	if err != nil {
		return nil, err
	}
	counters, err := countersModel(x.Counters)
	if err != nil {
		return nil, err
	}
	packages, err := packagesModel(x.Packages)
	if err != nil {
		return nil, err
	}
	groups, err := groupsModel(x.Groups)
	if err != nil {
		return nil, err
	}
	return &Report{Name: name, Counters: counters, Packages: packages, Groups: groups}, nil
}

func groupsModel(xs []xmlGroup) ([]Group, error) {
	groups := make([]Group, 0, len(xs))
	for i := range xs {
		x := &xs[i]
		name, err := requireString(x.Name, "group", "name")
		if err != nil {
			return nil, err
		}
		counters, err := countersModel(x.Counters)
		if err != nil {
			return nil, fmt.Errorf("group %q: %w", name, err)
		}
		packages, err := packagesModel(x.Packages)
		if err != nil {
			return nil, fmt.Errorf("group %q: %w", name, err)
		}
		nested, err := groupsModel(x.Groups)
		if err != nil {
			return nil, fmt.Errorf("group %q: %w", name, err)
		}
		groups = append(groups, Group{Name: name, Counters: counters, Packages: packages, Groups: nested})
	}
	return groups, nil
}

func packagesModel(xs []xmlPackage) ([]Package, error) {
	packages := make([]Package, 0, len(xs))
	for i := range xs {
		x := &xs[i]
		name, err := requireString(x.Name, "package", "name")
		if err != nil {
			return nil, err
		}
		pkg := Package{
			Name:        name,
			Classes:     make([]Class, 0, len(x.Classes)),
			SourceFiles: make([]SourceFile, 0, len(x.SourceFiles)),
		}
		if pkg.Counters, err = countersModel(x.Counters); err != nil {
			return nil, fmt.Errorf("package %q: %w", name, err)
		}
		for j := range x.Classes {
			class, err := classModel(&x.Classes[j])
			if err != nil {
				return nil, fmt.Errorf("package %q: %w", name, err)
			}
			pkg.Classes = append(pkg.Classes, class)
		}
		for j := range x.SourceFiles {
			file, err := sourceFileModel(&x.SourceFiles[j])
			if err != nil {
				return nil, fmt.Errorf("package %q: %w", name, err)
			}
			pkg.SourceFiles = append(pkg.SourceFiles, file)
		}
		packages = append(packages, pkg)
	}
	return packages, nil
}

func classModel(x *xmlClass) (Class, error) {
	name, err := requireString(x.Name, "class", "name")
	if err != nil {
		return Class{}, err
	}
	class := Class{
		Name:           name,
		SourceFileName: x.SourceFileName,
		Methods:        make([]Method, 0, len(x.Methods)),
	}
	if class.Counters, err = countersModel(x.Counters); err != nil {
		return Class{}, fmt.Errorf("class %q: %w", name, err)
	}
	for i := range x.Methods {
		m := &x.Methods[i]
		methodName, err := requireString(m.Name, "method", "name")
		if err != nil {
			return Class{}, fmt.Errorf("class %q: %w", name, err)
		}
		counters, err := countersModel(m.Counters)
		if err != nil {
			return Class{}, fmt.Errorf("method %q: %w", methodName, err)
		}
		class.Methods = append(class.Methods, Method{
			Name:     methodName,
			Desc:     m.Desc,
			Line:     m.Line,
			Counters: counters,
		})
	}
	return class, nil
}

func sourceFileModel(x *xmlSourceFile) (SourceFile, error) {
	name, err := requireString(x.Name, "sourcefile", "name")
	if err != nil {
		return SourceFile{}, err
	}
	file := SourceFile{Name: name, Lines: make([]Line, 0, len(x.Lines))}
	if file.Counters, err = countersModel(x.Counters); err != nil {
		return SourceFile{}, fmt.Errorf("sourcefile %q: %w", name, err)
	}
	for i := range x.Lines {
		line, err := lineModel(&x.Lines[i])
		if err != nil {
			return SourceFile{}, fmt.Errorf("sourcefile %q: %w", name, err)
		}
		file.Lines = append(file.Lines, line)
	}
	return file, nil
}

func lineModel(x *xmlLine) (Line, error) {
	var (
		line Line
		err  error
	)
	if line.Number, err = requireUint(x.Nr, "line", "nr"); err != nil {
		return Line{}, err
	}
	if line.MissedInstructions, err = requireUint(x.Mi, "line", "mi"); err != nil {
		return Line{}, err
	}
	if line.CoveredInstructions, err = requireUint(x.Ci, "line", "ci"); err != nil {
		return Line{}, err
	}
	if line.MissedBranches, err = requireUint(x.Mb, "line", "mb"); err != nil {
		return Line{}, err
	}
	if line.CoveredBranches, err = requireUint(x.Cb, "line", "cb"); err != nil {
		return Line{}, err
	}
	return line, nil
}

func countersModel(xs []xmlCounter) ([]Counter, error) {
	counters := make([]Counter, 0, len(xs))
	for i := range xs {
		x := &xs[i]
		typeName, err := requireString(x.Type, "counter", "type")
		if err != nil {
			return nil, err
		}
		typ, err := ParseCounterType(typeName)
		if err != nil {
			return nil, err
		}
		missed, err := requireUint(x.Missed, "counter", "missed")
		if err != nil {
			return nil, err
		}
		covered, err := requireUint(x.Covered, "counter", "covered")
		if err != nil {
			return nil, err
		}
		counters = append(counters, Counter{Type: typ, Missed: missed, Covered: covered})
	}
	return counters, nil
}
