package jacoco

import (
	"fmt"
	"path"

	"github.com/zjy-dev/covingest/internal/coverage"
)

// Convert maps every <line> of every source file onto one canonical region.
//
// JaCoCo has no column information, so each region spans from column 0 of
// its line to column 0 of the next. Statements are the line's instructions
// (missed + covered) and executions are the covered instructions.
func (r *Report) Convert() (*coverage.Report, error) {
	b := coverage.NewBuilder(r.lineCount())
	if err := convertPackages(b, r.Packages); err != nil {
		return nil, err
	}
	if err := convertGroups(b, r.Groups); err != nil {
		return nil, err
	}
	return b.Report(), nil
}

func convertGroups(b *coverage.Builder, groups []Group) error {
	for _, g := range groups {
		if err := convertPackages(b, g.Packages); err != nil {
			return fmt.Errorf("group %q: %w", g.Name, err)
		}
		if err := convertGroups(b, g.Groups); err != nil {
			return err
		}
	}
	return nil
}

func convertPackages(b *coverage.Builder, packages []Package) error {
	for _, pkg := range packages {
		for _, file := range pkg.SourceFiles {
			filePath := SourcePath(pkg.Name, file.Name)
			for _, line := range file.Lines {
				statements, err := coverage.SumStatements(line.MissedInstructions, line.CoveredInstructions)
				if err != nil {
					return fmt.Errorf("%s line %d: %w", filePath, line.Number, err)
				}
				if err := b.AddLine(filePath, line.Number, statements, line.CoveredInstructions); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// SourcePath joins a package name and a source file name into the path used
// for regions. Files of the default package keep their bare name.
func SourcePath(packageName, fileName string) string {
	if packageName == "" {
		return fileName
	}
	return path.Join(packageName, fileName)
}

func (r *Report) lineCount() int {
	n := countPackageLines(r.Packages)
	var walk func([]Group)
	walk = func(groups []Group) {
		for _, g := range groups {
			n += countPackageLines(g.Packages)
			walk(g.Groups)
		}
	}
	walk(r.Groups)
	return n
}

func countPackageLines(packages []Package) int {
	n := 0
	for _, pkg := range packages {
		for _, file := range pkg.SourceFiles {
			n += len(file.Lines)
		}
	}
	return n
}
