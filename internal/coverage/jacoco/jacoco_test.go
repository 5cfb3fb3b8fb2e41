package jacoco

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zjy-dev/covingest/internal/coverage"
)

func readFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return data
}

func TestParse_JavaSample(t *testing.T) {
	report, err := Parse(readFixture(t, "sample_java.xml"))
	require.NoError(t, err)

	assert.Equal(t, "sample", report.Name)
	assert.Equal(t, []Counter{
		{Type: CounterInstruction, Missed: 18, Covered: 26},
		{Type: CounterLine, Missed: 8, Covered: 8},
		{Type: CounterComplexity, Missed: 5, Covered: 3},
		{Type: CounterMethod, Missed: 5, Covered: 3},
		{Type: CounterClass, Missed: 2, Covered: 1},
	}, report.Counters)

	require.Len(t, report.Packages, 2)
	uncalled := report.Packages[0]
	assert.Equal(t, "dev/mardroemmar/cov/sample/uncalled", uncalled.Name)
	require.Len(t, uncalled.Classes, 1)
	assert.Equal(t, "UncalledPackage.java", uncalled.Classes[0].SourceFileName)
	require.Len(t, uncalled.Classes[0].Methods, 2)
	assert.Equal(t, Method{
		Name: "<init>",
		Desc: "()V",
		Line: 3,
		Counters: []Counter{
			{Type: CounterInstruction, Missed: 3, Covered: 0},
			{Type: CounterLine, Missed: 1, Covered: 0},
			{Type: CounterComplexity, Missed: 1, Covered: 0},
			{Type: CounterMethod, Missed: 1, Covered: 0},
		},
	}, uncalled.Classes[0].Methods[0])

	require.Len(t, uncalled.SourceFiles, 1)
	assert.Equal(t, []Line{
		{Number: 3, MissedInstructions: 3},
		{Number: 6, MissedInstructions: 3},
		{Number: 7, MissedInstructions: 1},
	}, uncalled.SourceFiles[0].Lines)

	sample := report.Packages[1]
	require.Len(t, sample.Classes, 2)
	require.Len(t, sample.SourceFiles, 2)
	assert.Equal(t, "Sample.java", sample.SourceFiles[0].Name)
	assert.Len(t, sample.SourceFiles[0].Lines, 10)
}

func TestParse_KotlinUnicodeNames(t *testing.T) {
	report, err := Parse(readFixture(t, "sample_kotlin.xml"))
	require.NoError(t, err)
	require.Len(t, report.Packages, 3)

	assert.Equal(t, "", report.Packages[0].Name)

	var names []string
	for _, class := range report.Packages[2].Classes {
		for _, method := range class.Methods {
			names = append(names, method.Name)
		}
	}
	assert.Contains(t, names, "has a fun snowman! ☃️ 💛")

	// A class without methods defaults to an empty list.
	uncalled := report.Packages[1]
	require.NotEmpty(t, uncalled.Classes)
	assert.Equal(t, "dev/mardroemmar/cov/sample/uncalled/IAlsoHaveAnObject", uncalled.Classes[0].Name)
	assert.Empty(t, uncalled.Classes[0].Methods)
	assert.Empty(t, uncalled.Classes[0].Counters)
}

func TestConvert_LineBecomesRegion(t *testing.T) {
	doc := `<report name="r">
  <package name="dev/example">
    <sourcefile name="Sample.java">
      <line nr="3" mi="3" ci="0" mb="0" cb="0"/>
      <line nr="4" mi="1" ci="2" mb="1" cb="1"/>
    </sourcefile>
  </package>
</report>`

	report, err := Parse([]byte(doc))
	require.NoError(t, err)
	converted, err := report.Convert()
	require.NoError(t, err)

	assert.Equal(t, []coverage.Region{
		{
			File:       "dev/example/Sample.java",
			From:       coverage.Position{Line: 3},
			To:         coverage.Position{Line: 4},
			Statements: 3,
			Executions: 0,
		},
		{
			File:       "dev/example/Sample.java",
			From:       coverage.Position{Line: 4},
			To:         coverage.Position{Line: 5},
			Statements: 3,
			Executions: 2,
		},
	}, converted.Regions)
}

func TestConvert_Samples(t *testing.T) {
	tests := []struct {
		fixture   string
		regions   int
		firstFile string
	}{
		{fixture: "sample_java.xml", regions: 16, firstFile: "dev/mardroemmar/cov/sample/uncalled/UncalledPackage.java"},
		{fixture: "sample_kotlin.xml", regions: 26, firstFile: "Sample.kt"},
	}

	for _, tt := range tests {
		t.Run(tt.fixture, func(t *testing.T) {
			report, err := Parse(readFixture(t, tt.fixture))
			require.NoError(t, err)
			converted, err := report.Convert()
			require.NoError(t, err)
			require.Len(t, converted.Regions, tt.regions)
			assert.Equal(t, tt.firstFile, converted.Regions[0].File)
		})
	}
}

func TestConvert_Groups(t *testing.T) {
	doc := `<report name="multi">
  <group name="module-a">
    <package name="a">
      <sourcefile name="A.java"><line nr="1" mi="0" ci="1" mb="0" cb="0"/></sourcefile>
    </package>
    <group name="nested">
      <package name="b">
        <sourcefile name="B.java"><line nr="2" mi="1" ci="0" mb="0" cb="0"/></sourcefile>
      </package>
    </group>
  </group>
</report>`

	report, err := Parse([]byte(doc))
	require.NoError(t, err)
	require.Len(t, report.Groups, 1)
	require.Len(t, report.Groups[0].Groups, 1)

	converted, err := report.Convert()
	require.NoError(t, err)
	require.Len(t, converted.Regions, 2)
	assert.Equal(t, "a/A.java", converted.Regions[0].File)
	assert.Equal(t, "b/B.java", converted.Regions[1].File)
}

func TestConvert_Errors(t *testing.T) {
	tests := map[string]struct {
		line    string
		wantErr error
	}{
		"zero line":          {line: `<line nr="0" mi="1" ci="0" mb="0" cb="0"/>`, wantErr: coverage.ErrLineNumberInvalid},
		"last line":          {line: `<line nr="4294967295" mi="1" ci="0" mb="0" cb="0"/>`, wantErr: coverage.ErrLineNumberInvalid},
		"statement overflow": {line: `<line nr="1" mi="4294967295" ci="1" mb="0" cb="0"/>`, wantErr: coverage.ErrStatementsInvalid},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			doc := `<report name="r"><package name="p"><sourcefile name="F.java">` + tt.line + `</sourcefile></package></report>`
			report, err := Parse([]byte(doc))
			require.NoError(t, err)
			_, err = report.Convert()
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := map[string]string{
		"not xml":              "mode: atomic\na.go:1.2,3.4 5 6",
		"lcov":                 "TN:\nSF:test.js\nend_of_record\n",
		"empty":                "",
		"wrong root":           `<coverage line-rate="1"></coverage>`,
		"unclosed":             `<report name="r"><package name="p">`,
		"report without name":  `<report></report>`,
		"counter without type": `<report name="r"><counter missed="1" covered="2"/></report>`,
		"unknown counter type": `<report name="r"><counter type="BOGUS" missed="1" covered="2"/></report>`,
		"negative counter":     `<report name="r"><counter type="LINE" missed="-1" covered="2"/></report>`,
		"line without ci":      `<report name="r"><package name="p"><sourcefile name="F"><line nr="1" mi="0" mb="0" cb="0"/></sourcefile></package></report>`,
		"package without name": `<report name="r"><package></package></report>`,
		"method without name":  `<report name="r"><package name="p"><class name="C"><method desc="()V"/></class></package></report>`,
		"text after root":      `<report name="r"></report>trailing`,
		"second root":          `<report name="r"></report><report name="s"></report>`,
	}

	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(input))
			assert.Error(t, err)
		})
	}
}

func TestParse_MissingAttributeIsClassified(t *testing.T) {
	_, err := Parse([]byte(`<report name="r"><package name="p"><sourcefile name="F"><line nr="1" mi="0" ci="0" cb="0"/></sourcefile></package></report>`))
	assert.ErrorIs(t, err, ErrMissingAttribute)
	assert.Contains(t, err.Error(), "@mb")
}

func TestParse_EmptyReport(t *testing.T) {
	report, err := Parse([]byte(`<?xml version="1.0"?><report name="empty"/>` + "\n<!-- trailer -->\n"))
	require.NoError(t, err)
	assert.Empty(t, report.Packages)

	converted, err := report.Convert()
	require.NoError(t, err)
	assert.Empty(t, converted.Regions)
}

func TestSourcePath(t *testing.T) {
	assert.Equal(t, "Sample.kt", SourcePath("", "Sample.kt"))
	assert.Equal(t, "dev/x/Sample.java", SourcePath("dev/x", "Sample.java"))
}

func TestCounterTypeString(t *testing.T) {
	assert.Equal(t, "LINE", CounterLine.String())
	typ, err := ParseCounterType("BRANCH")
	require.NoError(t, err)
	assert.Equal(t, CounterBranch, typ)
}
