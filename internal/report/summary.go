package report

import "github.com/zjy-dev/covingest/internal/coverage"

// FileSummary totals the regions of one file.
type FileSummary struct {
	File       string `json:"file" msgpack:"file"`
	Regions    int    `json:"regions" msgpack:"regions"`
	Statements uint64 `json:"statements" msgpack:"statements"`
	Covered    uint64 `json:"covered" msgpack:"covered"`
}

// Percent is the share of covered statements, 0 when there are none.
func (s FileSummary) Percent() float64 {
	if s.Statements == 0 {
		return 0
	}
	return float64(s.Covered) * 100 / float64(s.Statements)
}

func (s *FileSummary) add(r coverage.Region) {
	s.Regions++
	s.Statements += uint64(r.Statements)
	if r.Covered() {
		s.Covered += uint64(r.Statements)
	}
}

// Summary holds per-file totals in first-seen order and their sum.
type Summary struct {
	Files []FileSummary `json:"files" msgpack:"files"`
	Total FileSummary   `json:"total" msgpack:"total"`
}

// Summarize totals a report by file.
func Summarize(report *coverage.Report) Summary {
	index := make(map[string]int)
	summary := Summary{Files: []FileSummary{}}
	for _, r := range report.Regions {
		i, ok := index[r.File]
		if !ok {
			i = len(summary.Files)
			index[r.File] = i
			summary.Files = append(summary.Files, FileSummary{File: r.File})
		}
		summary.Files[i].add(r)
		summary.Total.add(r)
	}
	return summary
}
