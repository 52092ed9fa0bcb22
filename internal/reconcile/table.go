package reconcile

import (
	"strings"
	"unicode"
)

// Row is one data row with its 1-based position among data rows.
type Row struct {
	Number int
	Cells  []string
}

// Table is pasted text split into cells.
type Table struct {
	Header []string
	Rows   []Row
}

// HasHeader reports whether the first line was recognized as a header.
func (t Table) HasHeader() bool { return t.Header != nil }

// Header keywords recognized for each import kind.
var (
	SampleHeaderKeywords    = []string{"project", "task", "personnel", "sample type", "flow rate", "start time", "stop time", "analyte"}
	PersonnelHeaderKeywords = []string{"name", "employee id", "fit test", "medical clearance"}
)

// SplitTable splits text into rows of cells. The first non-blank line is a header iff
// any of its lowercased cells contains a keyword as a whole word, so a data value
// such as "UnknownProject" is not mistaken for a header. Blank lines are skipped and
// do not consume row numbers.
func SplitTable(text string, delimiter rune, keywords []string) Table {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var lines [][]string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, strings.Split(line, string(delimiter)))
	}
	return tableFromCells(lines, keywords)
}

// TableFromRows builds a table from already-split cells (e.g. a spreadsheet).
func TableFromRows(rows [][]string, keywords []string) Table {
	var lines [][]string
	for _, r := range rows {
		if isBlankRow(r) {
			continue
		}
		lines = append(lines, r)
	}
	return tableFromCells(lines, keywords)
}

func tableFromCells(lines [][]string, keywords []string) Table {
	var t Table
	if len(lines) > 0 && isHeader(lines[0], keywords) {
		t.Header = lines[0]
		lines = lines[1:]
	}
	for i, cells := range lines {
		t.Rows = append(t.Rows, Row{Number: i + 1, Cells: cells})
	}
	return t
}

func isHeader(cells []string, keywords []string) bool {
	for _, c := range cells {
		lc := strings.ToLower(strings.TrimSpace(c))
		for _, k := range keywords {
			if containsWord(lc, k) {
				return true
			}
		}
	}
	return false
}

// containsWord reports whether keyword occurs in cell bounded by non-alphanumerics
// or the cell edges.
func containsWord(cell, keyword string) bool {
	for from := 0; from <= len(cell)-len(keyword); {
		i := strings.Index(cell[from:], keyword)
		if i < 0 {
			return false
		}
		start, end := from+i, from+i+len(keyword)
		if wordBoundary(cell, start-1) && wordBoundary(cell, end) {
			return true
		}
		from = start + 1
	}
	return false
}

func wordBoundary(s string, i int) bool {
	if i < 0 || i >= len(s) {
		return true
	}
	r := rune(s[i])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func isBlankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// cell returns the trimmed i-th cell or "" when the row is shorter.
func (r Row) cell(i int) string {
	if i < 0 || i >= len(r.Cells) {
		return ""
	}
	return strings.TrimSpace(r.Cells[i])
}
