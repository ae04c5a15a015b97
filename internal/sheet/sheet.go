// Package sheet reads loosely-formatted BOQ workbooks: locating header rows
// and columns in unlabeled tables, then extracting structured line items.
package sheet

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// Sheet is the minimal cell-addressable view the detector and extractor
// need. Rows and columns are 1-based; out-of-range cells read as "".
type Sheet interface {
	Name() string
	Cell(row, col int) string
	MaxRow() int
	MaxCol() int
}

// xlsxSheet adapts a tealeg worksheet.
type xlsxSheet struct {
	s *xlsx.Sheet
}

func (x *xlsxSheet) Name() string { return x.s.Name }

func (x *xlsxSheet) Cell(row, col int) string {
	if row < 1 || col < 1 || row > x.s.MaxRow || col > x.s.MaxCol {
		return ""
	}
	return strings.TrimSpace(x.s.Cell(row-1, col-1).String())
}

func (x *xlsxSheet) MaxRow() int { return x.s.MaxRow }
func (x *xlsxSheet) MaxCol() int { return x.s.MaxCol }

// OpenWorkbook opens an XLSX file and returns all of its sheets in workbook
// order.
func OpenWorkbook(path string) ([]Sheet, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "sheet: open workbook")
	}

	sheets := make([]Sheet, 0, len(f.Sheets))
	for _, s := range f.Sheets {
		sheets = append(sheets, &xlsxSheet{s: s})
	}
	return sheets, nil
}

// MemSheet is an in-memory Sheet backed by a string grid. Used by tests and
// by callers that already hold tabular data.
type MemSheet struct {
	SheetName string
	Rows      [][]string
}

func (m *MemSheet) Name() string { return m.SheetName }

func (m *MemSheet) Cell(row, col int) string {
	if row < 1 || row > len(m.Rows) {
		return ""
	}
	r := m.Rows[row-1]
	if col < 1 || col > len(r) {
		return ""
	}
	return strings.TrimSpace(r[col-1])
}

func (m *MemSheet) MaxRow() int { return len(m.Rows) }

func (m *MemSheet) MaxCol() int {
	max := 0
	for _, r := range m.Rows {
		if len(r) > max {
			max = len(r)
		}
	}
	return max
}
