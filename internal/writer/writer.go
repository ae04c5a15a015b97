// Package writer renders match results back into an XLSX workbook.
package writer

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/Abaaza/MJDv8/internal/model"
)

// resultHeaders is the column layout of the results sheet. Unmatched items
// keep their row; the matched-side columns stay empty.
var resultHeaders = []string{
	"Original Description",
	"Matched Description",
	"Rate",
	"Similarity Score",
	"Quality",
	"Quantity",
	"Unit",
	"Total Amount",
	"Matched Item ID",
	"Section",
	"Sheet",
	"Row",
}

// Write saves the results of one run as a single-sheet workbook at path.
func Write(path string, results []model.MatchResult) error {
	f := xlsx.NewFile()
	s, err := f.AddSheet("Results")
	if err != nil {
		return eris.Wrap(err, "writer: add results sheet")
	}

	header := s.AddRow()
	for _, h := range resultHeaders {
		header.AddCell().SetString(h)
	}

	for _, r := range results {
		row := s.AddRow()
		row.AddCell().SetString(r.Item.RawDescription)

		if r.Matched && r.Entry != nil {
			row.AddCell().SetString(r.Entry.Description)
			row.AddCell().SetFloat(r.Entry.Rate)
		} else {
			row.AddCell()
			row.AddCell()
		}

		row.AddCell().SetFloat(r.SimilarityScore)
		row.AddCell().SetString(string(r.Quality))
		row.AddCell().SetFloat(r.Item.Quantity)

		if r.Matched && r.Entry != nil {
			row.AddCell().SetString(r.Entry.Unit)
			row.AddCell().SetFloat(r.TotalAmount)
			row.AddCell().SetString(r.Entry.ID)
		} else {
			row.AddCell()
			row.AddCell()
			row.AddCell()
		}

		row.AddCell().SetString(r.Item.SectionContext())
		row.AddCell().SetString(r.Item.Source.SheetName)
		row.AddCell().SetInt(r.Item.Source.RowIndex)
	}

	if err := f.Save(path); err != nil {
		return eris.Wrap(err, "writer: save workbook")
	}
	return nil
}
