package sheet

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/Abaaza/MJDv8/internal/model"
	"github.com/Abaaza/MJDv8/internal/textnorm"
)

// Price-list workbooks are better behaved than inquiry sheets, so a plain
// keyword scan over the first rows is enough to find the columns.
const catalogHeaderScanRows = 10

var catalogIDPatterns = []string{"id", "code", "ref", "item no"}
var catalogDescPatterns = []string{"description", "desc", "item", "particulars"}
var catalogRatePatterns = []string{"rate", "price", "cost", "amount"}
var catalogUnitPatterns = []string{"unit", "uom", "measure"}

type catalogLayout struct {
	headerRow int
	idCol     int
	descCol   int
	rateCol   int
	unitCol   int
}

// ParseCatalog reads price-list entries from workbook sheets. Rows without a
// description or with a non-positive rate are dropped; entries missing an id
// column get a sheet-and-row derived one.
func ParseCatalog(sheets []Sheet) ([]model.CatalogEntry, error) {
	var entries []model.CatalogEntry
	seen := make(map[string]struct{})

	for _, s := range sheets {
		layout, ok := detectCatalogLayout(s)
		if !ok {
			zap.L().Warn("sheet: no price-list columns found", zap.String("sheet", s.Name()))
			continue
		}

		for row := layout.headerRow + 1; row <= s.MaxRow(); row++ {
			description := s.Cell(row, layout.descCol)
			if description == "" {
				continue
			}

			rate, err := strconv.ParseFloat(strings.ReplaceAll(s.Cell(row, layout.rateCol), ",", ""), 64)
			if err != nil || rate <= 0 {
				continue
			}

			entry := model.CatalogEntry{
				ID:                    s.Cell(row, layout.idCol),
				Description:           description,
				NormalizedDescription: textnorm.Normalize(description),
				Rate:                  rate,
			}
			if layout.unitCol != 0 {
				entry.Unit = s.Cell(row, layout.unitCol)
			}
			if entry.ID == "" {
				entry.ID = fmt.Sprintf("%s-%d", s.Name(), row)
			}
			if _, dup := seen[entry.ID]; dup {
				continue
			}
			seen[entry.ID] = struct{}{}
			entries = append(entries, entry)
		}
	}

	if len(entries) == 0 {
		return nil, eris.New("sheet: no valid price-list entries in workbook")
	}
	return entries, nil
}

// detectCatalogLayout finds the header row carrying description and rate
// columns; id and unit columns are optional.
func detectCatalogLayout(s Sheet) (catalogLayout, bool) {
	maxRow := min(catalogHeaderScanRows, s.MaxRow())
	for row := 1; row <= maxRow; row++ {
		var layout catalogLayout
		for col := 1; col <= s.MaxCol(); col++ {
			value := strings.ToLower(s.Cell(row, col))
			if value == "" {
				continue
			}
			// "Item Code" must resolve to the id column, not description.
			switch {
			case layout.idCol == 0 && containsAny(value, catalogIDPatterns):
				layout.idCol = col
			case layout.descCol == 0 && containsAny(value, catalogDescPatterns):
				layout.descCol = col
			case layout.rateCol == 0 && containsAny(value, catalogRatePatterns):
				layout.rateCol = col
			case layout.unitCol == 0 && containsAny(value, catalogUnitPatterns):
				layout.unitCol = col
			}
		}
		if layout.descCol != 0 && layout.rateCol != 0 {
			layout.headerRow = row
			return layout, true
		}
	}
	return catalogLayout{}, false
}
