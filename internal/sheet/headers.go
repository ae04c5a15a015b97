package sheet

import (
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/Abaaza/MJDv8/internal/config"
)

// Detection locates the table inside an unlabeled sheet. QtyCol is 0 when no
// quantity column was found; the extractor then scans nearby columns per row.
type Detection struct {
	HeaderRow int
	DescCol   int
	QtyCol    int
}

// descPatterns indicate a description-bearing header cell.
var descPatterns = []string{
	"description", "desc", "item", "work", "activity", "task", "operation",
	"specification", "spec", "details", "particulars", "trade", "element",
	"component", "material", "labor", "labour", "service", "works",
	"ref", "reference", "code", "product", "title", "name", "category",
}

// qtyPatterns indicate a quantity-bearing header cell.
var qtyPatterns = []string{
	"qty", "quantity", "quan", "qnty", "qtty", "quantities",
	"amount", "amt", "number", "no.", "no", "nr", "num", "#",
	"units", "unit", "count", "cnt", "total", "sum",
	"volume", "area", "length", "width", "height", "depth",
	"m2", "m²", "m3", "m³", "sqm", "cbm", "linear", "lm",
	"sq.m", "cu.m", "square", "cubic", "metres", "meters",
	"each", "ea", "pcs", "pieces", "items", "nos", "numbers",
	"kg", "tonnes", "tons", "litres", "liters", "hours", "hrs",
	"extent", "measure", "size", "dimension", "scope",
}

// Cells matching these are never accepted as description/quantity headers.
var descExcludes = []string{"note", "remark", "comment", "total", "sum", "page"}
var qtyExcludes = []string{"description", "note", "remark", "comment", "page"}

// otherHeaderPatterns weakly confirm that a row is a header row.
var otherHeaderPatterns = []string{"rate", "price", "cost", "value", "total", "unit", "measure"}

var pureNumberRe = regexp.MustCompile(`^\d+(\.\d+)?$`)
var hasLetterRe = regexp.MustCompile(`[a-zA-Z]`)

// Detector finds the header row and the description/quantity columns of a
// sheet using keyword patterns backed by data-sampling quality scores.
type Detector struct {
	cfg config.DetectConfig
}

// NewDetector creates a Detector with the given tunables.
func NewDetector(cfg config.DetectConfig) *Detector {
	return &Detector{cfg: cfg}
}

type descCandidate struct {
	row     int
	col     int
	quality int
	header  string
}

// Detect scans the sheet for its table layout. It reports ok=false only when
// the sheet is too small to contain data; otherwise degraded fallbacks keep
// it usable, ultimately settling on column 1 at row 1.
func (d *Detector) Detect(s Sheet) (Detection, bool) {
	if s.MaxRow() < 3 || s.MaxCol() < 2 {
		return Detection{}, false
	}

	log := zap.L().With(zap.String("sheet", s.Name()))

	var det Detection
	var candidates []descCandidate

	maxHeaderRow := min(d.cfg.MaxHeaderRows, s.MaxRow())
	for row := 1; row <= maxHeaderRow; row++ {
		headerIndicators := 0.0
		potentialQty := 0

		for col := 1; col <= s.MaxCol(); col++ {
			value := strings.ToLower(s.Cell(row, col))
			if value == "" {
				continue
			}

			if containsAny(value, descPatterns) && !containsAny(value, descExcludes) {
				quality := d.descColumnQuality(s, row, col)
				candidates = append(candidates, descCandidate{
					row: row, col: col, quality: quality, header: s.Cell(row, col),
				})
				log.Debug("sheet: description header candidate",
					zap.Int("row", row), zap.Int("col", col), zap.Int("quality", quality))
			}

			if containsAny(value, qtyPatterns) && !containsAny(value, qtyExcludes) {
				potentialQty = col
				headerIndicators++
			}

			if containsAny(value, otherHeaderPatterns) {
				headerIndicators += 0.5
			}
		}

		if potentialQty != 0 && headerIndicators >= 1 {
			det.QtyCol = potentialQty
			if det.HeaderRow == 0 {
				det.HeaderRow = row
			}
		}
	}

	// Pick the best-validated description column.
	if len(candidates) > 0 {
		best := candidates[0]
		for _, c := range candidates[1:] {
			if c.quality > best.quality {
				best = c
			}
		}
		if best.quality >= d.cfg.MinDescQuality {
			det.DescCol = best.col
			det.HeaderRow = best.row
			log.Debug("sheet: selected description column",
				zap.Int("col", best.col), zap.String("header", best.header), zap.Int("quality", best.quality))
		} else {
			log.Warn("sheet: best description candidate below quality threshold",
				zap.Int("quality", best.quality))
		}
	}

	// Fallback: first column whose data looks like descriptions.
	if det.DescCol == 0 {
		for col := 1; col <= min(10, s.MaxCol()); col++ {
			if d.descColumnQuality(s, 1, col) >= d.cfg.FallbackMinQuality {
				det.DescCol = col
				det.HeaderRow = 1
				log.Warn("sheet: description column fallback", zap.Int("col", col))
				break
			}
		}
	}

	// Last resort keeps the sheet processable.
	if det.DescCol == 0 {
		det.DescCol = 1
		det.HeaderRow = 1
		log.Warn("sheet: no description column detected, using column 1")
	}
	if det.HeaderRow == 0 {
		det.HeaderRow = 1
	}

	// No quantity column found by name: score columns directly. This runs
	// after the description fallbacks so fallback-detected sheets get a
	// quantity column too.
	if det.QtyCol == 0 {
		det.QtyCol = d.adaptiveQtySearch(s, det.HeaderRow, det.DescCol)
	}

	return det, true
}

// adaptiveQtySearch scores up to the first MaxSearchColumns columns for
// quantity-like data and returns the best one, or 0.
func (d *Detector) adaptiveQtySearch(s Sheet, headerRow, descCol int) int {
	bestCol, bestScore := 0, 0
	for col := 1; col <= min(s.MaxCol(), d.cfg.MaxSearchColumns); col++ {
		if col == descCol {
			continue
		}
		quality := d.qtyColumnQuality(s, headerRow, col)
		if quality > bestScore && quality >= d.cfg.MinQtyQuality {
			bestScore = quality
			bestCol = col
		}
	}
	if bestCol != 0 {
		zap.L().Debug("sheet: adaptive quantity column search",
			zap.String("sheet", s.Name()), zap.Int("col", bestCol), zap.Int("quality", bestScore))
	}
	return bestCol
}

// descColumnQuality samples data rows below a candidate header and scores how
// description-like the column's contents are (0-10; higher is better).
func (d *Detector) descColumnQuality(s Sheet, headerRow, col int) int {
	textRows, meaningfulRows, numericRows, shortRows, totalLength := 0, 0, 0, 0, 0

	maxRow := min(headerRow+d.cfg.SampleRows, s.MaxRow())
	for row := headerRow + 1; row <= maxRow; row++ {
		value := s.Cell(row, col)
		if value == "" {
			continue
		}
		textRows++
		totalLength += len(value)

		if pureNumberRe.MatchString(value) {
			numericRows++
		}
		if len(value) <= 3 {
			shortRows++
		}
		if len(value) > 10 && hasLetterRe.MatchString(value) {
			meaningfulRows++
		}
	}

	if textRows == 0 {
		return 0
	}

	averageLength := float64(totalLength) / float64(textRows)
	meaningfulRatio := float64(meaningfulRows) / float64(textRows)
	numericRatio := float64(numericRows) / float64(textRows)
	shortRatio := float64(shortRows) / float64(textRows)

	quality := 1

	switch {
	case meaningfulRatio > 0.7:
		quality += 5
	case meaningfulRatio > 0.5:
		quality += 3
	case meaningfulRatio > 0.3:
		quality += 1
	}

	switch {
	case averageLength > 30:
		quality += 3
	case averageLength > 15:
		quality += 2
	case averageLength > 5:
		quality += 1
	}

	switch {
	case numericRatio > 0.8:
		quality -= 5
	case numericRatio > 0.5:
		quality -= 3
	case numericRatio > 0.3:
		quality -= 1
	}

	switch {
	case shortRatio > 0.8:
		quality -= 3
	case shortRatio > 0.5:
		quality -= 2
	}

	return max(0, quality)
}

// qtyColumnQuality scores how quantity-like a column's sampled contents are:
// mostly numeric, mostly positive, with decimals being a good sign.
func (d *Detector) qtyColumnQuality(s Sheet, headerRow, col int) int {
	totalRows, numericRows, positiveRows, decimalRows := 0, 0, 0, 0

	maxRow := min(headerRow+d.cfg.SampleRows, s.MaxRow())
	for row := headerRow + 1; row <= maxRow; row++ {
		value := s.Cell(row, col)
		if value == "" {
			continue
		}
		totalRows++

		f, err := strconv.ParseFloat(strings.ReplaceAll(value, ",", ""), 64)
		if err != nil {
			continue
		}
		numericRows++
		if f > 0 {
			positiveRows++
		}
		if strings.ContainsAny(value, ".,") {
			decimalRows++
		}
	}

	if totalRows == 0 {
		return 0
	}

	numericRatio := float64(numericRows) / float64(totalRows)
	positiveRatio := float64(positiveRows) / float64(totalRows)

	quality := 0
	switch {
	case numericRatio > 0.7:
		quality += 3
	case numericRatio > 0.5:
		quality += 2
	case numericRatio > 0.3:
		quality += 1
	}
	switch {
	case positiveRatio > 0.5:
		quality += 2
	case positiveRatio > 0.3:
		quality += 1
	}
	if decimalRows > 0 {
		quality++
	}

	return quality
}

func containsAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
