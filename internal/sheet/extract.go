package sheet

import (
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/Abaaza/MJDv8/internal/model"
	"github.com/Abaaza/MJDv8/internal/textnorm"
)

// maxSectionDepth bounds the section context carried onto items.
const maxSectionDepth = 3

// sectionMarkerRes match numbered bill/part/section/chapter headings.
var sectionMarkerRes = []*regexp.Regexp{
	regexp.MustCompile(`^BILL\s+N[RO]?\.?\s*\d+`), // BILL NR 2005, BILL NO. 1
	regexp.MustCompile(`^SUB[-\s]?BILL`),
	regexp.MustCompile(`^PART\s+[A-Z0-9]`),
	regexp.MustCompile(`^SECTION\s+[A-Z0-9]`),
	regexp.MustCompile(`^CHAPTER\s+[A-Z0-9]`),
	regexp.MustCompile(`^[A-Z]\d{2,}`), // A393, D20
	regexp.MustCompile(`^\d+\.\d+`),    // 2005.02, 1.1
}

// boqSections are trade divisions commonly used as BOQ headings.
var boqSections = []string{
	"GROUNDWORK", "SUBSTRUCTURES", "SUPERSTRUCTURE", "ROOFING", "EXTERNAL WALLS",
	"INTERNAL WALLS", "FLOORS", "STAIRS", "ROOF", "EXTERNAL DOORS", "WINDOWS",
	"INTERNAL DOORS", "WALL FINISHES", "FLOOR FINISHES", "CEILING FINISHES",
	"FITTINGS", "DISPOSAL SYSTEMS", "WATER INSTALLATIONS", "HEAT SOURCE",
	"SPACE HEATING", "VENTILATION", "ELECTRICAL INSTALLATIONS", "LIFT INSTALLATIONS",
	"PROTECTIVE INSTALLATIONS", "COMMUNICATION INSTALLATIONS", "SPECIAL INSTALLATIONS",
	"BUILDERS WORK", "DRAINAGE", "EXTERNAL WORKS", "DEMOLITION", "ALTERATIONS",
}

// rowDenylist holds descriptions that are never items.
var rowDenylist = map[string]struct{}{
	"total": {}, "subtotal": {}, "grand total": {}, "page": {},
}

var leadingNumberRe = regexp.MustCompile(`\d+\.?\d*`)

// sectionStack tracks the hierarchy of headings currently in scope.
// Depth never exceeds maxSectionDepth.
type sectionStack struct {
	titles []string
}

// push classifies the title by its formatting: a long all-caps title starts a
// new major section, a short all-caps title replaces the top entry, anything
// else nests one level deeper.
func (st *sectionStack) push(title string) {
	title = strings.TrimSpace(title)
	allCaps := title == strings.ToUpper(title)

	switch {
	case allCaps && len(title) > 10:
		st.titles = []string{title}
	case allCaps:
		if len(st.titles) == 0 {
			st.titles = []string{title}
		} else {
			st.titles[len(st.titles)-1] = title
		}
	default:
		st.titles = append(st.titles, title)
		if len(st.titles) > maxSectionDepth {
			st.titles = st.titles[len(st.titles)-maxSectionDepth:]
		}
	}
}

func (st *sectionStack) path() []string {
	if len(st.titles) == 0 {
		return nil
	}
	out := make([]string, len(st.titles))
	copy(out, st.titles)
	return out
}

// Extractor walks data rows below a detected header and emits inquiry items.
type Extractor struct{}

// NewExtractor creates an Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract returns the line items of a sheet given its detected layout.
// Section headings update the context stack and are never emitted; duplicate
// descriptions within the sheet are suppressed. A sheet with no extractable
// items yields an empty slice, not an error.
func (e *Extractor) Extract(s Sheet, det Detection) []model.InquiryItem {
	log := zap.L().With(zap.String("sheet", s.Name()))

	var items []model.InquiryItem
	var stack sectionStack
	seen := make(map[string]struct{})

	for row := det.HeaderRow + 1; row <= s.MaxRow(); row++ {
		description := s.Cell(row, det.DescCol)
		if description == "" {
			continue
		}

		quantity, found := e.rowQuantity(s, row, det)

		if isSectionHeader(description, quantity, found) {
			stack.push(description)
			continue
		}

		if _, denied := rowDenylist[strings.ToLower(description)]; denied {
			continue
		}

		// Rate-only / lump-sum rows keep a unit quantity rather than
		// being discarded.
		if !found || quantity <= 0 {
			quantity = 1.0
		}

		key := textnorm.DedupKey(description)
		if _, dup := seen[key]; dup {
			log.Debug("sheet: duplicate row skipped", zap.Int("row", row))
			continue
		}
		seen[key] = struct{}{}

		enhanced := description
		if path := stack.path(); len(path) > 0 {
			enhanced = strings.Join(path, " > ") + " > " + description
		}

		items = append(items, model.InquiryItem{
			RawDescription:        description,
			NormalizedDescription: textnorm.Normalize(enhanced),
			EnhancedDescription:   enhanced,
			Quantity:              quantity,
			Source:                model.SourceLocation{SheetName: s.Name(), RowIndex: row},
			SectionPath:           stack.path(),
		})
	}

	log.Info("sheet: extraction complete",
		zap.Int("items", len(items)),
		zap.Int("rows", s.MaxRow()-det.HeaderRow),
	)

	return items
}

// rowQuantity reads the quantity for a row. With a known quantity column it
// extracts the first number from the cell, tolerating thousands separators
// and trailing unit text ("5,000.00 m2"). Without one, it scans a small
// window of nearby columns for the first positive numeric cell.
func (e *Extractor) rowQuantity(s Sheet, row int, det Detection) (float64, bool) {
	if det.QtyCol != 0 {
		raw := strings.ReplaceAll(s.Cell(row, det.QtyCol), ",", "")
		if m := leadingNumberRe.FindString(raw); m != "" {
			if f, err := strconv.ParseFloat(m, 64); err == nil {
				return f, true
			}
		}
		return 0, false
	}

	for col := max(1, det.DescCol-2); col <= min(s.MaxCol(), det.DescCol+5); col++ {
		if col == det.DescCol {
			continue
		}
		value := s.Cell(row, col)
		if value == "" {
			continue
		}
		if f, err := strconv.ParseFloat(strings.ReplaceAll(value, ",", ""), 64); err == nil && f > 0 {
			return f, true
		}
	}
	return 0, false
}

// isSectionHeader reports whether a row is a heading rather than an item.
// Rows with a positive quantity are always items.
func isSectionHeader(description string, quantity float64, found bool) bool {
	if found && quantity > 0 {
		return false
	}

	upper := strings.ToUpper(strings.TrimSpace(description))

	for _, re := range sectionMarkerRes {
		if re.MatchString(upper) {
			return true
		}
	}

	for _, section := range boqSections {
		if strings.Contains(upper, section) {
			return true
		}
	}

	// Long all-caps text reads as a heading, not an item description.
	return upper == description && len(description) > 15
}
