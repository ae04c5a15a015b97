package model

import "strings"

// SourceLocation records where an inquiry item was found in the workbook.
type SourceLocation struct {
	SheetName string `json:"sheet_name"`
	RowIndex  int    `json:"row_index"`
}

// InquiryItem is one extracted bill-of-quantities line item. Items are
// immutable once emitted by the extractor.
type InquiryItem struct {
	RawDescription        string         `json:"raw_description"`
	NormalizedDescription string         `json:"normalized_description"`
	EnhancedDescription   string         `json:"enhanced_description"`
	Quantity              float64        `json:"quantity"`
	Source                SourceLocation `json:"source"`
	SectionPath           []string       `json:"section_path,omitempty"`
}

// HeadTitle returns the innermost section title in scope for the item,
// or "" when the item sits outside any detected section.
func (it InquiryItem) HeadTitle() string {
	if len(it.SectionPath) == 0 {
		return ""
	}
	return it.SectionPath[len(it.SectionPath)-1]
}

// SectionContext renders the section path the way the output sheet shows it.
func (it InquiryItem) SectionContext() string {
	if len(it.SectionPath) == 0 {
		return "General"
	}
	return strings.Join(it.SectionPath, " > ")
}
