package model

// CatalogEntry is a single reference price-list record. Entries are loaded
// once per run and never mutated while matching is in progress.
type CatalogEntry struct {
	ID                    string  `json:"id"`
	Description           string  `json:"description"`
	NormalizedDescription string  `json:"normalized_description"`
	Rate                  float64 `json:"rate"`
	Unit                  string  `json:"unit"`
}

// Valid reports whether the entry can participate in matching.
// Entries without a description or with a non-positive rate are rejected
// at load time.
func (e CatalogEntry) Valid() bool {
	return e.Description != "" && e.Rate > 0
}
