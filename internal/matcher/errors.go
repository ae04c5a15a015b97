package matcher

import "github.com/rotisserie/eris"

// Configuration failures abort a run before any embedding call is made.
var (
	ErrNoCatalog     = eris.New("matcher: catalog has no valid entries")
	ErrNoItems       = eris.New("matcher: no items extracted from inquiry workbook")
	ErrMissingAPIKey = eris.New("matcher: cohere api key is not configured")
)
