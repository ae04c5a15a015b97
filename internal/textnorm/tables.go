package textnorm

// synonyms folds domain-specific construction terms to a canonical root so
// that inquiry and catalog wording converge before embedding.
var synonyms = map[string]string{
	// Building materials
	"bricks": "brick", "brickwork": "brick", "blocks": "brick", "blockwork": "brick",
	"masonry": "brick", "stonework": "stone", "tiles": "tile", "tiling": "tile",

	// Concrete and cement
	"cement": "concrete", "mortar": "concrete",
	"grout": "concrete", "screed": "concrete", "render": "concrete",

	// Foundation work
	"footing": "foundation", "footings": "foundation", "foundations": "foundation",
	"basement": "foundation", "substructure": "foundation",

	// Excavation and earthwork
	"excavation": "excavate", "excavations": "excavate",
	"dig": "excavate", "digging": "excavate", "earthwork": "excavate",
	"trenching": "excavate", "grading": "excavate",

	// Installation and construction
	"installation": "install", "installing": "install", "installed": "install",
	"construction": "build", "building": "build", "erection": "install",
	"assembly": "install", "fitting": "install",

	// Demolition and removal
	"demolition": "demolish", "demolishing": "demolish",
	"remove": "demolish", "removal": "demolish", "strip": "demolish",
	"break": "demolish", "dismantle": "demolish",

	// Supply and provision
	"supply": "provide", "supplies": "provide", "providing": "provide",
	"furnish": "provide", "deliver": "provide", "procurement": "provide",

	// Finishes
	"painting": "paint", "plastering": "plaster", "flooring": "floor",
	"roofing": "roof", "cladding": "clad", "insulation": "insulate",

	// MEP
	"electrical": "electric", "plumbing": "plumb", "hvac": "ventilation",
	"heating": "heat", "cooling": "cool", "ventilation": "ventilate",

	// Structural
	"reinforcement": "reinforce", "steelwork": "steel", "formwork": "form",
	"shuttering": "shutter", "framework": "frame",
}

// stopWords are dropped after synonym folding and stemming.
var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "of": {}, "to": {}, "in": {}, "for": {}, "on": {},
	"at": {}, "by": {}, "from": {}, "with": {}, "a": {}, "an": {}, "be": {},
	"is": {}, "are": {}, "as": {}, "it": {}, "its": {}, "into": {}, "or": {},
	"this": {}, "that": {}, "will": {}, "shall": {}, "would": {}, "could": {},
	"should": {}, "may": {}, "might": {}, "per": {}, "each": {}, "all": {},
	"any": {}, "some": {}, "no": {}, "not": {}, "only": {}, "such": {},
	"than": {}, "too": {}, "very": {}, "can": {}, "had": {}, "her": {},
	"was": {}, "one": {}, "our": {}, "out": {}, "day": {}, "get": {},
	"has": {}, "him": {}, "his": {}, "how": {}, "man": {}, "new": {},
	"now": {}, "old": {}, "see": {}, "two": {}, "way": {}, "who": {},
	"boy": {}, "did": {}, "use": {}, "she": {}, "they": {}, "we": {},
}

// dedupStopWords is the smaller set used only for duplicate-row keys.
var dedupStopWords = map[string]struct{}{
	"the": {}, "and": {}, "or": {}, "of": {}, "in": {}, "to": {}, "for": {},
	"with": {}, "by": {}, "at": {}, "on": {}, "as": {}, "per": {},
}

// stemSuffixes ordered longest first; only the single best match is removed.
var stemSuffixes = []string{"ings", "tion", "sion", "ing", "ed", "es", "s"}
