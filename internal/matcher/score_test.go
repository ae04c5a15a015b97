package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Abaaza/MJDv8/internal/config"
	"github.com/Abaaza/MJDv8/internal/model"
)

func testMatchConfig() config.MatchConfig {
	return config.MatchConfig{
		SimilarityThreshold: 0.3,
		CategoryBoost:       0.10,
		KeywordBoostMax:     0.15,
		PhraseBoostMax:      0.10,
		PhraseBoostStep:     0.05,
		UnitBoost:           0.10,
	}
}

func TestRank_IdenticalTextClampsToExcellent(t *testing.T) {
	s := NewScorer(testMatchConfig())

	item := model.InquiryItem{
		RawDescription:      "Excavate foundation trench",
		EnhancedDescription: "Excavate foundation trench",
		Quantity:            2,
	}
	catalog := []model.CatalogEntry{
		{ID: "C1", Description: "Excavate foundation trench", Rate: 50, Unit: "m3"},
	}
	vec := []float64{0.6, 0.8}

	r := s.Rank(item, catalog, vec, [][]float64{vec})

	require.True(t, r.Matched)
	assert.Equal(t, 1.0, r.SimilarityScore)
	assert.Equal(t, model.QualityExcellent, r.Quality)
	assert.Equal(t, 100.0, r.TotalAmount)
}

// Vectors with integer coordinates and a perfect-square norm give exactly
// representable cosine values, so the gate comparison is deterministic.
func TestRank_ThresholdGate(t *testing.T) {
	s := NewScorer(testMatchConfig())

	// No shared words, phrases, sections or units: boosts are all zero.
	item := model.InquiryItem{
		RawDescription:      "aaa bbb ccc",
		EnhancedDescription: "aaa bbb ccc",
		Quantity:            1,
	}
	catalog := []model.CatalogEntry{{ID: "C1", Description: "xxx yyy zzz", Rate: 10}}

	itemVec := []float64{1, 0, 0, 0, 0}

	// cosine = 29/100 = 0.29: unmatched.
	below := [][]float64{{29, 95, 11, 3, 2}}
	r := s.Rank(item, catalog, itemVec, below)
	assert.False(t, r.Matched)
	assert.Nil(t, r.Entry)
	assert.InDelta(t, 0.29, r.SimilarityScore, 1e-12)

	// cosine = 3/10 = 0.30: matched.
	at := [][]float64{{3, 9, 3, 1, 0}}
	r = s.Rank(item, catalog, itemVec, at)
	assert.True(t, r.Matched)
	require.NotNil(t, r.Entry)
	assert.InDelta(t, 0.30, r.SimilarityScore, 1e-12)
}

func TestRank_StableArgmaxPrefersFirst(t *testing.T) {
	s := NewScorer(testMatchConfig())

	item := model.InquiryItem{RawDescription: "aaa bbb ccc", Quantity: 1}
	catalog := []model.CatalogEntry{
		{ID: "first", Description: "xxx yyy zzz", Rate: 10},
		{ID: "second", Description: "qqq www eee", Rate: 20},
	}
	vec := []float64{1, 0}
	// Both candidates score identically.
	r := s.Rank(item, catalog, vec, [][]float64{{1, 0}, {1, 0}})

	require.True(t, r.Matched)
	assert.Equal(t, "first", r.Entry.ID)
}

func TestScore_CategoryBoost(t *testing.T) {
	s := NewScorer(testMatchConfig())
	entry := model.CatalogEntry{Description: "Excavate basement to reduced level", Rate: 10}

	withSection := model.InquiryItem{
		EnhancedDescription: "zzz",
		SectionPath:         []string{"GROUNDWORK", "Basement excavation"},
	}
	b := s.Score(withSection, entry, nil, nil)
	assert.Equal(t, 0.10, b.CategoryBoost)

	// Shared words of length <= 3 do not count.
	shortOnly := model.InquiryItem{
		EnhancedDescription: "zzz",
		SectionPath:         []string{"to"},
	}
	b = s.Score(shortOnly, entry, nil, nil)
	assert.Zero(t, b.CategoryBoost)

	noSection := model.InquiryItem{EnhancedDescription: "zzz"}
	b = s.Score(noSection, entry, nil, nil)
	assert.Zero(t, b.CategoryBoost)
}

func TestScore_KeywordBoostProportional(t *testing.T) {
	s := NewScorer(testMatchConfig())
	entry := model.CatalogEntry{Description: "supply concrete blocks", Rate: 10}

	// 2 of 4 significant words shared: half the maximum boost.
	item := model.InquiryItem{RawDescription: "supply concrete paving slabs"}
	b := s.Score(item, entry, nil, nil)
	assert.InDelta(t, 0.075, b.KeywordBoost, 1e-9)

	all := model.InquiryItem{RawDescription: "supply concrete blocks"}
	b = s.Score(all, entry, nil, nil)
	assert.InDelta(t, 0.15, b.KeywordBoost, 1e-9)

	none := model.InquiryItem{RawDescription: "qqq www eee"}
	b = s.Score(none, entry, nil, nil)
	assert.Zero(t, b.KeywordBoost)
}

func TestScore_KeywordBoostIgnoresSectionContext(t *testing.T) {
	s := NewScorer(testMatchConfig())
	entry := model.CatalogEntry{Description: "brick wall construction", Rate: 10}

	// Section titles feed the category boost only; they must not dilute the
	// keyword ratio, which is computed over the plain item description.
	item := model.InquiryItem{
		RawDescription:      "brick wall",
		EnhancedDescription: "GROUNDWORK AND EARTHWORKS > brick wall",
		SectionPath:         []string{"GROUNDWORK AND EARTHWORKS"},
	}

	b := s.Score(item, entry, nil, nil)
	assert.InDelta(t, 0.15, b.KeywordBoost, 1e-9)
}

func TestScore_PhraseBoost(t *testing.T) {
	s := NewScorer(testMatchConfig())

	item := model.InquiryItem{RawDescription: "galvanized steel handrail to staircase"}
	entry := model.CatalogEntry{Description: "Galvanized steel handrail to staircase, powder coated", Rate: 10}

	b := s.Score(item, entry, nil, nil)
	// Every 10-char window appears verbatim; capped at the maximum.
	assert.InDelta(t, 0.10, b.PhraseBoost, 1e-9)

	disjoint := model.CatalogEntry{Description: "completely different wording here", Rate: 10}
	b = s.Score(item, disjoint, nil, nil)
	assert.Zero(t, b.PhraseBoost)
}

func TestScore_PhraseBoostMatchesAtAnyOffset(t *testing.T) {
	s := NewScorer(testMatchConfig())

	// The shared phrase starts mid-description, so its 10-char windows sit
	// at offsets that are not multiples of the window length.
	item := model.InquiryItem{RawDescription: "zz supply and fix"}
	entry := model.CatalogEntry{Description: "Supply and fix brickwork", Rate: 10}

	b := s.Score(item, entry, nil, nil)
	assert.InDelta(t, 0.10, b.PhraseBoost, 1e-9)

	// A single matching window earns exactly one step.
	oneWindow := model.InquiryItem{RawDescription: "abcdefghij zz"}
	narrow := model.CatalogEntry{Description: "xx abcdefghij", Rate: 10}
	b = s.Score(oneWindow, narrow, nil, nil)
	assert.InDelta(t, 0.05, b.PhraseBoost, 1e-9)
}

func TestScore_UnitBoost(t *testing.T) {
	s := NewScorer(testMatchConfig())

	item := model.InquiryItem{EnhancedDescription: "excavate trench 25 m3 in firm ground"}

	b := s.Score(item, model.CatalogEntry{Description: "x", Unit: "m3", Rate: 10}, nil, nil)
	assert.Equal(t, 0.10, b.UnitBoost)

	b = s.Score(item, model.CatalogEntry{Description: "x", Unit: "kg", Rate: 10}, nil, nil)
	assert.Zero(t, b.UnitBoost)

	b = s.Score(item, model.CatalogEntry{Description: "x", Unit: "", Rate: 10}, nil, nil)
	assert.Zero(t, b.UnitBoost)
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, cosine([]float64{0.6, 0.8}, []float64{0.6, 0.8}), 1e-12)
	assert.Equal(t, 0.0, cosine([]float64{1, 0}, []float64{0, 1}))
	assert.Equal(t, -1.0, cosine([]float64{1, 0}, []float64{-1, 0}))

	// Unnormalized inputs are tolerated.
	assert.InDelta(t, 1.0, cosine([]float64{2, 0}, []float64{5, 0}), 1e-12)

	// Degenerate inputs score zero.
	assert.Zero(t, cosine(nil, nil))
	assert.Zero(t, cosine([]float64{1, 0}, []float64{1}))
	assert.Zero(t, cosine([]float64{0, 0}, []float64{1, 0}))
}
