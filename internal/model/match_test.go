package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQualityForScore_Bands(t *testing.T) {
	cases := []struct {
		score float64
		want  QualityLabel
	}{
		{1.0, QualityExcellent},
		{0.9, QualityExcellent},
		{0.85, QualityVeryGood},
		{0.8, QualityVeryGood},
		{0.75, QualityGood},
		{0.65, QualityFair},
		{0.55, QualityPoor},
		{0.5, QualityPoor},
		{0.49, QualityVeryPoor},
		{0.0, QualityVeryPoor},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, QualityForScore(tc.score), "score %v", tc.score)
	}
}

func TestScoreBreakdown_TotalClamps(t *testing.T) {
	b := ScoreBreakdown{
		BaseSimilarity: 0.95,
		CategoryBoost:  0.1,
		KeywordBoost:   0.15,
	}
	assert.Equal(t, 1.0, b.Total())

	b = ScoreBreakdown{BaseSimilarity: 0.4, UnitBoost: 0.1}
	assert.InDelta(t, 0.5, b.Total(), 1e-9)
}

func TestCatalogEntry_Valid(t *testing.T) {
	assert.True(t, CatalogEntry{Description: "Excavate trench", Rate: 50}.Valid())
	assert.False(t, CatalogEntry{Description: "Excavate trench", Rate: 0}.Valid())
	assert.False(t, CatalogEntry{Description: "", Rate: 10}.Valid())
}

func TestInquiryItem_SectionContext(t *testing.T) {
	it := InquiryItem{SectionPath: []string{"GROUNDWORK", "Trenches"}}
	assert.Equal(t, "GROUNDWORK > Trenches", it.SectionContext())
	assert.Equal(t, "Trenches", it.HeadTitle())

	empty := InquiryItem{}
	assert.Equal(t, "General", empty.SectionContext())
	assert.Equal(t, "", empty.HeadTitle())
}
