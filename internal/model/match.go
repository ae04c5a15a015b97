package model

// QualityLabel is the human-readable confidence tier for a match.
type QualityLabel string

const (
	QualityExcellent QualityLabel = "Excellent"
	QualityVeryGood  QualityLabel = "Very Good"
	QualityGood      QualityLabel = "Good"
	QualityFair      QualityLabel = "Fair"
	QualityPoor      QualityLabel = "Poor"
	QualityVeryPoor  QualityLabel = "Very Poor"
)

// QualityForScore maps a similarity score to its confidence tier.
func QualityForScore(score float64) QualityLabel {
	switch {
	case score >= 0.9:
		return QualityExcellent
	case score >= 0.8:
		return QualityVeryGood
	case score >= 0.7:
		return QualityGood
	case score >= 0.6:
		return QualityFair
	case score >= 0.5:
		return QualityPoor
	default:
		return QualityVeryPoor
	}
}

// MatchResult is the outcome of ranking one inquiry item against the
// catalog. Exactly one result exists per item per run; Matched is false when
// the best score fell below the similarity threshold.
type MatchResult struct {
	ID              string        `json:"id"`
	Item            InquiryItem   `json:"item"`
	Matched         bool          `json:"matched"`
	Entry           *CatalogEntry `json:"entry,omitempty"`
	SimilarityScore float64       `json:"similarity_score"`
	Quality         QualityLabel  `json:"quality"`
	TotalAmount     float64       `json:"total_amount"`
}

// ScoreBreakdown itemizes how a candidate's final score was assembled.
// Kept alongside the winning result for debugging threshold decisions.
type ScoreBreakdown struct {
	BaseSimilarity float64 `json:"base_similarity"`
	CategoryBoost  float64 `json:"category_boost"`
	KeywordBoost   float64 `json:"keyword_boost"`
	PhraseBoost    float64 `json:"phrase_boost"`
	UnitBoost      float64 `json:"unit_boost"`
}

// Total returns the clamped final score.
func (b ScoreBreakdown) Total() float64 {
	s := b.BaseSimilarity + b.CategoryBoost + b.KeywordBoost + b.PhraseBoost + b.UnitBoost
	if s > 1.0 {
		return 1.0
	}
	return s
}
