// Package matcher scores inquiry items against a price catalog and
// orchestrates full matching runs.
package matcher

import (
	"math"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/Abaaza/MJDv8/internal/config"
	"github.com/Abaaza/MJDv8/internal/model"
)

const phraseLength = 10

// unitRe extracts a measurement unit token from free text: area, volume,
// length, mass, count and time units as they appear in BOQ descriptions.
var unitRe = regexp.MustCompile(`\b(m2|m²|m3|m³|sqm|cbm|mm|cm|lm|m|kg|tonnes?|nr|no|each|ea|pcs|item|hrs?|hours?|days?|wks?|weeks?|ltrs?|litres?)\b`)

var wordRe = regexp.MustCompile(`[a-z0-9]+`)

// Scorer ranks catalog entries for an inquiry item using cosine similarity
// plus heuristic boosts.
type Scorer struct {
	cfg config.MatchConfig
}

// NewScorer creates a Scorer with the given weights and threshold.
func NewScorer(cfg config.MatchConfig) *Scorer {
	return &Scorer{cfg: cfg}
}

// Rank selects the best catalog entry for an item. Every candidate receives
// the full boosted score so ranking stays stable; ties keep the first-seen
// candidate. A winning score below the similarity threshold yields an
// unmatched result rather than a low-confidence match.
func (s *Scorer) Rank(item model.InquiryItem, catalog []model.CatalogEntry, itemVec []float64, catalogVecs [][]float64) model.MatchResult {
	result := model.MatchResult{
		ID:   uuid.NewString(),
		Item: item,
	}

	bestIdx, bestScore := -1, 0.0
	for i := range catalog {
		breakdown := s.Score(item, catalog[i], itemVec, catalogVecs[i])
		if score := breakdown.Total(); score > bestScore {
			bestIdx, bestScore = i, score
		}
	}

	if bestIdx < 0 || bestScore < s.cfg.SimilarityThreshold {
		// Below the gate the best score is still recorded for reporting.
		result.SimilarityScore = bestScore
		result.Quality = model.QualityForScore(bestScore)
		return result
	}

	entry := catalog[bestIdx]
	result.Matched = true
	result.Entry = &entry
	result.SimilarityScore = bestScore
	result.Quality = model.QualityForScore(bestScore)
	result.TotalAmount = item.Quantity * entry.Rate
	return result
}

// Score computes the per-component breakdown for one candidate. Keyword and
// phrase boosts look at the plain item description; section context feeds
// only the category boost, and unit extraction sees the full enhanced text.
func (s *Scorer) Score(item model.InquiryItem, entry model.CatalogEntry, itemVec, entryVec []float64) model.ScoreBreakdown {
	itemDesc := strings.ToLower(item.RawDescription)
	enhancedDesc := strings.ToLower(item.EnhancedDescription)
	entryDesc := strings.ToLower(entry.Description)

	return model.ScoreBreakdown{
		BaseSimilarity: cosine(itemVec, entryVec),
		CategoryBoost:  s.categoryBoost(item.HeadTitle(), entryDesc),
		KeywordBoost:   s.keywordBoost(itemDesc, entryDesc),
		PhraseBoost:    s.phraseBoost(itemDesc, entryDesc),
		UnitBoost:      s.unitBoost(enhancedDesc, entry.Unit),
	}
}

// categoryBoost fires when the item's innermost section title shares a word
// longer than 3 characters with the catalog description.
func (s *Scorer) categoryBoost(sectionTitle, entryDesc string) float64 {
	if sectionTitle == "" {
		return 0
	}
	entryWords := wordSet(entryDesc, 0)
	for _, w := range wordRe.FindAllString(strings.ToLower(sectionTitle), -1) {
		if len(w) <= 3 {
			continue
		}
		if _, ok := entryWords[w]; ok {
			return s.cfg.CategoryBoost
		}
	}
	return 0
}

// keywordBoost is proportional to the share of the item's significant words
// (longer than 2 characters) that also appear in the catalog description.
func (s *Scorer) keywordBoost(itemDesc, entryDesc string) float64 {
	itemWords := wordSet(itemDesc, 2)
	if len(itemWords) == 0 {
		return 0
	}
	entryWords := wordSet(entryDesc, 2)

	common := 0
	for w := range itemWords {
		if _, ok := entryWords[w]; ok {
			common++
		}
	}
	return s.cfg.KeywordBoostMax * float64(common) / float64(len(itemWords))
}

// phraseBoost adds one step for each 10-char substring of the item
// description, at any offset, found verbatim in the catalog description,
// up to the cap.
func (s *Scorer) phraseBoost(itemDesc, entryDesc string) float64 {
	boost := 0.0
	for i := 0; i+phraseLength <= len(itemDesc) && boost < s.cfg.PhraseBoostMax; i++ {
		if strings.Contains(entryDesc, itemDesc[i:i+phraseLength]) {
			boost += s.cfg.PhraseBoostStep
		}
	}
	return math.Min(boost, s.cfg.PhraseBoostMax)
}

// unitBoost fires when a unit token in the item text and the catalog entry's
// unit contain one another.
func (s *Scorer) unitBoost(itemDesc, entryUnit string) float64 {
	entryUnit = strings.ToLower(strings.TrimSpace(entryUnit))
	if entryUnit == "" {
		return 0
	}
	for _, token := range unitRe.FindAllString(itemDesc, -1) {
		if strings.Contains(entryUnit, token) || strings.Contains(token, entryUnit) {
			return s.cfg.UnitBoost
		}
	}
	return 0
}

// cosine computes cosine similarity, tolerating unnormalized vectors.
// Mismatched or zero-magnitude vectors score 0.
func cosine(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func wordSet(text string, minLen int) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range wordRe.FindAllString(text, -1) {
		if len(w) > minLen {
			set[w] = struct{}{}
		}
	}
	return set
}
