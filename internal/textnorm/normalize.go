// Package textnorm canonicalizes free-text BOQ descriptions ahead of
// embedding and matching. Normalize is pure and total: any input string maps
// to a deterministic output and never fails.
package textnorm

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	nonWordRe    = regexp.MustCompile(`[^a-z0-9\s]`)
	numberUnitRe = regexp.MustCompile(`\b\d+(?:\.\d+)?\s*(mm|cm|m|inch|in|ft|feet|yard|yd)\b`)
	bareNumberRe = regexp.MustCompile(`\b\d+(?:\.\d+)?\b`)
	whitespaceRe = regexp.MustCompile(`\s+`)
	punctRe      = regexp.MustCompile(`[^\w\s]`)
)

// deaccent strips combining marks so accented vendor text folds onto the
// ASCII tables below.
var deaccent = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Placeholders for measurement tokens. Both are shorter than the minimum
// token length, so pure-numeric input normalizes to the empty string.
const (
	unitToken   = "u"
	numberToken = "n"
)

// Normalize canonicalizes a description: lowercase, strip punctuation,
// collapse measurements, fold synonyms, stem, and drop stop words. Stemming
// is single-pass, so words carrying stacked suffixes ("addresses") lose one
// layer per call; every description passes through Normalize exactly once.
func Normalize(text string) string {
	s := strings.TrimSpace(strings.ToLower(text))
	if s == "" {
		return ""
	}

	if folded, _, err := transform.String(deaccent, s); err == nil {
		s = folded
	}

	s = nonWordRe.ReplaceAllString(s, " ")
	s = numberUnitRe.ReplaceAllString(s, " "+unitToken+" ")
	s = bareNumberRe.ReplaceAllString(s, " "+numberToken+" ")
	s = strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))

	var out []string
	for _, word := range strings.Fields(s) {
		if canon, ok := synonyms[word]; ok {
			word = canon
		}
		word = stem(word)
		if _, stop := stopWords[word]; stop {
			continue
		}
		if len(word) < 3 {
			continue
		}
		out = append(out, word)
	}

	return strings.Join(out, " ")
}

// stem removes the single longest matching suffix from words longer than
// four characters. One pass only; "fittings" becomes "fitt", not "fi".
func stem(word string) string {
	if len(word) <= 4 {
		return word
	}
	for _, suffix := range stemSuffixes {
		if strings.HasSuffix(word, suffix) {
			return word[:len(word)-len(suffix)]
		}
	}
	return word
}

// DedupKey produces the key used to suppress duplicate rows within one
// sheet. It is looser than Normalize: no stemming or synonym
// folding, so near-identical wording collapses but distinct items do not.
func DedupKey(text string) string {
	s := strings.TrimSpace(strings.ToLower(text))
	if s == "" {
		return ""
	}
	s = punctRe.ReplaceAllString(s, "")
	s = strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))

	var out []string
	for _, word := range strings.Fields(s) {
		if _, stop := dedupStopWords[word]; stop {
			continue
		}
		out = append(out, word)
	}
	return strings.Join(out, " ")
}
