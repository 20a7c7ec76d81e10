package analysis

import (
	"math"
	"strings"

	"github.com/alphagraph/alphagraph/pkg/models"
)

// ------------------------------------------------------------------
// Keyword-based sentiment scorer (offline, no LLM needed).
// When an LLM provider is configured the analyzer uses it instead;
// this file provides a deterministic fallback.
// ------------------------------------------------------------------

// bullish / bearish keyword dictionaries (lowercase).
var bullishWords = map[string]float64{
	"bullish": 0.7, "rally": 0.6, "surge": 0.7, "upbeat": 0.5,
	"positive": 0.4, "growth": 0.4, "upgrade": 0.6, "outperform": 0.6,
	"buy": 0.5, "strong": 0.4, "recovery": 0.5, "breakout": 0.6,
	"record high": 0.7, "all-time high": 0.7, "beat": 0.5,
	"exceeds": 0.5, "exceeded expectations": 0.6, "expansion": 0.4,
	"profit": 0.3, "dividend": 0.4, "soars": 0.6,
}

var bearishWords = map[string]float64{
	"bearish": 0.7, "crash": 0.8, "plunge": 0.7, "slump": 0.6,
	"negative": 0.4, "downgrade": 0.6, "underperform": 0.6,
	"sell": 0.5, "weak": 0.4, "decline": 0.5, "loss": 0.4,
	"selloff": 0.7, "fall": 0.4, "correction": 0.5,
	"default": 0.7, "fraud": 0.8, "investigation": 0.5,
	"cut": 0.3, "miss": 0.5, "warning": 0.5, "delays": 0.4,
	"drops": 0.5, "plummeted": 0.7,
}

// ScoreText returns a sentiment score for a block of text.
// Score ranges from -1.0 (very bearish) to +1.0 (very bullish).
// matches reports how many keywords fired, a rough signal strength.
func ScoreText(text string) (score float64, matches int) {
	lower := strings.ToLower(text)

	bullScore := 0.0
	bearScore := 0.0

	for word, weight := range bullishWords {
		if strings.Contains(lower, word) {
			bullScore += weight
			matches++
		}
	}

	for word, weight := range bearishWords {
		if strings.Contains(lower, word) {
			bearScore += weight
			matches++
		}
	}

	if matches == 0 {
		return 0, 0
	}

	total := bullScore + bearScore
	if total == 0 {
		return 0, matches
	}

	// Net score normalized to -1..+1.
	return (bullScore - bearScore) / total, matches
}

// ExtractCompanies returns tracked companies mentioned in the text,
// by company name or by symbol as a standalone uppercase token.
func ExtractCompanies(text string) []string {
	lower := strings.ToLower(text)
	tokens := tokenize(text)

	var found []string
	for _, c := range models.DefaultTrackedCompanies {
		if strings.Contains(lower, strings.ToLower(shortName(c.Name))) || tokens[c.Symbol] {
			found = append(found, c.Symbol)
		}
	}
	return found
}

// shortName strips corporate suffixes so "Apple Inc." matches "Apple".
func shortName(name string) string {
	for _, suffix := range []string{
		" Inc.", " Corporation", " Corp.", " & Co.", " Company",
		" Group Inc.", " Limited", " Platforms Inc.", " Motors Limited",
	} {
		name = strings.TrimSuffix(name, suffix)
	}
	return name
}

func tokenize(text string) map[string]bool {
	tokens := make(map[string]bool)
	for _, tok := range strings.FieldsFunc(text, func(r rune) bool {
		return !(r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	}) {
		tokens[tok] = true
	}
	return tokens
}

// applyLexicon fills an analysis from the keyword scorer. Impact scales
// with keyword density since strongly worded articles tend to move prices.
func applyLexicon(analysis *models.NewsAnalysis) {
	text := analysis.Headline
	if analysis.Content != "" {
		text += " " + analysis.Content
	}

	score, matches := ScoreText(text)
	analysis.SentimentScore = score
	analysis.SentimentLabel = models.LabelForScore(score)
	analysis.ImpactScore = impactFromMatches(matches)
	analysis.MentionedCompanies = ExtractCompanies(text)
	if analysis.MentionedCompanies == nil {
		analysis.MentionedCompanies = []string{}
	}
	analysis.KeyPoints = []string{"Keyword-based analysis; AI assessment unavailable"}
}

func impactFromMatches(matches int) int {
	if matches == 0 {
		return 5
	}
	return clampImpact(int(math.Min(float64(3+matches), 10)))
}
