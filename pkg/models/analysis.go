// Package models defines the shared data types for AlphaGraph:
// analyzed news articles, trending-company aggregates, and the tracked
// company universe.
package models

import (
	"strings"
	"time"
)

// SentimentLabel classifies the market direction implied by an article.
type SentimentLabel string

const (
	SentimentBullish SentimentLabel = "BULLISH"
	SentimentBearish SentimentLabel = "BEARISH"
	SentimentNeutral SentimentLabel = "NEUTRAL"
)

// ParseSentimentLabel normalizes a free-form label (e.g. from an LLM reply)
// to one of the three canonical values. Unknown input maps to NEUTRAL.
func ParseSentimentLabel(s string) SentimentLabel {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BULLISH":
		return SentimentBullish
	case "BEARISH":
		return SentimentBearish
	default:
		return SentimentNeutral
	}
}

// LabelForScore maps a numeric sentiment score (-1..1) to a label using
// the ±0.2 thresholds shared across the service.
func LabelForScore(score float64) SentimentLabel {
	switch {
	case score > 0.2:
		return SentimentBullish
	case score < -0.2:
		return SentimentBearish
	default:
		return SentimentNeutral
	}
}

// NewsAnalysis is a single AI-derived assessment of one news article.
// It is immutable once produced by the analysis pipeline.
type NewsAnalysis struct {
	ID                 string         `json:"id"`
	Headline           string         `json:"headline"`
	Content            string         `json:"content"`
	Source             string         `json:"source"`
	URL                string         `json:"url,omitempty"`
	PublishedAt        time.Time      `json:"published_date"`
	MentionedCompanies []string       `json:"mentioned_companies"`
	SentimentScore     float64        `json:"sentiment_score"` // -1.0 to +1.0
	SentimentLabel     SentimentLabel `json:"sentiment_label"`
	ImpactScore        int            `json:"impact_score"` // 1 (low) to 10 (high)
	KeyPoints          []string       `json:"key_points"`
	AnalysisTimestamp  time.Time      `json:"analysis_timestamp"`
}

// DraftArticle is a client-side article awaiting submission for analysis.
type DraftArticle struct {
	Headline string `json:"headline"`
	Content  string `json:"content"`
	Source   string `json:"source"`
	URL      string `json:"url,omitempty"`
}

// TrendingCompany is an aggregate of mentions for one company over the
// trends window. Computed server-side; clients hold read-only snapshots.
type TrendingCompany struct {
	Company      string  `json:"_id"` // company name/symbol as mentioned
	Mentions     int     `json:"count"`
	AvgSentiment float64 `json:"avg_sentiment"` // -1..1
	AvgImpact    float64 `json:"avg_impact"`    // 1..10
}

// TrendsSnapshot is the full /api/trends response payload.
type TrendsSnapshot struct {
	TrendingCompanies []TrendingCompany `json:"trending_companies"`
	AnalysisPeriod    string            `json:"analysis_period"`
	TotalAnalyses     int               `json:"total_analyses"`
}

// CompanySummary aggregates recent analyses that mention a company.
type CompanySummary struct {
	TotalMentions      int            `json:"total_mentions"`
	AvgSentimentScore  float64        `json:"avg_sentiment_score"`
	AvgImpactScore     float64        `json:"avg_impact_score"`
	SentimentLabel     SentimentLabel `json:"sentiment_label"`
	AnalysisPeriodDays int            `json:"analysis_period_days"`
}
