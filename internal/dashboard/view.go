package dashboard

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/alphagraph/alphagraph/pkg/models"
)

// Presentation rules for rendering dashboard state. These are pure
// functions so both the terminal renderer and any future UI share one
// mapping.

// TrendDirection describes how a company's average sentiment renders.
type TrendDirection string

const (
	TrendUp   TrendDirection = "up"
	TrendDown TrendDirection = "down"
	TrendFlat TrendDirection = "flat"
)

const (
	maxKeyPoints      = 3
	maxTrendingShown  = 8
	defaultBodyLength = 150
)

// SentimentClass maps a sentiment label to its style class.
func SentimentClass(label models.SentimentLabel) string {
	switch label {
	case models.SentimentBullish:
		return "bullish"
	case models.SentimentBearish:
		return "bearish"
	default:
		return "neutral"
	}
}

// ImpactTier buckets an impact score into a style class.
func ImpactTier(score int) string {
	switch {
	case score >= 8:
		return "impact-high"
	case score >= 6:
		return "impact-medium-high"
	case score >= 4:
		return "impact-medium"
	default:
		return "impact-low"
	}
}

// Direction maps an average sentiment to a trend direction. Scores of
// exactly ±0.2 render flat.
func Direction(avgSentiment float64) TrendDirection {
	switch {
	case avgSentiment > 0.2:
		return TrendUp
	case avgSentiment < -0.2:
		return TrendDown
	default:
		return TrendFlat
	}
}

// Arrow returns the glyph for a trend direction.
func (d TrendDirection) Arrow() string {
	switch d {
	case TrendUp:
		return "▲"
	case TrendDown:
		return "▼"
	default:
		return "▬"
	}
}

// Truncate shortens s to at most n runes, appending an ellipsis when
// anything was cut.
func Truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "..."
}

// TopKeyPoints returns the points shown on an analysis card.
func TopKeyPoints(points []string) []string {
	if len(points) > maxKeyPoints {
		return points[:maxKeyPoints]
	}
	return points
}

// VisibleTrending returns the trending entries shown on the dashboard.
func VisibleTrending(trending []models.TrendingCompany) []models.TrendingCompany {
	if len(trending) > maxTrendingShown {
		return trending[:maxTrendingShown]
	}
	return trending
}

// HasTrending reports whether the trending panel has anything to show.
func HasTrending(trending []models.TrendingCompany) bool {
	return len(trending) > 0
}

// RenderText writes a plain-text rendering of the dashboard, used by
// the CLI.
func RenderText(w io.Writer, snap Snapshot) {
	fmt.Fprintln(w, "AlphaGraph Dashboard")
	fmt.Fprintln(w, strings.Repeat("=", 60))

	if snap.Loading {
		fmt.Fprintln(w, "loading...")
		return
	}

	if HasTrending(snap.Trending) {
		fmt.Fprintln(w, "\nTrending Companies (24h)")
		for _, tc := range VisibleTrending(snap.Trending) {
			fmt.Fprintf(w, "  %s %-10s %2d mentions  sentiment %+.2f  impact %.1f\n",
				Direction(tc.AvgSentiment).Arrow(), tc.Company, tc.Mentions, tc.AvgSentiment, tc.AvgImpact)
		}
	}

	if len(snap.Analyses) == 0 {
		fmt.Fprintln(w, "\nNo analyses yet.")
		return
	}

	fmt.Fprintln(w, "\nRecent Analyses")
	for _, a := range snap.Analyses {
		fmt.Fprintf(w, "\n[%s] [%s] %s\n", SentimentClass(a.SentimentLabel), ImpactTier(a.ImpactScore), a.Headline)
		fmt.Fprintf(w, "  %s | %s\n", a.Source, a.PublishedAt.Format("2006-01-02 15:04"))
		fmt.Fprintf(w, "  %s\n", Truncate(a.Content, defaultBodyLength))
		for _, p := range TopKeyPoints(a.KeyPoints) {
			fmt.Fprintf(w, "  • %s\n", p)
		}
		if len(a.MentionedCompanies) > 0 {
			fmt.Fprintf(w, "  companies: %s\n", strings.Join(a.MentionedCompanies, ", "))
		}
	}
}
