// Package analysis turns raw news articles into structured NewsAnalysis
// records. The primary path asks an LLM for a JSON assessment; when no
// provider is configured or the call fails, a keyword lexicon produces a
// deterministic offline result instead.
package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alphagraph/alphagraph/internal/llm"
	"github.com/alphagraph/alphagraph/pkg/models"
)

const systemPrompt = `You are an expert financial analyst specializing in market sentiment analysis and company identification.

Your task is to analyze financial news and provide structured insights. Always respond with valid JSON only, no other text.

Analyze the given news and return a JSON object with these exact fields:
{
    "sentiment_score": float between -1.0 and 1.0 (-1 very bearish, 0 neutral, 1 very bullish),
    "sentiment_label": "BULLISH" or "BEARISH" or "NEUTRAL",
    "impact_score": integer between 1 and 10 (1 low impact, 10 high impact on stock prices),
    "mentioned_companies": [list of company names and stock symbols found in the text],
    "key_points": [list of 3-5 key insights that could affect stock prices],
    "reasoning": "brief explanation of the sentiment and impact assessment"
}

Focus on:
- Market-moving information
- Company-specific news
- Industry trends
- Economic indicators
- Regulatory changes
- Earnings and financial performance`

// Analyzer produces NewsAnalysis records from draft articles.
type Analyzer struct {
	provider llm.Provider
	opts     llm.ChatOptions
	now      func() time.Time
}

// Option configures the analyzer.
type Option func(*Analyzer)

// WithChatOptions sets the model, temperature, and token limit for LLM calls.
func WithChatOptions(opts llm.ChatOptions) Option {
	return func(a *Analyzer) { a.opts = opts }
}

// WithClock overrides the time source (used in tests).
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) { a.now = now }
}

// NewAnalyzer creates an analyzer backed by the given LLM provider.
// A nil provider is allowed; every article then takes the lexicon path.
func NewAnalyzer(provider llm.Provider, opts ...Option) *Analyzer {
	a := &Analyzer{
		provider: provider,
		opts:     llm.ChatOptions{Temperature: 0.1, MaxTokens: 2048},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze assesses one article. It never returns a nil analysis on a
// provider failure; the lexicon or default result is used instead. Only
// context cancellation aborts the call.
func (a *Analyzer) Analyze(ctx context.Context, draft models.DraftArticle) (*models.NewsAnalysis, error) {
	analysis := a.newAnalysis(draft)

	if a.provider == nil {
		applyLexicon(analysis)
		return analysis, nil
	}

	resp, err := a.provider.Chat(ctx, []llm.Message{
		llm.SystemMessage(systemPrompt),
		llm.UserMessage(buildPrompt(draft)),
	}, &a.opts)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Printf("analysis: LLM call failed: %v, using lexicon fallback", err)
		applyLexicon(analysis)
		return analysis, nil
	}

	raw, err := parseResult(resp.Content)
	if err != nil {
		log.Printf("analysis: unparseable LLM reply: %v", err)
		applyDefaults(analysis)
		return analysis, nil
	}

	applyResult(analysis, raw)
	return analysis, nil
}

// newAnalysis seeds a record with identity and article fields.
func (a *Analyzer) newAnalysis(draft models.DraftArticle) *models.NewsAnalysis {
	now := a.now().UTC()
	return &models.NewsAnalysis{
		ID:                 uuid.NewString(),
		Headline:           draft.Headline,
		Content:            draft.Content,
		Source:             draft.Source,
		URL:                draft.URL,
		PublishedAt:        now,
		MentionedCompanies: []string{},
		KeyPoints:          []string{},
		AnalysisTimestamp:  now,
	}
}

func buildPrompt(draft models.DraftArticle) string {
	return fmt.Sprintf(`HEADLINE: %s

CONTENT: %s

Please analyze this financial news and provide the structured JSON response as specified in your instructions.`,
		draft.Headline, draft.Content)
}

// ── Result Parsing ──

type rawResult struct {
	SentimentScore     float64  `json:"sentiment_score"`
	SentimentLabel     string   `json:"sentiment_label"`
	ImpactScore        float64  `json:"impact_score"`
	MentionedCompanies []string `json:"mentioned_companies"`
	KeyPoints          []string `json:"key_points"`
	Reasoning          string   `json:"reasoning"`
}

// parseResult extracts the JSON object from an LLM reply, tolerating
// markdown code fences around it.
func parseResult(content string) (*rawResult, error) {
	text := extractJSON(content)
	if text == "" {
		return nil, fmt.Errorf("no JSON object in reply")
	}
	var raw rawResult
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, fmt.Errorf("decode analysis JSON: %w", err)
	}
	return &raw, nil
}

func extractJSON(content string) string {
	text := strings.TrimSpace(content)
	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.Index(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.Index(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}
	text = strings.TrimSpace(text)

	// Last resort: take the outermost braces.
	if !strings.HasPrefix(text, "{") {
		start := strings.Index(text, "{")
		end := strings.LastIndex(text, "}")
		if start < 0 || end <= start {
			return ""
		}
		text = text[start : end+1]
	}
	return text
}

// applyResult copies a parsed LLM result into the analysis, clamping
// scores to their documented ranges.
func applyResult(analysis *models.NewsAnalysis, raw *rawResult) {
	analysis.SentimentScore = clamp(raw.SentimentScore, -1, 1)
	analysis.SentimentLabel = models.ParseSentimentLabel(raw.SentimentLabel)
	analysis.ImpactScore = clampImpact(int(math.Round(raw.ImpactScore)))
	if raw.MentionedCompanies != nil {
		analysis.MentionedCompanies = raw.MentionedCompanies
	}
	if raw.KeyPoints != nil {
		analysis.KeyPoints = raw.KeyPoints
	}
}

// applyDefaults marks the analysis as temporarily unavailable. Used when
// the provider replied but the reply could not be parsed.
func applyDefaults(analysis *models.NewsAnalysis) {
	analysis.SentimentScore = 0
	analysis.SentimentLabel = models.SentimentNeutral
	analysis.ImpactScore = 5
	analysis.MentionedCompanies = []string{}
	analysis.KeyPoints = []string{"Analysis temporarily unavailable"}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampImpact(v int) int {
	if v < 1 {
		return 1
	}
	if v > 10 {
		return 10
	}
	return v
}
