package analysis

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/alphagraph/alphagraph/internal/llm"
	"github.com/alphagraph/alphagraph/pkg/models"
)

// mockProvider implements llm.Provider with a canned reply.
type mockProvider struct {
	reply string
	err   error
	calls int
}

func (m *mockProvider) Name() string                   { return "mock" }
func (m *mockProvider) Models() []string               { return []string{"mock-model"} }
func (m *mockProvider) Ping(ctx context.Context) error { return nil }
func (m *mockProvider) Chat(ctx context.Context, messages []llm.Message, opts *llm.ChatOptions) (*llm.Response, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return &llm.Response{Content: m.reply, Provider: "mock"}, nil
}

const validReply = `{
	"sentiment_score": 0.8,
	"sentiment_label": "BULLISH",
	"impact_score": 8,
	"mentioned_companies": ["AAPL", "Apple Inc."],
	"key_points": ["Revenue beat", "iPhone sales up 15%", "Services growth"],
	"reasoning": "Strong earnings beat"
}`

func testDraft() models.DraftArticle {
	return models.DraftArticle{
		Headline: "Apple Reports Record Q4 Earnings",
		Content:  "Apple Inc. announced earnings that exceeded expectations.",
		Source:   "Financial Times",
		URL:      "https://example.com/apple",
	}
}

func TestAnalyzeValidReply(t *testing.T) {
	p := &mockProvider{reply: validReply}
	a := NewAnalyzer(p)

	got, err := a.Analyze(context.Background(), testDraft())
	if err != nil {
		t.Fatal(err)
	}
	if got.ID == "" {
		t.Fatal("expected generated ID")
	}
	if got.SentimentScore != 0.8 || got.SentimentLabel != models.SentimentBullish {
		t.Fatalf("sentiment: got %v/%s", got.SentimentScore, got.SentimentLabel)
	}
	if got.ImpactScore != 8 {
		t.Fatalf("impact: got %d", got.ImpactScore)
	}
	if len(got.MentionedCompanies) != 2 || len(got.KeyPoints) != 3 {
		t.Fatalf("lists: companies=%v points=%v", got.MentionedCompanies, got.KeyPoints)
	}
	if got.Headline != "Apple Reports Record Q4 Earnings" || got.Source != "Financial Times" {
		t.Fatalf("article fields not carried over: %+v", got)
	}
	if got.AnalysisTimestamp.IsZero() || got.PublishedAt.IsZero() {
		t.Fatal("expected timestamps")
	}
}

func TestAnalyzeFencedReply(t *testing.T) {
	for _, reply := range []string{
		"```json\n" + validReply + "\n```",
		"```\n" + validReply + "\n```",
		"Here is the analysis:\n" + validReply,
	} {
		p := &mockProvider{reply: reply}
		a := NewAnalyzer(p)
		got, err := a.Analyze(context.Background(), testDraft())
		if err != nil {
			t.Fatal(err)
		}
		if got.SentimentLabel != models.SentimentBullish {
			t.Fatalf("fenced reply not parsed: %q gave %s", reply[:20], got.SentimentLabel)
		}
	}
}

func TestAnalyzeClampsScores(t *testing.T) {
	p := &mockProvider{reply: `{"sentiment_score": 3.5, "sentiment_label": "BULLISH", "impact_score": 42, "mentioned_companies": [], "key_points": []}`}
	a := NewAnalyzer(p)

	got, err := a.Analyze(context.Background(), testDraft())
	if err != nil {
		t.Fatal(err)
	}
	if got.SentimentScore != 1.0 {
		t.Fatalf("sentiment not clamped: %v", got.SentimentScore)
	}
	if got.ImpactScore != 10 {
		t.Fatalf("impact not clamped: %d", got.ImpactScore)
	}
}

func TestAnalyzeUnknownLabelNormalized(t *testing.T) {
	p := &mockProvider{reply: `{"sentiment_score": 0.1, "sentiment_label": "mixed", "impact_score": 4, "mentioned_companies": [], "key_points": []}`}
	a := NewAnalyzer(p)

	got, err := a.Analyze(context.Background(), testDraft())
	if err != nil {
		t.Fatal(err)
	}
	if got.SentimentLabel != models.SentimentNeutral {
		t.Fatalf("expected NEUTRAL for unknown label, got %s", got.SentimentLabel)
	}
}

func TestAnalyzeUnparseableReplyUsesDefaults(t *testing.T) {
	p := &mockProvider{reply: "I cannot produce JSON today."}
	a := NewAnalyzer(p)

	got, err := a.Analyze(context.Background(), testDraft())
	if err != nil {
		t.Fatal(err)
	}
	if got.SentimentScore != 0 || got.SentimentLabel != models.SentimentNeutral || got.ImpactScore != 5 {
		t.Fatalf("expected default analysis, got %+v", got)
	}
	if len(got.KeyPoints) != 1 || !strings.Contains(got.KeyPoints[0], "unavailable") {
		t.Fatalf("expected unavailable key point, got %v", got.KeyPoints)
	}
}

func TestAnalyzeProviderErrorUsesLexicon(t *testing.T) {
	p := &mockProvider{err: fmt.Errorf("%w: boom", llm.ErrProviderDown)}
	a := NewAnalyzer(p)

	draft := models.DraftArticle{
		Headline: "Tesla Stock Drops 12% After Production Delays",
		Content:  "Tesla shares plummeted following delays.",
		Source:   "Reuters",
	}
	got, err := a.Analyze(context.Background(), draft)
	if err != nil {
		t.Fatal(err)
	}
	if got.SentimentScore >= 0 {
		t.Fatalf("expected bearish lexicon score, got %v", got.SentimentScore)
	}
	if got.SentimentLabel != models.SentimentBearish {
		t.Fatalf("expected BEARISH, got %s", got.SentimentLabel)
	}
	if len(got.MentionedCompanies) != 1 || got.MentionedCompanies[0] != "TSLA" {
		t.Fatalf("expected TSLA mention, got %v", got.MentionedCompanies)
	}
}

func TestAnalyzeNilProviderUsesLexicon(t *testing.T) {
	a := NewAnalyzer(nil)
	got, err := a.Analyze(context.Background(), models.DraftArticle{
		Headline: "Markets rally on strong growth outlook",
		Source:   "Test Wire",
	})
	if err != nil {
		t.Fatal(err)
	}
	if got.SentimentLabel != models.SentimentBullish {
		t.Fatalf("expected BULLISH, got %s (%v)", got.SentimentLabel, got.SentimentScore)
	}
}

func TestAnalyzeContextCancelled(t *testing.T) {
	p := &mockProvider{err: context.Canceled}
	a := NewAnalyzer(p)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := a.Analyze(ctx, testDraft())
	if err == nil {
		t.Fatal("expected error on cancelled context")
	}
}

func TestAnalyzeSamples(t *testing.T) {
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	a := NewAnalyzer(nil, WithClock(func() time.Time { return fixed }))

	got, err := a.AnalyzeSamples(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 4 {
		t.Fatalf("expected 4 sample analyses, got %d", len(got))
	}
	// Published dates are staggered into the past, newest first.
	for i := 1; i < len(got); i++ {
		if !got[i].PublishedAt.Before(got[i-1].PublishedAt) {
			t.Fatalf("sample %d not older than %d", i, i-1)
		}
	}
	if got[0].PublishedAt != fixed.Add(-2*time.Hour) {
		t.Fatalf("unexpected published date: %v", got[0].PublishedAt)
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare", `{"a":1}`, `{"a":1}`},
		{"json_fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"plain_fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"prose_prefix", "Sure:\n{\"a\":1}", `{"a":1}`},
		{"no_json", "nothing here", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractJSON(tt.in); got != tt.want {
				t.Fatalf("extractJSON(%q): got %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
