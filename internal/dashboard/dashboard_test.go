package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alphagraph/alphagraph/pkg/models"
)

// ════════════════════════════════════════════════════════════════════
// Fake API
// ════════════════════════════════════════════════════════════════════

type fakeAPI struct {
	mu sync.Mutex

	analyses  []models.NewsAnalysis
	trending  []models.TrendingCompany
	companies []models.Company

	recentErr    error
	trendsErr    error
	companiesErr error
	populateErr  error
	analyzeErr   error

	analyzeCalls  int
	populateCalls int
	trendsCalls   int

	// When set, RecentAnalyses blocks until released.
	recentGate chan struct{}
}

func (f *fakeAPI) RecentAnalyses(ctx context.Context, limit int) ([]models.NewsAnalysis, error) {
	f.mu.Lock()
	gate := f.recentGate
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.recentErr != nil {
		return nil, f.recentErr
	}
	out := f.analyses
	if len(out) > limit {
		out = out[:limit]
	}
	return append([]models.NewsAnalysis(nil), out...), nil
}

func (f *fakeAPI) Trends(ctx context.Context) (*models.TrendsSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trendsCalls++
	if f.trendsErr != nil {
		return nil, f.trendsErr
	}
	return &models.TrendsSnapshot{
		TrendingCompanies: append([]models.TrendingCompany(nil), f.trending...),
		AnalysisPeriod:    "24h",
		TotalAnalyses:     len(f.analyses),
	}, nil
}

func (f *fakeAPI) Companies(ctx context.Context) ([]models.Company, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.companiesErr != nil {
		return nil, f.companiesErr
	}
	return append([]models.Company(nil), f.companies...), nil
}

func (f *fakeAPI) PopulateDemo(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.populateCalls++
	if f.populateErr != nil {
		return f.populateErr
	}
	for i := 0; i < 4; i++ {
		f.analyses = append(f.analyses, models.NewsAnalysis{
			ID:       fmt.Sprintf("demo-%d", i),
			Headline: fmt.Sprintf("Demo headline %d", i),
		})
	}
	f.trending = []models.TrendingCompany{{Company: "AAPL", Mentions: 2, AvgSentiment: 0.5}}
	return nil
}

func (f *fakeAPI) Analyze(ctx context.Context, draft models.DraftArticle) (*models.NewsAnalysis, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.analyzeCalls++
	if f.analyzeErr != nil {
		return nil, f.analyzeErr
	}
	return &models.NewsAnalysis{
		ID:             "new-1",
		Headline:       draft.Headline,
		Content:        draft.Content,
		SentimentLabel: models.SentimentBullish,
		ImpactScore:    7,
	}, nil
}

func fixtureAnalyses(n int) []models.NewsAnalysis {
	out := make([]models.NewsAnalysis, n)
	for i := range out {
		out[i] = models.NewsAnalysis{ID: fmt.Sprintf("a-%d", i), Headline: fmt.Sprintf("Headline %d", i)}
	}
	return out
}

// ════════════════════════════════════════════════════════════════════
// Controller
// ════════════════════════════════════════════════════════════════════

func TestLoadDashboardData(t *testing.T) {
	api := &fakeAPI{
		analyses:  fixtureAnalyses(3),
		trending:  []models.TrendingCompany{{Company: "TSLA", Mentions: 5, AvgSentiment: -0.4}},
		companies: []models.Company{{Symbol: "AAPL", Name: "Apple Inc."}},
	}
	c := NewController(api)

	if err := c.LoadDashboardData(context.Background()); err != nil {
		t.Fatal(err)
	}

	snap := c.Snapshot()
	if len(snap.Analyses) != 3 {
		t.Fatalf("analyses: got %d, want 3", len(snap.Analyses))
	}
	if len(snap.Trending) != 1 || snap.Trending[0].Company != "TSLA" {
		t.Fatalf("trending: %v", snap.Trending)
	}
	if len(snap.Companies) != 1 {
		t.Fatalf("companies: %v", snap.Companies)
	}
	if snap.Loading {
		t.Fatal("loading flag not cleared")
	}
}

func TestLoadDashboardDataCapsAnalyses(t *testing.T) {
	api := &fakeAPI{analyses: fixtureAnalyses(15)}
	c := NewController(api)

	if err := c.LoadDashboardData(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := len(c.Snapshot().Analyses); got != defaultNewsLimit {
		t.Fatalf("analyses not capped: got %d, want %d", got, defaultNewsLimit)
	}
}

func TestLoadDashboardDataAllOrNothing(t *testing.T) {
	api := &fakeAPI{
		analyses:  fixtureAnalyses(2),
		trending:  []models.TrendingCompany{{Company: "AAPL"}},
		companies: []models.Company{{Symbol: "AAPL"}},
	}
	c := NewController(api)
	if err := c.LoadDashboardData(context.Background()); err != nil {
		t.Fatal(err)
	}
	before := c.Snapshot()

	// One of the three fetches failing must leave everything in place.
	api.mu.Lock()
	api.analyses = fixtureAnalyses(9)
	api.trendsErr = errors.New("backend down")
	api.mu.Unlock()

	if err := c.LoadDashboardData(context.Background()); err == nil {
		t.Fatal("expected refresh error")
	}

	after := c.Snapshot()
	if len(after.Analyses) != len(before.Analyses) || len(after.Trending) != len(before.Trending) {
		t.Fatalf("failed refresh mutated state: %d analyses, %d trending",
			len(after.Analyses), len(after.Trending))
	}
	if after.Loading {
		t.Fatal("loading flag not cleared after failure")
	}
}

func TestLoadDashboardDataStaleRefreshDiscarded(t *testing.T) {
	gate := make(chan struct{})
	api := &fakeAPI{
		analyses:   fixtureAnalyses(2),
		recentGate: gate,
	}
	c := NewController(api)

	// First refresh blocks inside RecentAnalyses.
	firstDone := make(chan error, 1)
	go func() { firstDone <- c.LoadDashboardData(context.Background()) }()

	// Give the first refresh time to take its generation stamp.
	time.Sleep(20 * time.Millisecond)

	// Second refresh sees fresher data and finishes first.
	api.mu.Lock()
	api.recentGate = nil
	api.analyses = fixtureAnalyses(5)
	api.mu.Unlock()
	if err := c.LoadDashboardData(context.Background()); err != nil {
		t.Fatal(err)
	}

	// Unblock the stale refresh; its result must be discarded.
	api.mu.Lock()
	api.analyses = fixtureAnalyses(2)
	api.mu.Unlock()
	close(gate)
	if err := <-firstDone; err != nil {
		t.Fatal(err)
	}

	snap := c.Snapshot()
	if len(snap.Analyses) != 5 {
		t.Fatalf("stale refresh overwrote fresh data: got %d analyses, want 5", len(snap.Analyses))
	}
	if snap.Loading {
		t.Fatal("loading flag stuck")
	}
}

func TestAnalyzeArticle(t *testing.T) {
	api := &fakeAPI{
		analyses: fixtureAnalyses(3),
		trending: []models.TrendingCompany{{Company: "MSFT", Mentions: 1}},
	}
	c := NewController(api)
	if err := c.LoadDashboardData(context.Background()); err != nil {
		t.Fatal(err)
	}
	trendsBefore := api.trendsCalls

	c.SetDraft(models.DraftArticle{
		Headline: "  Apple beats expectations  ",
		Content:  "Strong quarter across all segments.",
		Source:   "Test Wire",
	})

	got, err := c.AnalyzeArticle(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got.Headline != "Apple beats expectations" {
		t.Fatalf("draft not trimmed before submit: %q", got.Headline)
	}

	snap := c.Snapshot()
	if snap.Analyses[0].ID != "new-1" {
		t.Fatalf("result not prepended: first is %s", snap.Analyses[0].ID)
	}
	if len(snap.Analyses) != 4 {
		t.Fatalf("analyses: got %d, want 4", len(snap.Analyses))
	}
	if snap.Draft.Headline != "" || snap.Draft.Content != "" {
		t.Fatalf("draft not cleared: %+v", snap.Draft)
	}
	if api.trendsCalls != trendsBefore+1 {
		t.Fatalf("trends not refetched: %d calls", api.trendsCalls)
	}
	if snap.Analyzing {
		t.Fatal("analyzing flag not cleared")
	}
}

func TestAnalyzeArticleCapsList(t *testing.T) {
	api := &fakeAPI{analyses: fixtureAnalyses(10)}
	c := NewController(api)
	if err := c.LoadDashboardData(context.Background()); err != nil {
		t.Fatal(err)
	}

	c.SetDraft(models.DraftArticle{Headline: "h", Content: "c"})
	if _, err := c.AnalyzeArticle(context.Background()); err != nil {
		t.Fatal(err)
	}

	snap := c.Snapshot()
	if len(snap.Analyses) != defaultNewsLimit {
		t.Fatalf("list not capped: %d", len(snap.Analyses))
	}
	if snap.Analyses[0].ID != "new-1" {
		t.Fatalf("new result not first: %s", snap.Analyses[0].ID)
	}
	// Oldest entry fell off the end.
	if snap.Analyses[len(snap.Analyses)-1].ID == "a-9" {
		t.Fatal("oldest entry not evicted")
	}
}

func TestAnalyzeArticleEmptyDraft(t *testing.T) {
	tests := []struct {
		name  string
		draft models.DraftArticle
	}{
		{"both_empty", models.DraftArticle{}},
		{"whitespace_headline", models.DraftArticle{Headline: "   ", Content: "body"}},
		{"whitespace_content", models.DraftArticle{Headline: "head", Content: "\n\t "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{}
			c := NewController(api)
			c.SetDraft(tt.draft)

			_, err := c.AnalyzeArticle(context.Background())
			if !errors.Is(err, ErrEmptyDraft) {
				t.Fatalf("expected ErrEmptyDraft, got %v", err)
			}
			if api.analyzeCalls != 0 {
				t.Fatal("network call made for empty draft")
			}
			// Draft survives so the user can finish it.
			if c.Snapshot().Draft != tt.draft {
				t.Fatalf("draft mutated: %+v", c.Snapshot().Draft)
			}
		})
	}
}

func TestAnalyzeArticleBackendError(t *testing.T) {
	api := &fakeAPI{analyses: fixtureAnalyses(2), analyzeErr: errors.New("llm offline")}
	c := NewController(api)
	if err := c.LoadDashboardData(context.Background()); err != nil {
		t.Fatal(err)
	}

	c.SetDraft(models.DraftArticle{Headline: "h", Content: "c"})
	if _, err := c.AnalyzeArticle(context.Background()); err == nil {
		t.Fatal("expected error")
	}

	snap := c.Snapshot()
	if len(snap.Analyses) != 2 {
		t.Fatalf("failed analyze mutated list: %d", len(snap.Analyses))
	}
	if snap.Draft.Headline != "h" {
		t.Fatal("draft cleared on failure")
	}
}

func TestPopulateSampleData(t *testing.T) {
	api := &fakeAPI{}
	c := NewController(api)
	if err := c.LoadDashboardData(context.Background()); err != nil {
		t.Fatal(err)
	}

	if !c.CanPopulate() {
		t.Fatal("populate should be offered on an empty dashboard")
	}

	if err := c.PopulateSampleData(context.Background()); err != nil {
		t.Fatal(err)
	}
	if api.populateCalls != 1 {
		t.Fatalf("populate calls: %d", api.populateCalls)
	}

	snap := c.Snapshot()
	if len(snap.Analyses) != 4 {
		t.Fatalf("dashboard not reloaded after populate: %d analyses", len(snap.Analyses))
	}
	if !HasTrending(snap.Trending) {
		t.Fatal("trending not reloaded")
	}
	if c.CanPopulate() {
		t.Fatal("populate still offered after data loaded")
	}
}

func TestPopulateSampleDataError(t *testing.T) {
	api := &fakeAPI{populateErr: errors.New("seed failed")}
	c := NewController(api)

	if err := c.PopulateSampleData(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if c.Snapshot().Analyzing {
		t.Fatal("analyzing flag stuck")
	}
}

// ════════════════════════════════════════════════════════════════════
// View
// ════════════════════════════════════════════════════════════════════

func TestSentimentClass(t *testing.T) {
	tests := []struct {
		label models.SentimentLabel
		want  string
	}{
		{models.SentimentBullish, "bullish"},
		{models.SentimentBearish, "bearish"},
		{models.SentimentNeutral, "neutral"},
		{models.SentimentLabel("UNKNOWN"), "neutral"},
	}
	for _, tt := range tests {
		if got := SentimentClass(tt.label); got != tt.want {
			t.Errorf("SentimentClass(%s) = %s, want %s", tt.label, got, tt.want)
		}
	}
}

func TestImpactTier(t *testing.T) {
	tests := []struct {
		score int
		want  string
	}{
		{10, "impact-high"},
		{8, "impact-high"},
		{7, "impact-medium-high"},
		{6, "impact-medium-high"},
		{5, "impact-medium"},
		{4, "impact-medium"},
		{3, "impact-low"},
		{1, "impact-low"},
	}
	for _, tt := range tests {
		if got := ImpactTier(tt.score); got != tt.want {
			t.Errorf("ImpactTier(%d) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestDirection(t *testing.T) {
	tests := []struct {
		score float64
		want  TrendDirection
	}{
		{0.5, TrendUp},
		{0.21, TrendUp},
		{0.2, TrendFlat}, // boundary renders flat
		{0.0, TrendFlat},
		{-0.2, TrendFlat}, // boundary renders flat
		{-0.21, TrendDown},
		{-0.9, TrendDown},
	}
	for _, tt := range tests {
		if got := Direction(tt.score); got != tt.want {
			t.Errorf("Direction(%v) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		s    string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is far too long", 7, "this is..."},
		{"", 5, ""},
		{"unbounded", 0, "unbounded"},
	}
	for _, tt := range tests {
		if got := Truncate(tt.s, tt.n); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.s, tt.n, got, tt.want)
		}
	}
}

func TestTopKeyPoints(t *testing.T) {
	points := []string{"one", "two", "three", "four", "five"}
	if got := TopKeyPoints(points); len(got) != 3 || got[2] != "three" {
		t.Fatalf("TopKeyPoints: %v", got)
	}
	if got := TopKeyPoints(points[:2]); len(got) != 2 {
		t.Fatalf("TopKeyPoints short input: %v", got)
	}
	if got := TopKeyPoints(nil); len(got) != 0 {
		t.Fatalf("TopKeyPoints nil: %v", got)
	}
}

func TestVisibleTrending(t *testing.T) {
	trending := make([]models.TrendingCompany, 12)
	for i := range trending {
		trending[i].Company = fmt.Sprintf("C%d", i)
	}
	if got := VisibleTrending(trending); len(got) != 8 || got[7].Company != "C7" {
		t.Fatalf("VisibleTrending: %d entries", len(got))
	}
	if got := VisibleTrending(trending[:3]); len(got) != 3 {
		t.Fatalf("VisibleTrending short input: %d entries", len(got))
	}
	if HasTrending(nil) {
		t.Fatal("HasTrending(nil) = true")
	}
}

func TestRenderText(t *testing.T) {
	snap := Snapshot{
		Analyses: []models.NewsAnalysis{{
			Headline:           "Apple Surges",
			Content:            "Strong results.",
			Source:             "Test Wire",
			SentimentLabel:     models.SentimentBullish,
			ImpactScore:        8,
			KeyPoints:          []string{"record revenue"},
			MentionedCompanies: []string{"AAPL"},
		}},
		Trending: []models.TrendingCompany{{Company: "AAPL", Mentions: 3, AvgSentiment: 0.7, AvgImpact: 7.5}},
	}

	var sb strings.Builder
	RenderText(&sb, snap)
	out := sb.String()

	for _, want := range []string{"Apple Surges", "bullish", "impact-high", "AAPL", "record revenue", "▲"} {
		if !strings.Contains(out, want) {
			t.Errorf("render output missing %q:\n%s", want, out)
		}
	}
}

// ════════════════════════════════════════════════════════════════════
// HTTP client
// ════════════════════════════════════════════════════════════════════

func newAPIServer(t *testing.T) (*httptest.Server, *Client) {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/news/recent", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("limit") != "10" {
			t.Errorf("limit query: %s", r.URL.Query().Get("limit"))
		}
		json.NewEncoder(w).Encode([]models.NewsAnalysis{{ID: "x1", Headline: "H"}})
	})
	mux.HandleFunc("/api/trends", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(models.TrendsSnapshot{
			TrendingCompanies: []models.TrendingCompany{{Company: "AAPL", Mentions: 2}},
			AnalysisPeriod:    "24h",
			TotalAnalyses:     9,
		})
	})
	mux.HandleFunc("/api/companies", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"companies": []models.Company{{Symbol: "AAPL", Name: "Apple Inc."}},
		})
	})
	mux.HandleFunc("/api/demo/populate", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("populate method: %s", r.Method)
		}
		json.NewEncoder(w).Encode(map[string]string{"message": "ok"})
	})
	mux.HandleFunc("/api/analyze", func(w http.ResponseWriter, r *http.Request) {
		var draft models.DraftArticle
		if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
			t.Errorf("decode draft: %v", err)
		}
		json.NewEncoder(w).Encode(models.NewsAnalysis{ID: "srv-1", Headline: draft.Headline})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, NewClient(srv.URL)
}

func TestClientEndpoints(t *testing.T) {
	_, client := newAPIServer(t)
	ctx := context.Background()

	analyses, err := client.RecentAnalyses(ctx, 10)
	if err != nil || len(analyses) != 1 || analyses[0].ID != "x1" {
		t.Fatalf("RecentAnalyses: %v, %v", analyses, err)
	}

	snapshot, err := client.Trends(ctx)
	if err != nil || snapshot.TotalAnalyses != 9 || len(snapshot.TrendingCompanies) != 1 {
		t.Fatalf("Trends: %+v, %v", snapshot, err)
	}

	companies, err := client.Companies(ctx)
	if err != nil || len(companies) != 1 || companies[0].Symbol != "AAPL" {
		t.Fatalf("Companies: %v, %v", companies, err)
	}

	if err := client.PopulateDemo(ctx); err != nil {
		t.Fatalf("PopulateDemo: %v", err)
	}

	analysis, err := client.Analyze(ctx, models.DraftArticle{Headline: "head", Content: "body"})
	if err != nil || analysis.ID != "srv-1" || analysis.Headline != "head" {
		t.Fatalf("Analyze: %+v, %v", analysis, err)
	}
}

func TestClientServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "headline and content are required"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	_, err := client.Analyze(context.Background(), models.DraftArticle{Headline: "h", Content: "c"})
	if err == nil || !strings.Contains(err.Error(), "headline and content are required") {
		t.Fatalf("expected server error message, got %v", err)
	}
	if !strings.Contains(err.Error(), "400") {
		t.Fatalf("expected status in error, got %v", err)
	}
}

func TestClientUnreachable(t *testing.T) {
	client := NewClient("http://127.0.0.1:1")
	if _, err := client.Trends(context.Background()); err == nil {
		t.Fatal("expected connection error")
	}
}

func TestControllerAgainstHTTPServer(t *testing.T) {
	_, client := newAPIServer(t)
	c := NewController(client)

	if err := c.LoadDashboardData(context.Background()); err != nil {
		t.Fatal(err)
	}
	snap := c.Snapshot()
	if len(snap.Analyses) != 1 || len(snap.Trending) != 1 || len(snap.Companies) != 1 {
		t.Fatalf("state after HTTP load: %d/%d/%d",
			len(snap.Analyses), len(snap.Trending), len(snap.Companies))
	}
}
