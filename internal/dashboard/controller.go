package dashboard

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/alphagraph/alphagraph/pkg/models"
)

// ErrEmptyDraft is returned by AnalyzeArticle when the trimmed headline
// or content is empty. No request is made in that case.
var ErrEmptyDraft = errors.New("dashboard: headline and content are required")

// defaultNewsLimit caps how many analyses the dashboard keeps in memory.
const defaultNewsLimit = 10

// Snapshot is an immutable copy of the dashboard state, safe to render
// without holding the controller lock.
type Snapshot struct {
	Analyses  []models.NewsAnalysis
	Trending  []models.TrendingCompany
	Companies []models.Company
	Draft     models.DraftArticle
	Loading   bool
	Analyzing bool
}

// Controller owns the dashboard state and coordinates refreshes against
// the backend. All methods are safe for concurrent use.
type Controller struct {
	api       API
	newsLimit int

	mu         sync.Mutex
	generation uint64
	analyses   []models.NewsAnalysis
	trending   []models.TrendingCompany
	companies  []models.Company
	draft      models.DraftArticle
	loading    bool
	analyzing  bool
}

// ControllerOption configures the controller.
type ControllerOption func(*Controller)

// WithNewsLimit overrides how many analyses the dashboard retains.
func WithNewsLimit(n int) ControllerOption {
	return func(c *Controller) {
		if n > 0 {
			c.newsLimit = n
		}
	}
}

// NewController creates a controller backed by the given API client.
func NewController(api API, opts ...ControllerOption) *Controller {
	c := &Controller{
		api:       api,
		newsLimit: defaultNewsLimit,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LoadDashboardData refreshes analyses, trends, and companies in one
// concurrent join. The three fetches either all commit or none do: any
// failure leaves the previous state untouched. Each call stamps a new
// generation; a refresh that finishes after a newer one started is
// discarded rather than overwriting fresher data.
func (c *Controller) LoadDashboardData(ctx context.Context) error {
	c.mu.Lock()
	c.generation++
	gen := c.generation
	c.loading = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		if gen == c.generation {
			c.loading = false
		}
		c.mu.Unlock()
	}()

	var (
		analyses  []models.NewsAnalysis
		snapshot  *models.TrendsSnapshot
		companies []models.Company
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		analyses, err = c.api.RecentAnalyses(gctx, c.newsLimit)
		return err
	})
	g.Go(func() error {
		var err error
		snapshot, err = c.api.Trends(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		companies, err = c.api.Companies(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		log.Printf("dashboard: refresh failed: %v", err)
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		// A newer refresh superseded this one.
		return nil
	}
	c.analyses = capAnalyses(analyses, c.newsLimit)
	c.trending = snapshot.TrendingCompanies
	c.companies = companies
	return nil
}

// PopulateSampleData seeds the demo corpus on the server, then reloads
// the dashboard so the new analyses appear.
func (c *Controller) PopulateSampleData(ctx context.Context) error {
	c.mu.Lock()
	c.analyzing = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.analyzing = false
		c.mu.Unlock()
	}()

	if err := c.api.PopulateDemo(ctx); err != nil {
		return err
	}
	return c.LoadDashboardData(ctx)
}

// AnalyzeArticle submits the current draft. The trimmed headline and
// content must both be non-empty or ErrEmptyDraft is returned without
// touching the network. On success the result is prepended to the
// analyses list, the draft is cleared, and trends are refetched.
func (c *Controller) AnalyzeArticle(ctx context.Context) (*models.NewsAnalysis, error) {
	c.mu.Lock()
	draft := c.draft
	draft.Headline = strings.TrimSpace(draft.Headline)
	draft.Content = strings.TrimSpace(draft.Content)
	if draft.Headline == "" || draft.Content == "" {
		c.mu.Unlock()
		return nil, ErrEmptyDraft
	}
	c.analyzing = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.analyzing = false
		c.mu.Unlock()
	}()

	analysis, err := c.api.Analyze(ctx, draft)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.analyses = capAnalyses(append([]models.NewsAnalysis{*analysis}, c.analyses...), c.newsLimit)
	c.draft = models.DraftArticle{}
	c.mu.Unlock()

	// Trends shift with every new analysis; a failed refetch keeps the
	// previous trending list.
	if snapshot, err := c.api.Trends(ctx); err == nil {
		c.mu.Lock()
		c.trending = snapshot.TrendingCompanies
		c.mu.Unlock()
	} else {
		log.Printf("dashboard: trends refetch failed: %v", err)
	}

	return analysis, nil
}

// SetDraft replaces the draft article being composed.
func (c *Controller) SetDraft(draft models.DraftArticle) {
	c.mu.Lock()
	c.draft = draft
	c.mu.Unlock()
}

// CanPopulate reports whether the demo-populate action is offered. It
// disappears once any analyses are loaded.
func (c *Controller) CanPopulate() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.analyses) == 0 && !c.analyzing
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Analyses:  append([]models.NewsAnalysis(nil), c.analyses...),
		Trending:  append([]models.TrendingCompany(nil), c.trending...),
		Companies: append([]models.Company(nil), c.companies...),
		Draft:     c.draft,
		Loading:   c.loading,
		Analyzing: c.analyzing,
	}
}

// capAnalyses bounds the in-memory list, always returning a non-nil
// slice.
func capAnalyses(analyses []models.NewsAnalysis, limit int) []models.NewsAnalysis {
	if analyses == nil {
		return []models.NewsAnalysis{}
	}
	if len(analyses) > limit {
		return analyses[:limit]
	}
	return analyses
}
