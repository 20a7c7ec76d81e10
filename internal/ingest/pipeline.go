package ingest

import (
	"context"
	"log"
	"sync"

	"github.com/alphagraph/alphagraph/internal/analysis"
	"github.com/alphagraph/alphagraph/pkg/models"
)

// Saver is the slice of the store the pipeline needs.
type Saver interface {
	SaveAnalysis(ctx context.Context, a *models.NewsAnalysis) error
}

// Pipeline fetches feed articles, analyzes them, and persists the
// results.
type Pipeline struct {
	fetcher  *Fetcher
	analyzer *analysis.Analyzer
	store    Saver

	mu   sync.Mutex
	seen map[string]bool // article URLs already processed this process
}

// NewPipeline wires a fetcher, analyzer, and store together.
func NewPipeline(fetcher *Fetcher, analyzer *analysis.Analyzer, store Saver) *Pipeline {
	return &Pipeline{
		fetcher:  fetcher,
		analyzer: analyzer,
		store:    store,
		seen:     make(map[string]bool),
	}
}

// Run performs one ingestion pass and returns how many analyses were
// stored. Individual article failures are logged and skipped; only a
// failed fetch or a cancelled context aborts the pass.
func (p *Pipeline) Run(ctx context.Context) (int, error) {
	articles, err := p.fetcher.Fetch(ctx)
	if err != nil {
		return 0, err
	}

	stored := 0
	for _, article := range articles {
		if ctx.Err() != nil {
			return stored, ctx.Err()
		}
		if p.alreadySeen(article.URL) {
			continue
		}

		result, err := p.analyzer.Analyze(ctx, article.DraftArticle)
		if err != nil {
			if ctx.Err() != nil {
				return stored, ctx.Err()
			}
			log.Printf("ingest: analyze %q failed: %v", article.Headline, err)
			continue
		}
		if !article.PublishedAt.IsZero() {
			result.PublishedAt = article.PublishedAt
		}

		if err := p.store.SaveAnalysis(ctx, result); err != nil {
			log.Printf("ingest: save %q failed: %v", article.Headline, err)
			continue
		}
		stored++
	}
	return stored, nil
}

// alreadySeen marks an article URL and reports whether it was processed
// before. Articles without a URL are never deduplicated.
func (p *Pipeline) alreadySeen(url string) bool {
	if url == "" {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.seen[url] {
		return true
	}
	p.seen[url] = true
	return false
}
