// Package ingest pulls articles from financial news RSS feeds and runs
// them through the analysis pipeline into the store.
package ingest

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/alphagraph/alphagraph/internal/config"
	"github.com/alphagraph/alphagraph/pkg/models"
)

// DefaultFeeds lists the financial news RSS feeds polled when no feeds
// are configured.
var DefaultFeeds = []config.FeedConfig{
	{
		Name: "Yahoo Finance",
		URL:  "https://finance.yahoo.com/news/rssindex",
	},
	{
		Name: "CNBC Markets",
		URL:  "https://search.cnbc.com/rs/search/combinedcms/view.xml?partnerId=wrss01&id=20910258",
	},
	{
		Name: "MarketWatch Top Stories",
		URL:  "https://feeds.content.dowjones.io/public/rss/mw_topstories",
	},
	{
		Name: "Investing.com News",
		URL:  "https://www.investing.com/rss/news.rss",
	},
}

// FeedArticle is a draft pulled from a feed, carrying the feed's
// publication time when the item had one.
type FeedArticle struct {
	models.DraftArticle
	PublishedAt time.Time
}

// Fetcher pulls articles from configured RSS feeds.
type Fetcher struct {
	feeds      []config.FeedConfig
	maxPerFeed int
	cache      *Cache
	limiter    *RateLimiter
	parser     *gofeed.Parser
}

// NewFetcher creates a fetcher from ingest configuration. Empty feed
// lists fall back to DefaultFeeds.
func NewFetcher(cfg config.IngestConfig) *Fetcher {
	feeds := cfg.Feeds
	if len(feeds) == 0 {
		feeds = DefaultFeeds
	}
	maxPerFeed := cfg.MaxPerFeed
	if maxPerFeed <= 0 {
		maxPerFeed = 10
	}
	rps := cfg.RequestsPerS
	if rps <= 0 {
		rps = 2
	}
	return &Fetcher{
		feeds:      feeds,
		maxPerFeed: maxPerFeed,
		cache:      NewCache(10 * time.Minute),
		limiter:    NewRateLimiter(rps, time.Second),
		parser:     gofeed.NewParser(),
	}
}

// Fetch returns articles from all configured feeds, newest first.
// Feeds that fail to fetch or parse are skipped.
func (f *Fetcher) Fetch(ctx context.Context) ([]FeedArticle, error) {
	var all []FeedArticle
	for _, feed := range f.feeds {
		articles, err := f.fetchFeed(ctx, feed)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Printf("ingest: feed %s skipped: %v", feed.Name, err)
			continue
		}
		all = append(all, articles...)
	}

	sortByPublished(all)
	return all, nil
}

// fetchFeed parses one RSS feed into feed articles.
func (f *Fetcher) fetchFeed(ctx context.Context, src config.FeedConfig) ([]FeedArticle, error) {
	if cached, ok := f.cache.Get(src.URL); ok {
		return cached.([]FeedArticle), nil
	}

	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	feed, err := f.parser.ParseURLWithContext(src.URL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse RSS %s: %w", src.Name, err)
	}

	items := feed.Items
	if len(items) > f.maxPerFeed {
		items = items[:f.maxPerFeed]
	}

	articles := make([]FeedArticle, 0, len(items))
	for _, item := range items {
		if strings.TrimSpace(item.Title) == "" {
			continue
		}
		content := cleanHTML(item.Description)
		if content == "" {
			// Some feeds put the body in the content field instead.
			content = cleanHTML(item.Content)
		}
		if content == "" {
			continue
		}
		a := FeedArticle{
			DraftArticle: models.DraftArticle{
				Headline: strings.TrimSpace(item.Title),
				Content:  content,
				Source:   src.Name,
				URL:      item.Link,
			},
		}
		if item.PublishedParsed != nil {
			a.PublishedAt = item.PublishedParsed.UTC()
		}
		articles = append(articles, a)
	}

	f.cache.Set(src.URL, articles)
	return articles, nil
}

// cleanHTML strips HTML tags from a string using goquery.
func cleanHTML(s string) string {
	if s == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<body>" + s + "</body>"))
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(doc.Text())
}

// sortByPublished sorts articles newest first. Items without a
// publication time sort last. Insertion sort is fine for these sizes.
func sortByPublished(articles []FeedArticle) {
	for i := 1; i < len(articles); i++ {
		key := articles[i]
		j := i - 1
		for j >= 0 && articles[j].PublishedAt.Before(key.PublishedAt) {
			articles[j+1] = articles[j]
			j--
		}
		articles[j+1] = key
	}
}
