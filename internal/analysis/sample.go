package analysis

import (
	"context"
	"time"

	"github.com/alphagraph/alphagraph/pkg/models"
)

// sampleArticle pairs a draft with its age relative to population time.
type sampleArticle struct {
	draft models.DraftArticle
	age   time.Duration
}

// sampleNews is the demo corpus used to seed an empty database.
var sampleNews = []sampleArticle{
	{
		draft: models.DraftArticle{
			Headline: "Apple Reports Record Q4 Earnings, iPhone Sales Surge 15%",
			Content:  "Apple Inc. announced today that its fourth-quarter earnings exceeded expectations, driven by strong iPhone 15 sales and robust services revenue. The company reported revenue of $89.5 billion, up 8% year-over-year. CEO Tim Cook highlighted the success of the new iPhone lineup and growing adoption of Apple services across all product categories.",
			Source:   "Financial Times",
			URL:      "https://example.com/apple-earnings",
		},
		age: 2 * time.Hour,
	},
	{
		draft: models.DraftArticle{
			Headline: "Tesla Stock Drops 12% After Production Delays Announcement",
			Content:  "Tesla shares plummeted in after-hours trading following the company's announcement of production delays at its new Berlin facility. The electric vehicle maker cited supply chain disruptions and regulatory approvals as primary factors. Analysts are revising their delivery estimates for Q4, with some cutting targets by as much as 20%.",
			Source:   "Reuters",
			URL:      "https://example.com/tesla-delays",
		},
		age: 4 * time.Hour,
	},
	{
		draft: models.DraftArticle{
			Headline: "Microsoft Azure Revenue Grows 30% as AI Demand Soars",
			Content:  "Microsoft Corporation reported exceptional growth in its cloud computing division, with Azure revenue increasing 30% quarter-over-quarter. The surge is primarily attributed to increased demand for AI and machine learning services. The company's partnership with OpenAI continues to drive enterprise adoption of AI solutions.",
			Source:   "Bloomberg",
			URL:      "https://example.com/microsoft-azure",
		},
		age: 6 * time.Hour,
	},
	{
		draft: models.DraftArticle{
			Headline: "Fed Signals Potential Rate Cut as Inflation Cools",
			Content:  "Federal Reserve officials hinted at a possible interest rate reduction in the coming months as inflation continues to moderate. The latest CPI data showed a 3.2% year-over-year increase, down from 3.7% last month. Markets rallied on the news, with technology stocks leading the gains.",
			Source:   "Wall Street Journal",
			URL:      "https://example.com/fed-rates",
		},
		age: 8 * time.Hour,
	},
}

// SampleArticles returns the demo corpus as drafts, oldest last.
func SampleArticles() []models.DraftArticle {
	drafts := make([]models.DraftArticle, len(sampleNews))
	for i, s := range sampleNews {
		drafts[i] = s.draft
	}
	return drafts
}

// AnalyzeSamples runs every demo article through the analyzer, stamping
// published dates staggered into the recent past.
func (a *Analyzer) AnalyzeSamples(ctx context.Context) ([]*models.NewsAnalysis, error) {
	now := a.now().UTC()
	out := make([]*models.NewsAnalysis, 0, len(sampleNews))
	for _, s := range sampleNews {
		analysis, err := a.Analyze(ctx, s.draft)
		if err != nil {
			return nil, err
		}
		analysis.PublishedAt = now.Add(-s.age)
		out = append(out, analysis)
	}
	return out, nil
}
