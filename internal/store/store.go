// Package store persists news analyses and serves the aggregate queries
// behind the trends and company endpoints.
package store

import (
	"context"
	"time"

	"github.com/alphagraph/alphagraph/pkg/models"
)

// AnalysisStore is the persistence interface for analyzed articles.
type AnalysisStore interface {
	// SaveAnalysis inserts an analysis and its company mentions.
	SaveAnalysis(ctx context.Context, analysis *models.NewsAnalysis) error

	// RecentAnalyses returns the newest analyses by analysis timestamp.
	RecentAnalyses(ctx context.Context, limit int) ([]models.NewsAnalysis, error)

	// TrendingCompanies aggregates mentions since the given time,
	// most-mentioned first.
	TrendingCompanies(ctx context.Context, since time.Time, limit int) ([]models.TrendingCompany, error)

	// CompanyAnalyses returns analyses mentioning the symbol since the
	// given time, newest first. Matching is case-insensitive substring,
	// so "apple" finds mentions recorded as "Apple Inc.".
	CompanyAnalyses(ctx context.Context, symbol string, since time.Time, limit int) ([]models.NewsAnalysis, error)

	// CountAnalyses returns the total number of stored analyses.
	CountAnalyses(ctx context.Context) (int, error)

	Close() error
}
