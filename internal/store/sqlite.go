package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.

	"github.com/alphagraph/alphagraph/pkg/models"
)

// Compile-time interface check.
var _ AnalysisStore = (*SQLiteStore)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS analyses (
	id                 TEXT PRIMARY KEY,
	headline           TEXT NOT NULL,
	content            TEXT NOT NULL,
	source             TEXT NOT NULL,
	url                TEXT NOT NULL DEFAULT '',
	published_date     TIMESTAMP NOT NULL,
	sentiment_score    REAL NOT NULL,
	sentiment_label    TEXT NOT NULL,
	impact_score       INTEGER NOT NULL,
	key_points         TEXT NOT NULL DEFAULT '[]',
	analysis_timestamp TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS mentions (
	analysis_id TEXT NOT NULL REFERENCES analyses(id) ON DELETE CASCADE,
	company     TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_analyses_ts ON analyses(analysis_timestamp);
CREATE INDEX IF NOT EXISTS idx_mentions_company ON mentions(company);
CREATE INDEX IF NOT EXISTS idx_mentions_analysis ON mentions(analysis_id);
`

// SQLiteStore implements AnalysisStore backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, applies
// the schema, and returns a ready-to-use store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", dbPath, err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: enable foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveAnalysis inserts an analysis and its company mentions in one
// transaction.
func (s *SQLiteStore) SaveAnalysis(ctx context.Context, analysis *models.NewsAnalysis) error {
	keyPoints, err := json.Marshal(analysis.KeyPoints)
	if err != nil {
		return fmt.Errorf("store: encode key points: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO analyses
			(id, headline, content, source, url, published_date,
			 sentiment_score, sentiment_label, impact_score, key_points,
			 analysis_timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		analysis.ID, analysis.Headline, analysis.Content, analysis.Source,
		analysis.URL, analysis.PublishedAt.UTC(),
		analysis.SentimentScore, string(analysis.SentimentLabel),
		analysis.ImpactScore, string(keyPoints),
		analysis.AnalysisTimestamp.UTC())
	if err != nil {
		return fmt.Errorf("store: insert analysis %s: %w", analysis.ID, err)
	}

	for _, company := range analysis.MentionedCompanies {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO mentions (analysis_id, company) VALUES (?, ?)`,
			analysis.ID, company); err != nil {
			return fmt.Errorf("store: insert mention %q: %w", company, err)
		}
	}

	return tx.Commit()
}

// RecentAnalyses returns the newest analyses by analysis timestamp.
func (s *SQLiteStore) RecentAnalyses(ctx context.Context, limit int) ([]models.NewsAnalysis, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, headline, content, source, url, published_date,
		       sentiment_score, sentiment_label, impact_score, key_points,
		       analysis_timestamp
		FROM analyses
		ORDER BY analysis_timestamp DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: query recent: %w", err)
	}
	defer rows.Close()

	return s.scanAnalyses(ctx, rows)
}

// TrendingCompanies aggregates mentions since the given time,
// most-mentioned first.
func (s *SQLiteStore) TrendingCompanies(ctx context.Context, since time.Time, limit int) ([]models.TrendingCompany, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.company,
		       COUNT(*)               AS mentions,
		       AVG(a.sentiment_score) AS avg_sentiment,
		       AVG(a.impact_score)    AS avg_impact
		FROM mentions m
		JOIN analyses a ON a.id = m.analysis_id
		WHERE a.analysis_timestamp >= ?
		GROUP BY m.company
		ORDER BY mentions DESC, m.company ASC
		LIMIT ?`, since.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("store: query trending: %w", err)
	}
	defer rows.Close()

	trending := make([]models.TrendingCompany, 0)
	for rows.Next() {
		var tc models.TrendingCompany
		if err := rows.Scan(&tc.Company, &tc.Mentions, &tc.AvgSentiment, &tc.AvgImpact); err != nil {
			return nil, fmt.Errorf("store: scan trending row: %w", err)
		}
		trending = append(trending, tc)
	}
	return trending, rows.Err()
}

// CompanyAnalyses returns analyses mentioning the symbol since the given
// time, newest first.
func (s *SQLiteStore) CompanyAnalyses(ctx context.Context, symbol string, since time.Time, limit int) ([]models.NewsAnalysis, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT a.id, a.headline, a.content, a.source, a.url,
		       a.published_date, a.sentiment_score, a.sentiment_label,
		       a.impact_score, a.key_points, a.analysis_timestamp
		FROM analyses a
		JOIN mentions m ON m.analysis_id = a.id
		WHERE m.company LIKE '%' || ? || '%' COLLATE NOCASE
		  AND a.analysis_timestamp >= ?
		ORDER BY a.analysis_timestamp DESC
		LIMIT ?`, symbol, since.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("store: query company %s: %w", symbol, err)
	}
	defer rows.Close()

	return s.scanAnalyses(ctx, rows)
}

// CountAnalyses returns the total number of stored analyses.
func (s *SQLiteStore) CountAnalyses(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM analyses`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("store: count analyses: %w", err)
	}
	return n, nil
}

// scanAnalyses reads analysis rows and attaches each one's mentions.
func (s *SQLiteStore) scanAnalyses(ctx context.Context, rows *sql.Rows) ([]models.NewsAnalysis, error) {
	analyses := make([]models.NewsAnalysis, 0)
	for rows.Next() {
		var (
			a         models.NewsAnalysis
			label     string
			keyPoints string
		)
		if err := rows.Scan(&a.ID, &a.Headline, &a.Content, &a.Source, &a.URL,
			&a.PublishedAt, &a.SentimentScore, &label, &a.ImpactScore,
			&keyPoints, &a.AnalysisTimestamp); err != nil {
			return nil, fmt.Errorf("store: scan analysis row: %w", err)
		}
		a.SentimentLabel = models.SentimentLabel(label)
		if err := json.Unmarshal([]byte(keyPoints), &a.KeyPoints); err != nil {
			return nil, fmt.Errorf("store: decode key points for %s: %w", a.ID, err)
		}
		if a.KeyPoints == nil {
			a.KeyPoints = []string{}
		}
		analyses = append(analyses, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range analyses {
		mentions, err := s.mentionsFor(ctx, analyses[i].ID)
		if err != nil {
			return nil, err
		}
		analyses[i].MentionedCompanies = mentions
	}
	return analyses, nil
}

func (s *SQLiteStore) mentionsFor(ctx context.Context, analysisID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT company FROM mentions WHERE analysis_id = ? ORDER BY rowid`, analysisID)
	if err != nil {
		return nil, fmt.Errorf("store: query mentions for %s: %w", analysisID, err)
	}
	defer rows.Close()

	companies := make([]string, 0)
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("store: scan mention: %w", err)
		}
		companies = append(companies, c)
	}
	return companies, rows.Err()
}
