package news

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// StoredArticle is one row of the news feed.
type StoredArticle struct {
	ID           int64   `json:"id"`
	URL          string  `json:"url"`
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	Source       string  `json:"source"`
	QualityScore float64 `json:"qualityScore"`
	SearchQuery  string  `json:"searchQuery"`
	Position     int     `json:"position"`
	CreatedAt    string  `json:"createdAt"`
}

// FeedOptions filters the feed query.
type FeedOptions struct {
	Limit      int
	Offset     int
	MinQuality float64
	Source     string
}

// Store persists news articles in Postgres.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Init creates the news table. Idempotent.
func (s *Store) Init(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS news_articles (
            id BIGSERIAL PRIMARY KEY,
            url TEXT NOT NULL UNIQUE,
            title TEXT NOT NULL DEFAULT '',
            description TEXT NOT NULL DEFAULT '',
            source TEXT NOT NULL DEFAULT '',
            quality_score DOUBLE PRECISION NOT NULL DEFAULT 0,
            search_query TEXT NOT NULL DEFAULT '',
            position INTEGER NOT NULL DEFAULT 0,
            created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
        )
    `)
	if err != nil {
		return fmt.Errorf("create news_articles table: %w", err)
	}
	return nil
}

// Upsert stores articles keyed on URL, refreshing metadata for repeats.
// Returns how many rows were written.
func (s *Store) Upsert(ctx context.Context, articles []NormalizedArticle, searchQuery string) (int, error) {
	saved := 0
	for _, a := range articles {
		_, err := s.pool.Exec(ctx, `
            INSERT INTO news_articles (url, title, description, source, quality_score, search_query, position)
            VALUES ($1, $2, $3, $4, $5, $6, $7)
            ON CONFLICT (url) DO UPDATE SET
                title = EXCLUDED.title,
                description = EXCLUDED.description,
                source = EXCLUDED.source,
                quality_score = EXCLUDED.quality_score,
                search_query = EXCLUDED.search_query,
                position = EXCLUDED.position,
                updated_at = now()
        `, a.URL, a.Title, a.Description, a.Source, QualityScore(a), searchQuery, a.Position)
		if err != nil {
			return saved, fmt.Errorf("upsert article %s: %w", a.URL, err)
		}
		saved++
	}
	return saved, nil
}

// Feed returns stored articles, best quality first.
func (s *Store) Feed(ctx context.Context, opts FeedOptions) ([]StoredArticle, error) {
	if opts.Limit <= 0 {
		opts.Limit = 20
	}

	rows, err := s.pool.Query(ctx, `
        SELECT id, url, title, description, source, quality_score, search_query, position,
               to_char(created_at, 'YYYY-MM-DD"T"HH24:MI:SS"Z"')
        FROM news_articles
        WHERE quality_score >= $1 AND ($2 = '' OR source = $2)
        ORDER BY quality_score DESC, created_at DESC
        LIMIT $3 OFFSET $4
    `, opts.MinQuality, opts.Source, opts.Limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("query news feed: %w", err)
	}
	defer rows.Close()

	var articles []StoredArticle
	for rows.Next() {
		var a StoredArticle
		if err := rows.Scan(&a.ID, &a.URL, &a.Title, &a.Description, &a.Source,
			&a.QualityScore, &a.SearchQuery, &a.Position, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan article row: %w", err)
		}
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate article rows: %w", err)
	}
	return articles, nil
}
