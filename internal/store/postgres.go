package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"docsearch/internal/doctree"
)

// Metadata is the JSONB payload stored alongside each chunk: the chunk
// metadata plus provenance fields added at embedding time.
type Metadata struct {
	doctree.ChunkMetadata
	OriginalContent string `json:"originalContent,omitempty"`
	EmbeddingModel  string `json:"embedding_model,omitempty"`
	ProcessedAt     string `json:"processed_at,omitempty"`
}

// Record is one row ready for insertion. Content holds the contextual
// text that was embedded; the plain chunk text lives in
// Metadata.OriginalContent.
type Record struct {
	Content   string
	Metadata  Metadata
	Embedding []float64
}

// Match is one search hit.
type Match struct {
	ID         int64
	Content    string
	Metadata   Metadata
	Similarity float64
	MatchType  string
}

// DocumentInfo summarizes one indexed document.
type DocumentInfo struct {
	Title  string `json:"title"`
	Chunks int    `json:"chunks"`
}

const insertBatchSize = 50

// Store persists chunk embeddings in Postgres with pgvector.
type Store struct {
	Pool *pgxpool.Pool
}

// New connects to Postgres and verifies the connection.
func New(ctx context.Context, connStr string) (*Store, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{Pool: pool}, nil
}

// Init creates the embeddings table and indexes. Idempotent.
func (s *Store) Init(ctx context.Context, dimension int) error {
	if _, err := s.Pool.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return fmt.Errorf("create vector extension: %w", err)
	}

	ddl := fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS document_embeddings (
            id BIGSERIAL PRIMARY KEY,
            content TEXT NOT NULL,
            metadata JSONB NOT NULL DEFAULT '{}',
            embedding vector(%d) NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT now()
        )
    `, dimension)
	if _, err := s.Pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create document_embeddings table: %w", err)
	}

	if _, err := s.Pool.Exec(ctx, `
        CREATE INDEX IF NOT EXISTS document_embeddings_embedding_idx ON document_embeddings
        USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100)
    `); err != nil {
		return fmt.Errorf("create vector index: %w", err)
	}

	if _, err := s.Pool.Exec(ctx, `
        CREATE INDEX IF NOT EXISTS document_embeddings_title_idx
        ON document_embeddings ((metadata->>'title'))
    `); err != nil {
		return fmt.Errorf("create title index: %w", err)
	}

	return nil
}

// formatVector renders a vector as a pgvector literal for a $n::vector
// parameter.
func formatVector(vec []float64) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range vec {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(v, 'f', -1, 64))
	}
	b.WriteByte(']')
	return b.String()
}

// InsertChunks stores records in batches. Records with invalid
// embeddings are skipped with a count rather than failing the whole
// insert. Returns the number of rows stored.
func (s *Store) InsertChunks(ctx context.Context, records []Record) (int, error) {
	stored := 0
	for start := 0; start < len(records); start += insertBatchSize {
		end := start + insertBatchSize
		if end > len(records) {
			end = len(records)
		}

		for _, rec := range records[start:end] {
			if len(rec.Embedding) == 0 {
				continue
			}
			meta, err := json.Marshal(rec.Metadata)
			if err != nil {
				return stored, fmt.Errorf("marshal metadata: %w", err)
			}
			_, err = s.Pool.Exec(ctx, `
                INSERT INTO document_embeddings (content, metadata, embedding)
                VALUES ($1, $2, $3::vector)
            `, rec.Content, meta, formatVector(rec.Embedding))
			if err != nil {
				return stored, fmt.Errorf("insert chunk %q: %w", rec.Metadata.HeadingPath, err)
			}
			stored++
		}
	}
	return stored, nil
}

// MatchDocuments runs cosine similarity search, keeping rows above the
// threshold, most similar first.
func (s *Store) MatchDocuments(ctx context.Context, embedding []float64, threshold float64, limit int) ([]Match, error) {
	rows, err := s.Pool.Query(ctx, `
        SELECT id, content, metadata, 1 - (embedding <=> $1::vector) AS similarity
        FROM document_embeddings
        WHERE 1 - (embedding <=> $1::vector) > $2
        ORDER BY embedding <=> $1::vector
        LIMIT $3
    `, formatVector(embedding), threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("match documents: %w", err)
	}
	return scanMatches(rows, "vector")
}

// HybridMatch combines ILIKE term scoring with vector ordering. Rows
// that matched at least one term are tagged "hybrid", the rest "vector".
func (s *Store) HybridMatch(ctx context.Context, embedding []float64, terms []string, threshold float64, limit int) ([]Match, error) {
	if len(terms) == 0 {
		return s.MatchDocuments(ctx, embedding, threshold, limit)
	}

	params := make([]any, 0, len(terms)+3)
	params = append(params, formatVector(embedding), threshold)

	var score strings.Builder
	for i, term := range terms {
		if i > 0 {
			score.WriteString(" + ")
		}
		fmt.Fprintf(&score, "CASE WHEN content ILIKE '%%' || $%d || '%%' THEN 0.5 ELSE 0 END", i+3)
		params = append(params, term)
	}
	params = append(params, limit)

	query := fmt.Sprintf(`
        WITH scored AS (
            SELECT id, content, metadata, embedding,
                   1 - (embedding <=> $1::vector) AS similarity,
                   (%s) AS term_score
            FROM document_embeddings
        )
        SELECT id, content, metadata, similarity,
               CASE WHEN term_score > 0 THEN 'hybrid' ELSE 'vector' END AS match_type
        FROM scored
        WHERE similarity > $2
        ORDER BY term_score DESC, embedding <=> $1::vector
        LIMIT $%d
    `, score.String(), len(params))

	rows, err := s.Pool.Query(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("hybrid match: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var (
			m    Match
			meta []byte
		)
		if err := rows.Scan(&m.ID, &m.Content, &meta, &m.Similarity, &m.MatchType); err != nil {
			return nil, fmt.Errorf("scan hybrid row: %w", err)
		}
		if err := json.Unmarshal(meta, &m.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate hybrid rows: %w", err)
	}
	return matches, nil
}

// SearchText is the keyword fallback for queries that embed poorly.
// Hits get a fixed similarity since no vector comparison happened.
func (s *Store) SearchText(ctx context.Context, query string, limit int) ([]Match, error) {
	pattern := "%" + query + "%"
	rows, err := s.Pool.Query(ctx, `
        SELECT id, content, metadata, 0.7 AS similarity
        FROM document_embeddings
        WHERE content ILIKE $1 OR metadata->>'headingPath' ILIKE $1
        LIMIT $2
    `, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("text search: %w", err)
	}
	return scanMatches(rows, "text")
}

// CountByTitle returns the number of stored chunks for a document title.
func (s *Store) CountByTitle(ctx context.Context, title string) (int, error) {
	var count int
	err := s.Pool.QueryRow(ctx, `
        SELECT COUNT(*) FROM document_embeddings WHERE metadata->>'title' = $1
    `, title).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count by title: %w", err)
	}
	return count, nil
}

// DeleteByTitle removes all chunks of a document. Returns rows removed.
func (s *Store) DeleteByTitle(ctx context.Context, title string) (int64, error) {
	tag, err := s.Pool.Exec(ctx, `
        DELETE FROM document_embeddings WHERE metadata->>'title' = $1
    `, title)
	if err != nil {
		return 0, fmt.Errorf("delete by title: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ListDocuments returns per-document chunk counts.
func (s *Store) ListDocuments(ctx context.Context) ([]DocumentInfo, error) {
	rows, err := s.Pool.Query(ctx, `
        SELECT metadata->>'title' AS title, COUNT(*) AS chunks
        FROM document_embeddings
        GROUP BY metadata->>'title'
        ORDER BY title
    `)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []DocumentInfo
	for rows.Next() {
		var d DocumentInfo
		if err := rows.Scan(&d.Title, &d.Chunks); err != nil {
			return nil, fmt.Errorf("scan document row: %w", err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate document rows: %w", err)
	}
	return docs, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.Pool.Close()
}

func scanMatches(rows pgx.Rows, matchType string) ([]Match, error) {
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var (
			m    Match
			meta []byte
		)
		if err := rows.Scan(&m.ID, &m.Content, &meta, &m.Similarity); err != nil {
			return nil, fmt.Errorf("scan match row: %w", err)
		}
		if err := json.Unmarshal(meta, &m.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata: %w", err)
		}
		m.MatchType = matchType
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate match rows: %w", err)
	}
	return matches, nil
}
