package embed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"docsearch/internal/chunker"
	"docsearch/internal/doctree"
	"docsearch/internal/store"
)

// ChunkStore is the slice of the storage layer the pipeline needs.
type ChunkStore interface {
	CountByTitle(ctx context.Context, title string) (int, error)
	InsertChunks(ctx context.Context, records []store.Record) (int, error)
}

// Result summarizes one document's trip through the pipeline.
type Result struct {
	DocumentTitle       string `json:"documentTitle"`
	ChunksProcessed     int    `json:"chunksProcessed"`
	EmbeddingsGenerated int    `json:"embeddingsGenerated"`
	TokensUsed          int    `json:"tokensUsed"`
	Skipped             int    `json:"skipped,omitempty"`
}

// Pipeline chunks a document, embeds the chunks and stores the vectors.
type Pipeline struct {
	embedder  Embedder
	store     ChunkStore
	logger    *slog.Logger
	model     string
	batchSize int
	chunkOpts chunker.Options
	baseURL   string
}

// PipelineConfig carries the pipeline knobs.
type PipelineConfig struct {
	Model     string
	BatchSize int
	ChunkOpts chunker.Options
	BaseURL   string
}

func NewPipeline(embedder Embedder, st ChunkStore, cfg PipelineConfig, logger *slog.Logger) *Pipeline {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}
	return &Pipeline{
		embedder:  embedder,
		store:     st,
		logger:    logger,
		model:     cfg.Model,
		batchSize: cfg.BatchSize,
		chunkOpts: cfg.ChunkOpts,
		baseURL:   cfg.BaseURL,
	}
}

// PhaseFunc observes the pipeline entering a phase: "chunking",
// "embedding", then "storing".
type PhaseFunc func(phase string)

// EmbedDocument runs the full pipeline for one document. With
// skipExisting set, a document whose title already has stored chunks is
// skipped entirely rather than re-embedded. onPhase may be nil.
func (p *Pipeline) EmbedDocument(ctx context.Context, content string, skipExisting bool, onPhase PhaseFunc) (Result, error) {
	report := func(phase string) {
		if onPhase != nil {
			onPhase(phase)
		}
	}

	report("chunking")
	chunked := chunker.Chunk(content, p.baseURL, p.chunkOpts)
	title := chunked.Metadata.Title

	p.logger.Info("document chunked",
		"title", title,
		"chunks", len(chunked.Chunks),
		"sections", len(chunked.Headings))

	if len(chunked.Chunks) == 0 {
		p.logger.Warn("document produced no chunks", "title", title)
		return Result{DocumentTitle: title}, nil
	}

	if skipExisting {
		existing, err := p.store.CountByTitle(ctx, title)
		if err != nil {
			return Result{}, fmt.Errorf("check existing chunks: %w", err)
		}
		if existing > 0 {
			p.logger.Info("document already embedded, skipping", "title", title, "existing", existing)
			return Result{DocumentTitle: title, Skipped: existing}, nil
		}
	}

	report("embedding")
	records, tokensUsed, err := p.embedChunks(ctx, chunked.Chunks)
	if err != nil {
		return Result{}, err
	}

	for i, rec := range records {
		if err := ValidateVector(rec.Embedding); err != nil {
			return Result{}, fmt.Errorf("invalid embedding for chunk %d (%s): %w", i, rec.Metadata.HeadingPath, err)
		}
	}

	report("storing")
	stored, err := p.store.InsertChunks(ctx, records)
	if err != nil {
		return Result{}, fmt.Errorf("store embeddings: %w", err)
	}

	p.logger.Info("document embedded",
		"title", title,
		"stored", stored,
		"tokens", tokensUsed)

	return Result{
		DocumentTitle:       title,
		ChunksProcessed:     len(chunked.Chunks),
		EmbeddingsGenerated: stored,
		TokensUsed:          tokensUsed,
	}, nil
}

// embedChunks calls the provider in batches, pausing briefly between
// batches to stay under rate limits.
func (p *Pipeline) embedChunks(ctx context.Context, chunks []doctree.Chunk) ([]store.Record, int, error) {
	records := make([]store.Record, 0, len(chunks))
	totalTokens := 0
	processedAt := time.Now().UTC().Format(time.RFC3339)

	for start := 0; start < len(chunks); start += p.batchSize {
		end := start + p.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.ContextualContent
		}

		res, err := p.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, 0, fmt.Errorf("embed batch starting at %d: %w", start, err)
		}
		if len(res.Vectors) != len(batch) {
			return nil, 0, fmt.Errorf("embed batch starting at %d: got %d vectors for %d chunks", start, len(res.Vectors), len(batch))
		}
		totalTokens += res.TotalTokens

		for i, c := range batch {
			records = append(records, store.Record{
				Content: c.ContextualContent,
				Metadata: store.Metadata{
					ChunkMetadata:   c.Metadata,
					OriginalContent: c.Content,
					EmbeddingModel:  p.model,
					ProcessedAt:     processedAt,
				},
				Embedding: res.Vectors[i],
			})
		}

		p.logger.Debug("embedding batch done",
			"batch", start/p.batchSize+1,
			"size", len(batch),
			"tokens", res.TotalTokens)

		if end < len(chunks) {
			select {
			case <-ctx.Done():
				return nil, 0, ctx.Err()
			case <-time.After(100 * time.Millisecond):
			}
		}
	}

	return records, totalTokens, nil
}
