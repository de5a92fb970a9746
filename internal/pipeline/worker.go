package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"docsearch/internal/embed"
)

// Worker runs one indexing job end to end.
type Worker struct {
	pipeline *embed.Pipeline
	log      *slog.Logger
}

func NewWorker(p *embed.Pipeline, log *slog.Logger) *Worker {
	return &Worker{pipeline: p, log: log}
}

// Process runs the chunk, embed, store pipeline for a job, retrying on
// transient provider errors.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "page", job.Page)

	// The pipeline reports each phase as it enters it; the job status
	// tracks along so pollers see where a document is.
	lastPhase := "chunking"
	onPhase := func(phase string) {
		lastPhase = phase
		switch phase {
		case "chunking":
			job.SetStatus(StatusChunking, phase)
		case "embedding":
			job.SetStatus(StatusEmbedding, phase)
		case "storing":
			job.SetStatus(StatusStoring, phase)
		}
	}

	var (
		res     embed.Result
		lastErr error
	)
	for attempt := range MaxRetries {
		res, lastErr = w.pipeline.EmbedDocument(ctx, job.Content(), job.SkipExisting(), onPhase)
		if lastErr == nil || !IsRetryable(lastErr) {
			break
		}
		log.Warn("retryable embedding error", "attempt", attempt, "error", lastErr)
		select {
		case <-time.After(Backoff(attempt)):
		case <-ctx.Done():
			job.AddError(ctx.Err().Error())
			job.SetStatus(StatusFailed, lastPhase)
			return
		}
	}

	if lastErr != nil {
		log.Error("indexing failed", "phase", lastPhase, "error", lastErr)
		job.AddError(lastErr.Error())
		job.SetStatus(StatusFailed, lastPhase)
		return
	}

	job.SetTitle(res.DocumentTitle)
	job.SetProgress(res.ChunksProcessed, res.EmbeddingsGenerated, res.TokensUsed, res.Skipped)

	if res.Skipped > 0 {
		log.Info("document already indexed", "title", res.DocumentTitle, "existing", res.Skipped)
		job.SetStatus(StatusSkipped, "dedup")
		return
	}

	if res.ChunksProcessed == 0 {
		log.Warn("no chunks produced", "title", res.DocumentTitle)
		job.AddError("no extractable content")
		job.SetStatus(StatusFailed, "chunking")
		return
	}

	if res.EmbeddingsGenerated < res.ChunksProcessed {
		job.AddError(fmt.Sprintf("stored %d of %d chunks", res.EmbeddingsGenerated, res.ChunksProcessed))
		job.SetStatus(StatusPartial, "done")
		return
	}

	log.Info("indexing complete",
		"title", res.DocumentTitle,
		"chunks", res.ChunksProcessed,
		"tokens", res.TokensUsed)
	job.SetStatus(StatusCompleted, "done")
}
