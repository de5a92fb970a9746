package pipeline

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"docsearch/internal/embed"
	"docsearch/internal/store"
)

type stubEmbedder struct{}

func (stubEmbedder) Embed(ctx context.Context, text string) (embed.Embedding, error) {
	return embed.Embedding{Vector: []float64{0.1, 0.2}, Tokens: 2}, nil
}

func (stubEmbedder) EmbedBatch(ctx context.Context, texts []string) (embed.BatchResult, error) {
	res := embed.BatchResult{TotalTokens: len(texts) * 2}
	for range texts {
		res.Vectors = append(res.Vectors, []float64{0.1, 0.2})
	}
	return res, nil
}

// statusStore records the job status observed while chunks are being
// written, so the test can see the mid-flight phase.
type statusStore struct {
	job            *Job
	existing       int
	statusAtInsert JobStatus
}

func (s *statusStore) CountByTitle(ctx context.Context, title string) (int, error) {
	return s.existing, nil
}

func (s *statusStore) InsertChunks(ctx context.Context, records []store.Record) (int, error) {
	s.statusAtInsert = s.job.Snapshot().Status
	return len(records), nil
}

const workerDoc = "# Worker Guide\nURL: /docs/worker\n\n***\n\nAbout workers.\n\n---\n\n" +
	"## Processing\n\nJobs move through chunking, embedding and storing in order.\n"

func testWorker(st *statusStore) *Worker {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewWorker(embed.NewPipeline(stubEmbedder{}, st, embed.PipelineConfig{}, log), log)
}

func TestWorkerDrivesPhaseStatuses(t *testing.T) {
	st := &statusStore{}
	w := testWorker(st)

	job := NewJob("job-1", "worker", workerDoc, false)
	st.job = job
	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusCompleted {
		t.Fatalf("status = %q, errors = %v", snap.Status, snap.Progress.Errors)
	}
	if snap.Phase != "done" {
		t.Errorf("phase = %q", snap.Phase)
	}
	if st.statusAtInsert != StatusStoring {
		t.Errorf("status during insert = %q, want %q", st.statusAtInsert, StatusStoring)
	}
	if snap.Progress.TotalChunks == 0 {
		t.Error("expected chunks processed")
	}
	if snap.Progress.EmbeddingsGenerated != snap.Progress.TotalChunks {
		t.Errorf("progress = %+v", snap.Progress)
	}
}

func TestWorkerSkipsExistingDocument(t *testing.T) {
	st := &statusStore{existing: 3}
	w := testWorker(st)

	job := NewJob("job-2", "worker", workerDoc, true)
	st.job = job
	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusSkipped {
		t.Fatalf("status = %q, want %q", snap.Status, StatusSkipped)
	}
	if snap.Progress.SkippedChunks != 3 {
		t.Errorf("skipped = %d", snap.Progress.SkippedChunks)
	}
}

func TestWorkerFailsHeadinglessDocument(t *testing.T) {
	st := &statusStore{}
	w := testWorker(st)

	job := NewJob("job-3", "worker", "loose text with no headings", false)
	st.job = job
	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusFailed {
		t.Fatalf("status = %q, want %q", snap.Status, StatusFailed)
	}
	if snap.Phase != "chunking" {
		t.Errorf("phase = %q, want chunking", snap.Phase)
	}
}
