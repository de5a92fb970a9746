package pipeline

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"
)

// JobStatus represents the state of an indexing job.
type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusChunking  JobStatus = "chunking"
	StatusEmbedding JobStatus = "embedding"
	StatusStoring   JobStatus = "storing"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
	StatusPartial   JobStatus = "partial"
	StatusSkipped   JobStatus = "skipped"
)

// Job tracks the state of a single document indexing run.
type Job struct {
	mu sync.Mutex

	ID   string `json:"job_id"`
	Page string `json:"page"`

	Status JobStatus `json:"status"`
	Phase  string    `json:"phase"`
	Title  string    `json:"title"`

	Progress Progress `json:"progress"`

	ContentHash string    `json:"content_hash,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Internal: not serialized.
	content      string
	skipExisting bool
	errors       []string
}

// Progress tracks indexing progress.
type Progress struct {
	TotalChunks         int      `json:"total_chunks"`
	EmbeddingsGenerated int      `json:"embeddings_generated"`
	TokensUsed          int      `json:"tokens_used"`
	SkippedChunks       int      `json:"skipped_chunks"`
	Errors              []string `json:"errors"`
}

// NewJob builds a queued job for a document page.
func NewJob(id, page, content string, skipExisting bool) *Job {
	now := time.Now()
	return &Job{
		ID:           id,
		Page:         page,
		Status:       StatusQueued,
		Phase:        "queued",
		ContentHash:  ContentHashHex([]byte(content)),
		CreatedAt:    now,
		UpdatedAt:    now,
		content:      content,
		skipExisting: skipExisting,
	}
}

// Content returns the raw document text.
func (j *Job) Content() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.content
}

// SkipExisting reports whether already-indexed documents are skipped.
func (j *Job) SkipExisting() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.skipExisting
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// SetTitle records the parsed document title.
func (j *Job) SetTitle(title string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Title = title
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// SetProgress records the outcome counters.
func (j *Job) SetProgress(totalChunks, embeddings, tokens, skipped int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.TotalChunks = totalChunks
	j.Progress.EmbeddingsGenerated = embeddings
	j.Progress.TokensUsed = tokens
	j.Progress.SkippedChunks = skipped
	j.UpdatedAt = time.Now()
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID       string    `json:"job_id"`
	Page     string    `json:"page"`
	Status   JobStatus `json:"status"`
	Phase    string    `json:"phase"`
	Title    string    `json:"title"`
	Progress Progress  `json:"progress"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := j.Progress.Errors
	if errs == nil {
		errs = []string{}
	}
	return JobSnapshot{
		ID:     j.ID,
		Page:   j.Page,
		Status: j.Status,
		Phase:  j.Phase,
		Title:  j.Title,
		Progress: Progress{
			TotalChunks:         j.Progress.TotalChunks,
			EmbeddingsGenerated: j.Progress.EmbeddingsGenerated,
			TokensUsed:          j.Progress.TokensUsed,
			SkippedChunks:       j.Progress.SkippedChunks,
			Errors:              errs,
		},
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		if now.Sub(job.UpdatedAt) > s.ttl {
			delete(s.jobs, id)
		}
	}
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
