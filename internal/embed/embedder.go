package embed

import (
	"context"
	"fmt"
	"math"
)

// Embedding is a single embedding vector plus the token count the
// provider reported (or estimated) for the input text.
type Embedding struct {
	Vector []float64
	Tokens int
}

// BatchResult carries the vectors for one batch call in input order.
type BatchResult struct {
	Vectors     [][]float64
	TotalTokens int
}

// Embedder turns text into embedding vectors.
type Embedder interface {
	Embed(ctx context.Context, text string) (Embedding, error)
	EmbedBatch(ctx context.Context, texts []string) (BatchResult, error)
}

// ValidateVector rejects vectors that would corrupt the store: nil,
// empty, or containing NaN / Inf components.
func ValidateVector(vec []float64) error {
	if len(vec) == 0 {
		return fmt.Errorf("empty embedding vector")
	}
	for i, v := range vec {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("embedding component %d is not a finite number", i)
		}
	}
	return nil
}

// RetryableError indicates a transient provider failure worth retrying.
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, truncate(e.Message, 200))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
