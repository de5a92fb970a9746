package embed

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"
)

// OllamaEmbedder generates embeddings through a local Ollama server.
// Useful for development without an OpenAI key; the token counts are
// estimates since Ollama does not report usage.
type OllamaEmbedder struct {
	client     *api.Client
	model      string
	maxRetries int
	timeout    time.Duration
}

func NewOllamaEmbedder(host, model string) (*OllamaEmbedder, error) {
	if host == "" {
		host = "http://127.0.0.1:11434"
	}
	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("parse ollama host: %w", err)
	}
	return &OllamaEmbedder{
		client:     api.NewClient(u, http.DefaultClient),
		model:      model,
		maxRetries: 3,
		timeout:    30 * time.Second,
	}, nil
}

// Embed generates an embedding for one text.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) (Embedding, error) {
	var lastErr error
	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return Embedding{}, ctx.Err()
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}

		vec, err := e.embed(ctx, text)
		if err == nil {
			return Embedding{Vector: vec, Tokens: EstimateTokens(text)}, nil
		}
		lastErr = err
	}
	return Embedding{}, fmt.Errorf("ollama embedding after %d retries: %w", e.maxRetries, lastErr)
}

// EmbedBatch embeds texts sequentially; the Ollama embeddings endpoint
// takes one prompt per call.
func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) (BatchResult, error) {
	res := BatchResult{Vectors: make([][]float64, 0, len(texts))}
	for i, text := range texts {
		emb, err := e.Embed(ctx, text)
		if err != nil {
			return BatchResult{}, fmt.Errorf("embed text %d: %w", i, err)
		}
		res.Vectors = append(res.Vectors, emb.Vector)
		res.TotalTokens += emb.Tokens
	}
	return res, nil
}

func (e *OllamaEmbedder) embed(ctx context.Context, text string) ([]float64, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	resp, err := e.client.Embeddings(ctx, &api.EmbeddingRequest{
		Model:  e.model,
		Prompt: text,
	})
	if err != nil {
		return nil, fmt.Errorf("ollama embeddings: %w", err)
	}
	return resp.Embedding, nil
}
