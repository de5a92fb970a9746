package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultOpenAIModel is the embedding model used when none is configured.
const DefaultOpenAIModel = "text-embedding-3-small"

// OpenAIEmbedder calls the OpenAI embeddings API.
type OpenAIEmbedder struct {
	baseURL    string
	apiKey     string
	model      string
	maxRetries int
	httpClient *http.Client
}

func NewOpenAIEmbedder(baseURL, apiKey, model string) *OpenAIEmbedder {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAIEmbedder{
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
		maxRetries: 2,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type openaiEmbeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type openaiEmbeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Embed generates a single embedding.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) (Embedding, error) {
	res, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return Embedding{}, err
	}
	if len(res.Vectors) != 1 {
		return Embedding{}, fmt.Errorf("expected 1 embedding, got %d", len(res.Vectors))
	}
	return Embedding{Vector: res.Vectors[0], Tokens: res.TotalTokens}, nil
}

// EmbedBatch generates embeddings for all texts in one API call,
// retrying transparently on rate limits and server errors.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) (BatchResult, error) {
	if len(texts) == 0 {
		return BatchResult{}, nil
	}

	var lastErr error
	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return BatchResult{}, ctx.Err()
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}

		res, err := e.embedBatch(ctx, texts)
		if err == nil {
			return res, nil
		}
		lastErr = err

		var retryErr *RetryableError
		if !errors.As(err, &retryErr) {
			return BatchResult{}, err
		}
	}
	return BatchResult{}, fmt.Errorf("embed batch after %d retries: %w", e.maxRetries, lastErr)
}

func (e *OpenAIEmbedder) embedBatch(ctx context.Context, texts []string) (BatchResult, error) {
	body, err := json.Marshal(openaiEmbeddingRequest{Model: e.model, Input: texts})
	if err != nil {
		return BatchResult{}, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return BatchResult{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return BatchResult{}, fmt.Errorf("openai api: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return BatchResult{}, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return BatchResult{}, &RetryableError{
			StatusCode: resp.StatusCode,
			Message:    string(respBody),
		}
	}
	if resp.StatusCode != http.StatusOK {
		return BatchResult{}, fmt.Errorf("openai api status %d: %s", resp.StatusCode, truncate(string(respBody), 500))
	}

	var apiResp openaiEmbeddingResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return BatchResult{}, fmt.Errorf("decode response: %w", err)
	}
	if apiResp.Error != nil {
		return BatchResult{}, fmt.Errorf("openai error: %s: %s", apiResp.Error.Type, apiResp.Error.Message)
	}
	if len(apiResp.Data) != len(texts) {
		return BatchResult{}, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(apiResp.Data))
	}

	vectors := make([][]float64, len(texts))
	for _, d := range apiResp.Data {
		if d.Index < 0 || d.Index >= len(vectors) {
			return BatchResult{}, fmt.Errorf("embedding index %d out of range", d.Index)
		}
		vectors[d.Index] = d.Embedding
	}
	return BatchResult{Vectors: vectors, TotalTokens: apiResp.Usage.TotalTokens}, nil
}

// Close releases resources.
func (e *OpenAIEmbedder) Close() {
	e.httpClient.CloseIdleConnections()
}
