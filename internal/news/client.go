package news

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Article is one search hit from an upstream news API.
type Article struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

// FirecrawlClient queries the Firecrawl search API for recent articles.
type FirecrawlClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewFirecrawlClient(apiKey string) *FirecrawlClient {
	return &FirecrawlClient{
		baseURL: "https://api.firecrawl.dev/v1",
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 90 * time.Second,
		},
	}
}

type firecrawlSearchRequest struct {
	Query             string `json:"query"`
	Limit             int    `json:"limit"`
	TBS               string `json:"tbs"`
	Lang              string `json:"lang"`
	Timeout           int    `json:"timeout"`
	IgnoreInvalidURLs bool   `json:"ignoreInvalidURLs"`
}

type firecrawlSearchResponse struct {
	Success bool      `json:"success"`
	Data    []Article `json:"data"`
	Error   string    `json:"error,omitempty"`
}

// Search returns articles from the last day matching the query.
func (c *FirecrawlClient) Search(ctx context.Context, query string) ([]Article, error) {
	body, err := json.Marshal(firecrawlSearchRequest{
		Query:             query,
		Limit:             5,
		TBS:               "qdr:d",
		Lang:              "en",
		Timeout:           60000,
		IgnoreInvalidURLs: true,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("firecrawl api: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("firecrawl api status %d: %s", resp.StatusCode, string(respBody))
	}

	var apiResp firecrawlSearchResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if !apiResp.Success && apiResp.Error != "" {
		return nil, fmt.Errorf("firecrawl error: %s", apiResp.Error)
	}
	return apiResp.Data, nil
}

// TavilyClient queries the Tavily search API.
type TavilyClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewTavilyClient(apiKey string) *TavilyClient {
	return &TavilyClient{
		baseURL: "https://api.tavily.com",
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 90 * time.Second,
		},
	}
}

type tavilySearchRequest struct {
	Query             string `json:"query"`
	SearchDepth       string `json:"search_depth"`
	TimeRange         string `json:"time_range"`
	MaxResults        int    `json:"max_results"`
	IncludeRawContent bool   `json:"include_raw_content"`
}

type tavilySearchResponse struct {
	Results []Article `json:"results"`
}

// Search returns articles from the last day matching the query.
func (c *TavilyClient) Search(ctx context.Context, query string) ([]Article, error) {
	body, err := json.Marshal(tavilySearchRequest{
		Query:             query,
		SearchDepth:       "advanced",
		TimeRange:         "day",
		MaxResults:        10,
		IncludeRawContent: false,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("tavily api: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tavily api status %d: %s", resp.StatusCode, string(respBody))
	}

	var apiResp tavilySearchResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return apiResp.Results, nil
}
