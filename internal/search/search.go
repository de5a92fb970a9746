package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"docsearch/internal/embed"
	"docsearch/internal/store"
)

// Strategy selects how thresholds are chosen and relaxed.
type Strategy string

const (
	StrategyAdaptive    Strategy = "adaptive"
	StrategyProgressive Strategy = "progressive"
	StrategyHybrid      Strategy = "hybrid"
)

// ErrUnknownStrategy is returned when Options names a strategy the
// searcher does not implement.
var ErrUnknownStrategy = errors.New("unknown search strategy")

// Defaults applied when an option is zero.
const (
	DefaultLimit         = 10
	DefaultThreshold     = 0.2
	DefaultContextWindow = 2000
)

// Options tunes one search call.
type Options struct {
	Limit          int      `json:"limit,omitempty"`
	Threshold      float64  `json:"threshold,omitempty"`
	DocumentFilter string   `json:"documentFilter,omitempty"`
	Strategy       Strategy `json:"strategy,omitempty"`
	ContextWindow  int      `json:"contextWindow,omitempty"`
}

// Result is one hit as returned to API clients.
type Result struct {
	Content    string         `json:"content"`
	Metadata   store.Metadata `json:"metadata"`
	Similarity float64        `json:"similarity"`
	MatchType  string         `json:"matchType"`
}

// Summary reports how well the query was handled, with a threshold hint
// for the caller's next attempt.
type Summary struct {
	QueryHandled       bool    `json:"queryHandled"`
	TopSimilarity      float64 `json:"topSimilarity"`
	DocumentsFound     int     `json:"documentsFound"`
	SuggestedThreshold float64 `json:"suggestedThreshold"`
}

// Response is the full search envelope.
type Response struct {
	Query        string   `json:"query"`
	Results      []Result `json:"results"`
	TotalResults int      `json:"totalResults"`
	Strategy     string   `json:"strategy"`
	Summary      Summary  `json:"summary"`
}

// Store is the slice of the storage layer search needs.
type Store interface {
	MatchDocuments(ctx context.Context, embedding []float64, threshold float64, limit int) ([]store.Match, error)
	HybridMatch(ctx context.Context, embedding []float64, terms []string, threshold float64, limit int) ([]store.Match, error)
	SearchText(ctx context.Context, query string, limit int) ([]store.Match, error)
}

// Embedder embeds the query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (embed.Embedding, error)
}

// Searcher answers retrieval queries against the vector store.
type Searcher struct {
	store    Store
	embedder Embedder
	logger   *slog.Logger
}

func New(st Store, embedder Embedder, logger *slog.Logger) *Searcher {
	return &Searcher{store: st, embedder: embedder, logger: logger}
}

// Search embeds the query and runs the selected strategy. An empty
// result set is not an error; the summary carries a lowered threshold
// suggestion instead.
func (s *Searcher) Search(ctx context.Context, query string, opts Options) (Response, error) {
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultThreshold
	}
	if opts.Strategy == "" {
		opts.Strategy = StrategyAdaptive
	}

	emb, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return Response{}, fmt.Errorf("embed query: %w", err)
	}
	if err := embed.ValidateVector(emb.Vector); err != nil {
		return Response{}, fmt.Errorf("query embedding: %w", err)
	}

	var (
		results  []Result
		strategy string
	)
	switch opts.Strategy {
	case StrategyAdaptive:
		results, strategy, err = s.adaptive(ctx, query, emb.Vector, opts.Limit)
	case StrategyProgressive:
		results, strategy, err = s.progressive(ctx, emb.Vector, opts.Threshold, opts.Limit)
	case StrategyHybrid:
		results, strategy, err = s.hybrid(ctx, query, emb.Vector, opts.Threshold, opts.Limit)
	default:
		return Response{}, fmt.Errorf("%w: %q", ErrUnknownStrategy, opts.Strategy)
	}
	if err != nil {
		return Response{}, err
	}

	if opts.DocumentFilter != "" {
		filtered := results[:0]
		for _, r := range results {
			if r.Metadata.Title == opts.DocumentFilter {
				filtered = append(filtered, r)
			}
		}
		results = filtered
	}

	s.logger.Info("search completed",
		"query", query,
		"strategy", strategy,
		"results", len(results))

	return Response{
		Query:        query,
		Results:      results,
		TotalResults: len(results),
		Strategy:     strategy,
		Summary:      summarize(results, opts.Threshold),
	}, nil
}

// adaptive picks an initial threshold from the query's shape, relaxes
// it stepwise when results are thin, and falls back to keyword search
// as the last resort.
func (s *Searcher) adaptive(ctx context.Context, query string, embedding []float64, limit int) ([]Result, string, error) {
	isShort := len(query) < 50 && !strings.Contains(query, "?")
	isQuestion := strings.Contains(query, "?") || hasQuestionPrefix(query)
	hasKeywords := len(strings.Split(query, " ")) <= 4

	// Later matches override earlier ones, so a four-word question is
	// treated as a question, not a keyword query.
	initial := 0.5
	if isShort {
		initial = 0.4
	}
	if isQuestion {
		initial = 0.6
	}
	if hasKeywords {
		initial = 0.45
	}

	s.logger.Debug("adaptive query analysis",
		"short", isShort,
		"question", isQuestion,
		"keywords", hasKeywords,
		"threshold", initial)

	results, err := s.vectorSearch(ctx, embedding, initial, limit)
	if err != nil {
		return nil, "", err
	}
	if len(results) >= 3 {
		return results, "adaptive_initial_" + formatThreshold(initial), nil
	}

	for _, fallback := range []float64{0.4, 0.3, 0.2} {
		if fallback >= initial {
			continue
		}
		results, err = s.vectorSearch(ctx, embedding, fallback, limit)
		if err != nil {
			return nil, "", err
		}
		if len(results) >= 2 {
			return results, "adaptive_fallback_" + formatThreshold(fallback), nil
		}
	}

	// Keyword fallback. Store errors here degrade to an empty result
	// set rather than failing the whole search.
	matches, err := s.store.SearchText(ctx, query, limit)
	if err != nil {
		s.logger.Warn("text fallback failed", "error", err)
		matches = nil
	}
	return toResults(matches), "adaptive_text_fallback", nil
}

// progressive walks thresholds from strict to loose and accepts the
// first level with enough hits. Low thresholds accept fewer hits since
// anything below 0.3 is already a weak match.
func (s *Searcher) progressive(ctx context.Context, embedding []float64, minThreshold float64, limit int) ([]Result, string, error) {
	for _, threshold := range []float64{0.7, 0.6, 0.5, 0.4, 0.3, 0.2} {
		if threshold < minThreshold {
			break
		}
		results, err := s.vectorSearch(ctx, embedding, threshold, limit)
		if err != nil {
			return nil, "", err
		}
		if len(results) >= 3 || (threshold <= 0.3 && len(results) >= 1) {
			return results, "progressive_" + formatThreshold(threshold), nil
		}
	}
	return []Result{}, "progressive_failed", nil
}

// hybrid tries combined term and vector scoring, falling back to plain
// vector search when it errors or finds nothing.
func (s *Searcher) hybrid(ctx context.Context, query string, embedding []float64, threshold float64, limit int) ([]Result, string, error) {
	matches, err := s.store.HybridMatch(ctx, embedding, strings.Fields(query), threshold, limit)
	if err != nil {
		s.logger.Warn("hybrid search unavailable, falling back", "error", err)
	} else if len(matches) > 0 {
		return toResults(matches), "hybrid_multi_embedding", nil
	}

	results, err := s.vectorSearch(ctx, embedding, threshold, limit)
	if err != nil {
		return nil, "", err
	}
	return results, "hybrid_fallback", nil
}

func (s *Searcher) vectorSearch(ctx context.Context, embedding []float64, threshold float64, limit int) ([]Result, error) {
	matches, err := s.store.MatchDocuments(ctx, embedding, threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	return toResults(matches), nil
}

func hasQuestionPrefix(query string) bool {
	q := strings.ToLower(query)
	for _, w := range []string{"what", "how", "why", "when", "where"} {
		if strings.HasPrefix(q, w) {
			return true
		}
	}
	return false
}

func formatThreshold(t float64) string {
	return strconv.FormatFloat(t, 'f', -1, 64)
}

func toResults(matches []store.Match) []Result {
	results := make([]Result, 0, len(matches))
	for _, m := range matches {
		results = append(results, Result{
			Content:    m.Content,
			Metadata:   m.Metadata,
			Similarity: m.Similarity,
			MatchType:  m.MatchType,
		})
	}
	return results
}

func summarize(results []Result, threshold float64) Summary {
	sum := Summary{
		QueryHandled:       len(results) > 0,
		SuggestedThreshold: threshold,
	}
	if len(results) > 0 {
		sum.TopSimilarity = results[0].Similarity
	} else {
		sum.SuggestedThreshold = threshold - 0.1
		if sum.SuggestedThreshold < 0.1 {
			sum.SuggestedThreshold = 0.1
		}
	}
	sum.DocumentsFound = distinctTitles(results)
	return sum
}

func distinctTitles(results []Result) int {
	seen := make(map[string]struct{}, len(results))
	for _, r := range results {
		seen[r.Metadata.Title] = struct{}{}
	}
	return len(seen)
}
