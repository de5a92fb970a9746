package search

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"unicode/utf8"

	"docsearch/internal/embed"
	"docsearch/internal/store"
)

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(ctx context.Context, text string) (embed.Embedding, error) {
	return embed.Embedding{Vector: []float64{0.1, 0.2, 0.3}, Tokens: 3}, nil
}

type fakeStore struct {
	// matchFn decides what vector search returns per threshold.
	matchFn    func(threshold float64, limit int) []store.Match
	matchErr   error
	hybrid     []store.Match
	hybridErr  error
	text       []store.Match
	textErr    error
	thresholds []float64
}

func (f *fakeStore) MatchDocuments(ctx context.Context, embedding []float64, threshold float64, limit int) ([]store.Match, error) {
	f.thresholds = append(f.thresholds, threshold)
	if f.matchErr != nil {
		return nil, f.matchErr
	}
	if f.matchFn == nil {
		return nil, nil
	}
	return f.matchFn(threshold, limit), nil
}

func (f *fakeStore) HybridMatch(ctx context.Context, embedding []float64, terms []string, threshold float64, limit int) ([]store.Match, error) {
	return f.hybrid, f.hybridErr
}

func (f *fakeStore) SearchText(ctx context.Context, query string, limit int) ([]store.Match, error) {
	return f.text, f.textErr
}

func mkMatch(title string, similarity float64) store.Match {
	m := store.Match{
		Content:    "Context: " + title + "\n\nsome content",
		Similarity: similarity,
		MatchType:  "vector",
	}
	m.Metadata.Title = title
	m.Metadata.URL = "https://docs.example.com/docs/" + strings.ToLower(title)
	m.Metadata.Section = "Section"
	m.Metadata.Anchor = "#anchor"
	m.Metadata.OriginalContent = "some content"
	return m
}

func mkMatches(n int, similarity float64) []store.Match {
	out := make([]store.Match, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, mkMatch("Doc", similarity))
	}
	return out
}

func newSearcher(st Store) *Searcher {
	return New(st, fakeEmbedder{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestAdaptiveInitialThresholdByQueryShape(t *testing.T) {
	cases := []struct {
		name      string
		query     string
		threshold float64
	}{
		{"question", "What is the protocol lifecycle and how does it work?", 0.6},
		{"short keyword", "agent cards", 0.45},
		{"longer statement", "the server publishes its capability document during the initial handshake phase", 0.5},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st := &fakeStore{matchFn: func(threshold float64, limit int) []store.Match {
				return mkMatches(3, threshold+0.1)
			}}
			resp, err := newSearcher(st).Search(context.Background(), tc.query, Options{})
			if err != nil {
				t.Fatalf("Search: %v", err)
			}
			if st.thresholds[0] != tc.threshold {
				t.Errorf("initial threshold = %v, want %v", st.thresholds[0], tc.threshold)
			}
			if want := "adaptive_initial_" + formatThreshold(tc.threshold); resp.Strategy != want {
				t.Errorf("strategy = %q, want %q", resp.Strategy, want)
			}
		})
	}
}

func TestAdaptiveFallbackLadder(t *testing.T) {
	// Nothing at the initial 0.6, two hits from 0.4 down.
	st := &fakeStore{matchFn: func(threshold float64, limit int) []store.Match {
		if threshold >= 0.6 {
			return nil
		}
		return mkMatches(2, 0.42)
	}}

	resp, err := newSearcher(st).Search(context.Background(), "What is task delegation?", Options{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if resp.Strategy != "adaptive_fallback_0.4" {
		t.Errorf("strategy = %q", resp.Strategy)
	}
	if resp.TotalResults != 2 {
		t.Errorf("total = %d", resp.TotalResults)
	}
}

func TestAdaptiveSkipsFallbacksAboveInitial(t *testing.T) {
	// Initial 0.45 (keyword query): the 0.4 rung runs, 0.45+ rungs don't.
	st := &fakeStore{matchFn: func(threshold float64, limit int) []store.Match { return nil }}

	if _, err := newSearcher(st).Search(context.Background(), "agent cards", Options{}); err != nil {
		t.Fatalf("Search: %v", err)
	}
	want := []float64{0.45, 0.4, 0.3, 0.2}
	if len(st.thresholds) != len(want) {
		t.Fatalf("thresholds tried = %v, want %v", st.thresholds, want)
	}
	for i := range want {
		if st.thresholds[i] != want[i] {
			t.Errorf("threshold %d = %v, want %v", i, st.thresholds[i], want[i])
		}
	}
}

func TestAdaptiveTextFallback(t *testing.T) {
	textHit := mkMatch("Glossary", 0)
	textHit.MatchType = "text"
	st := &fakeStore{text: []store.Match{textHit}}

	resp, err := newSearcher(st).Search(context.Background(), "zzqx", Options{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if resp.Strategy != "adaptive_text_fallback" {
		t.Errorf("strategy = %q", resp.Strategy)
	}
	if resp.TotalResults != 1 || resp.Results[0].MatchType != "text" {
		t.Errorf("results = %+v", resp.Results)
	}
}

func TestAdaptiveTextFallbackSwallowsStoreError(t *testing.T) {
	st := &fakeStore{textErr: errors.New("relation does not exist")}

	resp, err := newSearcher(st).Search(context.Background(), "zzqx", Options{})
	if err != nil {
		t.Fatalf("text fallback error should not fail the search: %v", err)
	}
	if resp.TotalResults != 0 {
		t.Errorf("total = %d", resp.TotalResults)
	}
	if resp.Summary.QueryHandled {
		t.Error("empty result set reported as handled")
	}
	if resp.Summary.SuggestedThreshold != 0.1 {
		t.Errorf("suggested threshold = %v, want 0.1", resp.Summary.SuggestedThreshold)
	}
}

func TestProgressiveAcceptsLooseSingleHit(t *testing.T) {
	st := &fakeStore{matchFn: func(threshold float64, limit int) []store.Match {
		if threshold <= 0.3 {
			return mkMatches(1, 0.31)
		}
		return nil
	}}

	resp, err := newSearcher(st).Search(context.Background(), "anything", Options{Strategy: StrategyProgressive})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if resp.Strategy != "progressive_0.3" {
		t.Errorf("strategy = %q", resp.Strategy)
	}
}

func TestProgressiveStopsAtMinThreshold(t *testing.T) {
	st := &fakeStore{matchFn: func(threshold float64, limit int) []store.Match { return nil }}

	resp, err := newSearcher(st).Search(context.Background(), "anything", Options{
		Strategy:  StrategyProgressive,
		Threshold: 0.5,
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if resp.Strategy != "progressive_failed" {
		t.Errorf("strategy = %q", resp.Strategy)
	}
	for _, th := range st.thresholds {
		if th < 0.5 {
			t.Errorf("threshold %v tried below the minimum", th)
		}
	}
}

func TestHybridFallsBackToVector(t *testing.T) {
	st := &fakeStore{
		hybridErr: errors.New("function does not exist"),
		matchFn: func(threshold float64, limit int) []store.Match {
			return mkMatches(1, 0.5)
		},
	}

	resp, err := newSearcher(st).Search(context.Background(), "anything", Options{Strategy: StrategyHybrid})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if resp.Strategy != "hybrid_fallback" {
		t.Errorf("strategy = %q", resp.Strategy)
	}
}

func TestHybridUsesCombinedScoring(t *testing.T) {
	hit := mkMatch("Doc", 0.8)
	hit.MatchType = "hybrid"
	st := &fakeStore{hybrid: []store.Match{hit}}

	resp, err := newSearcher(st).Search(context.Background(), "anything", Options{Strategy: StrategyHybrid})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if resp.Strategy != "hybrid_multi_embedding" {
		t.Errorf("strategy = %q", resp.Strategy)
	}
}

func TestUnknownStrategyRejected(t *testing.T) {
	_, err := newSearcher(&fakeStore{}).Search(context.Background(), "q", Options{Strategy: "exotic"})
	if err == nil {
		t.Fatal("expected error for unknown strategy")
	}
}

func TestDocumentFilter(t *testing.T) {
	st := &fakeStore{matchFn: func(threshold float64, limit int) []store.Match {
		return []store.Match{mkMatch("Alpha", 0.9), mkMatch("Beta", 0.8), mkMatch("Alpha", 0.7)}
	}}

	resp, err := newSearcher(st).Search(context.Background(), "What is alpha?", Options{DocumentFilter: "Alpha"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if resp.TotalResults != 2 {
		t.Fatalf("total = %d", resp.TotalResults)
	}
	for _, r := range resp.Results {
		if r.Metadata.Title != "Alpha" {
			t.Errorf("filter leaked title %q", r.Metadata.Title)
		}
	}
	if resp.Summary.DocumentsFound != 1 {
		t.Errorf("documentsFound = %d", resp.Summary.DocumentsFound)
	}
}

func TestSearchForAgentFormatting(t *testing.T) {
	long := strings.Repeat("x", 3000)
	hit := mkMatch("Protocol Guide", 0.82)
	hit.Content = long
	hit.Metadata.Subsection = "Handshake"
	st := &fakeStore{matchFn: func(threshold float64, limit int) []store.Match {
		return []store.Match{hit, mkMatch("Other", 0.6), mkMatch("Other", 0.5)}
	}}

	resp, err := newSearcher(st).SearchForAgent(context.Background(), "How does the handshake work?", Options{Limit: 2})
	if err != nil {
		t.Fatalf("SearchForAgent: %v", err)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("results = %d, want limit 2", len(resp.Results))
	}

	first := resp.Results[0]
	if first.Index != 1 || resp.Results[1].Index != 2 {
		t.Error("indices should start at 1")
	}
	if len(first.Content) != DefaultContextWindow+3 || !strings.HasSuffix(first.Content, "...") {
		t.Errorf("content not truncated to context window: %d", len(first.Content))
	}
	if first.Citation.Text != "Protocol Guide - Section > Handshake" {
		t.Errorf("citation text = %q", first.Citation.Text)
	}
	if !strings.HasPrefix(first.CitationText, "[Protocol Guide - Section > Handshake](") ||
		!strings.HasSuffix(first.CitationText, "#anchor)") {
		t.Errorf("citation markdown = %q", first.CitationText)
	}
	if first.OriginalContent != "some content" {
		t.Errorf("original content = %q", first.OriginalContent)
	}
	if resp.Summary.DocumentsFound != 2 {
		t.Errorf("documentsFound = %d", resp.Summary.DocumentsFound)
	}
}

func TestSearchForAgentTruncationKeepsValidUTF8(t *testing.T) {
	// The leading byte misaligns the 4-byte runes so the window lands
	// mid-rune.
	long := "x" + strings.Repeat("\U0001F600", 800)
	hit := mkMatch("Emoji Doc", 0.9)
	hit.Content = long
	st := &fakeStore{matchFn: func(threshold float64, limit int) []store.Match {
		return []store.Match{hit, hit, hit}
	}}

	resp, err := newSearcher(st).SearchForAgent(context.Background(), "What is this?", Options{})
	if err != nil {
		t.Fatal(err)
	}
	got := resp.Results[0].Content
	if len(got) > DefaultContextWindow+3 {
		t.Errorf("content length = %d", len(got))
	}
	if !strings.HasSuffix(got, "...") {
		t.Error("expected ellipsis suffix")
	}
	if !utf8.ValidString(got) {
		t.Error("truncated content is not valid UTF-8")
	}
}

func TestTruncateAtRuneBoundary(t *testing.T) {
	s := "abécd" // e-acute is 2 bytes, starting at index 2
	if got := truncateAtRune(s, 3); got != "ab..." {
		t.Errorf("truncateAtRune = %q", got)
	}
	if got := truncateAtRune(s, 6); got != s {
		t.Errorf("unneeded truncation: %q", got)
	}
}

func TestSearchForAgentUnknownTitle(t *testing.T) {
	hit := store.Match{Content: "orphan content", Similarity: 0.5, MatchType: "vector"}
	st := &fakeStore{matchFn: func(threshold float64, limit int) []store.Match {
		return []store.Match{hit, hit, hit}
	}}

	resp, err := newSearcher(st).SearchForAgent(context.Background(), "What is this?", Options{})
	if err != nil {
		t.Fatalf("SearchForAgent: %v", err)
	}
	if got := resp.Results[0].Citation.Title; got != "Unknown Document" {
		t.Errorf("title = %q", got)
	}
	if resp.Results[0].OriginalContent != "orphan content" {
		t.Errorf("original content fallback = %q", resp.Results[0].OriginalContent)
	}
}
