package search

import (
	"context"
	"strings"
	"unicode/utf8"
)

// DefaultAgentLimit caps how many formatted results an agent receives.
const DefaultAgentLimit = 5

// Citation identifies where a result came from.
type Citation struct {
	Text    string `json:"text"`
	URL     string `json:"url"`
	Title   string `json:"title"`
	Section string `json:"section"`
}

// AgentResult is a search hit formatted for LLM consumption: bounded
// content, a ready-made markdown citation and the plain chunk text.
type AgentResult struct {
	Result
	Index           int      `json:"index"`
	Citation        Citation `json:"citation"`
	CitationText    string   `json:"citationText"`
	OriginalContent string   `json:"originalContent"`
}

// AgentResponse mirrors Response with formatted results.
type AgentResponse struct {
	Query        string        `json:"query"`
	Results      []AgentResult `json:"results"`
	TotalResults int           `json:"totalResults"`
	Strategy     string        `json:"strategy"`
	Summary      Summary       `json:"summary"`
}

// SearchForAgent runs an adaptive search sized for agent context
// windows. It over-fetches to give the slice some selection room, then
// trims content to the context window and attaches citations.
func (s *Searcher) SearchForAgent(ctx context.Context, query string, opts Options) (AgentResponse, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultAgentLimit
	}
	contextWindow := opts.ContextWindow
	if contextWindow <= 0 {
		contextWindow = DefaultContextWindow
	}

	inner := opts
	inner.Limit = limit * 2
	inner.Strategy = StrategyAdaptive

	resp, err := s.Search(ctx, query, inner)
	if err != nil {
		return AgentResponse{}, err
	}

	results := resp.Results
	if len(results) > limit {
		results = results[:limit]
	}

	formatted := make([]AgentResult, 0, len(results))
	for i, r := range results {
		content := truncateAtRune(r.Content, contextWindow)

		title := r.Metadata.Title
		if title == "" {
			title = "Unknown Document"
		}

		sectionPath := joinNonEmpty(r.Metadata.Section, r.Metadata.Subsection)
		citationText := title
		if sectionPath != "" {
			citationText = title + " - " + sectionPath
		}
		citationURL := r.Metadata.URL
		if r.Metadata.Anchor != "" {
			citationURL += r.Metadata.Anchor
		}

		original := r.Metadata.OriginalContent
		if original == "" {
			original = content
		}

		formatted = append(formatted, AgentResult{
			Result: Result{
				Content:    content,
				Metadata:   r.Metadata,
				Similarity: r.Similarity,
				MatchType:  r.MatchType,
			},
			Index: i + 1,
			Citation: Citation{
				Text:    citationText,
				URL:     citationURL,
				Title:   title,
				Section: sectionPath,
			},
			CitationText:    "[" + citationText + "](" + citationURL + ")",
			OriginalContent: original,
		})
	}

	summary := resp.Summary
	summary.DocumentsFound = distinctCitationTitles(formatted)

	return AgentResponse{
		Query:        resp.Query,
		Results:      formatted,
		TotalResults: resp.TotalResults,
		Strategy:     resp.Strategy,
		Summary:      summary,
	}, nil
}

// truncateAtRune cuts s to at most max bytes without splitting a
// multi-byte rune, appending an ellipsis when anything was dropped.
func truncateAtRune(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

func joinNonEmpty(parts ...string) string {
	kept := parts[:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " > ")
}

func distinctCitationTitles(results []AgentResult) int {
	seen := make(map[string]struct{}, len(results))
	for _, r := range results {
		seen[r.Citation.Title] = struct{}{}
	}
	return len(seen)
}
