package news

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// NormalizedArticle is an article in the common shape used for storage,
// with its origin and original ranking position attached.
type NormalizedArticle struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Source      string `json:"source"`
	Position    int    `json:"position"`
}

// Normalize merges the per-provider result lists, continuing position
// numbering across providers. Titles and descriptions are stripped of
// any HTML the search APIs let through.
func Normalize(firecrawl, tavily []Article) []NormalizedArticle {
	out := make([]NormalizedArticle, 0, len(firecrawl)+len(tavily))
	for i, a := range firecrawl {
		out = append(out, NormalizedArticle{
			Title:       StripTags(a.Title),
			Description: StripTags(a.Description),
			URL:         a.URL,
			Source:      "firecrawl",
			Position:    i,
		})
	}
	for i, a := range tavily {
		out = append(out, NormalizedArticle{
			Title:       StripTags(a.Title),
			Description: StripTags(a.Description),
			URL:         a.URL,
			Source:      "tavily",
			Position:    len(firecrawl) + i,
		})
	}
	return out
}

var trackingParams = []string{
	"utm_source",
	"utm_medium",
	"utm_campaign",
	"utm_term",
	"utm_content",
}

// CleanURL strips tracking parameters and the fragment. Unparseable
// URLs pass through unchanged.
func CleanURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	for _, p := range trackingParams {
		q.Del(p)
	}
	u.RawQuery = q.Encode()
	u.Fragment = ""
	return u.String()
}

// Deduplicate removes repeats keyed on cleaned URL plus lowercased
// title, keeping first occurrence order. Kept articles carry the
// cleaned URL.
func Deduplicate(articles []NormalizedArticle) []NormalizedArticle {
	seen := make(map[string]struct{}, len(articles))
	out := make([]NormalizedArticle, 0, len(articles))
	for _, a := range articles {
		cleaned := CleanURL(a.URL)
		key := cleaned + "|" + strings.ToLower(strings.TrimSpace(a.Title))
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		a.URL = cleaned
		out = append(out, a)
	}
	return out
}

// QualityScore gives a crude 0.3 to 1.0 score from content presence.
func QualityScore(a NormalizedArticle) float64 {
	score := 0.3
	if len(a.Title) > 10 {
		score += 0.3
	}
	if len(a.Description) > 20 {
		score += 0.3
	}
	if strings.HasPrefix(a.URL, "https://") {
		score += 0.1
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// StripTags removes HTML markup and unescapes entities, returning the
// plain text. Text without markup is returned as is.
func StripTags(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return s
	}
	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.TrimSpace(b.String())
		case html.TextToken:
			b.Write(z.Text())
		}
	}
}
