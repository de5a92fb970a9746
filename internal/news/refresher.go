package news

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Fetcher is one upstream news source.
type Fetcher interface {
	Search(ctx context.Context, query string) ([]Article, error)
}

// Stats summarizes one refresh run.
type Stats struct {
	FirecrawlFetched  int  `json:"firecrawlFetched"`
	TavilyFetched     int  `json:"tavilyFetched"`
	Processed         int  `json:"processed"`
	DuplicatesRemoved int  `json:"duplicatesRemoved"`
	Saved             int  `json:"saved"`
	FirecrawlFailed   bool `json:"firecrawlFailed"`
	TavilyFailed      bool `json:"tavilyFailed"`
}

// Refresher periodically pulls fresh articles from both providers into
// the store.
type Refresher struct {
	firecrawl Fetcher
	tavily    Fetcher
	store     *Store
	query     string
	interval  time.Duration
	log       *slog.Logger
}

func NewRefresher(firecrawl, tavily Fetcher, store *Store, query string, interval time.Duration, log *slog.Logger) *Refresher {
	return &Refresher{
		firecrawl: firecrawl,
		tavily:    tavily,
		store:     store,
		query:     query,
		interval:  interval,
		log:       log,
	}
}

// RunOnce fetches from both providers and upserts the results. One
// provider failing is tolerated; both failing is an error.
func (r *Refresher) RunOnce(ctx context.Context) (Stats, error) {
	var stats Stats

	// A provider without credentials is left nil and counted as failed
	// so a fully unconfigured refresher still errors cleanly.
	var firecrawlArticles, tavilyArticles []Article
	if r.firecrawl == nil {
		stats.FirecrawlFailed = true
	} else if articles, err := r.firecrawl.Search(ctx, r.query); err != nil {
		r.log.Error("firecrawl fetch failed", "error", err)
		stats.FirecrawlFailed = true
	} else {
		firecrawlArticles = articles
	}
	if r.tavily == nil {
		stats.TavilyFailed = true
	} else if articles, err := r.tavily.Search(ctx, r.query); err != nil {
		r.log.Error("tavily fetch failed", "error", err)
		stats.TavilyFailed = true
	} else {
		tavilyArticles = articles
	}

	stats.FirecrawlFetched = len(firecrawlArticles)
	stats.TavilyFetched = len(tavilyArticles)

	if len(firecrawlArticles) == 0 && len(tavilyArticles) == 0 {
		if stats.FirecrawlFailed && stats.TavilyFailed {
			return stats, fmt.Errorf("both news providers failed")
		}
		r.log.Info("no new articles found", "query", r.query)
		return stats, nil
	}

	normalized := Normalize(firecrawlArticles, tavilyArticles)
	deduped := Deduplicate(normalized)
	stats.Processed = len(deduped)
	stats.DuplicatesRemoved = len(normalized) - len(deduped)

	saved, err := r.store.Upsert(ctx, deduped, r.query)
	stats.Saved = saved
	if err != nil {
		return stats, fmt.Errorf("save articles: %w", err)
	}

	r.log.Info("news feed refreshed",
		"fetched", len(normalized),
		"deduplicated", len(deduped),
		"saved", saved)
	return stats, nil
}

// Start runs RunOnce on the configured interval until the context ends.
func (r *Refresher) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.RunOnce(ctx); err != nil {
				r.log.Error("scheduled news refresh failed", "error", err)
			}
		}
	}
}
