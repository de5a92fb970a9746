package api

import (
	"net/http"
	"strconv"

	"docsearch/internal/news"
)

func (s *Server) handleNewsFeed(w http.ResponseWriter, r *http.Request) {
	opts := news.FeedOptions{}
	q := r.URL.Query()
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			opts.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			opts.Offset = n
		}
	}
	if v := q.Get("minQuality"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			opts.MinQuality = f
		}
	}
	opts.Source = q.Get("source")

	articles, err := s.newsStore.Feed(r.Context(), opts)
	if err != nil {
		jsonError(w, "failed to load news feed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"articles": articles,
		"count":    len(articles),
	})
}

func (s *Server) handleNewsRefresh(w http.ResponseWriter, r *http.Request) {
	if s.refresher == nil {
		jsonError(w, "news refresh unavailable: no provider keys configured", http.StatusServiceUnavailable)
		return
	}

	stats, err := s.refresher.RunOnce(r.Context())
	if err != nil {
		jsonError(w, "news refresh failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
