package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"docsearch/internal/search"
)

const maxSearchBodyBytes = 1 << 20

type searchRequest struct {
	Query string `json:"query"`
	search.Options
}

func decodeSearchRequest(w http.ResponseWriter, r *http.Request) (searchRequest, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxSearchBodyBytes)

	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return req, false
	}
	if req.Query == "" {
		jsonError(w, "query is required", http.StatusBadRequest)
		return req, false
	}
	return req, true
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeSearchRequest(w, r)
	if !ok {
		return
	}

	resp, err := s.searcher.Search(r.Context(), req.Query, req.Options)
	if err != nil {
		if errors.Is(err, search.ErrUnknownStrategy) {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.log.Error("search failed", "query", req.Query, "error", err)
		jsonError(w, "search failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAgentSearch(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeSearchRequest(w, r)
	if !ok {
		return
	}

	resp, err := s.searcher.SearchForAgent(r.Context(), req.Query, req.Options)
	if err != nil {
		s.log.Error("agent search failed", "query", req.Query, "error", err)
		jsonError(w, "search failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleSearchTool serves the chat-tool shape: a compact found/results
// envelope an LLM tool call can consume directly.
func (s *Server) handleSearchTool(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeSearchRequest(w, r)
	if !ok {
		return
	}

	resp, err := s.searcher.SearchForAgent(r.Context(), req.Query, req.Options)
	if err != nil {
		s.log.Error("tool search failed", "query", req.Query, "error", err)
		jsonError(w, "search failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	if len(resp.Results) == 0 {
		writeJSON(w, http.StatusOK, map[string]any{
			"found":   false,
			"query":   req.Query,
			"message": "No relevant information found",
		})
		return
	}

	type toolResult struct {
		Content string `json:"content"`
		Source  string `json:"source"`
		URL     string `json:"url"`
	}
	results := make([]toolResult, 0, len(resp.Results))
	for _, item := range resp.Results {
		source := item.Citation.Text
		if source == "" {
			source = "Unknown source"
		}
		results = append(results, toolResult{
			Content: item.Content,
			Source:  source,
			URL:     item.Citation.URL,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"found":   true,
		"query":   req.Query,
		"results": results,
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
