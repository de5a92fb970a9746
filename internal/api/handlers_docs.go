package api

import (
	"bytes"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/yuin/goldmark"
)

// handleListDocuments lists indexed documents with their chunk counts.
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.store.ListDocuments(r.Context())
	if err != nil {
		jsonError(w, "failed to list documents: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"documents": docs,
		"count":     len(docs),
	})
}

// handleDeleteDocument removes every stored chunk of a document.
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	title, err := url.PathUnescape(chi.URLParam(r, "title"))
	if err != nil || title == "" {
		jsonError(w, "invalid document title", http.StatusBadRequest)
		return
	}

	deleted, err := s.store.DeleteByTitle(r.Context(), title)
	if err != nil {
		jsonError(w, "failed to delete document: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if deleted == 0 {
		jsonError(w, "document not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"title":          title,
		"chunks_deleted": deleted,
	})
}

// handlePreview renders a source page to HTML.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	page, err := url.PathUnescape(chi.URLParam(r, "page"))
	if err != nil || page == "" {
		jsonError(w, "invalid page", http.StatusBadRequest)
		return
	}

	content, err := s.docs.Load(page)
	if err != nil {
		jsonError(w, err.Error(), http.StatusNotFound)
		return
	}

	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(content), &buf); err != nil {
		jsonError(w, "failed to render page: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}
