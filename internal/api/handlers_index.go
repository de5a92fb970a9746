package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"docsearch/internal/pipeline"
)

type indexRequest struct {
	// Page names a single document; All indexes every page under the
	// docs root. Exactly one of the two must be set.
	Page string `json:"page"`
	All  bool   `json:"all"`

	// Force re-embeds documents that already have stored chunks.
	Force bool `json:"force"`
}

type indexJobInfo struct {
	JobID   string `json:"job_id"`
	Page    string `json:"page"`
	Status  string `json:"status"`
	PollURL string `json:"poll_url"`
	Error   string `json:"error,omitempty"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxSearchBodyBytes)

	var req indexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Page == "" && !req.All {
		jsonError(w, "page or all is required", http.StatusBadRequest)
		return
	}
	if req.Page != "" && req.All {
		jsonError(w, "page and all are mutually exclusive", http.StatusBadRequest)
		return
	}

	var pages []string
	if req.All {
		docs, err := s.docs.List()
		if err != nil {
			jsonError(w, "failed to list documents: "+err.Error(), http.StatusInternalServerError)
			return
		}
		for _, d := range docs {
			pages = append(pages, d.Page)
		}
		if len(pages) == 0 {
			jsonError(w, "no documents found", http.StatusNotFound)
			return
		}
	} else {
		pages = []string{req.Page}
	}

	jobs := make([]indexJobInfo, 0, len(pages))
	for _, page := range pages {
		content, err := s.docs.Load(page)
		if err != nil {
			if !req.All {
				jsonError(w, err.Error(), http.StatusNotFound)
				return
			}
			jobs = append(jobs, indexJobInfo{Page: page, Error: err.Error()})
			continue
		}

		job := pipeline.NewJob(uuid.NewString(), page, content, !req.Force)
		if err := s.orchestrator.Submit(job); err != nil {
			if !req.All {
				jsonError(w, err.Error(), http.StatusServiceUnavailable)
				return
			}
			jobs = append(jobs, indexJobInfo{Page: page, Error: err.Error()})
			continue
		}

		jobs = append(jobs, indexJobInfo{
			JobID:   job.ID,
			Page:    page,
			Status:  string(pipeline.StatusQueued),
			PollURL: fmt.Sprintf("/api/index/%s/status", job.ID),
		})
	}

	if !req.All {
		writeJSON(w, http.StatusAccepted, jobs[0])
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"jobs":        jobs,
		"queue_depth": s.orchestrator.QueueDepth(),
	})
}

func (s *Server) handleIndexStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}
