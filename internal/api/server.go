package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"docsearch/internal/config"
	"docsearch/internal/docsource"
	"docsearch/internal/news"
	"docsearch/internal/pipeline"
	"docsearch/internal/search"
	"docsearch/internal/store"
)

// Server is the HTTP API server for docsearch.
type Server struct {
	router       chi.Router
	searcher     *search.Searcher
	orchestrator *pipeline.Orchestrator
	store        *store.Store
	docs         *docsource.Source
	newsStore    *news.Store
	refresher    *news.Refresher
	mcp          http.Handler
	log          *slog.Logger
	cfg          config.Config
}

// Deps carries everything the server routes to.
type Deps struct {
	Searcher     *search.Searcher
	Orchestrator *pipeline.Orchestrator
	Store        *store.Store
	Docs         *docsource.Source
	NewsStore    *news.Store
	Refresher    *news.Refresher
	MCP          http.Handler
}

// NewServer creates and configures the HTTP server.
func NewServer(deps Deps, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		searcher:     deps.Searcher,
		orchestrator: deps.Orchestrator,
		store:        deps.Store,
		docs:         deps.Docs,
		newsStore:    deps.NewsStore,
		refresher:    deps.Refresher,
		mcp:          deps.MCP,
		log:          log,
		cfg:          cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Post("/api/search", s.handleSearch)
		r.Post("/api/agent/search", s.handleAgentSearch)
		r.Post("/api/tools/search-documents", s.handleSearchTool)

		r.Post("/api/index", s.handleIndex)
		r.Get("/api/index/{jobID}/status", s.handleIndexStatus)

		r.Get("/api/documents", s.handleListDocuments)
		r.Delete("/api/documents/{title}", s.handleDeleteDocument)
		r.Get("/api/documents/{page}/preview", s.handlePreview)

		r.Get("/api/news", s.handleNewsFeed)
		r.Post("/api/news/refresh", s.handleNewsRefresh)

		if s.mcp != nil {
			r.Handle("/api/mcp", s.mcp)
			r.Handle("/api/mcp/*", s.mcp)
		}
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
