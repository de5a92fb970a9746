package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"docsearch/internal/api"
	"docsearch/internal/chunker"
	"docsearch/internal/config"
	"docsearch/internal/docsource"
	"docsearch/internal/embed"
	"docsearch/internal/mcp"
	"docsearch/internal/news"
	"docsearch/internal/pipeline"
	"docsearch/internal/search"
	"docsearch/internal/store"
)

const version = "0.1.0"

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Storage.
	st, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer st.Close()
	if err := st.Init(ctx, cfg.EmbeddingDimension); err != nil {
		log.Error("failed to initialize vector store", "error", err)
		os.Exit(1)
	}
	newsStore := news.NewStore(st.Pool)
	if err := newsStore.Init(ctx); err != nil {
		log.Error("failed to initialize news store", "error", err)
		os.Exit(1)
	}

	// Embedding provider.
	embedder, model, err := buildEmbedder(cfg)
	if err != nil {
		log.Error("failed to initialize embedder", "error", err)
		os.Exit(1)
	}
	log.Info("embedding provider ready", "provider", cfg.EmbeddingProvider, "model", model)

	// Indexing pipeline.
	pipe := embed.NewPipeline(embedder, st, embed.PipelineConfig{
		Model:     model,
		BatchSize: cfg.EmbedBatchSize,
		BaseURL:   cfg.BaseURL,
		ChunkOpts: chunker.Options{
			TargetChunkSize:            cfg.TargetChunkSize,
			MaxChunkSize:               cfg.MaxChunkSize,
			OverlapSize:                cfg.OverlapSize,
			RespectCodeBlocks:          true,
			IncludeHierarchicalContext: true,
		},
	}, log)
	orch := pipeline.NewOrchestrator(cfg, pipe, log)
	orch.Start(ctx)

	// Retrieval.
	searcher := search.New(st, embedder, log)

	// News aggregation, only when provider keys are present.
	var refresher *news.Refresher
	if cfg.FirecrawlAPIKey != "" || cfg.TavilyAPIKey != "" {
		var firecrawl, tavily news.Fetcher
		if cfg.FirecrawlAPIKey != "" {
			firecrawl = news.NewFirecrawlClient(cfg.FirecrawlAPIKey)
		}
		if cfg.TavilyAPIKey != "" {
			tavily = news.NewTavilyClient(cfg.TavilyAPIKey)
		}
		refresher = news.NewRefresher(firecrawl, tavily, newsStore, cfg.NewsQuery, cfg.NewsRefreshInterval, log)
		go refresher.Start(ctx)
	} else {
		log.Info("news aggregation disabled: no provider keys configured")
	}

	srv := api.NewServer(api.Deps{
		Searcher:     searcher,
		Orchestrator: orch,
		Store:        st,
		Docs:         docsource.New(cfg.DocsDir),
		NewsStore:    newsStore,
		Refresher:    refresher,
		MCP:          mcp.NewHandler(searcher, version, log),
	}, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		orch.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	log.Info("starting docsearch", "port", cfg.Port, "version", version)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}

func buildEmbedder(cfg config.Config) (embed.Embedder, string, error) {
	switch cfg.EmbeddingProvider {
	case "openai":
		return embed.NewOpenAIEmbedder(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIModel), cfg.OpenAIModel, nil
	case "ollama":
		e, err := embed.NewOllamaEmbedder(cfg.OllamaHost, cfg.OllamaModel)
		if err != nil {
			return nil, "", err
		}
		return e, cfg.OllamaModel, nil
	default:
		return nil, "", fmt.Errorf("unknown embedding provider: %q", cfg.EmbeddingProvider)
	}
}
