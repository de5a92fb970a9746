package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"docsearch/internal/chunker"
	"docsearch/internal/config"
	"docsearch/internal/docsource"
	"docsearch/internal/embed"
	"docsearch/internal/news"
	"docsearch/internal/store"
)

func main() {
	cfg := config.Load()

	dir := flag.String("dir", cfg.DocsDir, "Directory containing markdown pages")
	dbURL := flag.String("db", cfg.DatabaseURL, "PostgreSQL connection string (pgvector enabled)")
	provider := flag.String("provider", cfg.EmbeddingProvider, "Embedding provider: openai or ollama")
	page := flag.String("page", "", "Index a single page instead of the whole directory")
	force := flag.Bool("force", false, "Re-embed documents that already have stored chunks")
	dryRun := flag.Bool("dry-run", false, "Chunk and estimate token cost without embedding or storing")
	fetchNews := flag.Bool("fetch-news", false, "Refresh the news feed once after indexing")
	flag.Parse()

	src := docsource.New(*dir)
	docs, err := src.List()
	if err != nil {
		log.Fatalf("Failed to list documents: %v", err)
	}
	if *page != "" {
		docs = []docsource.Document{{Page: *page}}
	}
	if len(docs) == 0 {
		log.Fatalf("No markdown pages found under %s", *dir)
	}
	log.Printf("Found %d pages under %s", len(docs), *dir)

	chunkOpts := chunker.Options{
		TargetChunkSize:            cfg.TargetChunkSize,
		MaxChunkSize:               cfg.MaxChunkSize,
		OverlapSize:                cfg.OverlapSize,
		RespectCodeBlocks:          true,
		IncludeHierarchicalContext: true,
	}

	if *dryRun {
		runDryRun(src, docs, cfg.BaseURL, chunkOpts)
		return
	}

	ctx := context.Background()

	st, err := store.New(ctx, *dbURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer st.Close()
	if err := st.Init(ctx, cfg.EmbeddingDimension); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	log.Println("Database initialized successfully")

	var embedder embed.Embedder
	var model string
	switch *provider {
	case "openai":
		embedder = embed.NewOpenAIEmbedder(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIModel)
		model = cfg.OpenAIModel
	case "ollama":
		embedder, err = embed.NewOllamaEmbedder(cfg.OllamaHost, cfg.OllamaModel)
		if err != nil {
			log.Fatalf("Failed to create embedder: %v", err)
		}
		model = cfg.OllamaModel
	default:
		log.Fatalf("Unknown embedding provider: %q", *provider)
	}
	log.Printf("Using %s model %s", *provider, model)

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	pipeline := embed.NewPipeline(embedder, st, embed.PipelineConfig{
		Model:     model,
		BatchSize: cfg.EmbedBatchSize,
		BaseURL:   cfg.BaseURL,
		ChunkOpts: chunkOpts,
	}, logger)

	start := time.Now()
	var embedded, skipped, failed, tokens int
	for _, doc := range docs {
		content, err := src.Load(doc.Page)
		if err != nil {
			log.Printf("Warning: failed to load %s: %v", doc.Page, err)
			failed++
			continue
		}

		result, err := pipeline.EmbedDocument(ctx, content, !*force, nil)
		if err != nil {
			log.Printf("Warning: failed to embed %s: %v", doc.Page, err)
			failed++
			continue
		}
		if result.Skipped > 0 {
			log.Printf("Skipped %s: %d chunks already stored", doc.Page, result.Skipped)
			skipped++
			continue
		}
		log.Printf("Embedded %s: %d chunks, %d tokens", doc.Page, result.EmbeddingsGenerated, result.TokensUsed)
		embedded++
		tokens += result.TokensUsed
	}

	log.Printf("Done in %v: %d embedded, %d skipped, %d failed, %d tokens (~$%.4f)",
		time.Since(start).Round(time.Second), embedded, skipped, failed, tokens, embed.EstimateCost(tokens))

	if *fetchNews {
		if cfg.FirecrawlAPIKey == "" && cfg.TavilyAPIKey == "" {
			log.Println("Skipping news refresh: no provider keys configured")
			return
		}
		refreshNews(ctx, st, cfg, logger)
	}
}

// runDryRun chunks every page and reports what indexing would cost.
func runDryRun(src *docsource.Source, docs []docsource.Document, baseURL string, opts chunker.Options) {
	var totalChunks, totalTokens int
	for _, doc := range docs {
		content, err := src.Load(doc.Page)
		if err != nil {
			log.Printf("Warning: failed to load %s: %v", doc.Page, err)
			continue
		}

		result := chunker.Chunk(content, baseURL, opts)
		var tokens int
		for _, c := range result.Chunks {
			tokens += embed.EstimateTokens(c.ContextualContent)
		}
		fmt.Printf("%-40s %3d chunks %6d tokens\n", doc.Page, len(result.Chunks), tokens)
		totalChunks += len(result.Chunks)
		totalTokens += tokens
	}
	fmt.Printf("\nTotal: %d chunks, %d tokens, estimated cost $%.4f\n",
		totalChunks, totalTokens, embed.EstimateCost(totalTokens))
}

func refreshNews(ctx context.Context, st *store.Store, cfg config.Config, logger *slog.Logger) {
	newsStore := news.NewStore(st.Pool)
	if err := newsStore.Init(ctx); err != nil {
		log.Printf("Warning: failed to initialize news store: %v", err)
		return
	}

	var firecrawl, tavily news.Fetcher
	if cfg.FirecrawlAPIKey != "" {
		firecrawl = news.NewFirecrawlClient(cfg.FirecrawlAPIKey)
	}
	if cfg.TavilyAPIKey != "" {
		tavily = news.NewTavilyClient(cfg.TavilyAPIKey)
	}
	refresher := news.NewRefresher(firecrawl, tavily, newsStore, cfg.NewsQuery, cfg.NewsRefreshInterval, logger)
	stats, err := refresher.RunOnce(ctx)
	if err != nil {
		log.Printf("Warning: news refresh failed: %v", err)
		return
	}
	log.Printf("News refreshed: %d fetched, %d saved", stats.FirecrawlFetched+stats.TavilyFetched, stats.Saved)
}
