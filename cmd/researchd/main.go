// Researchd is a retrieval-augmented research report daemon.
//
// It maintains an embedding index over a document corpus (incremental
// ingestion with change detection), serves similarity retrieval, and
// runs plan/execute research flows that combine the internal index with
// public web search into a cited report.
//
// Configuration is loaded from an optional YAML file and environment
// variables. See internal/config for details.
//
// Usage:
//
//	# Start the daemon with defaults
//	researchd
//
//	# Point at a config file
//	researchd -config /etc/researchd/config.yaml
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/researchd/internal/config"
	"github.com/fyrsmithlabs/researchd/internal/corpus"
	"github.com/fyrsmithlabs/researchd/internal/embeddings"
	"github.com/fyrsmithlabs/researchd/internal/ingest"
	"github.com/fyrsmithlabs/researchd/internal/logging"
	"github.com/fyrsmithlabs/researchd/internal/orchestrator"
	"github.com/fyrsmithlabs/researchd/internal/planner"
	"github.com/fyrsmithlabs/researchd/internal/report"
	"github.com/fyrsmithlabs/researchd/internal/retrieval"
	"github.com/fyrsmithlabs/researchd/internal/server"
	"github.com/fyrsmithlabs/researchd/internal/telemetry"
	"github.com/fyrsmithlabs/researchd/internal/vectorstore"
	"github.com/fyrsmithlabs/researchd/internal/websearch"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("researchd\n")
		fmt.Printf("Version:    %s\n", version)
		fmt.Printf("Commit:     %s\n", gitCommit)
		fmt.Printf("Build Date: %s\n", buildDate)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	}()

	if err := run(ctx, *configPath); err != nil {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Server shutdown complete")
}

// run initializes all services and blocks until the context is
// cancelled, then shuts the HTTP server down gracefully.
func run(ctx context.Context, configPath string) error {
	// A missing .env is fine; real deployments set the environment.
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.New(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer func() {
		_ = logging.Sync(logger)
	}()

	logger.Info("starting researchd",
		zap.String("version", version),
		zap.Int("port", cfg.Server.Port),
		zap.String("corpus_dir", cfg.Corpus.Dir),
		zap.String("vectorstore_provider", cfg.VectorStore.Provider),
	)

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry, logger)
	if err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(shutdownCtx)
	}()

	embedder, err := embeddings.NewService(embeddings.Config{
		BaseURL: cfg.Embedding.BaseURL,
		Model:   cfg.Embedding.Model,
		APIKey:  cfg.Embedding.APIKey,
	})
	if err != nil {
		return fmt.Errorf("initializing embedding service: %w", err)
	}

	store, err := vectorstore.New(ctx, vectorstore.FactoryConfig{
		Provider: cfg.VectorStore.Provider,
		Chromem: vectorstore.ChromemConfig{
			Path:       cfg.VectorStore.Path,
			Collection: cfg.VectorStore.Collection,
			VectorSize: cfg.VectorStore.VectorSize,
		},
		Qdrant: vectorstore.QdrantConfig{
			Host:       cfg.VectorStore.QdrantHost,
			Port:       cfg.VectorStore.QdrantPort,
			APIKey:     cfg.VectorStore.QdrantAPIKey,
			UseTLS:     cfg.VectorStore.QdrantUseTLS,
			Collection: cfg.VectorStore.Collection,
			VectorSize: cfg.VectorStore.VectorSize,
		},
	}, embedder, logger)
	if err != nil {
		return fmt.Errorf("initializing vector store: %w", err)
	}
	defer func() {
		_ = store.Close()
	}()

	chunkCount, err := store.Count(ctx)
	if err != nil {
		return fmt.Errorf("counting indexed chunks: %w", err)
	}
	logger.Info("connected to vector store", zap.Int("chunks", chunkCount))
	if chunkCount == 0 {
		logger.Warn("vector store is empty, run an ingestion sweep to add documents")
	}

	pipeline := ingest.NewPipeline(
		corpus.NewLoader(cfg.Corpus.Extensions, logger),
		corpus.NewChunker(cfg.Corpus.ChunkMaxChars, cfg.Corpus.ChunkOverlapChars),
		corpus.NewTracker(cfg.Ingest.RecordPath, logger),
		store,
		logger,
	)

	if cfg.Ingest.Watch {
		watcher := ingest.NewWatcher(pipeline, cfg.Corpus.Dir, cfg.Ingest.WatchDebounce, logger)
		go func() {
			if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("corpus watcher stopped", zap.Error(err))
			}
		}()
	}

	llm, err := openai.New(
		openai.WithBaseURL(cfg.LLM.BaseURL),
		openai.WithModel(cfg.LLM.Model),
		openai.WithToken(cfg.LLM.APIKey),
	)
	if err != nil {
		return fmt.Errorf("initializing chat model: %w", err)
	}

	retriever := retrieval.NewService(store, cfg.Retrieval.TopK, float32(cfg.Retrieval.MinSimilarity), logger)
	searcher := websearch.NewClient(websearch.Config{
		Endpoint:   cfg.Search.BaseURL,
		MaxResults: cfg.Search.MaxResults,
		Timeout:    cfg.Search.Timeout,
	}, logger)

	orch := orchestrator.New(
		planner.New(llm, logger),
		retriever,
		searcher,
		report.NewLLMSynthesizer(llm, logger),
		logger,
	)

	sessions := orchestrator.NewMemoryStore(cfg.Session.TTL, logger)
	defer func() {
		_ = sessions.Close()
	}()

	srv, err := server.NewServer(pipeline, retriever, orch, sessions, cfg.Corpus.Dir, logger, &server.Config{
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	})
	if err != nil {
		return fmt.Errorf("initializing http server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	return nil
}
