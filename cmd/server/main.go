package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/clinrag/clinrag/internal/api"
	"github.com/clinrag/clinrag/internal/chunker"
	"github.com/clinrag/clinrag/internal/config"
	"github.com/clinrag/clinrag/internal/embedding"
	"github.com/clinrag/clinrag/internal/llm"
	"github.com/clinrag/clinrag/internal/ner"
	"github.com/clinrag/clinrag/internal/pipeline"
	"github.com/clinrag/clinrag/internal/query"
	"github.com/clinrag/clinrag/internal/retrieval"
	"github.com/clinrag/clinrag/internal/tokenizer"
	"github.com/clinrag/clinrag/internal/vectorstore"
)

func main() {
	_ = godotenv.Load()

	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tok, err := tokenizer.Load()
	if err != nil {
		log.Error("tokenizer load failed", "error", err)
		os.Exit(1)
	}

	var extractor ner.Extractor
	if cfg.NERServiceURL != "" {
		extractor = ner.NewClient(cfg.NERServiceURL)
	}

	profile, err := cfg.ChunkProfile()
	if err != nil {
		log.Error("chunk profile load failed", "error", err)
		os.Exit(1)
	}
	chunks, err := chunker.ForMode(chunker.Mode(cfg.ChunkMode), tok, extractor, profile, log)
	if err != nil {
		log.Error("chunker init failed", "error", err)
		os.Exit(1)
	}

	// Initialize clients.
	store := vectorstore.NewClient(cfg.QdrantURL, cfg.QdrantAPIKey, cfg.QdrantCollection, log)
	if err := store.EnsureCollection(ctx, cfg.EmbeddingDim); err != nil {
		log.Error("collection setup failed", "error", err)
		os.Exit(1)
	}
	embedder := embedding.NewClient(cfg.OpenAIAPIKey, cfg.EmbeddingModel, log)
	answerer := llm.NewClient(cfg.OpenAIAPIKey, cfg.ChatModel, log)

	// Initialize pipeline and retrieval.
	orch := pipeline.NewOrchestrator(cfg, chunks, embedder, store, log)
	orch.Start(ctx)

	enhancer := query.NewEnhancer(extractor, log)
	svc := retrieval.NewService(enhancer, embedder, store, answerer, log)

	// Initialize HTTP server.
	srv := api.NewServer(orch, svc, enhancer, log, cfg)

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

		store.Close()
	}()

	log.Info("starting clinrag", "port", cfg.Port, "chunk_mode", cfg.ChunkMode)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
