package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/clinrag/clinrag/internal/chunker"
	"github.com/clinrag/clinrag/internal/embedding"
	"github.com/clinrag/clinrag/internal/parser"
	"github.com/clinrag/clinrag/internal/vectorstore"
)

// Batch sizes for the embed and upsert phases. Embedding batches stay
// below the API's own per-request cap; upsert batches keep Qdrant
// request bodies bounded.
const (
	embedBatchSize  = 64
	upsertBatchSize = 100
)

// Worker processes a single document job.
type Worker struct {
	chunks   chunker.Pipeline
	embedder *embedding.Client
	store    *vectorstore.Client
	log      *slog.Logger

	maxConcurrentEmbed int
	maxConcurrentStore int
}

func NewWorker(chunks chunker.Pipeline, embedder *embedding.Client, store *vectorstore.Client, log *slog.Logger, maxEmbed, maxStore int) *Worker {
	return &Worker{
		chunks:             chunks,
		embedder:           embedder,
		store:              store,
		log:                log,
		maxConcurrentEmbed: maxEmbed,
		maxConcurrentStore: maxStore,
	}
}

// Process runs the full ingest pipeline for a job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "doc_id", job.DocID)

	// Phase 1: Parse
	job.SetStatus(StatusParsing, "parsing")
	p, err := parser.ForFile(job.Filename)
	if err != nil {
		log.Error("unsupported format", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "parsing")
		return
	}

	res, err := p.Parse(bytes.NewReader(job.FileData()), job.Filename)
	if err != nil {
		log.Error("parse failed", "error", err)
		job.AddError(fmt.Sprintf("parse: %s", err))
		job.SetStatus(StatusFailed, "parsing")
		return
	}

	meta := job.Meta
	if meta.Title == "" {
		meta.Title = res.Title
	}
	if meta.OriginalFilename == "" {
		meta.OriginalFilename = job.Filename
	}
	meta.ParseType = res.ParseType
	if job.ContentHash == "" {
		job.ContentHash = ContentHashHex(job.FileData())
	}
	if meta.Extra == nil {
		meta.Extra = map[string]any{}
	}
	meta.Extra["doc_id"] = job.DocID
	meta.Extra["content_hash"] = job.ContentHash

	// Phase 1.5: Dedup check
	exists, err := w.checkDuplicate(ctx, meta)
	if err != nil {
		log.Warn("dedup check failed, proceeding", "error", err)
	} else if exists {
		log.Info("duplicate document, skipping", "title", meta.Title)
		job.SetStatus(StatusDupSkipped, "dedup")
		return
	}

	// Phase 2: Chunk
	job.SetStatus(StatusChunking, "chunking")
	chunks, err := w.chunks.Chunk(ctx, res.Doc, meta)
	if err != nil {
		log.Error("chunking failed", "error", err)
		job.AddError(fmt.Sprintf("chunk: %s", err))
		job.SetStatus(StatusFailed, "chunking")
		return
	}
	job.SetTotalChunks(len(chunks))
	log.Info("chunked document", "chunks", len(chunks))

	if len(chunks) == 0 {
		log.Warn("no chunks produced")
		job.AddError("no extractable content")
		job.SetStatus(StatusFailed, "chunking")
		return
	}

	// Phase 3: Embed chunk batches with bounded concurrency.
	job.SetStatus(StatusEmbedding, "embedding")
	vectors := make([][]float64, len(chunks))
	type embedResult struct {
		start int
		vecs  [][]float64
		err   error
	}
	batches := 0
	results := make(chan embedResult, (len(chunks)+embedBatchSize-1)/embedBatchSize)
	sem := make(chan struct{}, w.maxConcurrentEmbed)

	for start := 0; start < len(chunks); start += embedBatchSize {
		end := min(start+embedBatchSize, len(chunks))
		texts := make([]string, 0, end-start)
		for _, c := range chunks[start:end] {
			texts = append(texts, c.Text)
		}
		batches++
		sem <- struct{}{}
		go func(start int, texts []string) {
			defer func() { <-sem }()
			var vecs [][]float64
			var lastErr error
			for attempt := range MaxRetries {
				vecs, lastErr = w.embedder.Embed(ctx, texts)
				if lastErr == nil || !IsRetryable(lastErr) {
					break
				}
				log.Warn("retryable embedding error", "batch_start", start, "attempt", attempt, "error", lastErr)
				select {
				case <-time.After(Backoff(attempt)):
				case <-ctx.Done():
					results <- embedResult{start: start, err: ctx.Err()}
					return
				}
			}
			results <- embedResult{start: start, vecs: vecs, err: lastErr}
		}(start, texts)
	}

	hadErrors := false
	for range batches {
		r := <-results
		if r.err != nil {
			log.Error("embedding failed", "batch_start", r.start, "error", r.err)
			job.AddError(fmt.Sprintf("embed batch %d: %s", r.start, r.err))
			hadErrors = true
			continue
		}
		copy(vectors[r.start:], r.vecs)
		job.AddChunksEmbedded(len(r.vecs))
	}

	// Drop chunks whose batch failed so chunks and vectors stay aligned.
	kept := make([]chunker.Chunk, 0, len(chunks))
	keptVecs := make([][]float64, 0, len(vectors))
	for i := range chunks {
		if vectors[i] != nil {
			kept = append(kept, chunks[i])
			keptVecs = append(keptVecs, vectors[i])
		}
	}
	log.Info("embedding complete", "embedded", len(kept), "total", len(chunks))

	if len(kept) == 0 {
		job.SetStatus(StatusFailed, "embedding")
		return
	}

	// Phase 4: Upsert into the vector store in concurrent batches.
	job.SetStatus(StatusStoring, "storing")
	type storeResult struct {
		start int
		count int
		err   error
	}
	storeBatches := 0
	storeResults := make(chan storeResult, (len(kept)+upsertBatchSize-1)/upsertBatchSize)
	storeSem := make(chan struct{}, w.maxConcurrentStore)

	for start := 0; start < len(kept); start += upsertBatchSize {
		end := min(start+upsertBatchSize, len(kept))
		storeBatches++
		storeSem <- struct{}{}
		go func(start, end int) {
			defer func() { <-storeSem }()
			n, err := w.store.UpsertChunks(ctx, kept[start:end], keptVecs[start:end], meta)
			storeResults <- storeResult{start: start, count: n, err: err}
		}(start, end)
	}

	storedCount := 0
	for range storeBatches {
		r := <-storeResults
		if r.err != nil {
			log.Error("store failed", "batch_start", r.start, "error", r.err)
			job.AddError(fmt.Sprintf("store batch %d: %s", r.start, r.err))
			hadErrors = true
			continue
		}
		storedCount += r.count
	}
	job.SetChunksStored(storedCount)
	log.Info("storage complete", "stored", storedCount, "total", len(kept))

	switch {
	case hadErrors && storedCount > 0:
		job.SetStatus(StatusPartial, "done")
	case hadErrors:
		job.SetStatus(StatusFailed, "storing")
	default:
		job.SetStatus(StatusCompleted, "done")
	}
}

// checkDuplicate asks the vector store whether a document with the
// same identifying metadata has already been ingested.
func (w *Worker) checkDuplicate(ctx context.Context, meta chunker.Metadata) (bool, error) {
	f := new(vectorstore.Filter).MatchValue("content_hash", meta.Extra["content_hash"])
	if meta.Title != "" {
		f = f.MatchValue("title", meta.Title)
	}
	if meta.DocType != "" {
		f = f.MatchValue("type", meta.DocType)
	}
	if meta.Date != "" {
		f = f.MatchValue("date", meta.Date)
	}
	if meta.OriginalFilename != "" {
		f = f.MatchValue("original_filename", meta.OriginalFilename)
	}
	return w.store.Exists(ctx, f)
}
