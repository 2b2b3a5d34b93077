// Package retrieval turns an enhanced query into ranked chunks and an
// optional synthesized answer. It embeds the query variants, searches
// the vector store, and re-scores hits with the intent-derived boosts
// before handing the top contexts to the LLM.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/clinrag/clinrag/internal/llm"
	"github.com/clinrag/clinrag/internal/query"
	"github.com/clinrag/clinrag/internal/vectorstore"
)

// searchDepth is how many candidates each vector search pulls before
// boosting and truncation.
const searchDepth = 50

// maxQueryVectors caps how many query variants are embedded per
// search.
const maxQueryVectors = 3

// Embedder turns texts into vectors.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// Searcher runs similarity queries against the vector store.
type Searcher interface {
	Search(ctx context.Context, vector []float64, filter *vectorstore.Filter, limit int) ([]vectorstore.Hit, error)
}

// AnswerGenerator synthesizes a cited answer over ranked contexts.
type AnswerGenerator interface {
	Generate(ctx context.Context, query string, contexts []llm.Context) (*llm.Answer, error)
}

// ScoredChunk is a search hit after boost re-scoring.
type ScoredChunk struct {
	ID        string         `json:"id"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata"`
	BaseScore float64        `json:"embedding_score"`
	Boost     float64        `json:"boost"`
	Score     float64        `json:"score"`
}

// SearchResult is the ranked output of a search, plus the query
// analysis that produced it.
type SearchResult struct {
	Query  *query.EnhancedQuery `json:"query_analysis"`
	Chunks []ScoredChunk        `json:"chunks"`
}

// AnswerResult is a search result with a synthesized answer. Degraded
// is set when answer generation failed and only contexts are returned.
type AnswerResult struct {
	SearchResult
	Answer   *llm.Answer `json:"answer,omitempty"`
	Degraded bool        `json:"degraded,omitempty"`
}

// Service wires query enhancement, embedding, vector search, and
// answer generation into the retrieval flow.
type Service struct {
	enhancer *query.Enhancer
	embedder Embedder
	store    Searcher
	answerer AnswerGenerator
	log      *slog.Logger
}

func NewService(enhancer *query.Enhancer, embedder Embedder, store Searcher, answerer AnswerGenerator, log *slog.Logger) *Service {
	return &Service{
		enhancer: enhancer,
		embedder: embedder,
		store:    store,
		answerer: answerer,
		log:      log.With("component", "retrieval"),
	}
}

// Search runs the full retrieval flow without answer generation:
// enhance, embed up to maxQueryVectors variants, search each, merge by
// point keeping the best base score, boost, and rank.
func (s *Service) Search(ctx context.Context, rawQuery string, limit int, docFilter *vectorstore.Filter) (*SearchResult, error) {
	if limit <= 0 || limit > searchDepth {
		limit = searchDepth
	}

	eq := s.enhancer.Enhance(ctx, rawQuery)
	s.log.Info("query analyzed",
		"intent", eq.Intent,
		"confidence", eq.IntentConfidence,
		"variants", len(eq.Variants),
	)

	texts := eq.AllQueryTexts()
	if len(texts) > maxQueryVectors {
		texts = texts[:maxQueryVectors]
	}
	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	// Merge hits across variants by point id, keeping the best base
	// score so a chunk matched by several variants is not counted
	// twice.
	best := make(map[string]vectorstore.Hit)
	order := make([]string, 0, searchDepth)
	for _, vec := range vectors {
		hits, err := s.store.Search(ctx, vec, docFilter, searchDepth)
		if err != nil {
			return nil, fmt.Errorf("vector search: %w", err)
		}
		for _, h := range hits {
			prev, seen := best[h.ID]
			if !seen {
				order = append(order, h.ID)
				best[h.ID] = h
			} else if h.Score > prev.Score {
				best[h.ID] = h
			}
		}
	}

	chunks := make([]ScoredChunk, 0, len(order))
	for _, id := range order {
		h := best[id]
		boost := boostFor(h.Metadata, eq)
		chunks = append(chunks, ScoredChunk{
			ID:        h.ID,
			Content:   h.Content,
			Metadata:  h.Metadata,
			BaseScore: h.Score,
			Boost:     boost,
			Score:     h.Score * boost,
		})
	}
	sort.SliceStable(chunks, func(i, j int) bool {
		return chunks[i].Score > chunks[j].Score
	})
	if len(chunks) > limit {
		chunks = chunks[:limit]
	}

	return &SearchResult{Query: eq, Chunks: chunks}, nil
}

// Answer runs Search and then synthesizes a cited answer over the
// ranked chunks. A failed generation degrades to contexts-only rather
// than failing the request.
func (s *Service) Answer(ctx context.Context, rawQuery string, limit int, docFilter *vectorstore.Filter) (*AnswerResult, error) {
	res, err := s.Search(ctx, rawQuery, limit, docFilter)
	if err != nil {
		return nil, err
	}

	contexts := make([]llm.Context, 0, len(res.Chunks))
	for _, c := range res.Chunks {
		contexts = append(contexts, llm.Context{Content: c.Content, Metadata: c.Metadata})
	}

	answer, err := s.answerer.Generate(ctx, res.Query.CleanedQuery, contexts)
	if err != nil {
		s.log.Error("answer generation failed, returning contexts only", "error", err)
		return &AnswerResult{SearchResult: *res, Degraded: true}, nil
	}
	return &AnswerResult{SearchResult: *res, Answer: answer}, nil
}
