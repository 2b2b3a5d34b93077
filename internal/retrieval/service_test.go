package retrieval

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"testing"

	"github.com/clinrag/clinrag/internal/llm"
	"github.com/clinrag/clinrag/internal/query"
	"github.com/clinrag/clinrag/internal/vectorstore"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func dosageQuery() *query.EnhancedQuery {
	return &query.EnhancedQuery{
		Intent: query.IntentDosage,
		Filters: query.Filters{
			Drugs:       []string{"metformin"},
			AnswerTypes: []string{"dosage", "definition"},
		},
		Boost: query.BoostParams{
			Sections:    []string{"dosage", "dosage_administration", "administration"},
			Weight:      1.3,
			AnswerTypes: []string{"dosage", "definition"},
		},
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestBoostFor_AllCategories(t *testing.T) {
	payload := map[string]any{
		"chunk_type":    "medication",
		"boost_section": "dosage",
		"drugs":         []string{"metformin"},
		"answer_types":  []string{"dosage"},
	}
	got := boostFor(payload, dosageQuery())
	want := 1.2 * 1.3 * 1.25 * 1.15
	if !almostEqual(got, want) {
		t.Errorf("boost = %v, want %v", got, want)
	}
}

func TestBoostFor_NoMatches(t *testing.T) {
	payload := map[string]any{
		"chunk_type":   "heading",
		"answer_types": []string{"general"},
	}
	if got := boostFor(payload, dosageQuery()); !almostEqual(got, 1.0) {
		t.Errorf("boost = %v, want 1.0", got)
	}
}

func TestBoostFor_EntityCategoryFiresOnce(t *testing.T) {
	eq := dosageQuery()
	eq.Filters.Diseases = []string{"diabetes"}
	payload := map[string]any{
		"chunk_type": "heading",
		"drugs":      []string{"metformin"},
		"diseases":   []string{"diabetes"},
	}
	if got := boostFor(payload, eq); !almostEqual(got, 1.25) {
		t.Errorf("boost = %v, want 1.25 for a single entity-category match", got)
	}
}

func TestBoostFor_JSONDecodedPayload(t *testing.T) {
	// Payloads from the store decode as []any, not []string.
	payload := map[string]any{
		"chunk_type":       "text",
		"answer_types":     []any{"dosage"},
		"medical_entities": []any{"metformin"},
	}
	got := boostFor(payload, dosageQuery())
	want := 1.2 * 1.25 * 1.15
	if !almostEqual(got, want) {
		t.Errorf("boost = %v, want %v", got, want)
	}
}

type fakeEmbedder struct {
	calls int
}

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	f.calls++
	vectors := make([][]float64, len(texts))
	for i := range texts {
		vectors[i] = []float64{float64(i)}
	}
	return vectors, nil
}

type fakeSearcher struct {
	byVector map[float64][]vectorstore.Hit
}

func (f *fakeSearcher) Search(ctx context.Context, vector []float64, filter *vectorstore.Filter, limit int) ([]vectorstore.Hit, error) {
	return f.byVector[vector[0]], nil
}

type fakeAnswerer struct {
	query    string
	contexts []llm.Context
	fail     bool
}

func (f *fakeAnswerer) Generate(ctx context.Context, q string, contexts []llm.Context) (*llm.Answer, error) {
	if f.fail {
		return nil, errors.New("model unavailable")
	}
	f.query = q
	f.contexts = contexts
	return &llm.Answer{Text: "- Take 500 mg twice daily ^[1].", Citations: []llm.Citation{{ID: 1}}}, nil
}

func newTestService(searcher Searcher, answerer AnswerGenerator) *Service {
	enhancer := query.NewEnhancer(nil, testLogger())
	return NewService(enhancer, &fakeEmbedder{}, searcher, answerer, testLogger())
}

func TestSearch_MergesVariantsKeepingBestScore(t *testing.T) {
	// The same point comes back from two variant searches with
	// different scores; the better one must win and it must appear
	// only once.
	searcher := &fakeSearcher{byVector: map[float64][]vectorstore.Hit{
		0: {
			{ID: "a", Score: 0.6, Content: "shared chunk", Metadata: map[string]any{}},
			{ID: "b", Score: 0.5, Content: "only first", Metadata: map[string]any{}},
		},
		1: {
			{ID: "a", Score: 0.8, Content: "shared chunk", Metadata: map[string]any{}},
		},
	}}

	svc := newTestService(searcher, &fakeAnswerer{})
	res, err := svc.Search(context.Background(), "metformin dosage", 10, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res.Chunks) != 2 {
		t.Fatalf("expected 2 merged chunks, got %d", len(res.Chunks))
	}
	if res.Chunks[0].ID != "a" || !almostEqual(res.Chunks[0].BaseScore, 0.8) {
		t.Errorf("best hit = %+v, want id a with base score 0.8", res.Chunks[0])
	}
}

func TestSearch_RanksByBoostedScore(t *testing.T) {
	// A lower-similarity medication chunk overtakes a higher-similarity
	// plain chunk once boosts apply.
	searcher := &fakeSearcher{byVector: map[float64][]vectorstore.Hit{
		0: {
			{ID: "plain", Score: 0.80, Content: "unrelated text", Metadata: map[string]any{
				"chunk_type": "heading", "answer_types": []any{"general"},
			}},
			{ID: "med", Score: 0.70, Content: "metformin 500 mg", Metadata: map[string]any{
				"chunk_type":    "medication",
				"boost_section": "dosage",
				"drugs":         []any{"metformin"},
				"answer_types":  []any{"dosage"},
			}},
		},
	}}

	svc := newTestService(searcher, &fakeAnswerer{})
	res, err := svc.Search(context.Background(), "metformin dosage", 10, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res.Chunks[0].ID != "med" {
		t.Errorf("expected boosted medication chunk first, got %q (score %v)", res.Chunks[0].ID, res.Chunks[0].Score)
	}
	if !almostEqual(res.Chunks[0].Boost, 1.2*1.3*1.25*1.15) {
		t.Errorf("boost = %v", res.Chunks[0].Boost)
	}
	if res.Query.Intent != query.IntentDosage {
		t.Errorf("query intent = %v", res.Query.Intent)
	}
}

func TestSearch_TruncatesToLimit(t *testing.T) {
	hits := make([]vectorstore.Hit, 10)
	for i := range hits {
		hits[i] = vectorstore.Hit{ID: string(rune('a' + i)), Score: 1.0 - float64(i)*0.01, Metadata: map[string]any{}}
	}
	searcher := &fakeSearcher{byVector: map[float64][]vectorstore.Hit{0: hits}}

	svc := newTestService(searcher, &fakeAnswerer{})
	res, err := svc.Search(context.Background(), "hospital parking fees", 3, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res.Chunks) != 3 {
		t.Errorf("expected 3 chunks, got %d", len(res.Chunks))
	}
}

func TestAnswer_PassesRankedContexts(t *testing.T) {
	searcher := &fakeSearcher{byVector: map[float64][]vectorstore.Hit{
		0: {{ID: "a", Score: 0.9, Content: "metformin 500 mg twice daily", Metadata: map[string]any{"page": 2}}},
	}}
	answerer := &fakeAnswerer{}

	svc := newTestService(searcher, answerer)
	res, err := svc.Answer(context.Background(), "metformin dosage", 10, nil)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if res.Degraded {
		t.Error("should not be degraded")
	}
	if res.Answer == nil || res.Answer.Text == "" {
		t.Fatal("expected an answer")
	}
	if answerer.query != "metformin dosage" {
		t.Errorf("LLM received query %q, want the cleaned query", answerer.query)
	}
	if len(answerer.contexts) != 1 || answerer.contexts[0].Content != "metformin 500 mg twice daily" {
		t.Errorf("LLM contexts = %+v", answerer.contexts)
	}
	if answerer.contexts[0].Metadata["page"] != 2 {
		t.Errorf("context metadata = %v", answerer.contexts[0].Metadata)
	}
}

func TestAnswer_DegradesOnGenerationFailure(t *testing.T) {
	searcher := &fakeSearcher{byVector: map[float64][]vectorstore.Hit{
		0: {{ID: "a", Score: 0.9, Content: "metformin 500 mg", Metadata: map[string]any{}}},
	}}

	svc := newTestService(searcher, &fakeAnswerer{fail: true})
	res, err := svc.Answer(context.Background(), "metformin dosage", 10, nil)
	if err != nil {
		t.Fatalf("Answer should degrade, not fail: %v", err)
	}
	if !res.Degraded {
		t.Error("expected degraded result")
	}
	if res.Answer != nil {
		t.Errorf("degraded result should carry no answer, got %+v", res.Answer)
	}
	if len(res.Chunks) != 1 {
		t.Errorf("contexts should survive degradation, got %d chunks", len(res.Chunks))
	}
}
