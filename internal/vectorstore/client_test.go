package vectorstore

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/clinrag/clinrag/internal/chunker"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestFilter_Body(t *testing.T) {
	f := (&Filter{}).
		MatchValue("title", "discharge summary").
		MatchAny("chunk_type", []string{"medication", "table"})

	body := f.body()
	must, ok := body["must"].([]map[string]any)
	if !ok || len(must) != 2 {
		t.Fatalf("expected 2 must conditions, got %v", body)
	}
	if must[0]["key"] != "title" {
		t.Errorf("first condition key = %v", must[0]["key"])
	}
	match := must[0]["match"].(map[string]any)
	if match["value"] != "discharge summary" {
		t.Errorf("first condition match = %v", match)
	}
	match = must[1]["match"].(map[string]any)
	if _, ok := match["any"]; !ok {
		t.Errorf("second condition should be an any-match, got %v", match)
	}
}

func TestFilter_NilAndEmptyProduceNoBody(t *testing.T) {
	var f *Filter
	if f.body() != nil {
		t.Error("nil filter should produce nil body")
	}
	if (&Filter{}).body() != nil {
		t.Error("empty filter should produce nil body")
	}
}

func TestUpsertChunks_LengthMismatch(t *testing.T) {
	c := NewClient("http://localhost:6333", "", "docs", testLogger())
	chunks := []chunker.Chunk{{Text: "metformin 500 mg"}}
	_, err := c.UpsertChunks(context.Background(), chunks, nil, chunker.Metadata{})
	if err == nil {
		t.Fatal("expected error on chunk/vector length mismatch")
	}
}

func TestUpsertChunks_SkipsEmptyText(t *testing.T) {
	var captured struct {
		Points []struct {
			ID      string         `json:"id"`
			Vector  []float64      `json:"vector"`
			Payload map[string]any `json:"payload"`
		} `json:"points"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("expected PUT, got %s", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode upsert body: %v", err)
		}
		w.Write([]byte(`{"result":{"status":"acknowledged"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "docs", testLogger())
	chunks := []chunker.Chunk{
		{Text: "metformin 500 mg twice daily", Type: chunker.TypeMedication, Page: 1, AnswerTypes: []string{"dosage"}},
		{Text: "   ", Type: chunker.TypeText, Page: 1, AnswerTypes: []string{"general"}},
	}
	vectors := [][]float64{{0.1, 0.2}, {0.3, 0.4}}

	n, err := c.UpsertChunks(context.Background(), chunks, vectors, chunker.Metadata{Title: "med list"})
	if err != nil {
		t.Fatalf("UpsertChunks: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 point upserted, got %d", n)
	}
	if len(captured.Points) != 1 {
		t.Fatalf("expected 1 point in request, got %d", len(captured.Points))
	}
	p := captured.Points[0]
	if p.ID == "" {
		t.Error("point id should be set")
	}
	if p.Payload["text"] != "metformin 500 mg twice daily" {
		t.Errorf("payload text = %v", p.Payload["text"])
	}
	if _, ok := p.Payload["chunk"]; ok {
		t.Error("payload should carry text under \"text\", not \"chunk\"")
	}
	if p.Payload["title"] != "med list" {
		t.Errorf("payload title = %v", p.Payload["title"])
	}
}

func TestSearch_SplitsTextFromMetadata(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/docs/points/search" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"result":[
			{"id":"a1","score":0.91,"payload":{"text":"take with food","chunk_type":"text","page":2}},
			{"id":"b2","score":0.77,"payload":{"text":"avoid alcohol","chunk_type":"text","page":3}}
		]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "docs", testLogger())
	hits, err := c.Search(context.Background(), []float64{0.5}, nil, 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].Content != "take with food" {
		t.Errorf("hit content = %q", hits[0].Content)
	}
	if hits[0].Score != 0.91 {
		t.Errorf("hit score = %v", hits[0].Score)
	}
	if _, ok := hits[0].Metadata["text"]; ok {
		t.Error("metadata should not include the text field")
	}
	if hits[0].Metadata["chunk_type"] != "text" {
		t.Errorf("metadata chunk_type = %v", hits[0].Metadata["chunk_type"])
	}
}

func TestExists(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["limit"] != float64(1) {
			t.Errorf("exists scroll should request a single point, got limit %v", body["limit"])
		}
		w.Write([]byte(`{"result":{"points":[{"id":"a1"}]}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "docs", testLogger())
	f := (&Filter{}).MatchValue("title", "discharge summary")
	ok, err := c.Exists(context.Background(), f)
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if !ok {
		t.Error("expected point to exist")
	}
}

func TestDo_ErrorIncludesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"status":{"error":"wrong vector size"}}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "docs", testLogger())
	_, err := c.Search(context.Background(), []float64{0.5}, nil, 10)
	if err == nil {
		t.Fatal("expected error from 400 response")
	}
	got := err.Error()
	if !strings.Contains(got, "status 400") || !strings.Contains(got, "wrong vector size") {
		t.Errorf("error should carry status and body, got %q", got)
	}
}
