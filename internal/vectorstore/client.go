// Package vectorstore is the Qdrant REST client used for chunk
// storage and similarity search. Payloads mirror the chunk metadata
// produced by the chunker so retrieval can filter and boost on them.
package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clinrag/clinrag/internal/chunker"
)

// Client communicates with the Qdrant HTTP API.
type Client struct {
	baseURL    string
	apiKey     string
	collection string
	httpClient *http.Client
	log        *slog.Logger
}

func NewClient(baseURL, apiKey, collection string, log *slog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		collection: collection,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log.With("component", "vectorstore"),
	}
}

// Collection returns the collection name this client writes to.
func (c *Client) Collection() string {
	return c.collection
}

// Condition is a single payload-field match in a filter. Exactly one
// of Value or Any is set.
type Condition struct {
	Key   string
	Value any
	Any   []string
}

// Filter is a conjunction of payload conditions.
type Filter struct {
	Must []Condition
}

// MatchValue adds an exact-match condition.
func (f *Filter) MatchValue(key string, value any) *Filter {
	f.Must = append(f.Must, Condition{Key: key, Value: value})
	return f
}

// MatchAny adds a match-any-of condition.
func (f *Filter) MatchAny(key string, values []string) *Filter {
	f.Must = append(f.Must, Condition{Key: key, Any: values})
	return f
}

func (f *Filter) body() map[string]any {
	if f == nil || len(f.Must) == 0 {
		return nil
	}
	must := make([]map[string]any, 0, len(f.Must))
	for _, cond := range f.Must {
		m := map[string]any{"key": cond.Key}
		if cond.Any != nil {
			m["match"] = map[string]any{"any": cond.Any}
		} else {
			m["match"] = map[string]any{"value": cond.Value}
		}
		must = append(must, m)
	}
	return map[string]any{"must": must}
}

// Hit is one search result: the stored chunk text, its similarity
// score, and the remaining payload fields.
type Hit struct {
	ID       string         `json:"id"`
	Score    float64        `json:"embedding_score"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
}

// EnsureCollection creates the collection if it does not already
// exist. Vectors are cosine-distance with the given dimension.
func (c *Client) EnsureCollection(ctx context.Context, dim int) error {
	exists, err := c.collectionExists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     dim,
			"distance": "Cosine",
		},
	}
	var out struct {
		Result bool `json:"result"`
	}
	if err := c.do(ctx, http.MethodPut, "/collections/"+c.collection, body, &out); err != nil {
		// Another writer may have created it between the check and
		// the put. Re-check before failing.
		if again, err2 := c.collectionExists(ctx); err2 == nil && again {
			return nil
		}
		return fmt.Errorf("create collection %s: %w", c.collection, err)
	}
	c.log.Info("created collection", "collection", c.collection, "dim", dim)
	return nil
}

func (c *Client) collectionExists(ctx context.Context) (bool, error) {
	var out struct {
		Result struct {
			Collections []struct {
				Name string `json:"name"`
			} `json:"collections"`
		} `json:"result"`
	}
	if err := c.do(ctx, http.MethodGet, "/collections", nil, &out); err != nil {
		return false, fmt.Errorf("list collections: %w", err)
	}
	for _, col := range out.Result.Collections {
		if col.Name == c.collection {
			return true, nil
		}
	}
	return false, nil
}

// UpsertChunks writes chunks and their embeddings as points. Chunks
// whose text is empty after trimming are skipped along with their
// vectors. The chunk and vector slices must be the same length.
func (c *Client) UpsertChunks(ctx context.Context, chunks []chunker.Chunk, vectors [][]float64, meta chunker.Metadata) (int, error) {
	if len(chunks) != len(vectors) {
		return 0, fmt.Errorf("chunk/vector length mismatch: %d chunks, %d vectors", len(chunks), len(vectors))
	}

	points := make([]map[string]any, 0, len(chunks))
	for i := range chunks {
		payload := chunks[i].Payload(meta)
		text, _ := payload["chunk"].(string)
		if strings.TrimSpace(text) == "" {
			continue
		}
		delete(payload, "chunk")
		payload["text"] = text
		points = append(points, map[string]any{
			"id":      uuid.NewString(),
			"vector":  vectors[i],
			"payload": payload,
		})
	}
	if len(points) == 0 {
		return 0, nil
	}

	body := map[string]any{"points": points}
	if err := c.do(ctx, http.MethodPut, "/collections/"+c.collection+"/points?wait=true", body, nil); err != nil {
		return 0, fmt.Errorf("upsert points: %w", err)
	}
	c.log.Debug("upserted points", "count", len(points), "title", meta.Title)
	return len(points), nil
}

// Search runs a similarity query and returns hits ordered by score.
func (c *Client) Search(ctx context.Context, vector []float64, filter *Filter, limit int) ([]Hit, error) {
	body := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
	}
	if f := filter.body(); f != nil {
		body["filter"] = f
	}

	var out struct {
		Result []struct {
			ID      any            `json:"id"`
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := c.do(ctx, http.MethodPost, "/collections/"+c.collection+"/points/search", body, &out); err != nil {
		return nil, fmt.Errorf("search points: %w", err)
	}

	hits := make([]Hit, 0, len(out.Result))
	for _, r := range out.Result {
		text, _ := r.Payload["text"].(string)
		metadata := make(map[string]any, len(r.Payload))
		for k, v := range r.Payload {
			if k == "text" {
				continue
			}
			metadata[k] = v
		}
		hits = append(hits, Hit{
			ID:       fmt.Sprint(r.ID),
			Score:    r.Score,
			Content:  text,
			Metadata: metadata,
		})
	}
	return hits, nil
}

// Exists reports whether any point matches all the given payload
// conditions. Used for ingest dedup before re-embedding a document.
func (c *Client) Exists(ctx context.Context, filter *Filter) (bool, error) {
	body := map[string]any{
		"limit":        1,
		"with_payload": false,
		"with_vector":  false,
	}
	if f := filter.body(); f != nil {
		body["filter"] = f
	}

	var out struct {
		Result struct {
			Points []struct {
				ID any `json:"id"`
			} `json:"points"`
		} `json:"result"`
	}
	if err := c.do(ctx, http.MethodPost, "/collections/"+c.collection+"/points/scroll", body, &out); err != nil {
		return false, fmt.Errorf("scroll points: %w", err)
	}
	return len(out.Result.Points) > 0, nil
}

// StoredPoint is one point from a payload scroll.
type StoredPoint struct {
	ID      string
	Payload map[string]any
}

// Scroll pages through points matching the filter, returning payloads
// without vectors. A zero offset starts from the beginning; the
// returned offset is nil when the scan is complete.
func (c *Client) Scroll(ctx context.Context, filter *Filter, limit int, offset any) ([]StoredPoint, any, error) {
	body := map[string]any{
		"limit":        limit,
		"with_payload": true,
		"with_vector":  false,
	}
	if offset != nil {
		body["offset"] = offset
	}
	if f := filter.body(); f != nil {
		body["filter"] = f
	}

	var out struct {
		Result struct {
			Points []struct {
				ID      any            `json:"id"`
				Payload map[string]any `json:"payload"`
			} `json:"points"`
			NextPageOffset any `json:"next_page_offset"`
		} `json:"result"`
	}
	if err := c.do(ctx, http.MethodPost, "/collections/"+c.collection+"/points/scroll", body, &out); err != nil {
		return nil, nil, fmt.Errorf("scroll points: %w", err)
	}

	points := make([]StoredPoint, 0, len(out.Result.Points))
	for _, p := range out.Result.Points {
		points = append(points, StoredPoint{ID: fmt.Sprint(p.ID), Payload: p.Payload})
	}
	return points, out.Result.NextPageOffset, nil
}

// DeleteByFilter removes every point matching the filter.
func (c *Client) DeleteByFilter(ctx context.Context, filter *Filter) error {
	body := map[string]any{}
	if f := filter.body(); f != nil {
		body["filter"] = f
	}
	if err := c.do(ctx, http.MethodPost, "/collections/"+c.collection+"/points/delete?wait=true", body, nil); err != nil {
		return fmt.Errorf("delete points: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		httpReq.Header.Set("api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, string(respBody))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
