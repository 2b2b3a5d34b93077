// Package embedding wraps the OpenAI embeddings API.
package embedding

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// DefaultModel is the embedding model used when none is configured.
const DefaultModel = "text-embedding-ada-002"

// maxBatch is the number of inputs sent per API call. The API accepts
// more, but smaller batches keep individual requests retryable without
// losing much progress.
const maxBatch = 128

// Client generates embeddings for chunk and query text.
type Client struct {
	api   openai.Client
	model string
	log   *slog.Logger
}

func NewClient(apiKey, model string, log *slog.Logger) *Client {
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		api:   openai.NewClient(option.WithAPIKey(apiKey)),
		model: model,
		log:   log.With("component", "embedding"),
	}
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.model
}

// Embed returns one vector per input text, in input order.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float64, 0, len(texts))
	for start := 0; start < len(texts); start += maxBatch {
		end := min(start+maxBatch, len(texts))
		batch := texts[start:end]

		resp, err := c.api.Embeddings.New(ctx, openai.EmbeddingNewParams{
			Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: batch},
			Model: openai.EmbeddingModel(c.model),
		})
		if err != nil {
			return nil, fmt.Errorf("embed batch [%d:%d]: %w", start, end, err)
		}
		if len(resp.Data) != len(batch) {
			return nil, fmt.Errorf("embed batch [%d:%d]: got %d embeddings for %d inputs", start, end, len(resp.Data), len(batch))
		}
		for _, d := range resp.Data {
			vectors = append(vectors, d.Embedding)
		}
	}
	c.log.Debug("embedded texts", "count", len(texts), "model", c.model)
	return vectors, nil
}

// EmbedOne embeds a single text.
func (c *Client) EmbedOne(ctx context.Context, text string) ([]float64, error) {
	vectors, err := c.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}
