// Package llm generates grounded answers over retrieved chunks with
// sequential citation rewriting.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// DefaultModel is the chat model used when none is configured.
const DefaultModel = "gpt-4.1"

// NoAnswer is returned verbatim when the contexts do not support an
// answer. Clients key off this sentinel.
const NoAnswer = "na"

// Context is one retrieved chunk handed to the model.
type Context struct {
	Content  string
	Metadata map[string]any
}

// Citation maps a sequential citation marker back to its source chunk.
type Citation struct {
	ID              int            `json:"id"`
	OriginalContext string         `json:"references_original_context"`
	SourceData      map[string]any `json:"source_data"`
}

// Answer is a synthesized response with its cited sources.
type Answer struct {
	Text      string     `json:"answer"`
	Citations []Citation `json:"cited_source_documents"`
}

// Client calls the OpenAI chat completions API.
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
		log:   log.With("component", "llm"),
	}
}

// citationRe matches the raw citation markers the prompt instructs the
// model to emit.
var citationRe = regexp.MustCompile(`\^\[(Context_\d+)\]`)

// Generate synthesizes an answer to the query from the given contexts.
// Raw ^[Context_N] markers in the model output are rewritten to
// sequential ^[1], ^[2] markers, each backed by a Citation entry.
func (c *Client) Generate(ctx context.Context, query string, contexts []Context) (*Answer, error) {
	if len(contexts) == 0 {
		c.log.Warn("no contexts for answer generation", "query", query)
		return &Answer{Text: NoAnswer, Citations: []Citation{}}, nil
	}

	sources := make(map[string]map[string]any, len(contexts))
	tagged := make([]string, 0, len(contexts))
	for i, cx := range contexts {
		key := fmt.Sprintf("Context_%d", i+1)
		source := map[string]any{"text": cx.Content}
		for k, v := range cx.Metadata {
			source[k] = v
		}
		sources[key] = source
		tagged = append(tagged, fmt.Sprintf("<%s>\n%s\n</%s>", key, cx.Content, key))
	}

	userPrompt := strings.NewReplacer(
		"{contexts}", strings.Join(tagged, "\n\n"),
		"{query}", query,
	).Replace(userPromptTemplate)

	resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
		Temperature: openai.Float(0),
	})
	if err != nil {
		return nil, classifyErr(err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty completion response")
	}
	raw := strings.TrimSpace(resp.Choices[0].Message.Content)

	rewritten, citations := rewriteCitations(raw, sources, c.log)
	return &Answer{Text: rewritten, Citations: citations}, nil
}

// rewriteCitations renumbers raw ^[Context_N] markers sequentially in
// order of appearance and collects a Citation entry per marker.
func rewriteCitations(raw string, sources map[string]map[string]any, log *slog.Logger) (string, []Citation) {
	citations := []Citation{}
	rewritten := citationRe.ReplaceAllStringFunc(raw, func(marker string) string {
		key := citationRe.FindStringSubmatch(marker)[1]
		source, ok := sources[key]
		if !ok {
			// The model cited a tag it was never given.
			log.Warn("model cited unknown context", "key", key)
			source = map[string]any{"error": fmt.Sprintf("original context %s not found", key)}
		}
		id := len(citations) + 1
		citations = append(citations, Citation{
			ID:              id,
			OriginalContext: key,
			SourceData:      source,
		})
		return fmt.Sprintf("^[%d]", id)
	})

	if strings.EqualFold(raw, NoAnswer) && len(citations) == 0 {
		rewritten = NoAnswer
	}
	return rewritten, citations
}

// classifyErr converts transient API failures into RetryableError so
// callers can back off and retry.
func classifyErr(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == 429 || apiErr.StatusCode >= 500 {
			return &RetryableError{StatusCode: apiErr.StatusCode, Message: apiErr.Message}
		}
	}
	return fmt.Errorf("chat completion: %w", err)
}

// RetryableError indicates a transient failure that can be retried.
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, truncate(e.Message, 200))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
