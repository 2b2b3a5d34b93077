package ner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client calls an external NER model service over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type extractRequest struct {
	Text string `json:"text"`
}

type extractResponse struct {
	Entities []Entity `json:"entities"`
	Error    string   `json:"error,omitempty"`
}

// Extract sends text to the model service. Callers must fall back to
// RuleBased on any returned error.
func (c *Client) Extract(ctx context.Context, text string) ([]Entity, error) {
	body, err := json.Marshal(extractRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/extract", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ner service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("ner service status %d: %s", resp.StatusCode, string(respBody))
	}

	var out extractResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode ner response: %w", err)
	}
	if out.Error != "" {
		return nil, fmt.Errorf("ner service error: %s", out.Error)
	}
	return validSpans(out.Entities, text), nil
}

// validSpans drops entities whose offsets do not address text. Model
// services sometimes report offsets in a different encoding; those
// spans cannot be sliced or merged safely downstream.
func validSpans(entities []Entity, text string) []Entity {
	valid := make([]Entity, 0, len(entities))
	for _, e := range entities {
		if e.Start < 0 || e.End < e.Start || e.End > len(text) {
			continue
		}
		valid = append(valid, e)
	}
	return valid
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
