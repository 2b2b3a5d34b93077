package llm

import (
	"context"
	"log/slog"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestRewriteCitations_SequentialNumbering(t *testing.T) {
	sources := map[string]map[string]any{
		"Context_1": {"text": "metformin 500 mg", "page": 2},
		"Context_2": {"text": "take with food"},
		"Context_5": {"text": "eGFR below 30"},
	}
	raw := "- Start at 500 mg twice daily ^[Context_5].\n" +
		"- Take with food ^[Context_2] to reduce nausea ^[Context_1]."

	text, citations := rewriteCitations(raw, sources, testLogger())

	want := "- Start at 500 mg twice daily ^[1].\n" +
		"- Take with food ^[2] to reduce nausea ^[3]."
	if text != want {
		t.Errorf("rewritten text:\n got %q\nwant %q", text, want)
	}
	if len(citations) != 3 {
		t.Fatalf("expected 3 citations, got %d", len(citations))
	}
	if citations[0].ID != 1 || citations[0].OriginalContext != "Context_5" {
		t.Errorf("first citation = %+v", citations[0])
	}
	if citations[0].SourceData["text"] != "eGFR below 30" {
		t.Errorf("first citation source = %v", citations[0].SourceData)
	}
	if citations[2].OriginalContext != "Context_1" {
		t.Errorf("third citation = %+v", citations[2])
	}
	if citations[2].SourceData["page"] != 2 {
		t.Errorf("metadata should ride along in source data, got %v", citations[2].SourceData)
	}
}

func TestRewriteCitations_RepeatedContextGetsNewID(t *testing.T) {
	sources := map[string]map[string]any{
		"Context_1": {"text": "a"},
	}
	raw := "- First ^[Context_1].\n- Again ^[Context_1]."

	text, citations := rewriteCitations(raw, sources, testLogger())
	if text != "- First ^[1].\n- Again ^[2]." {
		t.Errorf("rewritten text = %q", text)
	}
	if len(citations) != 2 || citations[1].OriginalContext != "Context_1" {
		t.Errorf("citations = %+v", citations)
	}
}

func TestRewriteCitations_UnknownContext(t *testing.T) {
	sources := map[string]map[string]any{
		"Context_1": {"text": "a"},
	}
	raw := "- Made up ^[Context_9]."

	text, citations := rewriteCitations(raw, sources, testLogger())
	if text != "- Made up ^[1]." {
		t.Errorf("rewritten text = %q", text)
	}
	if len(citations) != 1 {
		t.Fatalf("expected 1 citation, got %d", len(citations))
	}
	if _, ok := citations[0].SourceData["error"]; !ok {
		t.Errorf("hallucinated citation should carry an error source, got %v", citations[0].SourceData)
	}
}

func TestRewriteCitations_NoAnswerSentinel(t *testing.T) {
	text, citations := rewriteCitations("NA", nil, testLogger())
	if text != NoAnswer {
		t.Errorf("expected %q, got %q", NoAnswer, text)
	}
	if len(citations) != 0 {
		t.Errorf("expected no citations, got %+v", citations)
	}
}

func TestRewriteCitations_PlainTextPassesThrough(t *testing.T) {
	raw := "- No citations here."
	text, citations := rewriteCitations(raw, nil, testLogger())
	if text != raw {
		t.Errorf("text = %q", text)
	}
	if len(citations) != 0 {
		t.Errorf("citations = %+v", citations)
	}
}

func TestGenerate_EmptyContexts(t *testing.T) {
	c := NewClient("test-key", "", testLogger())
	ans, err := c.Generate(context.Background(), "metformin dosage", nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if ans.Text != NoAnswer {
		t.Errorf("expected %q without contexts, got %q", NoAnswer, ans.Text)
	}
	if len(ans.Citations) != 0 {
		t.Errorf("expected no citations, got %+v", ans.Citations)
	}
}

func TestRetryableError_Message(t *testing.T) {
	err := &RetryableError{StatusCode: 429, Message: "rate limited"}
	if got := err.Error(); got != "retryable error (status 429): rate limited" {
		t.Errorf("Error() = %q", got)
	}
}
