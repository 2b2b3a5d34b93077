package chunker

import (
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/clinrag/clinrag/internal/tokenizer"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// words generates n distinct space-separated words.
func words(n int) string {
	var b strings.Builder
	for i := range n {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "w%d", i)
	}
	return b.String()
}

func TestSplitText_EmptyInputYieldsNothing(t *testing.T) {
	tok := tokenizer.NewWords()
	if got := SplitText(tok, "", 100, 10, 5, testLogger()); got != nil {
		t.Errorf("expected nil for empty input, got %v", got)
	}
	if got := SplitText(tok, "   \n\t ", 100, 10, 5, testLogger()); got != nil {
		t.Errorf("expected nil for whitespace input, got %v", got)
	}
}

func TestSplitText_ShortTextSingleChunk(t *testing.T) {
	tok := tokenizer.NewWords()
	// 10 tokens, well under the window and under the minimum: short
	// full texts are kept regardless of min size.
	got := SplitText(tok, words(10), 100, 10, 50, testLogger())
	if len(got) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(got))
	}
	if got[0] != words(10) {
		t.Errorf("chunk text mismatch: %q", got[0])
	}
}

func TestSplitText_ExactWindowSizeStaysWhole(t *testing.T) {
	tok := tokenizer.NewWords()
	got := SplitText(tok, words(100), 100, 10, 5, testLogger())
	if len(got) != 1 {
		t.Fatalf("expected single chunk at exactly chunk_size tokens, got %d", len(got))
	}
}

func TestSplitText_LongTextSplitsWithOverlap(t *testing.T) {
	tok := tokenizer.NewWords()
	got := SplitText(tok, words(250), 100, 10, 5, testLogger())
	if len(got) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(got))
	}
	// Token budget: every window holds at most chunk_size tokens.
	for i, c := range got {
		if n := len(tok.Encode(c)); n > 100 {
			t.Errorf("chunk %d has %d tokens, budget is 100", i, n)
		}
	}
	// Consecutive windows share the overlap region.
	first := strings.Fields(got[0])
	second := strings.Fields(got[1])
	if first[len(first)-10] != second[0] {
		t.Errorf("expected 10-token overlap, first ends %v, second starts %v",
			first[len(first)-10:], second[:10])
	}
}

func TestSplitText_Deterministic(t *testing.T) {
	tok := tokenizer.NewWords()
	text := words(777)
	a := SplitText(tok, text, 128, 32, 20, testLogger())
	b := SplitText(tok, text, 128, 32, 20, testLogger())
	if len(a) != len(b) {
		t.Fatalf("chunk counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("chunk %d differs between runs", i)
		}
	}
}

func TestSplitText_MergesSmallFinalWindow(t *testing.T) {
	tok := tokenizer.NewWords()
	// 110 tokens, window 100, overlap 0: second window would be 10
	// tokens, below min 50, so it merges into the first.
	got := SplitText(tok, words(110), 100, 0, 50, testLogger())
	if len(got) != 1 {
		t.Fatalf("expected merged single chunk, got %d", len(got))
	}
	if n := len(tok.Encode(got[0])); n != 110 {
		t.Errorf("merged chunk should hold all 110 tokens, got %d", n)
	}
}

func TestSplitText_NoEmittedChunkBelowMin(t *testing.T) {
	tok := tokenizer.NewWords()
	for _, total := range []int{150, 301, 555, 1024} {
		got := SplitText(tok, words(total), 100, 25, 50, testLogger())
		for i, c := range got {
			if n := len(tok.Encode(c)); n < 50 {
				t.Errorf("total=%d chunk %d has %d tokens, min is 50", total, i, n)
			}
		}
	}
}

func TestSplitText_OverlapStallClamped(t *testing.T) {
	tok := tokenizer.NewWords()
	// Overlap >= chunk size would never advance; the splitter clamps
	// it and still terminates.
	got := SplitText(tok, words(50), 10, 10, 1, testLogger())
	if len(got) == 0 {
		t.Fatal("expected chunks despite degenerate overlap")
	}
	for i, c := range got {
		if n := len(tok.Encode(c)); n > 10 {
			t.Errorf("chunk %d exceeds window: %d tokens", i, n)
		}
	}
}

func TestSplitTextWithContext_PrefixesEveryWindow(t *testing.T) {
	tok := tokenizer.NewWords()
	ctx := "[Section: Dosage]\n"
	got := SplitTextWithContext(tok, ctx, words(300), 100, 10, 5, testLogger())
	if len(got) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(got))
	}
	for i, c := range got {
		if !strings.HasPrefix(c, "[Section:") {
			t.Errorf("chunk %d missing section context: %q", i, c[:min(len(c), 40)])
		}
		if n := len(tok.Encode(c)); n > 100 {
			t.Errorf("chunk %d exceeds budget with context: %d tokens", i, n)
		}
	}
}

func TestSplitTextWithContext_ShortTextKeptWhole(t *testing.T) {
	tok := tokenizer.NewWords()
	got := SplitTextWithContext(tok, "[Section: Allergies]\n", "penicillin rash", 100, 10, 50, testLogger())
	if len(got) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(got))
	}
	if !strings.Contains(got[0], "penicillin rash") {
		t.Errorf("chunk lost body text: %q", got[0])
	}
}

func TestSplitTextWithContext_EmptyBodyYieldsNothing(t *testing.T) {
	tok := tokenizer.NewWords()
	if got := SplitTextWithContext(tok, "[Section: X]\n", "  ", 100, 10, 5, testLogger()); got != nil {
		t.Errorf("expected nil, got %v", got)
	}
}
