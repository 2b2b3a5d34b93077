package chunker

import (
	"log/slog"
	"strings"

	"github.com/clinrag/clinrag/internal/tokenizer"
)

// SplitText divides text into token windows of at most size tokens,
// overlapping by overlap tokens. Text that fits a single window is
// kept whole regardless of minChunk: it was short to begin with, not
// a remnant of a split. A trailing window below minChunk is merged
// into its predecessor rather than emitted as a sliver.
func SplitText(tok tokenizer.Tokenizer, text string, size, overlap, minChunk int, log *slog.Logger) []string {
	ids := tok.Encode(text)
	if len(ids) == 0 {
		return nil
	}

	if len(ids) <= size {
		decoded := strings.TrimSpace(tok.Decode(ids))
		if decoded == "" {
			return nil
		}
		return []string{decoded}
	}

	parts := windowTokens(ids, size, overlap, minChunk, log)

	var out []string
	for _, part := range parts {
		if len(part) < minChunk {
			continue
		}
		decoded := strings.TrimSpace(tok.Decode(part))
		if decoded == "" {
			continue
		}
		out = append(out, decoded)
	}
	return out
}

// SplitTextWithContext prefixes every window with a section-context
// string. The context consumes part of the window budget, so the body
// text is windowed at size minus the context's own token count.
func SplitTextWithContext(tok tokenizer.Tokenizer, context, text string, size, overlap, minChunk int, log *slog.Logger) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	full := context + text
	fullIDs := tok.Encode(full)
	if len(fullIDs) == 0 {
		return nil
	}
	if len(fullIDs) <= size {
		decoded := strings.TrimSpace(tok.Decode(fullIDs))
		if decoded == "" {
			return nil
		}
		return []string{decoded}
	}

	ctxIDs := tok.Encode(context)
	effective := size - len(ctxIDs)
	if effective <= 1 {
		// Context alone fills the window; chunk the bare text instead.
		log.Warn("section context exceeds chunk budget, dropping context prefix",
			"context_tokens", len(ctxIDs), "chunk_size", size)
		return SplitText(tok, text, size, overlap, minChunk, log)
	}

	textIDs := tok.Encode(text)
	parts := windowTokens(textIDs, effective, overlap, minChunk, log)

	var out []string
	for _, part := range parts {
		if len(part) < minChunk {
			continue
		}
		withCtx := make([]int, 0, len(ctxIDs)+len(part))
		withCtx = append(withCtx, ctxIDs...)
		withCtx = append(withCtx, part...)
		decoded := strings.TrimSpace(tok.Decode(withCtx))
		if decoded == "" {
			continue
		}
		out = append(out, decoded)
	}
	return out
}

// windowTokens slides a window of width size over ids, advancing by
// size-overlap. The final window is merged into the penultimate one
// when it falls below minChunk and more than one window exists.
func windowTokens(ids []int, size, overlap, minChunk int, log *slog.Logger) [][]int {
	total := len(ids)
	if total == 0 || size <= 0 {
		return nil
	}

	// Overlap must stay below the window width or the loop cannot
	// advance.
	if overlap >= size {
		log.Warn("chunk overlap >= chunk size, clamping",
			"overlap", overlap, "chunk_size", size)
		overlap = size - 1
	}
	if overlap < 0 {
		overlap = 0
	}

	var parts [][]int
	start := 0
	for start < total {
		end := min(start+size, total)
		part := make([]int, end-start)
		copy(part, ids[start:end])
		parts = append(parts, part)

		if end == total {
			break
		}
		next := end - overlap
		if next <= start {
			// Should be unreachable after clamping; bail out rather
			// than loop forever.
			log.Warn("window advance stalled, aborting split",
				"start", start, "next", next, "chunk_size", size, "overlap", overlap)
			break
		}
		start = next
	}

	if len(parts) > 1 && len(parts[len(parts)-1]) < minChunk {
		last := parts[len(parts)-1]
		parts[len(parts)-2] = append(parts[len(parts)-2], last...)
		parts = parts[:len(parts)-1]
	}
	return parts
}
