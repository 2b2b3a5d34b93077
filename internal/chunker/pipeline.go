package chunker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/clinrag/clinrag/internal/ner"
	"github.com/clinrag/clinrag/internal/parsedoc"
	"github.com/clinrag/clinrag/internal/tokenizer"
)

// Pipeline turns a parsed document into the ordered chunk list stored
// for retrieval. Output ordering is deterministic: page order, item
// order within page, window order within split text.
type Pipeline interface {
	Chunk(ctx context.Context, doc *parsedoc.Document, meta Metadata) ([]Chunk, error)
}

// Mode selects the chunking strategy.
type Mode string

const (
	ModeGeneric    Mode = "generic"
	ModeHealthcare Mode = "healthcare"
	ModeNER        Mode = "ner"
)

// ForMode builds the pipeline for the configured mode. The extractor
// is only used by ModeNER and may be nil otherwise.
func ForMode(mode Mode, tok tokenizer.Tokenizer, extractor ner.Extractor, profile Profile, log *slog.Logger) (Pipeline, error) {
	switch mode {
	case ModeGeneric:
		return NewGeneric(tok, profile, log), nil
	case ModeHealthcare:
		return NewHealthcare(tok, profile, log), nil
	case ModeNER:
		if extractor == nil {
			extractor = ner.RuleBased{}
		}
		return NewNEREnhanced(tok, profile, extractor, log), nil
	default:
		return nil, fmt.Errorf("unknown chunking mode %q", mode)
	}
}
