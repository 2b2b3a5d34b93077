package chunker

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"github.com/clinrag/clinrag/internal/ner"
	"github.com/clinrag/clinrag/internal/parsedoc"
	"github.com/clinrag/clinrag/internal/tokenizer"
)

// NEREnhanced layers model-based entity extraction on top of the
// healthcare strategy. Every chunk is annotated with processed NER
// entities and per-type summaries; when the model fails the chunk
// falls back to rule-based extraction rather than losing entity
// metadata entirely.
type NEREnhanced struct {
	inner     *Healthcare
	extractor ner.Extractor
	proc      ner.Processor
	log       *slog.Logger
}

func NewNEREnhanced(tok tokenizer.Tokenizer, profile Profile, extractor ner.Extractor, log *slog.Logger) *NEREnhanced {
	return &NEREnhanced{
		inner:     NewHealthcare(tok, profile, log),
		extractor: extractor,
		log:       log.With("component", "chunker", "mode", "ner"),
	}
}

func (p *NEREnhanced) Chunk(ctx context.Context, doc *parsedoc.Document, meta Metadata) ([]Chunk, error) {
	chunks, err := p.inner.Chunk(ctx, doc, meta)
	if err != nil {
		return nil, err
	}
	for i := range chunks {
		p.enrich(ctx, &chunks[i])
	}
	return chunks, nil
}

func (p *NEREnhanced) enrich(ctx context.Context, c *Chunk) {
	entities, err := p.extractor.Extract(ctx, c.Text)
	if err != nil {
		p.log.Warn("ner extraction failed, falling back to rule-based", "error", err)
		entities, _ = ner.RuleBased{}.Extract(ctx, c.Text)
	}
	entities = p.proc.Process(entities, c.Text)
	if entities == nil {
		entities = []ner.Entity{}
	}

	summary := ner.Summary(entities)
	c.NEREntities = entities
	c.Drugs = lowerAll(summary[ner.TypeDrug])
	c.Diseases = lowerAll(summary[ner.TypeDisease])
	c.Procedures = lowerAll(summary[ner.TypeProcedure])
	c.HasMedicalEntities = len(entities) > 0

	// Dosage and frequency entities mark the chunk as answering
	// dosage questions even when no keyword matched.
	for _, e := range entities {
		if e.Type == ner.TypeDosage || e.Type == ner.TypeFrequency {
			addAnswerType(c, "dosage")
			break
		}
	}
	if c.BoostSection != "" {
		addAnswerType(c, c.BoostSection)
	}
}

// addAnswerType appends a tag, displacing the "general" placeholder if
// it is the only tag present.
func addAnswerType(c *Chunk, tag string) {
	if slices.Contains(c.AnswerTypes, tag) {
		return
	}
	if len(c.AnswerTypes) == 1 && c.AnswerTypes[0] == "general" {
		c.AnswerTypes = c.AnswerTypes[:0]
	}
	c.AnswerTypes = append(c.AnswerTypes, tag)
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}
