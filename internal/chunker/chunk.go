// Package chunker segments parsed documents into token-bounded,
// context-preserving chunks enriched with medical metadata. Three
// strategies implement Pipeline: a generic splitter, a
// healthcare-aware splitter that respects clinical sections and
// medical tables, and an NER-enhanced variant that adds model-based
// entity extraction on top of the healthcare strategy.
package chunker

import (
	"github.com/clinrag/clinrag/internal/ner"
	"github.com/clinrag/clinrag/internal/parsedoc"
)

// Type tags what kind of content a chunk holds.
type Type string

const (
	TypeHeading    Type = "heading"
	TypeText       Type = "text"
	TypeTable      Type = "table"
	TypeImage      Type = "image"
	TypeList       Type = "list"
	TypeMedication Type = "medication"
	TypeLabResult  Type = "lab_result"
	TypeVitalSigns Type = "vital_signs"
	TypeSection    Type = "section"
)

// Chunk is the unit of retrieval: a bounded span of document text plus
// the metadata the vector store filters and boosts on. Created once
// during the chunking pass and immutable thereafter.
type Chunk struct {
	Text       string
	Type       Type
	Page       int
	BBox       *parsedoc.BBox
	PageWidth  parsedoc.Dim
	PageHeight parsedoc.Dim
	ParseType  string

	// Purpose metadata. AnswerTypes is never empty; it defaults to
	// ["general"] when no keyword family matched.
	AnswerTypes []string

	// Rule-based entity mentions, lower-cased.
	MedicalEntities   []string
	EntityTypes       []string
	HasMedicalContent bool

	// Section context, set when the chunk originated inside a
	// classified section.
	SectionTitle string
	SectionType  string
	BoostSection string

	// NER-enhanced fields, populated only by the NER pipeline.
	NEREntities        []ner.Entity
	Drugs              []string
	Diseases           []string
	Procedures         []string
	HasMedicalEntities bool
}

// Metadata is caller-supplied document context carried into every
// chunk payload.
type Metadata struct {
	Title            string
	DocType          string
	Date             string
	OriginalFilename string
	ParseType        string
	Extra            map[string]any
}

// Payload flattens the chunk into the vector-store payload shape. The
// text rides along under "chunk"; the store strips it into its own
// field before upserting.
func (c *Chunk) Payload(meta Metadata) map[string]any {
	p := map[string]any{
		"chunk":               c.Text,
		"chunk_type":          string(c.Type),
		"page":                c.Page,
		"parse_type":          c.ParseType,
		"page_width":          c.PageWidth.Payload(),
		"page_height":         c.PageHeight.Payload(),
		"answer_types":        c.AnswerTypes,
		"has_medical_content": c.HasMedicalContent,
	}
	if len(c.MedicalEntities) > 0 {
		p["medical_entities"] = c.MedicalEntities
		p["entity_types"] = c.EntityTypes
	}
	if c.BBox != nil {
		p["bbox"] = map[string]any{"x": c.BBox.X, "y": c.BBox.Y, "w": c.BBox.W, "h": c.BBox.H}
	}
	if c.SectionTitle != "" {
		p["section_title"] = c.SectionTitle
	}
	if c.SectionType != "" {
		p["section_type"] = c.SectionType
	}
	if c.BoostSection != "" {
		p["boost_section"] = c.BoostSection
	}
	if c.NEREntities != nil {
		p["ner_entities"] = c.NEREntities
		p["drugs"] = emptyIfNil(c.Drugs)
		p["diseases"] = emptyIfNil(c.Diseases)
		p["procedures"] = emptyIfNil(c.Procedures)
		p["has_medical_entities"] = c.HasMedicalEntities
	}

	if meta.Title != "" {
		p["title"] = meta.Title
	}
	if meta.DocType != "" {
		p["type"] = meta.DocType
	}
	if meta.Date != "" {
		p["date"] = meta.Date
	}
	if meta.OriginalFilename != "" {
		p["original_filename"] = meta.OriginalFilename
	}
	for k, v := range meta.Extra {
		p[k] = v
	}
	return p
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
