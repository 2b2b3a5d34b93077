// Package ner provides medical entity extraction. Two interchangeable
// strategies implement Extractor: a rule-based regex extractor that
// always works, and an HTTP client for an external NER model. Callers
// that use the model must fall back to rules when it fails — entity
// extraction degrading never breaks chunking or query processing.
package ner

import (
	"context"
	"strings"
)

// EntityType labels a recognized medical entity.
type EntityType string

const (
	TypeDrug      EntityType = "drug"
	TypeDisease   EntityType = "disease"
	TypeSymptom   EntityType = "symptom"
	TypeProcedure EntityType = "procedure"
	TypeTest      EntityType = "test"
	TypeAnatomy   EntityType = "anatomy"
	TypeDosage    EntityType = "dosage"
	TypeFrequency EntityType = "frequency"
	TypeDuration  EntityType = "duration"
	TypeRoute     EntityType = "route"
	TypeStrength  EntityType = "strength"
	TypeOther     EntityType = "other"
)

// Entity is one typed span found in text. Offsets are byte positions
// into the analyzed string.
type Entity struct {
	Text       string     `json:"text"`
	Type       EntityType `json:"type"`
	Start      int        `json:"start"`
	End        int        `json:"end"`
	Confidence float64    `json:"confidence"`
	Normalized string     `json:"normalized,omitempty"`
	Synonyms   []string   `json:"synonyms,omitempty"`

	// Set by the post-processor when a drug and a dosage appear close
	// together in the same text.
	RelatedDrug   string `json:"related_drug,omitempty"`
	RelatedDosage string `json:"related_dosage,omitempty"`
}

// Surface returns the form used for matching and storage: the
// normalized text when present, the raw span otherwise.
func (e Entity) Surface() string {
	if e.Normalized != "" {
		return e.Normalized
	}
	return e.Text
}

// Extractor extracts typed entities from text. Implementations must
// tolerate empty and very long input.
type Extractor interface {
	Extract(ctx context.Context, text string) ([]Entity, error)
}

// Summary groups unique entity surfaces by type. Surfaces are compared
// case-insensitively; first occurrence wins.
func Summary(entities []Entity) map[EntityType][]string {
	out := make(map[EntityType][]string)
	seen := make(map[EntityType]map[string]bool)
	for _, e := range entities {
		s := e.Surface()
		key := strings.ToLower(s)
		if seen[e.Type] == nil {
			seen[e.Type] = make(map[string]bool)
		}
		if seen[e.Type][key] {
			continue
		}
		seen[e.Type][key] = true
		out[e.Type] = append(out[e.Type], s)
	}
	return out
}
