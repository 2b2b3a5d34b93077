package chunker

import (
	"context"
	"strings"

	"github.com/clinrag/clinrag/internal/ner"
)

// Keyword families mapped to answer-type tags. A chunk may carry
// several tags; a chunk matching none is tagged "general".
var answerTypeKeywords = []struct {
	tag      string
	keywords []string
}{
	{"definition", []string{
		"is a", "refers to", "defined as", "means", "definition",
		"also known as", "abbreviated as",
	}},
	{"dosage", []string{
		"dose", "dosage", "dosing", "mg", "mcg", "ml", "units",
		"administration", "frequency", "daily", "twice", "three times",
		"every", "hours", "bid", "tid", "qid", "prn",
	}},
	{"side_effects", []string{
		"side effect", "adverse", "reaction", "complication",
		"toxicity", "warning", "caution", "risk",
	}},
	{"contraindications", []string{
		"contraindication", "do not use", "avoid", "interaction",
		"should not", "must not", "incompatible", "allergy",
		"hypersensitivity", "precaution",
	}},
	{"treatment", []string{
		"treatment", "therapy", "management", "protocol",
		"guideline", "recommendation", "approach", "intervention",
	}},
	{"diagnosis", []string{
		"diagnosis", "diagnostic", "symptom", "sign", "test",
		"screening", "examination", "finding", "presentation",
		"criteria", "evaluation",
	}},
	{"procedure", []string{
		"procedure", "technique", "method", "step", "perform",
		"operation", "surgical", "protocol for",
	}},
	{"prevention", []string{
		"prevent", "prevention", "prophylaxis", "reduce risk",
		"avoid", "protective", "screening for prevention",
	}},
	{"comparison", []string{
		"versus", "vs", "compared to", "difference between",
		"better than", "worse than", "alternative",
	}},
}

// ClassifyAnswerTypes tags the kinds of questions a chunk can answer.
// The result is never empty.
func ClassifyAnswerTypes(text string) []string {
	lower := strings.ToLower(text)
	var tags []string
	for _, family := range answerTypeKeywords {
		for _, kw := range family.keywords {
			if strings.Contains(lower, kw) {
				tags = append(tags, family.tag)
				break
			}
		}
	}
	if len(tags) == 0 {
		return []string{"general"}
	}
	return tags
}

// Section categories mapped to the boost tags the query side uses.
var sectionBoostMap = map[string]string{
	"medications":       "dosage",
	"dosage":            "dosage",
	"administration":    "dosage",
	"contraindications": "contraindications",
	"drug_interactions": "contraindications",
	"warnings":          "contraindications",
	"adverse_reactions": "side_effects",
	"side_effects":      "side_effects",
	"diagnosis":         "diagnosis",
	"clinical_features": "diagnosis",
	"symptoms":          "diagnosis",
	"signs":             "diagnosis",
	"treatment":         "treatment",
	"management":        "treatment",
	"therapy":           "treatment",
	"guidelines":        "treatment",
	"procedure":         "procedure",
	"protocol":          "procedure",
	"technique":         "procedure",
	"prevention":        "prevention",
	"prophylaxis":       "prevention",
}

// BoostSection maps a section category to its retrieval boost tag, or
// "" when the category has none.
func BoostSection(sectionType string) string {
	return sectionBoostMap[sectionType]
}

// classify fills purpose and rule-based entity metadata on a finished
// chunk. It never fails: extraction problems degrade to
// HasMedicalContent=false with answer type "general".
func classify(c *Chunk, section *Section) {
	c.AnswerTypes = ClassifyAnswerTypes(c.Text)

	entities, err := ner.RuleBased{}.Extract(context.Background(), c.Text)
	if err == nil {
		seenType := make(map[string]bool)
		for _, e := range entities {
			c.MedicalEntities = append(c.MedicalEntities, e.Text)
			if !seenType[string(e.Type)] {
				seenType[string(e.Type)] = true
				c.EntityTypes = append(c.EntityTypes, string(e.Type))
			}
		}
	}
	c.HasMedicalContent = len(c.MedicalEntities) > 0

	if section != nil {
		c.SectionTitle = section.Title
		c.SectionType = section.Type
		if section.Type != "" {
			c.BoostSection = BoostSection(section.Type)
		}
	}
}
