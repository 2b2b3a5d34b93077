package ner

import (
	"context"
	"regexp"
	"strings"
)

// Suffix families and curated name lists for rule-based extraction.
// Matches are reported lower-cased so downstream filtering is
// case-insensitive.
var (
	drugPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b\w+(cillin|cycline|mycin|statin|pril|sartan|olol|azole|prazole|pine|done|pam|zepam)\b`),
		regexp.MustCompile(`(?i)\b(aspirin|insulin|metformin|lisinopril|atorvastatin|levothyroxine|amlodipine|ibuprofen)\b`),
	}
	diseasePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b\w+(itis|osis|emia|oma|pathy|syndrome|disease|disorder)\b`),
		regexp.MustCompile(`(?i)\b(diabetes|hypertension|cancer|asthma|arthritis|pneumonia|covid|influenza)\b`),
	}
	procedurePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b\w+(scopy|ectomy|otomy|plasty|graphy|gram)\b`),
		regexp.MustCompile(`(?i)\b(surgery|biopsy|examination|screening|test|scan)\b`),
	}
)

// RuleBased extracts entities with regex suffix families and curated
// name lists. It never fails and needs no model.
type RuleBased struct{}

func (RuleBased) Extract(_ context.Context, text string) ([]Entity, error) {
	var out []Entity
	seen := make(map[string]bool)

	scan := func(patterns []*regexp.Regexp, t EntityType) {
		for _, re := range patterns {
			for _, loc := range re.FindAllStringIndex(text, -1) {
				surface := strings.ToLower(text[loc[0]:loc[1]])
				if seen[surface] {
					continue
				}
				seen[surface] = true
				out = append(out, Entity{
					Text:       surface,
					Type:       t,
					Start:      loc[0],
					End:        loc[1],
					Confidence: 0.5,
				})
			}
		}
	}

	scan(drugPatterns, TypeDrug)
	scan(diseasePatterns, TypeDisease)
	scan(procedurePatterns, TypeProcedure)
	return out, nil
}
