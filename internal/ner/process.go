package ner

import (
	"regexp"
	"sort"
	"strings"
)

// Processor post-processes raw model output: merges split spans,
// expands abbreviations, normalizes dosage/frequency phrasing, links
// nearby drug+dosage pairs and adjusts confidence from context.
type Processor struct{}

var entityAbbreviations = map[string]string{
	"htn":  "hypertension",
	"dm":   "diabetes mellitus",
	"mi":   "myocardial infarction",
	"chf":  "congestive heart failure",
	"copd": "chronic obstructive pulmonary disease",
	"cad":  "coronary artery disease",
	"ckd":  "chronic kidney disease",
	"gerd": "gastroesophageal reflux disease",
	"bid":  "twice daily",
	"tid":  "three times daily",
	"qid":  "four times daily",
	"prn":  "as needed",
	"po":   "by mouth",
	"iv":   "intravenous",
}

type normRule struct {
	re  *regexp.Regexp
	sub string
}

var normalizationRules = map[EntityType][]normRule{
	TypeDosage: {
		{regexp.MustCompile(`(?i)(\d+)\s*mg`), "${1}mg"},
		{regexp.MustCompile(`(?i)(\d+)\s*ml`), "${1}ml"},
		{regexp.MustCompile(`(?i)(\d+)\s*mcg`), "${1}mcg"},
	},
	TypeFrequency: {
		{regexp.MustCompile(`(?i)twice\s+(?:a\s+)?day`), "twice daily"},
		{regexp.MustCompile(`(?i)three\s+times\s+(?:a\s+)?day`), "three times daily"},
		{regexp.MustCompile(`(?i)every\s+(\d+)\s+hours?`), "q${1}h"},
	},
}

// Process runs the full post-processing sequence. The input slice is
// not modified.
func (Processor) Process(entities []Entity, text string) []Entity {
	out := make([]Entity, len(entities))
	copy(out, entities)

	out = mergeAdjacent(out, text)
	expandAbbreviations(out)
	normalize(out)
	linkDrugDosage(out)
	adjustConfidence(out, text)
	return out
}

func mergeAdjacent(entities []Entity, text string) []Entity {
	if len(entities) == 0 {
		return entities
	}
	var merged []Entity
	for i := 0; i < len(entities); i++ {
		cur := entities[i]
		if i+1 < len(entities) && shouldMerge(cur, entities[i+1], text) {
			next := entities[i+1]
			merged = append(merged, Entity{
				Text:       text[cur.Start:next.End],
				Type:       mergedType(cur, next),
				Start:      cur.Start,
				End:        next.End,
				Confidence: min(cur.Confidence, next.Confidence),
			})
			i++
			continue
		}
		merged = append(merged, cur)
	}
	return merged
}

func shouldMerge(a, b Entity, text string) bool {
	if !spanInBounds(a, text) || !spanInBounds(b, text) || a.End > b.Start {
		return false
	}
	gap := text[a.End:b.Start]
	if len(gap) > 3 {
		return false
	}
	switch strings.TrimSpace(gap) {
	case "", "-", "/":
	default:
		return false
	}
	if isDosageLike(a.Type) && isDosageLike(b.Type) {
		return true
	}
	return a.Type == TypeDrug && b.Type == TypeDrug
}

func spanInBounds(e Entity, text string) bool {
	return e.Start >= 0 && e.End >= e.Start && e.End <= len(text)
}

func isDosageLike(t EntityType) bool {
	return t == TypeDosage || t == TypeStrength
}

func mergedType(a, b Entity) EntityType {
	if a.Type == b.Type {
		return a.Type
	}
	if isDosageLike(a.Type) || isDosageLike(b.Type) {
		return TypeDosage
	}
	return a.Type
}

func expandAbbreviations(entities []Entity) {
	for i := range entities {
		if full, ok := entityAbbreviations[strings.ToLower(entities[i].Text)]; ok {
			entities[i].Normalized = full
			entities[i].Synonyms = append(entities[i].Synonyms, entities[i].Text)
		}
	}
}

func normalize(entities []Entity) {
	for i := range entities {
		rules, ok := normalizationRules[entities[i].Type]
		if !ok {
			continue
		}
		text := entities[i].Surface()
		for _, r := range rules {
			text = r.re.ReplaceAllString(text, r.sub)
		}
		if text != entities[i].Text {
			entities[i].Normalized = text
		}
	}
}

// linkDrugDosage records drug→dosage relations when a dosage or
// strength span starts within 50 bytes of a drug span's end.
func linkDrugDosage(entities []Entity) {
	sort.SliceStable(entities, func(i, j int) bool {
		return entities[i].Start < entities[j].Start
	})
	for i := range entities {
		if entities[i].Type != TypeDrug {
			continue
		}
		for j := i + 1; j < len(entities) && j <= i+3; j++ {
			if !isDosageLike(entities[j].Type) {
				continue
			}
			if entities[j].Start-entities[i].End < 50 {
				entities[i].RelatedDosage = entities[j].Text
				entities[j].RelatedDrug = entities[i].Text
			}
			break
		}
	}
}

func adjustConfidence(entities []Entity, text string) {
	for i := range entities {
		start := max(0, entities[i].Start-50)
		end := min(len(text), entities[i].End+50)
		if start > len(text) || start > end {
			continue
		}
		context := strings.ToLower(text[start:end])

		boost := false
		switch entities[i].Type {
		case TypeDrug:
			boost = containsAny(context, "prescribed", "medication", "take", "dose")
		case TypeDisease:
			boost = containsAny(context, "diagnosed", "diagnosis", "history of")
		}
		if boost {
			entities[i].Confidence = min(1.0, entities[i].Confidence*1.1)
		}
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
