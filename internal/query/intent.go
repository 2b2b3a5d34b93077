package query

import (
	"regexp"
	"sort"
	"strings"
)

// Intent is the inferred purpose of a medical query.
type Intent string

const (
	IntentDefinition        Intent = "definition"
	IntentDiagnosis         Intent = "diagnosis"
	IntentTreatment         Intent = "treatment"
	IntentDosage            Intent = "dosage"
	IntentSideEffects       Intent = "side_effects"
	IntentContraindications Intent = "contraindications"
	IntentComparison        Intent = "comparison"
	IntentProcedure         Intent = "procedure"
	IntentPrevention        Intent = "prevention"
	IntentGeneral           Intent = "general"
)

type intentSignature struct {
	intent   Intent
	patterns []*regexp.Regexp
	keywords []string
}

// Regex signatures score 1.0 per match, keyword substring hits score
// 0.5. Slice order breaks score ties deterministically.
var intentSignatures = []intentSignature{
	{IntentDefinition, compileAll(
		`\b(what|define|definition|meaning)\s+(is|are|of)\b`,
		`\b(what\s+is|what\s+are)\s+\w+`,
		`\b(explain|describe)\s+\w+`,
		`^\w+\?$`,
		`\btell\s+me\s+about\b`,
	), []string{"what", "is", "are", "define", "definition", "meaning"}},

	{IntentDiagnosis, compileAll(
		`\b(diagnos[ei]|diagnostic|detect|identify|test)\b`,
		`\b(symptoms?|signs?|manifestations?|presentations?)\s+(of|for)\b`,
		`\b(how\s+to\s+diagnose|diagnosis\s+of)\b`,
		`\b(screening|evaluation)\s+(for|of)\b`,
		`\b(clinical\s+features?|diagnostic\s+criteria)\b`,
	), []string{"diagnose", "diagnosis", "symptoms", "signs", "test", "screening"}},

	{IntentTreatment, compileAll(
		`\b(treat|treatment|therapy|management|cure)\b`,
		`\b(how\s+to\s+treat|treatment\s+for|manage)\b`,
		`\b(therapeutic|intervention|protocol)\b`,
		`\b(first[\s-]line|second[\s-]line|treatment\s+options?)\b`,
		`\bguidelines?\s+for\s+treating\b`,
	), []string{"treat", "treatment", "therapy", "management", "cure", "protocol"}},

	{IntentDosage, compileAll(
		`\b(dosage?|dose|dosing|amount|quantity)\b`,
		`\b(how\s+much|mg|mcg|ml|units?)\b`,
		`\b(daily\s+dose|maximum\s+dose|recommended\s+dose)\b`,
		`\b(administration|frequency|schedule)\b`,
		`\b(pediatric\s+dose|adult\s+dose|geriatric\s+dose)\b`,
	), []string{"dose", "dosage", "mg", "ml", "mcg", "units", "daily", "frequency"}},

	{IntentSideEffects, compileAll(
		`\b(side[\s-]?effects?|adverse[\s-]?reactions?|complications?)\b`,
		`\b(toxicity|safety|risks?|warnings?)\b`,
		`\b(adverse\s+events?|untoward\s+effects?)\b`,
		`\b(harmful\s+effects?|negative\s+effects?)\b`,
	), []string{"side effects", "adverse", "reactions", "complications", "toxicity"}},

	{IntentContraindications, compileAll(
		`\b(contraindications?|when\s+not\s+to)\b`,
		`\b(interactions?|drug[\s-]?interactions?)\b`,
		`\b(avoid|should\s+not|must\s+not)\b`,
		`\b(incompatible|conflicts?\s+with)\b`,
		`\b(precautions?|warnings?)\s+for\b`,
	), []string{"contraindications", "interactions", "avoid", "not use"}},

	{IntentComparison, compileAll(
		`\b\w+\s+vs\.?\s+\w+\b`,
		`\b(difference|comparison|compare)\s+between\b`,
		`\b(better|worse|versus|compared\s+to)\b`,
		`\b(advantages?\s+of|disadvantages?\s+of)\b`,
		`\bwhich\s+is\s+better\b`,
	), []string{"vs", "versus", "compare", "difference", "better", "between"}},

	{IntentProcedure, compileAll(
		`\b(procedure|protocol|technique|method)\b`,
		`\b(how\s+to\s+perform|steps?\s+for|process\s+of)\b`,
		`\b(surgical|operative|intervention)\s+technique\b`,
		`\bguidelines?\s+for\s+performing\b`,
	), []string{"procedure", "how to perform", "technique", "steps", "protocol"}},

	{IntentPrevention, compileAll(
		`\b(prevent|prevention|prophylaxis|avoid)\b`,
		`\b(how\s+to\s+prevent|prevention\s+of)\b`,
		`\b(risk\s+factors?|reduce\s+risk)\b`,
		`\b(preventive\s+measures?|precautions?)\b`,
	), []string{"prevent", "prevention", "avoid", "prophylaxis", "reduce risk"}},
}

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(`(?i)` + p)
	}
	return out
}

// ScoredIntent is a secondary intent with its score relative to the
// primary.
type ScoredIntent struct {
	Intent Intent  `json:"intent"`
	Score  float64 `json:"score"`
}

// Detection is the outcome of intent analysis for one query. Every
// query gets exactly one primary intent; unmatched queries fall back
// to general with confidence 0.5.
type Detection struct {
	Primary                Intent         `json:"primary_intent"`
	Confidence             float64        `json:"confidence"`
	Secondary              []ScoredIntent `json:"secondary_intents,omitempty"`
	Keywords               []string       `json:"keywords,omitempty"`
	RequiresSpecificSource bool           `json:"requires_specific_source"`
}

// Detect scores the query against every intent signature and returns
// the winner. It never fails, even on empty input.
func Detect(rawQuery string) Detection {
	query := strings.ToLower(strings.TrimSpace(rawQuery))

	type scored struct {
		intent   Intent
		score    float64
		keywords []string
	}
	results := make([]scored, 0, len(intentSignatures))

	for _, sig := range intentSignatures {
		s := scored{intent: sig.intent}
		seen := make(map[string]bool)
		for _, re := range sig.patterns {
			if m := re.FindString(query); m != "" {
				s.score += 1.0
				if !seen[m] {
					seen[m] = true
					s.keywords = append(s.keywords, m)
				}
			}
		}
		for _, kw := range sig.keywords {
			if strings.Contains(query, kw) {
				s.score += 0.5
				if !seen[kw] {
					seen[kw] = true
					s.keywords = append(s.keywords, kw)
				}
			}
		}
		results = append(results, s)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].score > results[j].score
	})

	top := results[0]
	det := Detection{Primary: IntentGeneral, Confidence: 0.5}

	if top.score > 0 {
		det.Primary = top.intent
		det.Keywords = top.keywords
		if results[1].score > 0 {
			det.Confidence = min(0.95, top.score/(top.score+results[1].score))
		} else {
			det.Confidence = min(0.95, top.score/3.0)
		}
		for _, r := range results[1:4] {
			if r.score > 0 {
				det.Secondary = append(det.Secondary, ScoredIntent{
					Intent: r.intent,
					Score:  r.score / max(top.score, 1.0),
				})
			}
		}
	}

	det.RequiresSpecificSource = det.Primary == IntentDosage ||
		det.Primary == IntentContraindications ||
		det.Primary == IntentProcedure
	return det
}

// Strategy is the static retrieval configuration for one intent.
type Strategy struct {
	ChunkTypes        []string
	BoostSections     []string
	PrecisionRequired bool
	MinConfidence     float64
}

var intentStrategies = map[Intent]Strategy{
	IntentDefinition: {
		ChunkTypes:    []string{"heading", "text"},
		BoostSections: []string{"definition", "introduction", "overview"},
		MinConfidence: 0.6,
	},
	IntentDiagnosis: {
		ChunkTypes:        []string{"text", "list", "table"},
		BoostSections:     []string{"diagnosis", "clinical_features", "symptoms", "signs"},
		PrecisionRequired: true,
		MinConfidence:     0.7,
	},
	IntentTreatment: {
		ChunkTypes:        []string{"text", "list", "medication"},
		BoostSections:     []string{"treatment", "management", "therapy", "guidelines"},
		PrecisionRequired: true,
		MinConfidence:     0.75,
	},
	IntentDosage: {
		ChunkTypes:        []string{"medication", "table", "text"},
		BoostSections:     []string{"dosage", "administration", "medications"},
		PrecisionRequired: true,
		MinConfidence:     0.8,
	},
	IntentSideEffects: {
		ChunkTypes:        []string{"text", "list", "table"},
		BoostSections:     []string{"side_effects", "adverse_reactions", "warnings"},
		PrecisionRequired: true,
		MinConfidence:     0.75,
	},
	IntentContraindications: {
		ChunkTypes:        []string{"text", "list", "warning"},
		BoostSections:     []string{"contraindications", "drug_interactions", "warnings"},
		PrecisionRequired: true,
		MinConfidence:     0.8,
	},
	IntentComparison: {
		ChunkTypes:    []string{"text", "table", "list"},
		BoostSections: []string{"comparison", "versus", "differences"},
		MinConfidence: 0.65,
	},
	IntentProcedure: {
		ChunkTypes:        []string{"text", "list", "table"},
		BoostSections:     []string{"procedure", "protocol", "technique", "method"},
		PrecisionRequired: true,
		MinConfidence:     0.75,
	},
	IntentPrevention: {
		ChunkTypes:    []string{"text", "list"},
		BoostSections: []string{"prevention", "prophylaxis", "risk_factors"},
		MinConfidence: 0.65,
	},
	IntentGeneral: {
		ChunkTypes:    []string{"text", "heading", "table", "list"},
		BoostSections: []string{},
		MinConfidence: 0.5,
	},
}

// StrategyFor returns the retrieval strategy for an intent, falling
// back to the general strategy for anything unknown.
func StrategyFor(intent Intent) Strategy {
	if s, ok := intentStrategies[intent]; ok {
		return s
	}
	return intentStrategies[IntentGeneral]
}
