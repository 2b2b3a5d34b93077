package query

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"github.com/clinrag/clinrag/internal/ner"
)

// maxVariants caps the variant list handed to multi-query embedding.
const maxVariants = 10

// Filters are the store-side predicates derived from a query. Only
// entity types persisted at ingestion time (drugs, diseases,
// procedures) ever become filters.
type Filters struct {
	Drugs       []string `json:"drugs,omitempty"`
	Diseases    []string `json:"diseases,omitempty"`
	Procedures  []string `json:"procedures,omitempty"`
	AnswerTypes []string `json:"answer_types,omitempty"`
}

// Empty reports whether no filter predicate was produced.
func (f Filters) Empty() bool {
	return len(f.Drugs) == 0 && len(f.Diseases) == 0 && len(f.Procedures) == 0 && len(f.AnswerTypes) == 0
}

// BoostParams carry the intent-derived scoring configuration applied
// by the retrieval layer.
type BoostParams struct {
	Sections    []string `json:"boost_sections"`
	Weight      float64  `json:"boost_weight"`
	AnswerTypes []string `json:"answer_types"`
}

// EnhancedQuery is the complete retrieval plan for one user query.
type EnhancedQuery struct {
	OriginalQuery    string                      `json:"original_query"`
	CleanedQuery     string                      `json:"cleaned_query"`
	Variants         []string                    `json:"query_variants"`
	Entities         map[ner.EntityType][]string `json:"entities"`
	Intent           Intent                      `json:"intent"`
	IntentConfidence float64                     `json:"intent_confidence"`
	Detection        Detection                   `json:"detection"`
	Filters          Filters                     `json:"filters"`
	Boost            BoostParams                 `json:"boost_params"`
}

// AllQueryTexts returns every distinct query text worth embedding, in
// priority order: original, cleaned, then variants.
func (q *EnhancedQuery) AllQueryTexts() []string {
	var out []string
	seen := make(map[string]bool)
	for _, text := range append([]string{q.OriginalQuery, q.CleanedQuery}, q.Variants...) {
		if text != "" && !seen[text] {
			seen[text] = true
			out = append(out, text)
		}
	}
	return out
}

type intentConfig struct {
	answerTypes   []string
	boostSections []string
	entityTypes   []ner.EntityType
	weight        float64
}

var intentConfigs = map[Intent]intentConfig{
	IntentDosage: {
		answerTypes:   []string{"dosage", "definition"},
		boostSections: []string{"dosage", "dosage_administration", "administration"},
		entityTypes:   []ner.EntityType{ner.TypeDrug, ner.TypeDosage},
		weight:        1.3,
	},
	IntentSideEffects: {
		answerTypes:   []string{"side_effects"},
		boostSections: []string{"adverse_reactions", "side_effects", "warnings"},
		entityTypes:   []ner.EntityType{ner.TypeDrug, ner.TypeSymptom},
		weight:        1.3,
	},
	IntentContraindications: {
		answerTypes:   []string{"contraindications"},
		boostSections: []string{"contraindications", "warnings", "precautions"},
		entityTypes:   []ner.EntityType{ner.TypeDrug, ner.TypeDisease},
		weight:        1.3,
	},
	IntentDiagnosis: {
		answerTypes:   []string{"diagnosis", "definition"},
		boostSections: []string{"diagnosis", "clinical_features", "symptoms"},
		entityTypes:   []ner.EntityType{ner.TypeDisease, ner.TypeSymptom},
		weight:        1.2,
	},
	IntentTreatment: {
		answerTypes:   []string{"treatment"},
		boostSections: []string{"treatment", "management", "therapy", "guidelines"},
		entityTypes:   []ner.EntityType{ner.TypeDisease, ner.TypeDrug, ner.TypeProcedure},
		weight:        1.2,
	},
	IntentComparison: {
		answerTypes:   []string{"comparison"},
		boostSections: []string{"comparison", "differences"},
		entityTypes:   []ner.EntityType{ner.TypeDrug, ner.TypeDisease},
		weight:        1.2,
	},
	IntentProcedure: {
		answerTypes:   []string{"procedure"},
		boostSections: []string{"procedure", "technique", "method"},
		entityTypes:   []ner.EntityType{ner.TypeProcedure},
		weight:        1.2,
	},
	IntentGeneral: {
		answerTypes: []string{"general"},
		weight:      1.0,
	},
}

func configFor(intent Intent) intentConfig {
	if cfg, ok := intentConfigs[intent]; ok {
		return cfg
	}
	return intentConfigs[IntentGeneral]
}

// mergeableTypes are the NER entity types folded into the rule-based
// entity list; everything else the model emits is dropped.
var mergeableTypes = map[ner.EntityType]bool{
	ner.TypeDrug:      true,
	ner.TypeDisease:   true,
	ner.TypeProcedure: true,
	ner.TypeSymptom:   true,
}

// Enhancer builds the full retrieval plan for a query, optionally
// enriching the rule-based entity extraction with a NER model. A nil
// extractor (or an extractor failure) degrades to rule-based results
// rather than failing the request.
type Enhancer struct {
	analyzer  Analyzer
	extractor ner.Extractor
	proc      ner.Processor
	log       *slog.Logger
}

func NewEnhancer(extractor ner.Extractor, log *slog.Logger) *Enhancer {
	return &Enhancer{
		extractor: extractor,
		log:       log.With("component", "query"),
	}
}

// Enhance analyzes the query and assembles filters, boosts and
// variants for retrieval.
func (e *Enhancer) Enhance(ctx context.Context, rawQuery string) *EnhancedQuery {
	analysis := e.analyzer.Analyze(rawQuery)
	e.mergeModelEntities(ctx, rawQuery, &analysis)

	det := Detect(rawQuery)
	cfg := configFor(det.Primary)

	out := &EnhancedQuery{
		OriginalQuery:    rawQuery,
		CleanedQuery:     analysis.CleanedQuery,
		Variants:         e.buildVariants(analysis, det.Primary),
		Entities:         groupEntities(analysis.Entities),
		Intent:           det.Primary,
		IntentConfidence: det.Confidence,
		Detection:        det,
		Filters:          buildFilters(analysis.Entities, cfg),
		Boost: BoostParams{
			Sections:    cfg.boostSections,
			Weight:      cfg.weight,
			AnswerTypes: cfg.answerTypes,
		},
	}

	e.log.Debug("enhanced query",
		"intent", out.Intent,
		"confidence", out.IntentConfidence,
		"variants", len(out.Variants),
		"filtered", !out.Filters.Empty())
	return out
}

// mergeModelEntities folds NER output into the rule-based entity list.
// Model entities win for the mergeable types; duplicates (by lowered
// surface) are skipped.
func (e *Enhancer) mergeModelEntities(ctx context.Context, rawQuery string, analysis *Analysis) {
	if e.extractor == nil {
		return
	}
	entities, err := e.extractor.Extract(ctx, rawQuery)
	if err != nil {
		e.log.Warn("ner extraction failed for query, using rule-based entities", "error", err)
		return
	}
	entities = e.proc.Process(entities, rawQuery)

	existing := make(map[ner.EntityType]map[string]bool)
	for _, ent := range analysis.Entities {
		if existing[ent.Type] == nil {
			existing[ent.Type] = make(map[string]bool)
		}
		existing[ent.Type][strings.ToLower(ent.Text)] = true
	}

	for _, ent := range entities {
		if !mergeableTypes[ent.Type] {
			continue
		}
		surface := strings.ToLower(ent.Surface())
		if existing[ent.Type] != nil && existing[ent.Type][surface] {
			continue
		}
		if existing[ent.Type] == nil {
			existing[ent.Type] = make(map[string]bool)
		}
		existing[ent.Type][surface] = true
		analysis.Entities = append(analysis.Entities, ner.Entity{
			Text:       surface,
			Type:       ent.Type,
			Confidence: 0.9,
			Normalized: surface,
		})
	}
}

// buildFilters collects every stored surface (text, normalized form,
// synonyms) for the intent's relevant entity types. All filter values
// are lower-case to match how entities are stored at ingestion.
func buildFilters(entities []ner.Entity, cfg intentConfig) Filters {
	var f Filters
	for _, kind := range cfg.entityTypes {
		var forms []string
		seen := make(map[string]bool)
		add := func(s string) {
			s = strings.ToLower(strings.TrimSpace(s))
			if s != "" && !seen[s] {
				seen[s] = true
				forms = append(forms, s)
			}
		}
		for _, ent := range entities {
			if ent.Type != kind {
				continue
			}
			add(ent.Text)
			add(ent.Normalized)
			for _, syn := range ent.Synonyms {
				add(syn)
			}
		}
		switch kind {
		case ner.TypeDrug:
			f.Drugs = forms
		case ner.TypeDisease:
			f.Diseases = forms
		case ner.TypeProcedure:
			f.Procedures = forms
		}
	}
	f.AnswerTypes = cfg.answerTypes
	return f
}

// buildVariants extends the analyzer's variants with intent-specific
// templated queries and caps the result.
func (e *Enhancer) buildVariants(analysis Analysis, intent Intent) []string {
	variants := make([]string, 0, maxVariants)
	seen := make(map[string]bool)
	add := func(v string) {
		if v != "" && !seen[v] {
			seen[v] = true
			variants = append(variants, v)
		}
	}

	for _, v := range analysis.Variants {
		add(v)
	}

	for _, ent := range analysis.Entities {
		if ent.Type != ner.TypeDrug {
			continue
		}
		switch intent {
		case IntentDosage:
			add(ent.Text + " dosage")
			add(ent.Text + " dose")
			add("how much " + ent.Text)
		case IntentSideEffects:
			add(ent.Text + " side effects")
			add(ent.Text + " adverse reactions")
			add(ent.Text + " adverse effects")
		case IntentContraindications:
			add(ent.Text + " contraindications")
			add("when not to use " + ent.Text)
			add(ent.Text + " warnings")
		}
	}

	if len(variants) > maxVariants {
		variants = variants[:maxVariants]
	}
	return variants
}

func groupEntities(entities []ner.Entity) map[ner.EntityType][]string {
	grouped := make(map[ner.EntityType][]string)
	for _, ent := range entities {
		surface := ent.Surface()
		if !slices.Contains(grouped[ent.Type], surface) {
			grouped[ent.Type] = append(grouped[ent.Type], surface)
		}
	}
	return grouped
}
