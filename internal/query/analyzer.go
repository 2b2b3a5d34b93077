// Package query turns a raw user query into a retrieval plan: cleaned
// text, expanded abbreviations, corrected spellings, extracted medical
// entities, detected intent and a ranked list of query variants.
package query

import (
	"regexp"
	"sort"
	"strings"

	"github.com/clinrag/clinrag/internal/ner"
)

// medicalAbbreviations maps common clinical shorthand to its full
// form. Expansion is whole-word and longest-abbreviation-first so
// "dm2" never gets shadowed by "dm".
var medicalAbbreviations = map[string]string{
	// Diseases and conditions
	"dm":   "diabetes mellitus",
	"dm1":  "diabetes mellitus type 1",
	"dm2":  "diabetes mellitus type 2",
	"t1dm": "type 1 diabetes mellitus",
	"t2dm": "type 2 diabetes mellitus",
	"htn":  "hypertension",
	"mi":   "myocardial infarction",
	"chf":  "congestive heart failure",
	"copd": "chronic obstructive pulmonary disease",
	"cad":  "coronary artery disease",
	"cvd":  "cardiovascular disease",
	"ckd":  "chronic kidney disease",
	"esrd": "end stage renal disease",
	"gerd": "gastroesophageal reflux disease",
	"ibs":  "irritable bowel syndrome",
	"uti":  "urinary tract infection",
	"uri":  "upper respiratory infection",
	"dvt":  "deep vein thrombosis",
	"pe":   "pulmonary embolism",
	"tia":  "transient ischemic attack",
	"cva":  "cerebrovascular accident",
	"ms":   "multiple sclerosis",
	"ra":   "rheumatoid arthritis",
	"oa":   "osteoarthritis",
	"tb":   "tuberculosis",
	"hiv":  "human immunodeficiency virus",
	"aids": "acquired immunodeficiency syndrome",

	// Symptoms and signs
	"sob": "shortness of breath",
	"cp":  "chest pain",
	"ha":  "headache",
	"n/v": "nausea and vomiting",
	"abd": "abdominal",
	"gi":  "gastrointestinal",

	// Medications and treatment
	"abx":  "antibiotics",
	"tx":   "treatment",
	"rx":   "prescription",
	"dx":   "diagnosis",
	"sx":   "symptoms",
	"hx":   "history",
	"pmh":  "past medical history",
	"prn":  "as needed",
	"po":   "by mouth",
	"iv":   "intravenous",
	"im":   "intramuscular",
	"sq":   "subcutaneous",
	"subq": "subcutaneous",
	"bid":  "twice daily",
	"tid":  "three times daily",
	"qid":  "four times daily",
	"qd":   "once daily",
	"qod":  "every other day",
	"qhs":  "at bedtime",
	"ac":   "before meals",
	"pc":   "after meals",

	// Tests and procedures
	"cbc":   "complete blood count",
	"bmp":   "basic metabolic panel",
	"cmp":   "comprehensive metabolic panel",
	"lfts":  "liver function tests",
	"tsh":   "thyroid stimulating hormone",
	"hba1c": "hemoglobin a1c",
	"ecg":   "electrocardiogram",
	"ekg":   "electrocardiogram",
	"echo":  "echocardiogram",
	"cxr":   "chest x-ray",
	"ct":    "computed tomography",
	"mri":   "magnetic resonance imaging",
	"us":    "ultrasound",

	// Anatomy
	"cv":  "cardiovascular",
	"gu":  "genitourinary",
	"cns": "central nervous system",

	// Units
	"mg":  "milligrams",
	"mcg": "micrograms",
	"ml":  "milliliters",
	"l":   "liters",
}

// commonMisspellings maps frequent misspellings of drug, disease and
// procedure names to the correct term.
var commonMisspellings = map[string]string{
	// Diseases
	"diabetis":    "diabetes",
	"diabets":     "diabetes",
	"hypertenion": "hypertension",
	"hypertention": "hypertension",
	"astma":       "asthma",
	"athsma":      "asthma",
	"neumonia":    "pneumonia",
	"pneumoia":    "pneumonia",
	"diarhea":     "diarrhea",
	"diarrea":     "diarrhea",

	// Medications
	"metropolol":     "metoprolol",
	"metroprolol":    "metoprolol",
	"metaformin":     "metformin",
	"metformine":     "metformin",
	"lisinipril":     "lisinopril",
	"lisinapril":     "lisinopril",
	"amoxicilin":     "amoxicillin",
	"amoxacillin":    "amoxicillin",
	"ibuprophen":     "ibuprofen",
	"ibuprofin":      "ibuprofen",
	"acetominophen":  "acetaminophen",
	"acetaminophin":  "acetaminophen",
	"omeprezole":     "omeprazole",
	"omeprazol":      "omeprazole",

	// Procedures
	"colonoscapy": "colonoscopy",
	"endoscapy":   "endoscopy",
	"mamogram":    "mammogram",
	"mamography":  "mammography",
}

// synonymMap declares alternative surfaces for well-known terms, used
// for variant generation.
var synonymMap = map[string][]string{
	"diabetes":              {"diabetes mellitus", "dm"},
	"hypertension":          {"high blood pressure", "htn", "elevated blood pressure"},
	"myocardial infarction": {"heart attack", "mi", "acute mi"},
	"metformin":             {"glucophage", "fortamet", "glumetza"},
	"acetaminophen":         {"tylenol", "paracetamol", "apap"},
}

type entityFamily struct {
	kind     ner.EntityType
	patterns []*regexp.Regexp
}

// Query-side entity families. Broader than the ingestion rules: the
// query analyzer also tags symptoms and lab tests, though only drug,
// disease and procedure surfaces ever become store filters.
var entityFamilies = []entityFamily{
	{ner.TypeDrug, []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b\w+(cillin|cycline|mycin|statin|pril|sartan|olol|azole|prazole|pine|done|pam|zepam)\b`),
		regexp.MustCompile(`(?i)\b(aspirin|insulin|metformin|lisinopril|atorvastatin|levothyroxine|amlodipine)\b`),
	}},
	{ner.TypeDisease, []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b\w+(itis|osis|emia|oma|pathy|syndrome|disease|disorder)\b`),
		regexp.MustCompile(`(?i)\b(diabetes|hypertension|cancer|asthma|arthritis|pneumonia)\b`),
	}},
	{ner.TypeSymptom, []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(pain|ache|fever|cough|nausea|vomiting|diarrhea|fatigue|weakness)\b`),
		regexp.MustCompile(`(?i)\b\w+(algia|dynia)\b`),
	}},
	{ner.TypeProcedure, []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b\w+(scopy|ectomy|otomy|plasty|graphy|gram)\b`),
		regexp.MustCompile(`(?i)\b(surgery|biopsy|examination|screening|test)\b`),
	}},
	{ner.TypeTest, []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(blood|urine|lab)\s+\w+`),
		regexp.MustCompile(`(?i)\b\w+\s+(level|count|panel)\b`),
	}},
}

type substitution struct {
	re   *regexp.Regexp
	from string
	to   string
}

var (
	abbreviationRules = buildSubstitutions(medicalAbbreviations, true)
	misspellingRules  = buildSubstitutions(commonMisspellings, false)

	spaceBeforePunct = regexp.MustCompile(`\s+([,.])`)
	punctNoSpace     = regexp.MustCompile(`([,.])(\w)`)
)

// buildSubstitutions compiles word-bounded replacement rules. When
// longestFirst is set, longer keys sort ahead so they are applied
// before any abbreviation they contain.
func buildSubstitutions(table map[string]string, longestFirst bool) []substitution {
	out := make([]substitution, 0, len(table))
	for from, to := range table {
		out = append(out, substitution{
			re:   regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(from) + `\b`),
			from: from,
			to:   to,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if longestFirst && len(out[i].from) != len(out[j].from) {
			return len(out[i].from) > len(out[j].from)
		}
		return out[i].from < out[j].from
	})
	return out
}

// Analysis is the full result of analyzing one query.
type Analysis struct {
	OriginalQuery string
	CleanedQuery  string
	Entities      []ner.Entity
	Expansions    map[string]string
	Corrections   map[string]string
	Variants      []string
	MedicalTerms  []string
}

// Analyzer normalizes medical queries. It holds no state and is safe
// for concurrent use.
type Analyzer struct{}

// Analyze cleans the query, expands abbreviations, corrects common
// misspellings, extracts entities and generates retrieval variants.
func (Analyzer) Analyze(raw string) Analysis {
	cleaned := cleanQuery(raw)
	expanded, expansions := applySubstitutions(cleaned, abbreviationRules)
	corrected, corrections := applySubstitutions(expanded, misspellingRules)

	entities := extractEntities(corrected)

	return Analysis{
		OriginalQuery: raw,
		CleanedQuery:  corrected,
		Entities:      entities,
		Expansions:    expansions,
		Corrections:   corrections,
		Variants:      generateVariants(corrected, cleaned, entities),
		MedicalTerms:  findMedicalTerms(corrected),
	}
}

func cleanQuery(raw string) string {
	cleaned := strings.Join(strings.Fields(raw), " ")
	cleaned = spaceBeforePunct.ReplaceAllString(cleaned, "$1")
	cleaned = punctNoSpace.ReplaceAllString(cleaned, "$1 $2")
	return cleaned
}

func applySubstitutions(text string, rules []substitution) (string, map[string]string) {
	applied := make(map[string]string)
	for _, rule := range rules {
		if rule.re.MatchString(text) {
			text = rule.re.ReplaceAllString(text, rule.to)
			applied[rule.from] = rule.to
		}
	}
	return text, applied
}

func extractEntities(text string) []ner.Entity {
	var out []ner.Entity
	seen := make(map[string]bool)
	for _, family := range entityFamilies {
		for _, re := range family.patterns {
			for _, loc := range re.FindAllStringIndex(text, -1) {
				surface := strings.ToLower(text[loc[0]:loc[1]])
				if seen[surface] {
					continue
				}
				seen[surface] = true
				out = append(out, ner.Entity{
					Text:       surface,
					Type:       family.kind,
					Start:      loc[0],
					End:        loc[1],
					Confidence: 0.8,
					Normalized: surface,
					Synonyms:   synonymMap[surface],
				})
			}
		}
	}
	return out
}

var medicalSuffixes = []string{
	"itis", "osis", "emia", "oma", "pathy",
	"algia", "dynia", "scopy", "ectomy",
	"otomy", "plasty", "graphy", "gram",
}

func findMedicalTerms(text string) []string {
	var terms []string
	seen := make(map[string]bool)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		for _, suffix := range medicalSuffixes {
			if strings.HasSuffix(word, suffix) && len(word) > len(suffix)+2 {
				if !seen[word] {
					seen[word] = true
					terms = append(terms, word)
				}
				break
			}
		}
	}
	return terms
}

// generateVariants builds the ordered, deduplicated variant list: the
// analyzed query first, the pre-normalization original if it differs,
// then synonym substitutions and per-entity templated queries.
func generateVariants(query, original string, entities []ner.Entity) []string {
	var variants []string
	seen := make(map[string]bool)
	add := func(v string) {
		if v != "" && !seen[v] {
			seen[v] = true
			variants = append(variants, v)
		}
	}

	add(query)
	add(original)

	for _, e := range entities {
		for _, syn := range e.Synonyms {
			if v := strings.ReplaceAll(query, e.Text, syn); v != query {
				add(v)
			}
		}
	}

	for _, e := range entities {
		switch e.Type {
		case ner.TypeDrug:
			add(e.Text + " medication information")
			add(e.Text + " drug")
		case ner.TypeDisease:
			add(e.Text + " condition")
			add(e.Text + " disease")
		}
	}
	return variants
}
