package ner

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRuleBased_DrugSuffixAndCuratedList(t *testing.T) {
	entities, err := RuleBased{}.Extract(context.Background(), "Patient takes Amoxicillin and aspirin daily.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := Summary(entities)
	drugs := got[TypeDrug]
	if len(drugs) != 2 {
		t.Fatalf("expected 2 drugs, got %v", drugs)
	}
	for _, d := range drugs {
		if d != "amoxicillin" && d != "aspirin" {
			t.Errorf("unexpected drug %q", d)
		}
	}
}

func TestRuleBased_EntitiesAreLowerCased(t *testing.T) {
	upper, _ := RuleBased{}.Extract(context.Background(), "ASPIRIN for ARTHRITIS")
	lower, _ := RuleBased{}.Extract(context.Background(), "aspirin for arthritis")
	if len(upper) != len(lower) {
		t.Fatalf("case changed entity count: %d vs %d", len(upper), len(lower))
	}
	for i := range upper {
		if upper[i].Text != lower[i].Text {
			t.Errorf("entity %d differs by case: %q vs %q", i, upper[i].Text, lower[i].Text)
		}
	}
}

func TestRuleBased_DiseaseAndProcedure(t *testing.T) {
	entities, _ := RuleBased{}.Extract(context.Background(), "Colonoscopy revealed diverticulitis.")
	got := Summary(entities)
	if len(got[TypeProcedure]) == 0 || got[TypeProcedure][0] != "colonoscopy" {
		t.Errorf("expected colonoscopy procedure, got %v", got[TypeProcedure])
	}
	if len(got[TypeDisease]) == 0 || got[TypeDisease][0] != "diverticulitis" {
		t.Errorf("expected diverticulitis disease, got %v", got[TypeDisease])
	}
}

func TestRuleBased_EmptyText(t *testing.T) {
	entities, err := RuleBased{}.Extract(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entities) != 0 {
		t.Errorf("expected no entities, got %v", entities)
	}
}

func TestProcessor_MergesAdjacentDosageSpans(t *testing.T) {
	text := "Take 500 mg-bid with food"
	entities := []Entity{
		{Text: "500 mg", Type: TypeDosage, Start: 5, End: 11, Confidence: 0.9},
		{Text: "bid", Type: TypeStrength, Start: 12, End: 15, Confidence: 0.8},
	}
	out := Processor{}.Process(entities, text)
	if len(out) != 1 {
		t.Fatalf("expected 1 merged entity, got %d", len(out))
	}
	if out[0].Type != TypeDosage {
		t.Errorf("expected dosage type, got %s", out[0].Type)
	}
	if out[0].Confidence != 0.8 {
		t.Errorf("expected min confidence 0.8, got %v", out[0].Confidence)
	}
}

func TestProcessor_ExpandsAbbreviations(t *testing.T) {
	text := "history of htn"
	entities := []Entity{{Text: "htn", Type: TypeDisease, Start: 11, End: 14, Confidence: 0.9}}
	out := Processor{}.Process(entities, text)
	if out[0].Normalized != "hypertension" {
		t.Errorf("expected hypertension, got %q", out[0].Normalized)
	}
	if len(out[0].Synonyms) != 1 || out[0].Synonyms[0] != "htn" {
		t.Errorf("expected original kept as synonym, got %v", out[0].Synonyms)
	}
}

func TestProcessor_LinksDrugToNearbyDosage(t *testing.T) {
	text := "metformin 500mg twice daily"
	entities := []Entity{
		{Text: "metformin", Type: TypeDrug, Start: 0, End: 9, Confidence: 0.9},
		{Text: "500mg", Type: TypeDosage, Start: 10, End: 15, Confidence: 0.9},
	}
	out := Processor{}.Process(entities, text)
	var drug Entity
	for _, e := range out {
		if e.Type == TypeDrug {
			drug = e
		}
	}
	if drug.RelatedDosage != "500mg" {
		t.Errorf("expected linked dosage 500mg, got %q", drug.RelatedDosage)
	}
}

func TestProcessor_BoostsConfidenceInPrescriptionContext(t *testing.T) {
	text := "The patient was prescribed metformin yesterday"
	entities := []Entity{{Text: "metformin", Type: TypeDrug, Start: 27, End: 36, Confidence: 0.5}}
	out := Processor{}.Process(entities, text)
	if out[0].Confidence <= 0.5 {
		t.Errorf("expected boosted confidence, got %v", out[0].Confidence)
	}
	if out[0].Confidence > 1.0 {
		t.Errorf("confidence exceeds 1.0: %v", out[0].Confidence)
	}
}

func TestProcessor_OutOfRangeSpansDoNotMerge(t *testing.T) {
	text := "500mg daily"
	cases := [][]Entity{
		{
			{Text: "500mg", Type: TypeDosage, Start: 3, End: 1000, Confidence: 0.9},
			{Text: "daily", Type: TypeStrength, Start: 1001, End: 1006, Confidence: 0.8},
		},
		{
			{Text: "500mg", Type: TypeDosage, Start: -5, End: 5, Confidence: 0.9},
			{Text: "daily", Type: TypeStrength, Start: 6, End: 11, Confidence: 0.8},
		},
	}
	for i, entities := range cases {
		out := Processor{}.Process(entities, text)
		if len(out) != 2 {
			t.Errorf("case %d: expected spans to pass through unmerged, got %d entities", i, len(out))
		}
	}
}

func TestClient_DropsInvalidSpansFromResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"entities":[
			{"text":"metformin","type":"drug","start":0,"end":9,"confidence":0.9},
			{"text":"ghost","type":"drug","start":-5,"end":4,"confidence":0.9},
			{"text":"runaway","type":"dosage","start":10,"end":4000,"confidence":0.9},
			{"text":"inverted","type":"dosage","start":8,"end":2,"confidence":0.9}
		]}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	defer c.Close()
	entities, err := c.Extract(context.Background(), "metformin 500mg")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entities) != 1 || entities[0].Text != "metformin" {
		t.Fatalf("expected only the in-bounds entity, got %v", entities)
	}
}

func TestSummary_DeduplicatesCaseInsensitively(t *testing.T) {
	entities := []Entity{
		{Text: "Metformin", Type: TypeDrug},
		{Text: "metformin", Type: TypeDrug},
		{Text: "insulin", Type: TypeDrug},
	}
	s := Summary(entities)
	if len(s[TypeDrug]) != 2 {
		t.Errorf("expected 2 unique drugs, got %v", s[TypeDrug])
	}
}
