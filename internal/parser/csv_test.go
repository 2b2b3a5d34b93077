package parser

import (
	"fmt"
	"strings"
	"testing"

	"github.com/clinrag/clinrag/internal/parsedoc"
)

func TestCSVParser_BatchesRowsWithRepeatedHeader(t *testing.T) {
	var b strings.Builder
	b.WriteString("drug,dose,route\n")
	for i := 0; i < 25; i++ {
		fmt.Fprintf(&b, "drug%d,%dmg,oral\n", i, i)
	}

	p := &CSVParser{}
	res, err := p.Parse(strings.NewReader(b.String()), "formulary.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ParseType != "csv" {
		t.Errorf("expected parse type %q, got %q", "csv", res.ParseType)
	}

	items := pageItems(t, res)
	if len(items) != 2 {
		t.Fatalf("expected 2 table batches for 25 rows, got %d", len(items))
	}
	for i, it := range items {
		if it.Type != parsedoc.ItemTable {
			t.Fatalf("item[%d]: expected table, got %q", i, it.Type)
		}
		if len(it.Rows) == 0 || it.Rows[0][0] != "drug" {
			t.Errorf("item[%d]: expected header row repeated, got %v", i, it.Rows)
		}
	}
	if got := len(items[0].Rows); got != 21 {
		t.Errorf("first batch: expected 21 rows (header + 20), got %d", got)
	}
	if got := len(items[1].Rows); got != 6 {
		t.Errorf("second batch: expected 6 rows (header + 5), got %d", got)
	}
}

func TestCSVParser_RaggedRows(t *testing.T) {
	input := "a,b,c\n1,2\n3,4,5,6\n"
	p := &CSVParser{}
	res, err := p.Parse(strings.NewReader(input), "ragged.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	items := pageItems(t, res)
	if len(items) != 1 {
		t.Fatalf("expected 1 table, got %d", len(items))
	}
	if len(items[0].Rows) != 3 {
		t.Errorf("expected 3 rows, got %d", len(items[0].Rows))
	}
}

func TestCSVParser_HeaderOnly(t *testing.T) {
	p := &CSVParser{}
	res, err := p.Parse(strings.NewReader("a,b,c\n"), "header.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if items := pageItems(t, res); len(items) != 0 {
		t.Errorf("expected 0 items for header-only csv, got %d", len(items))
	}
}
