package parser

import (
	"strings"
	"testing"

	"github.com/clinrag/clinrag/internal/parsedoc"
)

func pageItems(t *testing.T, res *Result) []parsedoc.Item {
	t.Helper()
	if res.Doc == nil {
		t.Fatal("expected a parsed document")
	}
	if len(res.Doc.Pages) != 1 {
		t.Fatalf("expected 1 page, got %d", len(res.Doc.Pages))
	}
	return res.Doc.Pages[0].Items
}

func TestMarkdownParser_HeadingsAndText(t *testing.T) {
	input := `# Title

Intro text.

## Section A

Section A content.

### Subsection A1

Subsection A1 content.
`
	p := &MarkdownParser{}
	res, err := p.Parse(strings.NewReader(input), "doc.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Title != "doc" {
		t.Errorf("expected title %q, got %q", "doc", res.Title)
	}
	if res.ParseType != "markdown" {
		t.Errorf("expected parse type %q, got %q", "markdown", res.ParseType)
	}

	items := pageItems(t, res)
	want := []struct {
		typ   parsedoc.ItemType
		text  string
		level int
	}{
		{parsedoc.ItemHeading, "Title", 1},
		{parsedoc.ItemText, "Intro text.", 0},
		{parsedoc.ItemHeading, "Section A", 2},
		{parsedoc.ItemText, "Section A content.", 0},
		{parsedoc.ItemHeading, "Subsection A1", 3},
		{parsedoc.ItemText, "Subsection A1 content.", 0},
	}
	if len(items) != len(want) {
		t.Fatalf("expected %d items, got %d", len(want), len(items))
	}
	for i, w := range want {
		if items[i].Type != w.typ {
			t.Errorf("item[%d]: expected type %q, got %q", i, w.typ, items[i].Type)
		}
		if items[i].Text != w.text {
			t.Errorf("item[%d]: expected text %q, got %q", i, w.text, items[i].Text)
		}
		if w.typ == parsedoc.ItemHeading && items[i].Level != w.level {
			t.Errorf("item[%d]: expected level %d, got %d", i, w.level, items[i].Level)
		}
	}
}

func TestMarkdownParser_Lists(t *testing.T) {
	input := `## Side effects

- Nausea
- Headache
- Dizziness
`
	p := &MarkdownParser{}
	res, err := p.Parse(strings.NewReader(input), "effects.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	items := pageItems(t, res)
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[1].Type != parsedoc.ItemList {
		t.Fatalf("expected list item, got %q", items[1].Type)
	}
	wantLines := []string{"- Nausea", "- Headache", "- Dizziness"}
	gotLines := strings.Split(items[1].Text, "\n")
	if len(gotLines) != len(wantLines) {
		t.Fatalf("expected %d list lines, got %d: %q", len(wantLines), len(gotLines), items[1].Text)
	}
	for i, w := range wantLines {
		if gotLines[i] != w {
			t.Errorf("line[%d]: expected %q, got %q", i, w, gotLines[i])
		}
	}
}

func TestMarkdownParser_TextNotDuplicated(t *testing.T) {
	input := "Take **two** tablets with *food* daily.\n\n- Shake well\n"
	p := &MarkdownParser{}
	res, err := p.Parse(strings.NewReader(input), "label.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	items := pageItems(t, res)
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Text != "Take two tablets with food daily." {
		t.Errorf("expected paragraph text exactly once, got %q", items[0].Text)
	}
	if items[1].Text != "- Shake well" {
		t.Errorf("expected list line exactly once, got %q", items[1].Text)
	}
}

func TestMarkdownParser_CodeBlocks(t *testing.T) {
	input := "# API Reference\n\n```\nGET /api/users\nPOST /api/users\n```\n\nMore text after code.\n"

	p := &MarkdownParser{}
	res, err := p.Parse(strings.NewReader(input), "api.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	items := pageItems(t, res)
	var all []string
	for _, it := range items {
		all = append(all, it.Text)
	}
	joined := strings.Join(all, "\n")
	if !strings.Contains(joined, "GET /api/users") {
		t.Errorf("expected code block content, got %q", joined)
	}
	if !strings.Contains(joined, "More text after code.") {
		t.Errorf("expected post-code text, got %q", joined)
	}
}

func TestMarkdownParser_EmptyInput(t *testing.T) {
	p := &MarkdownParser{}
	res, err := p.Parse(strings.NewReader(""), "empty.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if items := pageItems(t, res); len(items) != 0 {
		t.Errorf("expected 0 items for empty input, got %d", len(items))
	}
}

func TestMarkdownParser_TitleStripping(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"readme.md", "readme"},
		{"notes.markdown", "notes"},
		{"plain.md", "plain"},
	}
	p := &MarkdownParser{}
	for _, tt := range tests {
		res, err := p.Parse(strings.NewReader("text"), tt.filename)
		if err != nil {
			t.Fatalf("unexpected error for %s: %v", tt.filename, err)
		}
		if res.Title != tt.want {
			t.Errorf("filename=%q: expected title %q, got %q", tt.filename, tt.want, res.Title)
		}
	}
}
