package parsedoc

import (
	"testing"
)

func TestDecode_MissingPagesIsFatal(t *testing.T) {
	_, err := Decode([]byte(`{"job_id":"j1"}`))
	if err == nil {
		t.Fatal("expected error for missing pages")
	}
}

func TestDecode_PagesNotAListIsFatal(t *testing.T) {
	_, err := Decode([]byte(`{"job_id":"j1","pages":{"page":1}}`))
	if err == nil {
		t.Fatal("expected error for non-list pages")
	}
}

func TestDecode_ValidPage(t *testing.T) {
	data := []byte(`{
		"job_id": "j1",
		"pages": [{
			"page": 1,
			"width": 612.0,
			"height": 792.0,
			"items": [
				{"type": "heading", "bBox": {"x":10,"y":20,"w":100,"h":12}, "md": "Medications", "level": 2},
				{"type": "text", "bBox": {"x":10,"y":40,"w":100,"h":50}, "md": "Metformin 500 mg twice daily."}
			],
			"images": [{"x":5,"y":300,"width":200,"height":100,"ocr":[{"text":"Figure 1"},{"text":"glucose curve"}]}]
		}]
	}`)
	doc, err := Decode(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Pages) != 1 {
		t.Fatalf("expected 1 page, got %d", len(doc.Pages))
	}
	p := doc.Pages[0]
	if len(p.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(p.Items))
	}
	if p.Items[0].Type != ItemHeading || p.Items[0].Text != "Medications" {
		t.Errorf("unexpected first item: %+v", p.Items[0])
	}
	if !p.Width.Known || p.Width.Value != 612.0 {
		t.Errorf("expected known width 612, got %+v", p.Width)
	}
	if len(p.Images) != 1 || len(p.Images[0].OCR) != 2 {
		t.Errorf("unexpected images: %+v", p.Images)
	}
}

func TestDecode_DropsMalformedBBox(t *testing.T) {
	data := []byte(`{
		"pages": [{
			"page": 1,
			"items": [
				{"type": "text", "bBox": {"x":10,"y":20,"w":100}, "md": "missing h"},
				{"type": "text", "md": "no box at all"},
				{"type": "text", "bBox": {"x":1,"y":2,"w":3,"h":4}, "md": "kept"}
			]
		}]
	}`)
	doc, err := Decode(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Pages[0].Items) != 1 {
		t.Fatalf("expected 1 surviving item, got %d", len(doc.Pages[0].Items))
	}
	if doc.Skipped != 2 {
		t.Errorf("expected 2 skipped, got %d", doc.Skipped)
	}
}

func TestDecode_DropsUnknownItemType(t *testing.T) {
	data := []byte(`{
		"pages": [{
			"page": 1,
			"items": [{"type": "chart", "bBox": {"x":1,"y":2,"w":3,"h":4}, "md": "x"}]
		}]
	}`)
	doc, err := Decode(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Pages[0].Items) != 0 || doc.Skipped != 1 {
		t.Errorf("expected unknown type dropped, got items=%d skipped=%d", len(doc.Pages[0].Items), doc.Skipped)
	}
}

func TestDim_NASentinel(t *testing.T) {
	var d Dim
	if err := d.UnmarshalJSON([]byte(`"NA"`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Known {
		t.Error("NA should be unknown")
	}
	if d.Payload() != "NA" {
		t.Errorf("expected NA payload, got %v", d.Payload())
	}
	if err := d.UnmarshalJSON([]byte(`612.5`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !d.Known || d.Value != 612.5 {
		t.Errorf("expected known 612.5, got %+v", d)
	}
}
