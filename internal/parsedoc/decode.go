package parsedoc

import (
	"encoding/json"
	"fmt"
)

// Wire shapes as emitted by the external parser. Decoding goes through
// these loosely-typed structs once; everything after Decode works with
// the validated model.

type wireDoc struct {
	JobID string          `json:"job_id"`
	Pages json.RawMessage `json:"pages"`
}

type wirePage struct {
	Page   int         `json:"page"`
	Width  Dim         `json:"width"`
	Height Dim         `json:"height"`
	Items  []wireItem  `json:"items"`
	Images []wireImage `json:"images"`
	MD     string      `json:"md"`
	Text   string      `json:"text"`
}

type wireItem struct {
	Type  string     `json:"type"`
	BBox  *wireBBox  `json:"bBox"`
	MD    string     `json:"md"`
	Text  string     `json:"text"`
	Level int        `json:"level"`
	Rows  [][]string `json:"rows"`
}

type wireBBox struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
	W *float64 `json:"w"`
	H *float64 `json:"h"`
}

type wireImage struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	OCR    []struct {
		Text string `json:"text"`
	} `json:"ocr"`
}

// Decode parses and validates external parser output. The only fatal
// condition is a missing or non-list pages field; malformed individual
// items are dropped and counted in Document.Skipped.
func Decode(data []byte) (*Document, error) {
	var w wireDoc
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decode parsed document: %w", err)
	}
	if len(w.Pages) == 0 {
		return nil, fmt.Errorf("parsed document has no pages field")
	}
	var pages []wirePage
	if err := json.Unmarshal(w.Pages, &pages); err != nil {
		return nil, fmt.Errorf("pages is not a list: %w", err)
	}

	doc := &Document{JobID: w.JobID}
	for _, wp := range pages {
		page := Page{
			Number: wp.Page,
			Width:  wp.Width,
			Height: wp.Height,
			Text:   wp.MD,
		}
		if page.Text == "" {
			page.Text = wp.Text
		}
		for _, wi := range wp.Items {
			item, ok := validateItem(wi)
			if !ok {
				doc.Skipped++
				continue
			}
			page.Items = append(page.Items, item)
		}
		for _, img := range wp.Images {
			im := Image{X: img.X, Y: img.Y, Width: img.Width, Height: img.Height}
			for _, frag := range img.OCR {
				im.OCR = append(im.OCR, frag.Text)
			}
			page.Images = append(page.Images, im)
		}
		doc.Pages = append(doc.Pages, page)
	}
	return doc, nil
}

func validateItem(wi wireItem) (Item, bool) {
	var t ItemType
	switch ItemType(wi.Type) {
	case ItemHeading, ItemText, ItemTable, ItemList:
		t = ItemType(wi.Type)
	default:
		return Item{}, false
	}

	// A box missing any coordinate disqualifies the item.
	if wi.BBox == nil || wi.BBox.X == nil || wi.BBox.Y == nil || wi.BBox.W == nil || wi.BBox.H == nil {
		return Item{}, false
	}

	text := wi.MD
	if text == "" {
		text = wi.Text
	}
	return Item{
		Type:  t,
		BBox:  BBox{X: *wi.BBox.X, Y: *wi.BBox.Y, W: *wi.BBox.W, H: *wi.BBox.H},
		Text:  text,
		Level: wi.Level,
		Rows:  wi.Rows,
	}, true
}
