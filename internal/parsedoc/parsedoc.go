// Package parsedoc defines the parsed-document model consumed by the
// chunking pipelines: an ordered list of pages, each holding typed
// layout items and OCR'd images. Parser output is validated once here
// so downstream code can switch on item types without re-probing.
package parsedoc

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// ItemType tags a layout item. The set is closed; unknown types are
// dropped at decode time.
type ItemType string

const (
	ItemHeading ItemType = "heading"
	ItemText    ItemType = "text"
	ItemTable   ItemType = "table"
	ItemList    ItemType = "list"
)

// BBox is an item's bounding box on the page. All four fields must be
// present and numeric; items with partial boxes are dropped.
type BBox struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Dim is a page dimension that may be unknown. Parsers that cannot
// measure a page report "NA"; the sentinel survives into stored chunk
// payloads unchanged.
type Dim struct {
	Value float64
	Known bool
}

func (d *Dim) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		// Any non-numeric string is treated as unknown.
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			d.Value, d.Known = f, true
		} else {
			d.Known = false
		}
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("page dimension: %w", err)
	}
	d.Value, d.Known = f, true
	return nil
}

func (d Dim) MarshalJSON() ([]byte, error) {
	if !d.Known {
		return []byte(`"NA"`), nil
	}
	return json.Marshal(d.Value)
}

// Payload returns the value as stored in chunk metadata: the number if
// known, the "NA" sentinel otherwise.
func (d Dim) Payload() any {
	if !d.Known {
		return "NA"
	}
	return d.Value
}

// KnownDim builds a known dimension.
func KnownDim(v float64) Dim { return Dim{Value: v, Known: true} }

// Item is one validated layout element.
type Item struct {
	Type  ItemType
	BBox  BBox
	Text  string
	Level int
	Rows  [][]string // tables only
}

// Image is a page image with its OCR fragments in reading order.
type Image struct {
	X, Y, Width, Height float64
	OCR                 []string
}

// Page holds one page's items and images in document order.
type Page struct {
	Number int
	Width  Dim
	Height Dim
	Items  []Item
	Images []Image

	// Text is the raw page text some parsers emit when they cannot
	// produce structured items. Used only when Items is empty.
	Text string
}

// Document is the validated parser output for one source file.
type Document struct {
	JobID string
	Pages []Page

	// Skipped counts items dropped during validation (unknown type,
	// malformed bounding box). Informational only.
	Skipped int
}
