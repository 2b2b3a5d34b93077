package parser

import (
	"fmt"
	"io"

	"github.com/clinrag/clinrag/internal/parsedoc"
)

// JSONParser handles pre-parsed layout output from an external layout
// parser (page list with typed items, boxes, and OCR'd images).
// Validation and item filtering happen in parsedoc.Decode.
type JSONParser struct{}

func (p *JSONParser) Parse(r io.Reader, filename string) (*Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	doc, err := parsedoc.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode layout json: %w", err)
	}
	return &Result{
		Title:     titleFromFilename(filename),
		ParseType: "layout",
		Doc:       doc,
	}, nil
}
