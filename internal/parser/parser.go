// Package parser converts uploaded files into the parsed-document
// model the chunking pipelines consume. Each format maps its native
// structure onto pages of typed layout items; formats without layout
// information emit page text and rely on the chunker's fallback.
package parser

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/clinrag/clinrag/internal/parsedoc"
)

// Result is a parsed document plus source-level metadata carried into
// chunk payloads.
type Result struct {
	Title     string
	ParseType string
	Doc       *parsedoc.Document
}

// Parser converts raw document bytes into a parsed document.
type Parser interface {
	Parse(r io.Reader, filename string) (*Result, error)
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".txt":  true,
	".md":   true,
	".csv":  true,
	".html": true,
	".htm":  true,
	".pdf":  true,
	".docx": true,
	".json": true,
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".csv":
		return &CSVParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	case ".pdf":
		return &PDFParser{}, nil
	case ".docx":
		return &DOCXParser{}, nil
	case ".json":
		return &JSONParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// titleFromFilename strips the extension for a default title.
func titleFromFilename(filename string) string {
	return strings.TrimSuffix(filename, filepath.Ext(filename))
}

// singlePageDoc wraps items from a format without page structure into
// a one-page document.
func singlePageDoc(items []parsedoc.Item) *parsedoc.Document {
	return &parsedoc.Document{
		Pages: []parsedoc.Page{{Number: 1, Items: items}},
	}
}
