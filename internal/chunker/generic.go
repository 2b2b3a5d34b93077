package chunker

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/clinrag/clinrag/internal/parsedoc"
	"github.com/clinrag/clinrag/internal/tokenizer"
)

// Generic is the strategy for non-clinical documents: no section
// awareness, headings emitted standalone only when long enough, tables
// flattened into tab-joined rows.
type Generic struct {
	tok     tokenizer.Tokenizer
	profile Profile
	log     *slog.Logger
}

func NewGeneric(tok tokenizer.Tokenizer, profile Profile, log *slog.Logger) *Generic {
	return &Generic{
		tok:     tok,
		profile: profile.withDefaults(GenericProfile()),
		log:     log.With("component", "chunker", "mode", "generic"),
	}
}

func (g *Generic) Chunk(_ context.Context, doc *parsedoc.Document, meta Metadata) ([]Chunk, error) {
	if doc == nil {
		return nil, fmt.Errorf("nil document")
	}

	var out []Chunk
	for _, page := range doc.Pages {
		for i := range page.Images {
			if c, ok := imageChunk(&page.Images[i], &page, meta); ok {
				classify(&c, nil)
				out = append(out, c)
			}
		}

		if len(page.Items) == 0 {
			out = append(out, g.fallbackPageText(&page, meta)...)
			continue
		}

		for _, item := range page.Items {
			switch item.Type {
			case parsedoc.ItemHeading:
				if wordCount(item.Text) > g.profile.HeadingMinWords {
					c := g.newChunk(strings.TrimSpace(item.Text), TypeHeading, &page, meta)
					c.BBox = boxOf(item)
					classify(&c, nil)
					out = append(out, c)
				}
			case parsedoc.ItemTable:
				if c, ok := g.tableChunk(item, &page, meta); ok {
					classify(&c, nil)
					out = append(out, c)
				}
			case parsedoc.ItemText, parsedoc.ItemList:
				for _, text := range SplitText(g.tok, item.Text, g.profile.ChunkSize, g.profile.Overlap, g.profile.MinChunk, g.log) {
					c := g.newChunk(text, TypeText, &page, meta)
					c.BBox = boxOf(item)
					classify(&c, nil)
					out = append(out, c)
				}
			}
		}
	}

	g.log.Info("chunked document", "chunks", len(out), "filename", meta.OriginalFilename)
	return out, nil
}

func (g *Generic) newChunk(text string, t Type, page *parsedoc.Page, meta Metadata) Chunk {
	return Chunk{
		Text:       text,
		Type:       t,
		Page:       page.Number,
		PageWidth:  page.Width,
		PageHeight: page.Height,
		ParseType:  parseType(meta),
	}
}

func (g *Generic) tableChunk(item parsedoc.Item, page *parsedoc.Page, meta Metadata) (Chunk, bool) {
	var text string
	if len(item.Rows) > 0 {
		lines := make([]string, 0, len(item.Rows))
		for _, row := range item.Rows {
			lines = append(lines, strings.Join(row, "\t"))
		}
		text = strings.TrimSpace(strings.Join(lines, "\n"))
	} else {
		text = strings.TrimSpace(item.Text)
	}
	if text == "" {
		return Chunk{}, false
	}
	c := g.newChunk(text, TypeTable, page, meta)
	c.BBox = boxOf(item)
	return c, true
}

// fallbackPageText chunks the raw page text when the parser produced
// no structured items for the page.
func (g *Generic) fallbackPageText(page *parsedoc.Page, meta Metadata) []Chunk {
	if strings.TrimSpace(page.Text) == "" {
		return nil
	}
	var out []Chunk
	for _, text := range SplitText(g.tok, page.Text, g.profile.ChunkSize, g.profile.Overlap, g.profile.MinChunk, g.log) {
		c := g.newChunk(text, TypeText, page, meta)
		classify(&c, nil)
		out = append(out, c)
	}
	return out
}

func imageChunk(img *parsedoc.Image, page *parsedoc.Page, meta Metadata) (Chunk, bool) {
	text := strings.TrimSpace(strings.Join(nonEmpty(img.OCR), " "))
	if text == "" {
		return Chunk{}, false
	}
	return Chunk{
		Text:       text,
		Type:       TypeImage,
		Page:       page.Number,
		BBox:       &parsedoc.BBox{X: img.X, Y: img.Y, W: img.Width, H: img.Height},
		PageWidth:  page.Width,
		PageHeight: page.Height,
		ParseType:  parseType(meta),
	}, true
}

func boxOf(item parsedoc.Item) *parsedoc.BBox {
	b := item.BBox
	return &b
}

func parseType(meta Metadata) string {
	if meta.ParseType == "" {
		return "pdf"
	}
	return meta.ParseType
}
