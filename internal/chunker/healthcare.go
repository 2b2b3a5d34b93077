package chunker

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/clinrag/clinrag/internal/parsedoc"
	"github.com/clinrag/clinrag/internal/tokenizer"
)

// listMarker detects bullet, dash, numbered and lettered list items.
var listMarker = regexp.MustCompile(`^\s*(?:•|\-|\d+\.|\w\))`)

// Healthcare is the strategy for clinical documents. It segments the
// content stream into titled sections, keeps medical table rows
// intact, groups list items, and prefixes every text chunk with its
// section context.
type Healthcare struct {
	tok     tokenizer.Tokenizer
	profile Profile
	log     *slog.Logger
}

func NewHealthcare(tok tokenizer.Tokenizer, profile Profile, log *slog.Logger) *Healthcare {
	return &Healthcare{
		tok:     tok,
		profile: profile.withDefaults(HealthcareProfile()),
		log:     log.With("component", "chunker", "mode", "healthcare"),
	}
}

func (h *Healthcare) Chunk(_ context.Context, doc *parsedoc.Document, meta Metadata) ([]Chunk, error) {
	if doc == nil {
		return nil, fmt.Errorf("nil document")
	}

	content := flattenContent(doc)
	sections := SegmentSections(content, h.profile.HeadingMinWords)

	var out []Chunk
	for i := range sections {
		out = append(out, h.chunkSection(&sections[i], meta)...)
	}

	h.log.Info("chunked document", "chunks", len(out), "sections", len(sections), "filename", meta.OriginalFilename)
	return out, nil
}

// flattenContent builds the document-order content stream the section
// segmenter consumes: per page, images first, then items.
func flattenContent(doc *parsedoc.Document) []contentItem {
	var content []contentItem
	for pi := range doc.Pages {
		page := &doc.Pages[pi]
		for i := range page.Images {
			img := &page.Images[i]
			if strings.TrimSpace(strings.Join(nonEmpty(img.OCR), " ")) == "" {
				continue
			}
			content = append(content, contentItem{
				image:  img,
				page:   page.Number,
				width:  page.Width,
				height: page.Height,
			})
		}
		for _, item := range page.Items {
			content = append(content, contentItem{
				item:   item,
				page:   page.Number,
				width:  page.Width,
				height: page.Height,
			})
		}
	}
	return content
}

// contentGroup is a run of related items chunked as one unit.
type contentGroup struct {
	kind  string // "list", "table", "text", "image"
	items []contentItem
}

// groupRelated clusters contiguous list items into one group and
// leaves everything else as single-element groups.
func groupRelated(items []contentItem) []contentGroup {
	var groups []contentGroup
	var list *contentGroup

	flush := func() {
		if list != nil {
			groups = append(groups, *list)
			list = nil
		}
	}

	for _, c := range items {
		if c.image == nil && listMarker.MatchString(c.text()) {
			if list == nil {
				list = &contentGroup{kind: "list"}
			}
			list.items = append(list.items, c)
			continue
		}
		flush()
		switch {
		case c.image != nil:
			groups = append(groups, contentGroup{kind: "image", items: []contentItem{c}})
		case c.item.Type == parsedoc.ItemTable:
			groups = append(groups, contentGroup{kind: "table", items: []contentItem{c}})
		default:
			groups = append(groups, contentGroup{kind: "text", items: []contentItem{c}})
		}
	}
	flush()
	return groups
}

func (h *Healthcare) chunkSection(section *Section, meta Metadata) []Chunk {
	ctx := section.Context()
	var out []Chunk

	for _, group := range groupRelated(section.Items) {
		switch group.kind {
		case "table":
			out = append(out, h.chunkTable(group.items[0], ctx, section, meta)...)
		case "list":
			out = append(out, h.chunkList(group, ctx, section, meta)...)
		case "image":
			c := group.items[0]
			chunk := h.newChunk(c.text(), TypeImage, c, section, meta)
			chunk.BBox = &parsedoc.BBox{X: c.image.X, Y: c.image.Y, W: c.image.Width, H: c.image.Height}
			classify(&chunk, section)
			out = append(out, chunk)
		default:
			out = append(out, h.chunkText(group.items[0], ctx, section, meta)...)
		}
	}
	return out
}

func (h *Healthcare) chunkText(c contentItem, ctx string, section *Section, meta Metadata) []Chunk {
	var out []Chunk
	for _, text := range SplitTextWithContext(h.tok, ctx, c.item.Text, h.profile.ChunkSize, h.profile.Overlap, h.profile.MinChunk, h.log) {
		chunk := h.newChunk(text, TypeText, c, section, meta)
		chunk.BBox = boxOf(c.item)
		classify(&chunk, section)
		out = append(out, chunk)
	}
	return out
}

// chunkList keeps a whole list block in one chunk when it fits a text
// window; longer blocks fall through to ordinary text chunking.
func (h *Healthcare) chunkList(group contentGroup, ctx string, section *Section, meta Metadata) []Chunk {
	lines := make([]string, 0, len(group.items))
	for _, c := range group.items {
		lines = append(lines, c.text())
	}
	listText := strings.Join(lines, "\n")
	full := ctx + "\n" + listText

	first := group.items[0]
	if len(h.tok.Encode(full)) <= h.profile.ChunkSize {
		chunk := h.newChunk(strings.TrimSpace(full), TypeList, first, section, meta)
		classify(&chunk, section)
		return []Chunk{chunk}
	}

	var out []Chunk
	for _, text := range SplitTextWithContext(h.tok, ctx, listText, h.profile.ChunkSize, h.profile.Overlap, h.profile.MinChunk, h.log) {
		chunk := h.newChunk(text, TypeText, first, section, meta)
		classify(&chunk, section)
		out = append(out, chunk)
	}
	return out
}

func (h *Healthcare) newChunk(text string, t Type, c contentItem, _ *Section, meta Metadata) Chunk {
	return Chunk{
		Text:       strings.TrimSpace(text),
		Type:       t,
		Page:       c.page,
		PageWidth:  c.width,
		PageHeight: c.height,
		ParseType:  parseType(meta),
	}
}
