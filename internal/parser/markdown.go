package parser

import (
	"bytes"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/clinrag/clinrag/internal/parsedoc"
)

// MarkdownParser handles Markdown files using goldmark.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*Result, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	md := goldmark.New()
	reader := text.NewReader(src)
	doc := md.Parser().Parse(reader)

	var items []parsedoc.Item
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			title := string(node.Text(src))
			if title == "" {
				continue
			}
			items = append(items, parsedoc.Item{
				Type:  parsedoc.ItemHeading,
				Text:  title,
				Level: node.Level,
			})

		case *ast.List:
			lines := listLines(node, src)
			if len(lines) == 0 {
				continue
			}
			items = append(items, parsedoc.Item{
				Type: parsedoc.ItemList,
				Text: strings.Join(lines, "\n"),
			})

		default:
			t := extractText(n, src)
			if t != "" {
				items = append(items, parsedoc.Item{
					Type: parsedoc.ItemText,
					Text: t,
				})
			}
		}
	}

	return &Result{
		Title:     titleFromFilename(filename),
		ParseType: "markdown",
		Doc:       singlePageDoc(items),
	}, nil
}

// listLines renders each list item as a "- " line, flattening nested
// lists into the same block so they chunk as one unit.
func listLines(list *ast.List, src []byte) []string {
	var lines []string
	for li := list.FirstChild(); li != nil; li = li.NextSibling() {
		t := extractText(li, src)
		if t != "" {
			lines = append(lines, "- "+t)
		}
	}
	return lines
}

// extractText gets the text content of a goldmark AST node. Block
// nodes with children (paragraphs, list items, blockquotes) are read
// through their inline text segments; the raw Lines() of such a node
// cover the same source bytes, so reading both would double the text.
// Childless blocks (code blocks) only have Lines().
func extractText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	if n.Type() == ast.TypeBlock && !n.HasChildren() {
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			buf.Write(seg.Value(src))
		}
		return strings.TrimSpace(buf.String())
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			buf.Write(t.Value(src))
			if t.HardLineBreak() || t.SoftLineBreak() {
				buf.WriteByte('\n')
			}
		} else {
			// Recurse for nested inlines and wrapped blocks.
			buf.WriteString(extractText(c, src))
		}
	}
	return strings.TrimSpace(buf.String())
}
