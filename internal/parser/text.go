package parser

import (
	"bufio"
	"io"
	"strings"

	"github.com/clinrag/clinrag/internal/parsedoc"
)

// TextParser handles plain text files. Each blank-line-separated
// paragraph becomes one text item.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (*Result, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var items []parsedoc.Item
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			items = append(items, parsedoc.Item{
				Type: parsedoc.ItemText,
				Text: current.String(),
			})
			current.Reset()
		}
	}

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			flush()
		} else {
			if current.Len() > 0 {
				current.WriteString("\n")
			}
			current.WriteString(line)
		}
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return &Result{
		Title:     titleFromFilename(filename),
		ParseType: "text",
		Doc:       singlePageDoc(items),
	}, nil
}
