package parser

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/clinrag/clinrag/internal/parsedoc"
)

// CSVParser handles CSV files. Rows become table items in batches so
// very wide files still chunk into bounded pieces; the header row is
// repeated in every batch.
type CSVParser struct{}

const csvBatchSize = 20

func (p *CSVParser) Parse(r io.Reader, filename string) (*Result, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	var items []parsedoc.Item
	if len(records) > 0 {
		headers := records[0]
		dataRows := records[1:]

		for i := 0; i < len(dataRows); i += csvBatchSize {
			end := i + csvBatchSize
			if end > len(dataRows) {
				end = len(dataRows)
			}
			rows := make([][]string, 0, end-i+1)
			rows = append(rows, headers)
			rows = append(rows, dataRows[i:end]...)
			items = append(items, parsedoc.Item{
				Type: parsedoc.ItemTable,
				Rows: rows,
			})
		}
	}

	return &Result{
		Title:     titleFromFilename(filename),
		ParseType: "csv",
		Doc:       singlePageDoc(items),
	}, nil
}
