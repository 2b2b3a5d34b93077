package chunker

import (
	"strings"
)

// TableKind classifies a medical table by its header row.
type TableKind string

const (
	TableLabResults TableKind = "lab_results"
	TableMedication TableKind = "medications"
	TableVitalSigns TableKind = "vital_signs"
	TableGeneric    TableKind = "generic"
)

var tableHeaderKeywords = []struct {
	kind  TableKind
	terms []string
}{
	{TableLabResults, []string{"test", "result", "value", "range", "unit"}},
	{TableMedication, []string{"medication", "drug", "dose", "frequency", "route"}},
	{TableVitalSigns, []string{"vital", "bp", "hr", "temp", "spo2"}},
}

// ClassifyTable inspects the header row for medical table signatures.
func ClassifyTable(rows [][]string) TableKind {
	if len(rows) == 0 {
		return TableGeneric
	}
	header := strings.ToLower(strings.Join(rows[0], " "))
	for _, sig := range tableHeaderKeywords {
		for _, term := range sig.terms {
			if strings.Contains(header, term) {
				return sig.kind
			}
		}
	}
	return TableGeneric
}

func (h *Healthcare) chunkTable(c contentItem, ctx string, section *Section, meta Metadata) []Chunk {
	rows := c.item.Rows
	if len(rows) == 0 {
		return h.chunkGenericTable(c, c.item.Text, ctx, section, meta)
	}

	switch ClassifyTable(rows) {
	case TableLabResults:
		return h.chunkLabTable(c, rows, ctx, section, meta)
	case TableMedication:
		return h.chunkMedicationTable(c, rows, ctx, section, meta)
	default:
		lines := make([]string, 0, len(rows))
		for _, row := range rows {
			lines = append(lines, strings.Join(row, " | "))
		}
		return h.chunkGenericTable(c, strings.Join(lines, "\n"), ctx, section, meta)
	}
}

// chunkLabTable accumulates result rows under a repeated header until
// the table budget would be exceeded, then flushes. A single row is
// never split across chunks.
func (h *Healthcare) chunkLabTable(c contentItem, rows [][]string, ctx string, section *Section, meta Metadata) []Chunk {
	header := rows[0]
	data := rows[1:]

	var out []Chunk
	current := [][]string{header}
	currentTokens := len(h.tok.Encode(ctx))

	flush := func() {
		if len(current) == 0 {
			return
		}
		chunk := h.newChunk(formatTableChunk(current, ctx), TypeLabResult, c, section, meta)
		classify(&chunk, section)
		out = append(out, chunk)
	}

	for _, row := range data {
		rowTokens := len(h.tok.Encode(strings.Join(row, " | ")))
		if currentTokens+rowTokens > h.profile.TableBudget && len(current) > 0 {
			flush()
			current = [][]string{header}
			currentTokens = len(h.tok.Encode(ctx))
		}
		current = append(current, row)
		currentTokens += rowTokens
	}
	flush()
	return out
}

// chunkMedicationTable emits one chunk per data row, each carrying the
// header for context. Medication rows are complete facts on their own
// and are never merged.
func (h *Healthcare) chunkMedicationTable(c contentItem, rows [][]string, ctx string, section *Section, meta Metadata) []Chunk {
	header := rows[0]
	var out []Chunk
	for _, row := range rows[1:] {
		chunk := h.newChunk(formatTableChunk([][]string{header, row}, ctx), TypeMedication, c, section, meta)
		classify(&chunk, section)
		out = append(out, chunk)
	}
	return out
}

func (h *Healthcare) chunkGenericTable(c contentItem, tableText, ctx string, section *Section, meta Metadata) []Chunk {
	tableText = strings.TrimSpace(tableText)
	if tableText == "" {
		return nil
	}

	full := ctx + "\n" + tableText
	if len(h.tok.Encode(full)) <= h.profile.TableBudget {
		chunk := h.newChunk(full, TypeTable, c, section, meta)
		classify(&chunk, section)
		return []Chunk{chunk}
	}

	var out []Chunk
	for _, text := range SplitTextWithContext(h.tok, ctx, tableText, h.profile.ChunkSize, h.profile.Overlap, h.profile.MinChunk, h.log) {
		chunk := h.newChunk(text, TypeText, c, section, meta)
		classify(&chunk, section)
		out = append(out, chunk)
	}
	return out
}

func formatTableChunk(rows [][]string, ctx string) string {
	lines := []string{strings.TrimSpace(ctx)}
	for _, row := range rows {
		lines = append(lines, strings.Join(row, " | "))
	}
	return strings.Join(lines, "\n")
}
