package chunker

import "strings"

// DefaultRowsPerChunk is the number of table rows grouped into one chunk.
const DefaultRowsPerChunk = 20

// RowChunker groups tabular rows into chunks, repeating the header in each.
type RowChunker struct {
	rowsPerChunk int
}

// NewRowChunker creates a chunker emitting rowsPerChunk data rows per chunk.
func NewRowChunker(rowsPerChunk int) *RowChunker {
	if rowsPerChunk <= 0 {
		rowsPerChunk = DefaultRowsPerChunk
	}
	return &RowChunker{rowsPerChunk: rowsPerChunk}
}

// ChunkRows renders rows as aligned text blocks. The first row is the header.
func (c *RowChunker) ChunkRows(rows [][]string) []string {
	if len(rows) < 2 {
		return nil
	}
	header, data := rows[0], rows[1:]
	var chunks []string
	for start := 0; start < len(data); start += c.rowsPerChunk {
		end := min(start+c.rowsPerChunk, len(data))
		if s := renderTable(header, data[start:end]); strings.TrimSpace(s) != "" {
			chunks = append(chunks, s)
		}
	}
	return chunks
}

func renderTable(header []string, rows [][]string) string {
	widths := make([]int, len(header))
	measure := func(row []string) {
		for i, cell := range row {
			if i >= len(widths) {
				widths = append(widths, 0)
			}
			widths[i] = max(widths[i], len([]rune(strings.TrimSpace(cell))))
		}
	}
	measure(header)
	for _, r := range rows {
		measure(r)
	}

	var b strings.Builder
	writeRow := func(row []string) {
		cells := make([]string, len(widths))
		for i := range widths {
			cell := ""
			if i < len(row) {
				cell = strings.TrimSpace(row[i])
			}
			cells[i] = cell + strings.Repeat(" ", widths[i]-len([]rune(cell)))
		}
		b.WriteString(strings.TrimRight(strings.Join(cells, " "), " "))
		b.WriteByte('\n')
	}
	writeRow(header)
	for _, r := range rows {
		writeRow(r)
	}
	return strings.TrimRight(b.String(), "\n")
}
