package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ParseCSV reads a delimited file into a Table. Headers are trimmed,
// malformed rows are skipped, and a semicolon delimiter is tried when the
// header cannot be read with commas. After type inference, cells in
// numeric columns that fail to parse are replaced with the missing marker
// rather than failing the ingestion.
func ParseCSV(r io.ReadSeeker) (*Table, error) {
	reader := newReader(r, ',')

	headers, err := reader.Read()
	if err != nil || isSemicolonHeader(headers) {
		// Retry with semicolon separator.
		if _, seekErr := r.Seek(0, io.SeekStart); seekErr != nil {
			return nil, seekErr
		}
		reader = newReader(r, ';')
		headers, err = reader.Read()
		if err != nil {
			return nil, fmt.Errorf("failed to read headers: %v", err)
		}
	}

	for i, h := range headers {
		headers[i] = strings.TrimSpace(h)
	}

	rows := [][]string{}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}
		rows = append(rows, record)
	}

	table := NewTable(headers, rows)
	coerceNumericCells(table)
	return table, nil
}

// isSemicolonHeader reports whether a comma pass produced one field that
// is itself semicolon-delimited, which is how European CSV exports read
// under the wrong separator.
func isSemicolonHeader(headers []string) bool {
	return len(headers) == 1 && strings.Contains(headers[0], ";")
}

func newReader(r io.Reader, comma rune) *csv.Reader {
	reader := csv.NewReader(r)
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	return reader
}

// coerceNumericCells normalizes cells in numeric columns and turns
// unparsable values into missing markers.
func coerceNumericCells(t *Table) {
	for colIdx, col := range t.Columns {
		if col.Type != Numeric {
			continue
		}
		for rowIdx := range t.Rows {
			if colIdx >= len(t.Rows[rowIdx]) {
				continue
			}
			cell := t.Rows[rowIdx][colIdx]
			if cell == "" {
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				t.Rows[rowIdx][colIdx] = ""
				continue
			}
			t.Rows[rowIdx][colIdx] = FormatNumber(v)
		}
	}
}
