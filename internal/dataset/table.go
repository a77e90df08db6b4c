package dataset

import (
	"fmt"
	"strconv"
	"time"
)

// ColumnType is the declared semantic type of a column.
type ColumnType string

const (
	Numeric     ColumnType = "numeric"
	Date        ColumnType = "date"
	Categorical ColumnType = "categorical"
)

// Column is a named, typed table column.
type Column struct {
	Name string     `json:"name"`
	Type ColumnType `json:"type"`
}

// Table holds an ordered set of typed columns and an ordered set of rows.
// Cells are stored as strings; the empty string is the missing marker for
// values that failed coercion on ingestion. Operations never mutate a
// Table in place - they build a new one.
type Table struct {
	Columns []Column   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// NewTable builds a table from headers and rows, inferring column types
// from a sample of the data.
func NewTable(headers []string, rows [][]string) *Table {
	cols := make([]Column, len(headers))
	for i, h := range headers {
		cols[i] = Column{Name: h, Type: inferColumnType(rows, i)}
	}
	return &Table{Columns: cols, Rows: rows}
}

// ColumnNames returns the column names in order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// ColumnIndex returns the position of a column, or -1 if absent.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// HasColumn reports whether a column exists.
func (t *Table) HasColumn(name string) bool {
	return t.ColumnIndex(name) >= 0
}

// IsNumeric reports whether a column exists and is declared numeric.
func (t *Table) IsNumeric(name string) bool {
	idx := t.ColumnIndex(name)
	return idx >= 0 && t.Columns[idx].Type == Numeric
}

// Float parses the cell at (row, col) as a number. Missing or unparsable
// cells report ok=false.
func (t *Table) Float(row, col int) (float64, bool) {
	if row >= len(t.Rows) || col >= len(t.Rows[row]) {
		return 0, false
	}
	cell := t.Rows[row][col]
	if cell == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Cell returns the raw cell at (row, col), or "" when the row is ragged.
func (t *Table) Cell(row, col int) string {
	if row >= len(t.Rows) || col >= len(t.Rows[row]) {
		return ""
	}
	return t.Rows[row][col]
}

// Head returns a new table holding the first n rows.
func (t *Table) Head(n int) *Table {
	if n > len(t.Rows) {
		n = len(t.Rows)
	}
	rows := make([][]string, n)
	copy(rows, t.Rows[:n])
	return &Table{Columns: t.Columns, Rows: rows}
}

// MaxValue returns the largest value in a column: numerically for numeric
// columns, lexically otherwise (so quarter labels Q1..Q4 order correctly).
func (t *Table) MaxValue(name string) (string, bool) {
	idx := t.ColumnIndex(name)
	if idx < 0 || len(t.Rows) == 0 {
		return "", false
	}
	if t.Columns[idx].Type == Numeric {
		best, found := 0.0, false
		for row := range t.Rows {
			if v, ok := t.Float(row, idx); ok && (!found || v > best) {
				best, found = v, true
			}
		}
		if !found {
			return "", false
		}
		return FormatNumber(best), true
	}
	best, found := "", false
	for row := range t.Rows {
		cell := t.Cell(row, idx)
		if cell == "" {
			continue
		}
		if !found || cell > best {
			best, found = cell, true
		}
	}
	return best, found
}

// Records converts the table to record-oriented maps, with numeric cells
// emitted as numbers so JSON consumers see proper types.
func (t *Table) Records() []map[string]interface{} {
	records := make([]map[string]interface{}, len(t.Rows))
	for i := range t.Rows {
		rec := make(map[string]interface{}, len(t.Columns))
		for j, col := range t.Columns {
			cell := t.Cell(i, j)
			if col.Type == Numeric && cell != "" {
				if v, err := strconv.ParseFloat(cell, 64); err == nil {
					rec[col.Name] = v
					continue
				}
			}
			rec[col.Name] = cell
		}
		records[i] = rec
	}
	return records
}

// FromRecords rebuilds a table from a record-oriented encoding, keeping
// the given column order.
func FromRecords(columns []Column, records []map[string]interface{}) *Table {
	rows := make([][]string, len(records))
	for i, rec := range records {
		row := make([]string, len(columns))
		for j, col := range columns {
			row[j] = coerceRecordValue(rec[col.Name])
		}
		rows[i] = row
	}
	return &Table{Columns: columns, Rows: rows}
}

func coerceRecordValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return FormatNumber(val)
	case int:
		return strconv.Itoa(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// FormatNumber renders a float without a trailing ".0" for whole values,
// matching how cells are stored on ingestion.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// inferColumnType samples up to 20 rows and classifies a column as
// numeric, date, or categorical.
func inferColumnType(rows [][]string, colIdx int) ColumnType {
	sample := 20
	if len(rows) < sample {
		sample = len(rows)
	}

	isNumeric := true
	isDate := true
	seen := false
	for i := 0; i < sample; i++ {
		if colIdx >= len(rows[i]) {
			continue
		}
		val := rows[i][colIdx]
		if val == "" {
			continue
		}
		seen = true
		if _, err := strconv.ParseFloat(val, 64); err != nil {
			isNumeric = false
		}
		if !isDateString(val) {
			isDate = false
		}
		if !isNumeric && !isDate {
			break
		}
	}

	if !seen {
		return Categorical
	}
	if isNumeric {
		return Numeric
	}
	if isDate {
		return Date
	}
	return Categorical
}

var dateFormats = []string{
	time.RFC3339, "2006-01-02", "02/01/2006", "01/02/2006",
	"2006/01/02", "Jan 2, 2006", "January 2, 2006",
}

func isDateString(s string) bool {
	for _, format := range dateFormats {
		if _, err := time.Parse(format, s); err == nil {
			return true
		}
	}
	return false
}
