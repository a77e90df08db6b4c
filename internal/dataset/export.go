package dataset

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Export formats supported for the current view.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
	FormatXLSX = "xlsx"
)

// Export serializes the table in the requested format. Column names and
// row order round-trip exactly as stored.
func Export(t *Table, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case FormatCSV:
		return exportCSV(t)
	case FormatJSON:
		return json.Marshal(t.Records())
	case FormatXLSX:
		return exportXLSX(t)
	default:
		return nil, fmt.Errorf("unsupported export format: %s", format)
	}
}

func exportCSV(t *Table) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(t.ColumnNames()); err != nil {
		return nil, err
	}
	for i := range t.Rows {
		row := make([]string, len(t.Columns))
		for j := range t.Columns {
			row[j] = t.Cell(i, j)
		}
		if err := writer.Write(row); err != nil {
			return nil, err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func exportXLSX(t *Table) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)

	header := make([]interface{}, len(t.Columns))
	for i, col := range t.Columns {
		header[i] = col.Name
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, err
	}

	for i := range t.Rows {
		row := make([]interface{}, len(t.Columns))
		for j, col := range t.Columns {
			cell := t.Cell(i, j)
			if col.Type == Numeric && cell != "" {
				if v, err := strconv.ParseFloat(cell, 64); err == nil {
					row[j] = v
					continue
				}
			}
			row[j] = cell
		}
		addr, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, addr, &row); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
