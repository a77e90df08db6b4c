package engine

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"dataexplorer-backend/internal/dataset"
	"dataexplorer-backend/internal/query"
)

// ============================================================================
// Operation Executor
// ============================================================================
// Deterministic execution of a ParsedOperation against a Table. Every
// operation builds a new Table; the input is never mutated. Validation
// failures (absent table, unknown column, non-numeric aggregation) are
// typed errors; callers convert them to an absent result rather than
// aborting the interaction.
// ============================================================================

// Execute applies a structured operation to a table and returns the
// resulting table.
func Execute(op query.ParsedOperation, t *dataset.Table) (*dataset.Table, error) {
	if t == nil {
		return nil, ErrNoDataset
	}

	switch op.Operation {
	case query.GroupAndAggregate:
		return groupAndAggregate(t, op.Args)
	case query.FilterData:
		return filterData(t, op.Args)
	case query.SortData:
		return sortData(t, op.Args)
	case query.PivotData:
		return pivotData(t, op.Args)
	case query.FilterAndGroup:
		return filterAndGroup(t, op.Args)
	default:
		// preview, plus any loose operation name from the generative path
		limit := argIntDefault(op.Args, "limit", 100)
		return t.Head(limit), nil
	}
}

func groupAndAggregate(t *dataset.Table, args map[string]interface{}) (*dataset.Table, error) {
	groupCol := argStr(args, "group_col")
	aggCol := argStr(args, "agg_col")
	aggFunc := argStrDefault(args, "agg_func", "sum")
	sortOrder := argStrDefault(args, "sort", "desc")
	limit := argIntDefault(args, "limit", 0)

	groupIdx := t.ColumnIndex(groupCol)
	if groupIdx < 0 {
		return nil, &UnknownColumnError{Column: groupCol}
	}
	aggIdx := t.ColumnIndex(aggCol)
	if aggIdx < 0 {
		return nil, &UnknownColumnError{Column: aggCol}
	}
	if !t.IsNumeric(aggCol) {
		return nil, &NonNumericError{Column: aggCol}
	}

	// Group in first-appearance order.
	grouped := make(map[string][]float64)
	order := []string{}
	for row := range t.Rows {
		key := t.Cell(row, groupIdx)
		if _, exists := grouped[key]; !exists {
			order = append(order, key)
			grouped[key] = []float64{}
		}
		if v, ok := t.Float(row, aggIdx); ok {
			grouped[key] = append(grouped[key], v)
		}
	}

	type groupRow struct {
		key   string
		value float64
	}
	results := make([]groupRow, 0, len(order))
	for _, key := range order {
		results = append(results, groupRow{key: key, value: applyAgg(grouped[key], aggFunc)})
	}

	ascending := strings.EqualFold(sortOrder, "asc")
	sort.SliceStable(results, func(i, j int) bool {
		if ascending {
			return results[i].value < results[j].value
		}
		return results[i].value > results[j].value
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	aggName := fmt.Sprintf("%s_%s", aggFunc, aggCol)
	out := &dataset.Table{
		Columns: []dataset.Column{
			{Name: groupCol, Type: t.Columns[groupIdx].Type},
			{Name: aggName, Type: dataset.Numeric},
		},
	}
	for _, r := range results {
		out.Rows = append(out.Rows, []string{r.key, dataset.FormatNumber(r.value)})
	}
	return out, nil
}

func filterData(t *dataset.Table, args map[string]interface{}) (*dataset.Table, error) {
	column := argStr(args, "column")
	value := args["value"]

	colIdx := t.ColumnIndex(column)
	if colIdx < 0 {
		return nil, &UnknownColumnError{Column: column}
	}

	numeric := t.Columns[colIdx].Type == dataset.Numeric
	want := formatArgValue(value)
	wantNum, wantIsNum := toFloat(value)

	out := &dataset.Table{Columns: t.Columns}
	for row := range t.Rows {
		cell := t.Cell(row, colIdx)
		match := false
		if numeric && wantIsNum {
			if v, ok := t.Float(row, colIdx); ok && v == wantNum {
				match = true
			}
		} else {
			match = cell == want
		}
		if match {
			out.Rows = append(out.Rows, t.Rows[row])
		}
	}
	return out, nil
}

func sortData(t *dataset.Table, args map[string]interface{}) (*dataset.Table, error) {
	column := argStr(args, "column")
	ascending := true
	if v, ok := args["ascending"].(bool); ok {
		ascending = v
	}

	colIdx := t.ColumnIndex(column)
	if colIdx < 0 {
		return nil, &UnknownColumnError{Column: column}
	}

	rows := make([][]string, len(t.Rows))
	copy(rows, t.Rows)
	out := &dataset.Table{Columns: t.Columns, Rows: rows}

	// Always sort ascending, then reverse, so the descending order is the
	// exact reverse of the ascending one even on tied keys.
	numeric := t.Columns[colIdx].Type == dataset.Numeric
	sort.SliceStable(out.Rows, func(i, j int) bool {
		if numeric {
			vi, oki := cellFloat(out.Rows[i], colIdx)
			vj, okj := cellFloat(out.Rows[j], colIdx)
			switch {
			case !oki && !okj:
				return false
			case !oki:
				return true // missing sorts first
			case !okj:
				return false
			default:
				return vi < vj
			}
		}
		return cellAt(out.Rows[i], colIdx) < cellAt(out.Rows[j], colIdx)
	})
	if !ascending {
		for i, j := 0, len(out.Rows)-1; i < j; i, j = i+1, j-1 {
			out.Rows[i], out.Rows[j] = out.Rows[j], out.Rows[i]
		}
	}
	return out, nil
}

func pivotData(t *dataset.Table, args map[string]interface{}) (*dataset.Table, error) {
	indexCol := argStr(args, "index_col")
	columnsCol := argStr(args, "columns_col")
	valuesCol := argStr(args, "values_col")
	aggFunc := argStrDefault(args, "agg_func", "sum")

	indexIdx := t.ColumnIndex(indexCol)
	if indexIdx < 0 {
		return nil, &UnknownColumnError{Column: indexCol}
	}
	columnsIdx := t.ColumnIndex(columnsCol)
	if columnsIdx < 0 {
		return nil, &UnknownColumnError{Column: columnsCol}
	}
	valuesIdx := t.ColumnIndex(valuesCol)
	if valuesIdx < 0 {
		return nil, &UnknownColumnError{Column: valuesCol}
	}
	if !t.IsNumeric(valuesCol) {
		return nil, &NonNumericError{Column: valuesCol}
	}

	// Collect values per (index, pivot column) pair.
	cells := make(map[string]map[string][]float64)
	indexKeys := []string{}
	pivotKeys := []string{}
	seenIndex := make(map[string]bool)
	seenPivot := make(map[string]bool)

	for row := range t.Rows {
		ik := t.Cell(row, indexIdx)
		pk := t.Cell(row, columnsIdx)
		if !seenIndex[ik] {
			seenIndex[ik] = true
			indexKeys = append(indexKeys, ik)
		}
		if !seenPivot[pk] {
			seenPivot[pk] = true
			pivotKeys = append(pivotKeys, pk)
		}
		if cells[ik] == nil {
			cells[ik] = make(map[string][]float64)
		}
		if v, ok := t.Float(row, valuesIdx); ok {
			cells[ik][pk] = append(cells[ik][pk], v)
		}
	}

	sortKeys(indexKeys, t.Columns[indexIdx].Type == dataset.Numeric)
	sortKeys(pivotKeys, t.Columns[columnsIdx].Type == dataset.Numeric)

	out := &dataset.Table{
		Columns: []dataset.Column{{Name: indexCol, Type: t.Columns[indexIdx].Type}},
	}
	for _, pk := range pivotKeys {
		out.Columns = append(out.Columns, dataset.Column{Name: pk, Type: dataset.Numeric})
	}

	// Missing cells zero-fill so chart consumers see a dense grid.
	for _, ik := range indexKeys {
		row := make([]string, 0, len(pivotKeys)+1)
		row = append(row, ik)
		for _, pk := range pivotKeys {
			values := cells[ik][pk]
			if len(values) == 0 {
				row = append(row, "0")
				continue
			}
			row = append(row, dataset.FormatNumber(applyAgg(values, aggFunc)))
		}
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}

// sortKeys orders pivot grid keys numerically for numeric columns so "9"
// precedes "10", lexically otherwise. Missing markers sort first.
func sortKeys(keys []string, numeric bool) {
	sort.SliceStable(keys, func(i, j int) bool {
		if numeric {
			vi, erri := strconv.ParseFloat(keys[i], 64)
			vj, errj := strconv.ParseFloat(keys[j], 64)
			switch {
			case erri != nil && errj != nil:
				return keys[i] < keys[j]
			case erri != nil:
				return true
			case errj != nil:
				return false
			default:
				return vi < vj
			}
		}
		return keys[i] < keys[j]
	})
}

func filterAndGroup(t *dataset.Table, args map[string]interface{}) (*dataset.Table, error) {
	filtered := t
	for _, f := range argFilters(args) {
		var err error
		filtered, err = filterData(filtered, f)
		if err != nil {
			return nil, err
		}
	}
	return groupAndAggregate(filtered, args)
}

// ----------------------------------------------------------------------------
// Argument helpers. Args maps come from the rule parser (typed Go values)
// or from decoded JSON (float64 numbers, []interface{} lists), so every
// accessor tolerates both.
// ----------------------------------------------------------------------------

func argStr(args map[string]interface{}, key string) string {
	v, _ := args[key].(string)
	return v
}

func argStrDefault(args map[string]interface{}, key, fallback string) string {
	if v, ok := args[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

func argIntDefault(args map[string]interface{}, key string, fallback int) int {
	switch v := args[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func argFilters(args map[string]interface{}) []map[string]interface{} {
	var filters []map[string]interface{}
	switch raw := args["filters"].(type) {
	case []interface{}:
		for _, item := range raw {
			if m, ok := item.(map[string]interface{}); ok {
				filters = append(filters, m)
			}
		}
	case []map[string]interface{}:
		filters = raw
	}
	return filters
}

func formatArgValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return dataset.FormatNumber(val)
	case int:
		return strconv.Itoa(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

func toFloat(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case int:
		return float64(val), true
	case string:
		f, err := strconv.ParseFloat(val, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func cellAt(row []string, col int) string {
	if col >= len(row) {
		return ""
	}
	return row[col]
}

func cellFloat(row []string, col int) (float64, bool) {
	cell := cellAt(row, col)
	if cell == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(cell, 64)
	return v, err == nil
}
