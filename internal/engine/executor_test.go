package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dataexplorer-backend/internal/dataset"
	"dataexplorer-backend/internal/query"
)

func salesTable() *dataset.Table {
	headers := []string{"year", "quarter", "region", "product_name", "channel", "units_sold", "net_revenue"}
	rows := [][]string{
		{"2023", "Q1", "North", "Widget", "Online", "10", "50"},
		{"2023", "Q1", "South", "Gizmo", "Retail", "20", "80"},
		{"2023", "Q2", "North", "Widget", "Online", "5", "25"},
		{"2023", "Q2", "East", "Doohickey", "Retail", "8", "80"},
		{"2023", "Q3", "North", "Gizmo", "Online", "12", "48"},
		{"2023", "Q3", "South", "Widget", "Retail", "7", "35"},
	}
	return dataset.NewTable(headers, rows)
}

func TestExecuteGroupAndAggregate(t *testing.T) {
	op := query.ParsedOperation{
		Operation: query.GroupAndAggregate,
		Args: map[string]interface{}{
			"group_col": "region",
			"agg_col":   "net_revenue",
			"agg_func":  "sum",
		},
	}

	out, err := Execute(op, salesTable())
	require.NoError(t, err)

	require.Equal(t, []string{"region", "sum_net_revenue"}, out.ColumnNames())
	require.Len(t, out.Rows, 3)

	// Descending by the aggregate by default.
	assert.Equal(t, []string{"North", "123"}, out.Rows[0])
	assert.Equal(t, []string{"South", "115"}, out.Rows[1])
	assert.Equal(t, []string{"East", "80"}, out.Rows[2])
	assert.Equal(t, dataset.Numeric, out.Columns[1].Type)
}

func TestExecuteGroupAndAggregateAscendingWithLimit(t *testing.T) {
	op := query.ParsedOperation{
		Operation: query.GroupAndAggregate,
		Args: map[string]interface{}{
			"group_col": "region",
			"agg_col":   "net_revenue",
			"agg_func":  "sum",
			"sort":      "asc",
			"limit":     2,
		},
	}

	out, err := Execute(op, salesTable())
	require.NoError(t, err)

	require.Len(t, out.Rows, 2, "row count never exceeds limit")
	assert.Equal(t, "East", out.Rows[0][0])
	assert.Equal(t, "South", out.Rows[1][0])
}

func TestExecuteGroupAggFunctions(t *testing.T) {
	tests := []struct {
		fn    string
		north string
	}{
		{"sum", "123"},
		{"mean", "41"},
		{"count", "3"},
		{"min", "25"},
		{"max", "50"},
		{"median", "48"},
	}

	for _, tt := range tests {
		t.Run(tt.fn, func(t *testing.T) {
			op := query.ParsedOperation{
				Operation: query.GroupAndAggregate,
				Args: map[string]interface{}{
					"group_col": "region",
					"agg_col":   "net_revenue",
					"agg_func":  tt.fn,
				},
			}
			out, err := Execute(op, salesTable())
			require.NoError(t, err)

			var north []string
			for _, row := range out.Rows {
				if row[0] == "North" {
					north = row
				}
			}
			require.NotNil(t, north)
			assert.Equal(t, tt.north, north[1])
			assert.Equal(t, tt.fn+"_net_revenue", out.Columns[1].Name)
		})
	}
}

func TestExecuteFilterData(t *testing.T) {
	op := query.ParsedOperation{
		Operation: query.FilterData,
		Args:      map[string]interface{}{"column": "region", "value": "North"},
	}

	out, err := Execute(op, salesTable())
	require.NoError(t, err)

	require.Len(t, out.Rows, 3)
	for _, row := range out.Rows {
		assert.Equal(t, "North", row[2])
	}
	assert.Equal(t, salesTable().ColumnNames(), out.ColumnNames())
}

func TestExecuteFilterDataNumericEquality(t *testing.T) {
	// The year arrives as an int from the rule parser and as a float64
	// from decoded JSON; both match the numeric column.
	for _, value := range []interface{}{2023, float64(2023)} {
		op := query.ParsedOperation{
			Operation: query.FilterData,
			Args:      map[string]interface{}{"column": "year", "value": value},
		}
		out, err := Execute(op, salesTable())
		require.NoError(t, err)
		assert.Len(t, out.Rows, 6)
	}

	op := query.ParsedOperation{
		Operation: query.FilterData,
		Args:      map[string]interface{}{"column": "year", "value": 2024},
	}
	out, err := Execute(op, salesTable())
	require.NoError(t, err)
	assert.Empty(t, out.Rows)
}

func TestExecuteSortReversal(t *testing.T) {
	asc := query.ParsedOperation{
		Operation: query.SortData,
		Args:      map[string]interface{}{"column": "units_sold", "ascending": true},
	}
	desc := query.ParsedOperation{
		Operation: query.SortData,
		Args:      map[string]interface{}{"column": "units_sold", "ascending": false},
	}

	table := salesTable()
	up, err := Execute(asc, table)
	require.NoError(t, err)
	down, err := Execute(desc, table)
	require.NoError(t, err)

	require.Len(t, up.Rows, len(table.Rows))
	require.Len(t, down.Rows, len(table.Rows))

	// Same row set, exactly reverse order.
	for i := range up.Rows {
		assert.Equal(t, up.Rows[i], down.Rows[len(down.Rows)-1-i])
	}
	assert.Equal(t, "5", up.Rows[0][5])
	assert.Equal(t, "20", down.Rows[0][5])
}

func TestExecuteSortReversalWithTiedKeys(t *testing.T) {
	headers := []string{"quarter", "product_name", "units_sold"}
	rows := [][]string{
		{"Q1", "Widget", "10"},
		{"Q2", "Doohickey", "8"},
		{"Q3", "Gizmo", "10"},
		{"Q3", "Widget", "7"},
	}
	table := dataset.NewTable(headers, rows)

	asc := query.ParsedOperation{
		Operation: query.SortData,
		Args:      map[string]interface{}{"column": "units_sold", "ascending": true},
	}
	desc := query.ParsedOperation{
		Operation: query.SortData,
		Args:      map[string]interface{}{"column": "units_sold", "ascending": false},
	}

	up, err := Execute(asc, table)
	require.NoError(t, err)
	down, err := Execute(desc, table)
	require.NoError(t, err)

	// The two rows tied on 10 must swap relative order between directions.
	require.Len(t, down.Rows, len(rows))
	for i := range up.Rows {
		assert.Equal(t, up.Rows[i], down.Rows[len(down.Rows)-1-i], "row %d not reversed", i)
	}

	// Ascending keeps input order within the tie.
	assert.Equal(t, "Widget", up.Rows[2][1])
	assert.Equal(t, "Gizmo", up.Rows[3][1])
}

func TestExecuteSortDefaultsAscending(t *testing.T) {
	op := query.ParsedOperation{
		Operation: query.SortData,
		Args:      map[string]interface{}{"column": "units_sold"},
	}

	out, err := Execute(op, salesTable())
	require.NoError(t, err)
	assert.Equal(t, "5", out.Rows[0][5])
}

func TestExecutePivotDataZeroFills(t *testing.T) {
	op := query.ParsedOperation{
		Operation: query.PivotData,
		Args: map[string]interface{}{
			"index_col":   "quarter",
			"columns_col": "region",
			"values_col":  "net_revenue",
			"agg_func":    "sum",
		},
	}

	out, err := Execute(op, salesTable())
	require.NoError(t, err)

	require.Equal(t, []string{"quarter", "East", "North", "South"}, out.ColumnNames())
	require.Len(t, out.Rows, 3)

	assert.Equal(t, []string{"Q1", "0", "50", "80"}, out.Rows[0])
	assert.Equal(t, []string{"Q2", "80", "25", "0"}, out.Rows[1])
	assert.Equal(t, []string{"Q3", "0", "48", "35"}, out.Rows[2])
}

func TestExecutePivotNumericIndexOrdersNumerically(t *testing.T) {
	headers := []string{"month", "region", "net_revenue"}
	rows := [][]string{
		{"10", "North", "100"},
		{"9", "North", "90"},
		{"11", "South", "110"},
	}
	table := dataset.NewTable(headers, rows)

	op := query.ParsedOperation{
		Operation: query.PivotData,
		Args: map[string]interface{}{
			"index_col":   "month",
			"columns_col": "region",
			"values_col":  "net_revenue",
			"agg_func":    "sum",
		},
	}

	out, err := Execute(op, table)
	require.NoError(t, err)

	require.Len(t, out.Rows, 3)
	assert.Equal(t, "9", out.Rows[0][0])
	assert.Equal(t, "10", out.Rows[1][0])
	assert.Equal(t, "11", out.Rows[2][0])
}

func TestExecuteFilterAndGroup(t *testing.T) {
	op := query.ParsedOperation{
		Operation: query.FilterAndGroup,
		Args: map[string]interface{}{
			"filters": []interface{}{
				map[string]interface{}{"column": "quarter", "value": "Q3"},
			},
			"group_col": "product_name",
			"agg_col":   "net_revenue",
			"agg_func":  "sum",
			"limit":     5,
			"sort":      "desc",
		},
	}

	out, err := Execute(op, salesTable())
	require.NoError(t, err)

	require.Len(t, out.Rows, 2)
	assert.Equal(t, []string{"Gizmo", "48"}, out.Rows[0])
	assert.Equal(t, []string{"Widget", "35"}, out.Rows[1])
}

func TestExecutePreview(t *testing.T) {
	op := query.ParsedOperation{
		Operation: query.Preview,
		Args:      map[string]interface{}{"limit": 2},
	}

	out, err := Execute(op, salesTable())
	require.NoError(t, err)
	assert.Len(t, out.Rows, 2)

	// Default limit covers the whole fixture.
	out, err = Execute(query.ParsedOperation{Operation: query.Preview, Args: map[string]interface{}{}}, salesTable())
	require.NoError(t, err)
	assert.Len(t, out.Rows, 6)
}

func TestExecuteValidation(t *testing.T) {
	_, err := Execute(query.ParsedOperation{Operation: query.Preview}, nil)
	assert.ErrorIs(t, err, ErrNoDataset)

	_, err = Execute(query.ParsedOperation{
		Operation: query.FilterData,
		Args:      map[string]interface{}{"column": "warehouse", "value": "A"},
	}, salesTable())
	var unknown *UnknownColumnError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "warehouse", unknown.Column)

	_, err = Execute(query.ParsedOperation{
		Operation: query.GroupAndAggregate,
		Args:      map[string]interface{}{"group_col": "region", "agg_col": "product_name"},
	}, salesTable())
	var nonNumeric *NonNumericError
	require.ErrorAs(t, err, &nonNumeric)
	assert.Equal(t, "product_name", nonNumeric.Column)

	_, err = Execute(query.ParsedOperation{
		Operation: query.PivotData,
		Args: map[string]interface{}{
			"index_col":   "quarter",
			"columns_col": "region",
			"values_col":  "channel",
		},
	}, salesTable())
	require.ErrorAs(t, err, &nonNumeric)
}

func TestExecuteIsIdempotent(t *testing.T) {
	op := query.ParsedOperation{
		Operation: query.GroupAndAggregate,
		Args: map[string]interface{}{
			"group_col": "region",
			"agg_col":   "net_revenue",
			"agg_func":  "sum",
		},
	}

	table := salesTable()
	first, err := Execute(op, table)
	require.NoError(t, err)
	second, err := Execute(op, table)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
