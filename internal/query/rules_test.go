package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dataexplorer-backend/internal/dataset"
)

func salesTable() *dataset.Table {
	headers := []string{"date", "year", "quarter", "region", "product_name", "units_sold", "net_revenue"}
	rows := [][]string{
		{"2023-01-15", "2023", "Q1", "North", "Widget", "10", "50"},
		{"2023-02-10", "2023", "Q1", "South", "Gizmo", "20", "80"},
		{"2023-04-12", "2023", "Q2", "North", "Widget", "5", "25"},
		{"2023-07-01", "2023", "Q3", "North", "Gizmo", "12", "48"},
	}
	return dataset.NewTable(headers, rows)
}

func newTestParser(t *testing.T) *RuleParser {
	t.Helper()
	table := salesTable()
	return NewRuleParser(table.ColumnNames(), table)
}

func TestParseTopProductsThisQuarter(t *testing.T) {
	p := newTestParser(t)

	parsed := p.Parse("top 5 products this quarter")

	require.Equal(t, FilterAndGroup, parsed.Operation)
	assert.Equal(t, 0.95, parsed.Confidence)
	assert.Equal(t, SourceRule, parsed.Source)
	assert.Equal(t, "product_name", parsed.Args["group_col"])
	assert.Equal(t, "net_revenue", parsed.Args["agg_col"])
	assert.Equal(t, "sum", parsed.Args["agg_func"])
	assert.Equal(t, 5, parsed.Args["limit"])
	assert.Equal(t, "desc", parsed.Args["sort"])

	filters, ok := parsed.Args["filters"].([]interface{})
	require.True(t, ok)
	require.Len(t, filters, 1)
	first := filters[0].(map[string]interface{})
	assert.Equal(t, "quarter", first["column"])
	assert.Equal(t, "Q3", first["value"])
}

func TestParseTopProductsDefaultsAndYear(t *testing.T) {
	p := newTestParser(t)

	parsed := p.Parse("top products in 2023")
	require.Equal(t, FilterAndGroup, parsed.Operation)
	assert.Equal(t, 5, parsed.Args["limit"], "N defaults to 5 when absent")

	filters := parsed.Args["filters"].([]interface{})
	require.Len(t, filters, 2)
	yearFilter := filters[1].(map[string]interface{})
	assert.Equal(t, "year", yearFilter["column"])
	assert.Equal(t, 2023, yearFilter["value"])
	assert.Contains(t, parsed.Explanation, "of 2023")

	parsed = p.Parse("top 3 products this quarter")
	assert.Equal(t, 3, parsed.Args["limit"])
}

func TestParseTopProductsWithoutTableFallsThrough(t *testing.T) {
	p := NewRuleParser([]string{"region", "net_revenue"}, nil)

	parsed := p.Parse("top 5 products this quarter")
	assert.Equal(t, Preview, parsed.Operation)
	assert.Equal(t, 0.5, parsed.Confidence)
}

func TestParseRevenueByRegion(t *testing.T) {
	p := newTestParser(t)

	parsed := p.Parse("revenue by region")

	require.Equal(t, GroupAndAggregate, parsed.Operation)
	assert.Equal(t, "region", parsed.Args["group_col"])
	assert.Equal(t, "net_revenue", parsed.Args["agg_col"])
	assert.Equal(t, "sum", parsed.Args["agg_func"])
	assert.Equal(t, 0.9, parsed.Confidence)
}

func TestParseRevenueByUnknownColumnFallsThrough(t *testing.T) {
	p := newTestParser(t)

	// "warehouse" is not a column; the revenue rule declines and nothing
	// else matches.
	parsed := p.Parse("revenue by warehouse")
	assert.Equal(t, Preview, parsed.Operation)
	assert.Equal(t, 0.5, parsed.Confidence)
}

func TestParseSeasonality(t *testing.T) {
	p := newTestParser(t)

	byRegion := p.Parse("show seasonality by region")
	require.Equal(t, PivotData, byRegion.Operation)
	assert.Equal(t, "quarter", byRegion.Args["index_col"])
	assert.Equal(t, "region", byRegion.Args["columns_col"])
	assert.Equal(t, "net_revenue", byRegion.Args["values_col"])
	assert.Equal(t, 0.85, byRegion.Confidence)

	byQuarter := p.Parse("seasonality by month")
	require.Equal(t, GroupAndAggregate, byQuarter.Operation)
	assert.Equal(t, "quarter", byQuarter.Args["group_col"])
	assert.Equal(t, 0.9, byQuarter.Confidence)
}

func TestParseRegionFilter(t *testing.T) {
	p := newTestParser(t)

	for _, q := range []string{"region is north", "region = north", "region north"} {
		parsed := p.Parse(q)
		require.Equal(t, FilterData, parsed.Operation, "query %q", q)
		assert.Equal(t, "region", parsed.Args["column"])
		assert.Equal(t, "North", parsed.Args["value"], "value is capitalized")
		assert.Equal(t, 0.9, parsed.Confidence)
	}
}

func TestParseYearFilter(t *testing.T) {
	p := newTestParser(t)

	parsed := p.Parse("show me 2023")
	require.Equal(t, FilterData, parsed.Operation)
	assert.Equal(t, "year", parsed.Args["column"])
	assert.Equal(t, 2023, parsed.Args["value"])
	assert.Equal(t, 0.85, parsed.Confidence)
}

func TestParseSortDirection(t *testing.T) {
	p := newTestParser(t)

	asc := p.Parse("sort data by units_sold")
	require.Equal(t, SortData, asc.Operation)
	assert.Equal(t, true, asc.Args["ascending"], "default direction is ascending")
	assert.Contains(t, asc.Explanation, "ascending")
	assert.Equal(t, 0.9, asc.Confidence)

	desc := p.Parse("sort data by units_sold desc")
	assert.Equal(t, false, desc.Args["ascending"])
	assert.Contains(t, desc.Explanation, "descending")

	explicit := p.Parse("sort data by units_sold asc")
	assert.Equal(t, true, explicit.Args["ascending"])
	assert.Contains(t, explicit.Explanation, "ascending")
}

func TestParseRegionalPerformance(t *testing.T) {
	p := newTestParser(t)

	parsed := p.Parse("performance across each region")
	require.Equal(t, GroupAndAggregate, parsed.Operation)
	assert.Equal(t, "region", parsed.Args["group_col"])
	assert.Equal(t, 0.8, parsed.Confidence)
}

func TestParseFallbackPreview(t *testing.T) {
	p := newTestParser(t)

	parsed := p.Parse("hello there")
	require.Equal(t, Preview, parsed.Operation)
	assert.Equal(t, 100, parsed.Args["limit"])
	assert.Equal(t, 0.5, parsed.Confidence)
}

func TestParseBlankQuery(t *testing.T) {
	p := newTestParser(t)

	parsed := p.Parse("   ")
	require.Equal(t, Preview, parsed.Operation)
	assert.Equal(t, 1.0, parsed.Confidence)
	assert.Contains(t, parsed.Explanation, "provide a query")
}
