package query

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"dataexplorer-backend/internal/dataset"
)

// ============================================================================
// Rule-Based Parser
// ============================================================================
// An ordered, first-match-wins cascade of (pattern, builder) pairs. Each
// builder produces a fixed operation shape with a fixed confidence
// constant; a builder may decline (unknown column, no dataset) and let
// the cascade continue. Parse never fails: an unmatched query falls back
// to a data preview.
// ============================================================================

// RuleParser converts a raw query string into a ParsedOperation using
// trigger patterns over a known column set.
type RuleParser struct {
	columns map[string]bool
	table   *dataset.Table
}

// NewRuleParser builds a parser over the given columns. The table is
// optional; rules that need data context (latest quarter) decline
// without it.
func NewRuleParser(columns []string, table *dataset.Table) *RuleParser {
	set := make(map[string]bool, len(columns))
	for _, c := range columns {
		set[strings.ToLower(c)] = true
	}
	return &RuleParser{columns: set, table: table}
}

type rule struct {
	name    string
	pattern *regexp.Regexp
	build   func(p *RuleParser, m []string) (ParsedOperation, bool)
}

// Cascade order is part of the contract: earlier rules are more specific
// and win over later ones.
var rules = []rule{
	{
		name:    "top_products",
		pattern: regexp.MustCompile(`(?i)top\s+(\d+)?\s*products?(?:\s+this\s+quarter)?(?:\s+in\s+(\d{4}))?`),
		build:   buildTopProducts,
	},
	{
		name:    "revenue_by",
		pattern: regexp.MustCompile(`(?i)revenue\s+.*by\s+(\w+)`),
		build:   buildRevenueBy,
	},
	{
		name:    "revenue_by_region",
		pattern: regexp.MustCompile(`(?i)revenue\s+.*by\s+region`),
		build:   buildRevenueByRegion,
	},
	{
		name:    "seasonality",
		pattern: regexp.MustCompile(`(?i)season(?:ality|al)?\s*.*by\s+(\w+)`),
		build:   buildSeasonality,
	},
	{
		name:    "region_filter",
		pattern: regexp.MustCompile(`(?i)region\s*(?:=|is)?\s*([a-z]+)`),
		build:   buildRegionFilter,
	},
	{
		name:    "year_filter",
		pattern: regexp.MustCompile(`\b(20\d{2})\b`),
		build:   buildYearFilter,
	},
	{
		name:    "sort_by",
		pattern: regexp.MustCompile(`(?i)sort\s+.*by\s+(\w+)\s*(desc|asc)?`),
		build:   buildSortBy,
	},
	{
		name:    "regional_performance",
		pattern: regexp.MustCompile(`(?i)performance\s+.*region`),
		build:   buildRegionalPerformance,
	},
}

// Parse classifies a query through the cascade. Always returns a value.
func (p *RuleParser) Parse(query string) ParsedOperation {
	query = strings.TrimSpace(query)

	if query == "" {
		return ParsedOperation{
			Operation:   Preview,
			Args:        map[string]interface{}{},
			Explanation: "Please provide a query to analyze your data",
			Confidence:  1.0,
			Source:      SourceRule,
		}
	}

	for _, r := range rules {
		m := r.pattern.FindStringSubmatch(query)
		if m == nil {
			continue
		}
		if parsed, ok := r.build(p, m); ok {
			return parsed
		}
	}

	return ParsedOperation{
		Operation:   Preview,
		Args:        map[string]interface{}{"limit": 100},
		Explanation: "Showing data overview - try asking about revenue, regions, or top products",
		Confidence:  0.5,
		Source:      SourceRule,
	}
}

func buildTopProducts(p *RuleParser, m []string) (ParsedOperation, bool) {
	if p.table == nil {
		return ParsedOperation{}, false
	}
	latest, ok := p.table.MaxValue("quarter")
	if !ok {
		return ParsedOperation{}, false
	}

	n := 5
	if m[1] != "" {
		n, _ = strconv.Atoi(m[1])
	}

	filters := []interface{}{
		map[string]interface{}{"column": "quarter", "value": latest},
	}
	explanation := fmt.Sprintf("Top %d products by revenue in quarter %s", n, latest)
	if m[2] != "" {
		year, _ := strconv.Atoi(m[2])
		filters = append(filters, map[string]interface{}{"column": "year", "value": year})
		explanation += fmt.Sprintf(" of %d", year)
	}

	return ParsedOperation{
		Operation: FilterAndGroup,
		Args: map[string]interface{}{
			"filters":   filters,
			"group_col": "product_name",
			"agg_col":   "net_revenue",
			"agg_func":  "sum",
			"limit":     n,
			"sort":      "desc",
		},
		Explanation: explanation,
		Confidence:  0.95,
		Source:      SourceRule,
	}, true
}

func buildRevenueBy(p *RuleParser, m []string) (ParsedOperation, bool) {
	groupBy := strings.ToLower(m[1])
	if !p.columns[groupBy] {
		return ParsedOperation{}, false
	}
	return ParsedOperation{
		Operation: GroupAndAggregate,
		Args: map[string]interface{}{
			"group_col": groupBy,
			"agg_col":   "net_revenue",
			"agg_func":  "sum",
		},
		Explanation: "Revenue by " + titleCase(groupBy),
		Confidence:  0.9,
		Source:      SourceRule,
	}, true
}

func buildRevenueByRegion(p *RuleParser, m []string) (ParsedOperation, bool) {
	return ParsedOperation{
		Operation: GroupAndAggregate,
		Args: map[string]interface{}{
			"group_col": "region",
			"agg_col":   "net_revenue",
			"agg_func":  "sum",
		},
		Explanation: "Revenue breakdown by region",
		Confidence:  0.9,
		Source:      SourceRule,
	}, true
}

func buildSeasonality(p *RuleParser, m []string) (ParsedOperation, bool) {
	groupBy := strings.ToLower(m[1])

	if groupBy == "region" || groupBy == "regions" {
		return ParsedOperation{
			Operation: PivotData,
			Args: map[string]interface{}{
				"index_col":   "quarter",
				"columns_col": "region",
				"values_col":  "net_revenue",
				"agg_func":    "sum",
			},
			Explanation: "Seasonal revenue patterns by region and quarter",
			Confidence:  0.85,
			Source:      SourceRule,
		}, true
	}

	return ParsedOperation{
		Operation: GroupAndAggregate,
		Args: map[string]interface{}{
			"group_col": "quarter",
			"agg_col":   "net_revenue",
			"agg_func":  "sum",
		},
		Explanation: "Seasonal revenue by quarter",
		Confidence:  0.9,
		Source:      SourceRule,
	}, true
}

func buildRegionFilter(p *RuleParser, m []string) (ParsedOperation, bool) {
	region := capitalize(m[1])
	return ParsedOperation{
		Operation: FilterData,
		Args: map[string]interface{}{
			"column": "region",
			"value":  region,
		},
		Explanation: fmt.Sprintf("Data filtered for %s region", region),
		Confidence:  0.9,
		Source:      SourceRule,
	}, true
}

func buildYearFilter(p *RuleParser, m []string) (ParsedOperation, bool) {
	year, _ := strconv.Atoi(m[1])
	return ParsedOperation{
		Operation: FilterData,
		Args: map[string]interface{}{
			"column": "year",
			"value":  year,
		},
		Explanation: fmt.Sprintf("Data filtered for year %d", year),
		Confidence:  0.85,
		Source:      SourceRule,
	}, true
}

func buildSortBy(p *RuleParser, m []string) (ParsedOperation, bool) {
	column := strings.ToLower(m[1])
	if !p.columns[column] {
		return ParsedOperation{}, false
	}

	// Ascending unless the query literally says "desc"; the explanation
	// always names the executed direction.
	ascending := strings.ToLower(m[2]) != "desc"
	direction := "descending"
	if ascending {
		direction = "ascending"
	}

	return ParsedOperation{
		Operation: SortData,
		Args: map[string]interface{}{
			"column":    column,
			"ascending": ascending,
		},
		Explanation: fmt.Sprintf("Sort by %s %s", titleCase(column), direction),
		Confidence:  0.9,
		Source:      SourceRule,
	}, true
}

func buildRegionalPerformance(p *RuleParser, m []string) (ParsedOperation, bool) {
	return ParsedOperation{
		Operation: GroupAndAggregate,
		Args: map[string]interface{}{
			"group_col": "region",
			"agg_col":   "net_revenue",
			"agg_func":  "sum",
		},
		Explanation: "Performance comparison by region",
		Confidence:  0.8,
		Source:      SourceRule,
	}, true
}

// titleCase renders a column name for humans: "product_name" -> "Product Name".
func titleCase(col string) string {
	words := strings.Split(strings.ReplaceAll(col, "_", " "), " ")
	for i, w := range words {
		words[i] = capitalize(w)
	}
	return strings.Join(words, " ")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
