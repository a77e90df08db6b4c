package query

import (
	"context"
	"log/slog"
	"strings"
)

// Generative is the optional model-backed interpreter. Parse reports
// ok=false when the model is unavailable or the call failed outright;
// malformed model output comes back ok=true with a low-confidence
// llm_error result so the acceptance threshold discards it.
type Generative interface {
	Available() bool
	Parse(ctx context.Context, query string) (ParsedOperation, bool)
}

// Coordinator orchestrates the generative interpreter (when preferred and
// confident) with the rule cascade as the authoritative fallback, and
// produces alternative interpretations keyed off trigger vocabulary.
type Coordinator struct {
	rules      *RuleParser
	generative Generative
}

// NewCoordinator wires the rule parser with an optional generative
// interpreter. generative may be nil.
func NewCoordinator(rules *RuleParser, generative Generative) *Coordinator {
	return &Coordinator{rules: rules, generative: generative}
}

// Parse returns exactly one authoritative ParsedOperation. The generative
// result wins only when preferred, available, and above the acceptance
// threshold; otherwise the rule cascade decides.
func (c *Coordinator) Parse(ctx context.Context, query string, preferGenerative bool) ParsedOperation {
	if preferGenerative && c.generative != nil && c.generative.Available() {
		if parsed, ok := c.generative.Parse(ctx, query); ok {
			if parsed.Confidence > AcceptThreshold {
				return parsed
			}
			slog.Debug("[Coordinator] generative result below threshold, using rules",
				"confidence", parsed.Confidence, "source", parsed.Source)
		}
	}
	return c.rules.Parse(query)
}

// Alternatives inspects the raw query for trigger vocabulary and returns
// up to MaxSuggestions-1 alternative interpretations from a fixed
// catalog, independent of which interpreter produced the primary.
func (c *Coordinator) Alternatives(query string) []ParsedOperation {
	q := strings.ToLower(query)
	var alts []ParsedOperation

	switch {
	case strings.Contains(q, "performance"):
		alts = []ParsedOperation{
			{
				Operation: GroupAndAggregate,
				Args: map[string]interface{}{
					"group_col": "product_category",
					"agg_col":   "net_revenue",
					"agg_func":  "sum",
				},
				Explanation: "Performance by product category",
				Confidence:  0.7,
				Source:      SourceAlternative,
			},
			{
				Operation: GroupAndAggregate,
				Args: map[string]interface{}{
					"group_col": "channel",
					"agg_col":   "units_sold",
					"agg_func":  "sum",
				},
				Explanation: "Sales performance by channel",
				Confidence:  0.6,
				Source:      SourceAlternative,
			},
		}

	case strings.Contains(q, "seasonality") && !strings.Contains(q, "region"):
		alts = []ParsedOperation{
			{
				Operation: PivotData,
				Args: map[string]interface{}{
					"index_col":   "quarter",
					"columns_col": "region",
					"values_col":  "net_revenue",
					"agg_func":    "sum",
				},
				Explanation: "Seasonal patterns across regions",
				Confidence:  0.75,
				Source:      SourceAlternative,
			},
		}

	case strings.Contains(q, "top") && strings.Contains(q, "product"):
		alts = []ParsedOperation{
			{
				Operation: GroupAndAggregate,
				Args: map[string]interface{}{
					"group_col": "product_name",
					"agg_col":   "units_sold",
					"agg_func":  "sum",
					"limit":     5,
				},
				Explanation: "Top 5 products by units sold",
				Confidence:  0.7,
				Source:      SourceAlternative,
			},
			{
				Operation: GroupAndAggregate,
				Args: map[string]interface{}{
					"group_col": "product_category",
					"agg_col":   "net_revenue",
					"agg_func":  "mean",
				},
				Explanation: "Average revenue by product category",
				Confidence:  0.6,
				Source:      SourceAlternative,
			},
		}

	case strings.Contains(q, "compare") || strings.Contains(q, "trends"):
		alts = []ParsedOperation{
			{
				Operation: GroupAndAggregate,
				Args: map[string]interface{}{
					"group_col": "year",
					"agg_col":   "net_revenue",
					"agg_func":  "sum",
				},
				Explanation: "Revenue trend by year",
				Confidence:  0.65,
				Source:      SourceAlternative,
			},
			{
				Operation: PivotData,
				Args: map[string]interface{}{
					"index_col":   "year",
					"columns_col": "region",
					"values_col":  "net_revenue",
					"agg_func":    "sum",
				},
				Explanation: "Yearly revenue across regions",
				Confidence:  0.6,
				Source:      SourceAlternative,
			},
		}
	}

	if len(alts) > MaxSuggestions-1 {
		alts = alts[:MaxSuggestions-1]
	}
	return alts
}
