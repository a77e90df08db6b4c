package query

import "fmt"

// SuggestionView is a presentation-ready rendering of a ParsedOperation.
type SuggestionView struct {
	Title           string                 `json:"title"`
	Description     string                 `json:"description"`
	Confidence      float64                `json:"confidence"`
	ConfidenceLabel string                 `json:"confidence_label"`
	Operation       OperationKind          `json:"operation"`
	Args            map[string]interface{} `json:"args"`
	Source          string                 `json:"source"`
	Executable      bool                   `json:"executable"`
}

// FormatSuggestion turns a ParsedOperation into a SuggestionView. Pure,
// independent of any data.
func FormatSuggestion(parsed ParsedOperation) SuggestionView {
	return SuggestionView{
		Title:           operationTitle(parsed),
		Description:     parsed.Explanation,
		Confidence:      parsed.Confidence,
		ConfidenceLabel: ConfidenceLabel(parsed.Confidence),
		Operation:       parsed.Operation,
		Args:            parsed.Args,
		Source:          parsed.Source,
		Executable:      true,
	}
}

// ConfidenceLabel partitions a confidence score into a display label.
func ConfidenceLabel(confidence float64) string {
	switch {
	case confidence >= 0.8:
		return "High"
	case confidence >= 0.6:
		return "Medium"
	default:
		return "Low"
	}
}

func operationTitle(parsed ParsedOperation) string {
	args := parsed.Args

	switch parsed.Operation {
	case GroupAndAggregate, FilterAndGroup:
		groupCol := argString(args, "group_col", "data")
		if limit, ok := argInt(args, "limit"); ok {
			return fmt.Sprintf("Top %d %s", limit, titleCase(groupCol))
		}
		return "Analyze by " + titleCase(groupCol)

	case FilterData:
		column := argString(args, "column", "data")
		value := args["value"]
		if value == nil {
			value = "value"
		}
		return fmt.Sprintf("Filter: %s = %v", titleCase(column), value)

	case SortData:
		return "Sort by " + titleCase(argString(args, "column", "data"))

	case PivotData:
		indexCol := argString(args, "index_col", "rows")
		columnsCol := argString(args, "columns_col", "columns")
		return fmt.Sprintf("Pivot: %s vs %s", titleCase(indexCol), titleCase(columnsCol))

	default:
		return "Data Overview"
	}
}

func argString(args map[string]interface{}, key, fallback string) string {
	if v, ok := args[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

func argInt(args map[string]interface{}, key string) (int, bool) {
	switch v := args[key].(type) {
	case int:
		return v, true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
