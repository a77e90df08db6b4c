package query

// OperationKind identifies a structured table operation. The set is
// closed: every interpreter output maps to one of these.
type OperationKind string

const (
	GroupAndAggregate OperationKind = "group_and_aggregate"
	FilterData        OperationKind = "filter_data"
	SortData          OperationKind = "sort_data"
	PivotData         OperationKind = "pivot_data"
	FilterAndGroup    OperationKind = "filter_and_group"
	Preview           OperationKind = "preview"
)

// Interpretation sources.
const (
	SourceRule        = "rule"
	SourceLLM         = "llm"
	SourceLLMError    = "llm_error"
	SourceAlternative = "alternative"
)

// MaxSuggestions caps the total interpretations (primary + alternatives)
// returned for one query.
const MaxSuggestions = 3

// AcceptThreshold is the minimum generative-interpreter confidence at
// which its result takes precedence over the rule cascade.
const AcceptThreshold = 0.6

// ParsedOperation is a structured, executable request derived from free
// text, with a human-readable explanation and the interpreter's
// confidence. It is a value object: built once, never mutated.
type ParsedOperation struct {
	Operation   OperationKind          `json:"operation"`
	Args        map[string]interface{} `json:"args"`
	Explanation string                 `json:"explanation"`
	Confidence  float64                `json:"confidence"`
	Source      string                 `json:"source"`
}
