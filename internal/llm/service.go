package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"dataexplorer-backend/internal/query"
)

type Config struct {
	BaseURL string
	Model   string
	Enabled bool
}

// DefaultColumns is the known column set advertised to the model before
// any dataset is loaded.
var DefaultColumns = []string{
	"date", "year", "quarter", "region", "product_name",
	"units_sold", "unit_price", "net_revenue",
}

// Service wraps the Ollama generate API as the optional generative query
// interpreter.
type Service struct {
	config Config
	client *http.Client

	mu      sync.RWMutex
	columns []string
}

func NewService(config Config) *Service {
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434"
	}
	if config.Model == "" {
		config.Model = "qwen3-vl:2b"
	}
	return &Service{
		config: config,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		columns: DefaultColumns,
	}
}

// SetColumns updates the column set enumerated in the parse prompt.
// Called when a new dataset is loaded.
func (s *Service) SetColumns(columns []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.columns = columns
}

// Available reports whether the generative interpreter may be consulted.
func (s *Service) Available() bool {
	return s != nil && s.config.Enabled
}

// ActiveConfig returns the active Ollama settings.
func (s *Service) ActiveConfig() Config {
	return s.config
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Generate calls the Ollama API with a single prompt.
func (s *Service) Generate(ctx context.Context, prompt string) (string, error) {
	reqBody := generateRequest{
		Model:  s.config.Model,
		Prompt: prompt,
		Stream: false,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.config.BaseURL+"/api/generate", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama API returned status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	var genResp generateResponse
	if err := json.Unmarshal(body, &genResp); err != nil {
		return "", err
	}

	return genResp.Response, nil
}

const parsePromptTemplate = `You are a data query assistant.
Convert user questions into valid JSON only.
Do NOT add any extra text outside JSON.

The JSON must have:
- operation: one of ["filter_data", "sort_data", "group_and_aggregate", "pivot_data", "preview", "filter_and_group"]
- args: dictionary of parameters
- explanation: short human readable summary

Available columns: %s

### Examples:

User query: "Show top 5 products by revenue"
JSON:
{"operation": "group_and_aggregate", "args": {"group_col": "product_name", "agg_col": "net_revenue", "agg_func": "sum", "limit": 5}, "explanation": "Top 5 products by revenue."}

User query: "Sales in region = North"
JSON:
{"operation": "filter_data", "args": {"column": "region", "value": "North"}, "explanation": "Filtered data for region = North."}

User query: "Revenue in 2023"
JSON:
{"operation": "filter_data", "args": {"column": "year", "value": 2023}, "explanation": "Filtered data for year 2023."}

### Respond only with JSON for the following query:

User query: "%s"
JSON:
`

var jsonObjectRegex = regexp.MustCompile(`\{[\s\S]*\}`)

// Parse asks the model to convert a query into a structured operation.
// ok=false means the model was unavailable or the call itself failed; a
// response that comes back but cannot be decoded yields a low-confidence
// llm_error result instead, so the caller's threshold rule discards it.
func (s *Service) Parse(ctx context.Context, rawQuery string) (query.ParsedOperation, bool) {
	if !s.Available() {
		return query.ParsedOperation{}, false
	}

	s.mu.RLock()
	columns := strings.Join(s.columns, ", ")
	s.mu.RUnlock()

	prompt := fmt.Sprintf(parsePromptTemplate, columns, rawQuery)

	response, err := s.Generate(ctx, prompt)
	if err != nil {
		slog.Warn("[LLM] generation failed, falling back to rules", "error", err)
		return query.ParsedOperation{}, false
	}

	return parseModelOutput(response), true
}

// parseModelOutput extracts the first brace-delimited JSON object from
// the raw generated text and decodes it into a ParsedOperation.
func parseModelOutput(output string) query.ParsedOperation {
	jsonStr := jsonObjectRegex.FindString(output)
	if jsonStr == "" {
		return malformedResult()
	}

	var decoded struct {
		Operation   string                 `json:"operation"`
		Args        map[string]interface{} `json:"args"`
		Explanation string                 `json:"explanation"`
	}
	if err := json.Unmarshal([]byte(jsonStr), &decoded); err != nil {
		slog.Warn("[LLM] failed to decode model output", "error", err)
		return malformedResult()
	}

	operation := query.OperationKind(decoded.Operation)
	if decoded.Operation == "" {
		operation = query.Preview
	}
	args := decoded.Args
	if args == nil {
		args = map[string]interface{}{}
	}
	explanation := decoded.Explanation
	if explanation == "" {
		explanation = "Model generated operation"
	}

	return query.ParsedOperation{
		Operation:   operation,
		Args:        args,
		Explanation: explanation,
		Confidence:  0.8,
		Source:      query.SourceLLM,
	}
}

func malformedResult() query.ParsedOperation {
	return query.ParsedOperation{
		Operation:   query.Preview,
		Args:        map[string]interface{}{},
		Explanation: "Could not parse model response",
		Confidence:  0.1,
		Source:      query.SourceLLMError,
	}
}
