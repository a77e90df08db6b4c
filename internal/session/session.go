package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"dataexplorer-backend/internal/dataset"
	"dataexplorer-backend/internal/engine"
	"dataexplorer-backend/internal/query"
)

// Hard errors surfaced to the caller. Everything else degrades: bad
// interpretations fall back to preview, execution failures become an
// absent result table.
var (
	ErrEmptyQuery    = errors.New("Please enter a query to analyze your data")
	ErrNoDataset     = errors.New("No dataset loaded. Please upload a CSV file first.")
	ErrNoCurrentView = errors.New("no current view to export")
)

// HistoryEntry records one processed query.
type HistoryEntry struct {
	ID        string                `json:"id"`
	Query     string                `json:"query"`
	Operation query.ParsedOperation `json:"operation"`
	Timestamp time.Time             `json:"timestamp"`
}

// Result is the outcome of one query: the authoritative interpretation,
// the ranked suggestion views (primary first), and the executed table
// when execution succeeded.
type Result struct {
	Query       string                 `json:"query"`
	Primary     query.ParsedOperation  `json:"primary"`
	Suggestions []query.SuggestionView `json:"suggestions"`
	ResultTable *dataset.Table         `json:"-"`
	Message     string                 `json:"message"`
}

// Session owns the active dataset, the current result view, and the
// query history. One query is fully parsed and executed before the next;
// the mutex keeps the HTTP surface safe regardless.
type Session struct {
	mu sync.RWMutex

	id               string
	generative       query.Generative
	preferGenerative bool

	table       *dataset.Table
	coordinator *query.Coordinator
	currentView *dataset.Table
	history     []HistoryEntry
	lastResult  *Result
	datasetName string
}

// New creates an empty session. generative may be nil; preferGenerative
// controls whether it is consulted before the rule cascade.
func New(generative query.Generative, preferGenerative bool) *Session {
	s := &Session{
		id:               uuid.NewString(),
		generative:       generative,
		preferGenerative: preferGenerative,
	}
	s.coordinator = query.NewCoordinator(query.NewRuleParser(nil, nil), generative)
	return s
}

func (s *Session) ID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id
}

// SetDataset replaces the active table wholesale and rebuilds the
// interpreter over the new column set. The current view is dropped;
// history is kept.
func (s *Session) SetDataset(t *dataset.Table, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.table = t
	s.datasetName = name
	s.currentView = nil
	s.lastResult = nil
	s.coordinator = query.NewCoordinator(query.NewRuleParser(t.ColumnNames(), t), s.generative)

	slog.Info("[Session] dataset loaded", "name", name, "rows", len(t.Rows), "columns", len(t.Columns))
}

// Table returns the active dataset, or nil.
func (s *Session) Table() *dataset.Table {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table
}

// CurrentView returns the most recently executed result table, or nil.
func (s *Session) CurrentView() *dataset.Table {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentView
}

// DatasetName returns the name recorded with the active dataset.
func (s *Session) DatasetName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.datasetName
}

// History returns a copy of the query history.
func (s *Session) History() []HistoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]HistoryEntry, len(s.history))
	copy(out, s.history)
	return out
}

// ClearHistory drops all history entries.
func (s *Session) ClearHistory() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
}

// LastResult returns the result of the most recent query, or nil.
func (s *Session) LastResult() *Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastResult
}

// ProcessQuery parses, executes, and formats one natural-language query.
// Only an empty query or a missing dataset produce an error; execution
// failure leaves ResultTable nil and the interaction succeeds.
func (s *Session) ProcessQuery(ctx context.Context, rawQuery string) (*Result, error) {
	trimmed := strings.TrimSpace(rawQuery)
	if trimmed == "" {
		return nil, ErrEmptyQuery
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.table == nil {
		return nil, ErrNoDataset
	}

	primary := s.coordinator.Parse(ctx, trimmed, s.preferGenerative)

	suggestions := []query.SuggestionView{query.FormatSuggestion(primary)}
	for _, alt := range s.coordinator.Alternatives(trimmed) {
		if len(suggestions) >= query.MaxSuggestions {
			break
		}
		suggestions = append(suggestions, query.FormatSuggestion(alt))
	}

	resultTable, err := engine.Execute(primary, s.table)
	if err != nil {
		slog.Error("[Session] operation execution failed", "operation", primary.Operation, "error", err)
		resultTable = nil
	} else {
		s.currentView = resultTable
	}

	s.history = append(s.history, HistoryEntry{
		ID:        uuid.NewString(),
		Query:     trimmed,
		Operation: primary,
		Timestamp: time.Now().UTC(),
	})

	result := &Result{
		Query:       trimmed,
		Primary:     primary,
		Suggestions: suggestions,
		ResultTable: resultTable,
		Message:     fmt.Sprintf("Found %d interpretation(s) for: '%s'", len(suggestions), trimmed),
	}
	s.lastResult = result
	return result, nil
}

// ApplySuggestion re-executes a previously offered interpretation and
// promotes it to the primary of the last result. Query text, suggestion
// list, and history are retained.
func (s *Session) ApplySuggestion(parsed query.ParsedOperation) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.table == nil {
		return nil, ErrNoDataset
	}

	resultTable, err := engine.Execute(parsed, s.table)
	if err != nil {
		slog.Error("[Session] suggestion execution failed", "operation", parsed.Operation, "error", err)
		resultTable = nil
	} else {
		s.currentView = resultTable
	}

	if s.lastResult == nil {
		s.lastResult = &Result{Query: "", Suggestions: []query.SuggestionView{query.FormatSuggestion(parsed)}}
	}
	s.lastResult.Primary = parsed
	s.lastResult.ResultTable = resultTable
	s.lastResult.Message = fmt.Sprintf("Applied: %s", parsed.Explanation)
	return s.lastResult, nil
}

// Export serializes the current view in the requested format.
func (s *Session) Export(format string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.currentView == nil {
		return nil, ErrNoCurrentView
	}
	return dataset.Export(s.currentView, format)
}

