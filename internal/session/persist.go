package session

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"dataexplorer-backend/internal/dataset"
	"dataexplorer-backend/internal/query"
)

// persistedTable is the record-oriented table encoding used on disk.
type persistedTable struct {
	Columns []dataset.Column         `json:"columns"`
	Records []map[string]interface{} `json:"records"`
}

type persistedResult struct {
	Query       string                 `json:"query"`
	Primary     query.ParsedOperation  `json:"primary"`
	Suggestions []query.SuggestionView `json:"suggestions"`
	Message     string                 `json:"message"`
	ResultTable *persistedTable        `json:"result_table,omitempty"`
}

type sessionDocument struct {
	SessionID  string           `json:"session_id"`
	SavedAt    time.Time        `json:"saved_at"`
	History    []HistoryEntry   `json:"history"`
	LastResult *persistedResult `json:"last_result,omitempty"`
}

// Save writes {history, last_result} to a JSON document.
func (s *Session) Save(path string) error {
	s.mu.RLock()
	doc := sessionDocument{
		SessionID: s.id,
		SavedAt:   time.Now().UTC(),
		History:   s.history,
	}
	if s.lastResult != nil {
		pr := &persistedResult{
			Query:       s.lastResult.Query,
			Primary:     s.lastResult.Primary,
			Suggestions: s.lastResult.Suggestions,
			Message:     s.lastResult.Message,
		}
		if s.lastResult.ResultTable != nil {
			pr.ResultTable = &persistedTable{
				Columns: s.lastResult.ResultTable.Columns,
				Records: s.lastResult.ResultTable.Records(),
			}
		}
		doc.LastResult = pr
	}
	s.mu.RUnlock()

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create session directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}

	slog.Info("[Session] saved", "path", path, "history_entries", len(doc.History))
	return nil
}

// Load restores history and the last result from a saved document. The
// last result's table is reconstructed from its record encoding and
// becomes the current view again.
func (s *Session) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read session file: %w", err)
	}

	var doc sessionDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to decode session file: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = doc.History
	s.lastResult = nil
	if doc.LastResult != nil {
		result := &Result{
			Query:       doc.LastResult.Query,
			Primary:     doc.LastResult.Primary,
			Suggestions: doc.LastResult.Suggestions,
			Message:     doc.LastResult.Message,
		}
		if doc.LastResult.ResultTable != nil {
			table := dataset.FromRecords(doc.LastResult.ResultTable.Columns, doc.LastResult.ResultTable.Records)
			result.ResultTable = table
			s.currentView = table
		}
		s.lastResult = result
	}

	slog.Info("[Session] restored", "path", path, "history_entries", len(s.history))
	return nil
}
