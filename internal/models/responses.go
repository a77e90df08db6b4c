package models

import (
	"dataexplorer-backend/internal/query"
	"dataexplorer-backend/internal/session"
)

// UploadResponse is returned after successful dataset ingestion
type UploadResponse struct {
	Message     string   `json:"message"`
	Rows        int      `json:"rows"`
	Columns     int      `json:"columns"`
	ColumnNames []string `json:"column_names"`
}

// StatusResponse is returned by /status
type StatusResponse struct {
	Loaded      bool   `json:"loaded"`
	DatasetName string `json:"dataset_name,omitempty"`
	Rows        int    `json:"rows"`
	Columns     int    `json:"columns"`
	HasView     bool   `json:"has_view"`
	HistorySize int    `json:"history_size"`
}

// TableData is the record-oriented wire encoding of a result table
type TableData struct {
	Columns []string                 `json:"columns"`
	Records []map[string]interface{} `json:"records"`
}

// QueryRequest for /query
type QueryRequest struct {
	Query string `json:"query"`
}

// QueryResponse for /query and /suggestion/apply
type QueryResponse struct {
	Query       string                 `json:"query"`
	Primary     query.ParsedOperation  `json:"primary"`
	Suggestions []query.SuggestionView `json:"suggestions"`
	ResultData  *TableData             `json:"result_data"`
	Message     string                 `json:"message"`
}

// ErrorResponse is the shape of hard query-level failures
type ErrorResponse struct {
	Error       string                 `json:"error"`
	Suggestions []query.SuggestionView `json:"suggestions"`
}

// SessionFileRequest for /session/save and /session/load
type SessionFileRequest struct {
	Path string `json:"path,omitempty"`
}

// HistoryResponse for /session/history
type HistoryResponse struct {
	History []session.HistoryEntry `json:"history"`
}

// DBLoadRequest for /api/db/load
type DBLoadRequest struct {
	TableName string `json:"table_name"`
	Limit     int    `json:"limit,omitempty"`
}
