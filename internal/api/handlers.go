package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"

	"dataexplorer-backend/internal/dataset"
	"dataexplorer-backend/internal/llm"
	"dataexplorer-backend/internal/models"
	"dataexplorer-backend/internal/query"
	"dataexplorer-backend/internal/session"
)

const MaxFileSize = 100 * 1024 * 1024 // 100MB

// Handler serves the HTTP surface over one session.
type Handler struct {
	Session     *session.Session
	LLM         *llm.Service
	SessionFile string

	dbMu      sync.Mutex
	currentDB dataset.Source
}

func NewHandler(sess *session.Session, llmSvc *llm.Service, sessionFile string) *Handler {
	return &Handler{
		Session:     sess,
		LLM:         llmSvc,
		SessionFile: sessionFile,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.HealthCheck)

	// Dataset
	r.Post("/upload", h.Upload)
	r.Get("/status", h.GetStatus)
	r.Get("/preview", h.GetPreview)
	r.Get("/column-types", h.GetColumnTypes)
	r.Get("/profile", h.GetProfile)

	// Query
	r.Post("/query", h.Query)
	r.Post("/suggestion/apply", h.ApplySuggestion)
	r.Get("/export", h.Export)

	// Session persistence
	r.Post("/session/save", h.SaveSession)
	r.Post("/session/load", h.LoadSession)
	r.Get("/session/history", h.GetHistory)
	r.Delete("/session/history", h.ClearHistory)

	// DB-backed ingestion
	r.Post("/api/db/connect", h.ConnectDB)
	r.Get("/api/db/tables", h.ListTables)
	r.Post("/api/db/load", h.LoadDBTable)

	// Config
	r.Get("/config/ollama", h.GetOllamaConfig)
}

// ============================================================================
// Health
// ============================================================================

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("OK"))
}

// ============================================================================
// Dataset
// ============================================================================

func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(MaxFileSize); err != nil {
		http.Error(w, "File too large", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "No file uploaded", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if !strings.HasSuffix(strings.ToLower(header.Filename), ".csv") {
		http.Error(w, "Only CSV files are allowed", http.StatusBadRequest)
		return
	}

	table, err := dataset.ParseCSV(file)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to parse CSV: %v", err), http.StatusBadRequest)
		return
	}

	h.setDataset(table, header.Filename)

	resp := models.UploadResponse{
		Message:     fmt.Sprintf("File '%s' uploaded successfully", header.Filename),
		Rows:        len(table.Rows),
		Columns:     len(table.Columns),
		ColumnNames: table.ColumnNames(),
	}
	writeJSON(w, resp)
}

func (h *Handler) setDataset(table *dataset.Table, name string) {
	h.Session.SetDataset(table, name)
	if h.LLM != nil {
		h.LLM.SetColumns(table.ColumnNames())
	}
}

func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	table := h.Session.Table()

	resp := models.StatusResponse{
		Loaded:      table != nil,
		DatasetName: h.Session.DatasetName(),
		HasView:     h.Session.CurrentView() != nil,
		HistorySize: len(h.Session.History()),
	}
	if table != nil {
		resp.Rows = len(table.Rows)
		resp.Columns = len(table.Columns)
	}
	writeJSON(w, resp)
}

func (h *Handler) GetPreview(w http.ResponseWriter, r *http.Request) {
	rows := getIntParam(r, "rows", 10)

	table := h.Session.Table()
	if table == nil {
		http.Error(w, "No dataset loaded", http.StatusBadRequest)
		return
	}

	writeJSON(w, table.Head(rows).Records())
}

func (h *Handler) GetColumnTypes(w http.ResponseWriter, r *http.Request) {
	table := h.Session.Table()
	if table == nil {
		http.Error(w, "No dataset loaded", http.StatusBadRequest)
		return
	}

	types := make(map[string]string, len(table.Columns))
	for _, col := range table.Columns {
		types[col.Name] = string(col.Type)
	}
	writeJSON(w, types)
}

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	table := h.Session.Table()
	if table == nil {
		http.Error(w, "No dataset loaded", http.StatusBadRequest)
		return
	}

	writeJSON(w, table.Profile())
}

// ============================================================================
// Query
// ============================================================================

func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	var req models.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	result, err := h.Session.ProcessQuery(r.Context(), req.Query)
	if err != nil {
		writeQueryError(w, err)
		return
	}

	writeJSON(w, queryResponse(result))
}

func (h *Handler) ApplySuggestion(w http.ResponseWriter, r *http.Request) {
	var parsed query.ParsedOperation
	if err := json.NewDecoder(r.Body).Decode(&parsed); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if parsed.Operation == "" {
		http.Error(w, "operation is required", http.StatusBadRequest)
		return
	}

	result, err := h.Session.ApplySuggestion(parsed)
	if err != nil {
		writeQueryError(w, err)
		return
	}

	writeJSON(w, queryResponse(result))
}

func queryResponse(result *session.Result) models.QueryResponse {
	resp := models.QueryResponse{
		Query:       result.Query,
		Primary:     result.Primary,
		Suggestions: result.Suggestions,
		Message:     result.Message,
	}
	if result.ResultTable != nil {
		resp.ResultData = &models.TableData{
			Columns: result.ResultTable.ColumnNames(),
			Records: result.ResultTable.Records(),
		}
	}
	return resp
}

func writeQueryError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, session.ErrEmptyQuery) || errors.Is(err, session.ErrNoDataset) {
		status = http.StatusBadRequest
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(models.ErrorResponse{
		Error:       err.Error(),
		Suggestions: []query.SuggestionView{},
	})
}

// ============================================================================
// Export
// ============================================================================

var exportContentTypes = map[string]string{
	dataset.FormatCSV:  "text/csv",
	dataset.FormatJSON: "application/json",
	dataset.FormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" {
		format = dataset.FormatCSV
	}

	contentType, ok := exportContentTypes[format]
	if !ok {
		http.Error(w, fmt.Sprintf("Unsupported format: %s", format), http.StatusBadRequest)
		return
	}

	data, err := h.Session.Export(format)
	if err != nil {
		if errors.Is(err, session.ErrNoCurrentView) {
			http.Error(w, "No data available to export", http.StatusNotFound)
			return
		}
		http.Error(w, fmt.Sprintf("Export failed: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="export.%s"`, format))
	w.Write(data)
}

// ============================================================================
// Session persistence
// ============================================================================

func (h *Handler) sessionPath(r *http.Request) string {
	var req models.SessionFileRequest
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}
	if req.Path != "" {
		return req.Path
	}
	return h.SessionFile
}

func (h *Handler) SaveSession(w http.ResponseWriter, r *http.Request) {
	path := h.sessionPath(r)
	if err := h.Session.Save(path); err != nil {
		http.Error(w, fmt.Sprintf("Failed to save session: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]string{"status": "saved", "path": path})
}

func (h *Handler) LoadSession(w http.ResponseWriter, r *http.Request) {
	path := h.sessionPath(r)
	if err := h.Session.Load(path); err != nil {
		http.Error(w, fmt.Sprintf("Failed to load session: %v", err), http.StatusBadRequest)
		return
	}
	writeJSON(w, map[string]string{"status": "loaded", "path": path})
}

func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, models.HistoryResponse{History: h.Session.History()})
}

func (h *Handler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	h.Session.ClearHistory()
	writeJSON(w, map[string]string{"status": "cleared"})
}

// ============================================================================
// DB-backed ingestion
// ============================================================================

func (h *Handler) ConnectDB(w http.ResponseWriter, r *http.Request) {
	var config dataset.SourceConfig
	if err := json.NewDecoder(r.Body).Decode(&config); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	ds := &dataset.PostgresSource{}
	if err := ds.Connect(config); err != nil {
		http.Error(w, fmt.Sprintf("Failed to connect: %v", err), http.StatusInternalServerError)
		return
	}

	h.dbMu.Lock()
	if h.currentDB != nil {
		h.currentDB.Close()
	}
	h.currentDB = ds
	h.dbMu.Unlock()

	writeJSON(w, map[string]string{"status": "connected"})
}

// dataSource snapshots the active DB connection.
func (h *Handler) dataSource() dataset.Source {
	h.dbMu.Lock()
	defer h.dbMu.Unlock()
	return h.currentDB
}

func (h *Handler) ListTables(w http.ResponseWriter, r *http.Request) {
	db := h.dataSource()
	if db == nil {
		http.Error(w, "No database connection", http.StatusBadRequest)
		return
	}

	tables, err := db.ListTables()
	if err != nil {
		http.Error(w, fmt.Sprintf("Error listing tables: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]interface{}{"tables": tables})
}

func (h *Handler) LoadDBTable(w http.ResponseWriter, r *http.Request) {
	db := h.dataSource()
	if db == nil {
		http.Error(w, "No database connection", http.StatusBadRequest)
		return
	}

	var req models.DBLoadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.Limit <= 0 {
		req.Limit = 10000
	}

	// Validate the table name against the catalog before interpolation.
	tables, err := db.ListTables()
	if err != nil {
		http.Error(w, fmt.Sprintf("Error listing tables: %v", err), http.StatusInternalServerError)
		return
	}
	known := false
	for _, t := range tables {
		if t == req.TableName {
			known = true
			break
		}
	}
	if !known {
		http.Error(w, fmt.Sprintf("Unknown table: %s", req.TableName), http.StatusBadRequest)
		return
	}

	table, err := db.LoadTable(req.TableName, req.Limit)
	if err != nil {
		http.Error(w, fmt.Sprintf("Error loading table: %v", err), http.StatusInternalServerError)
		return
	}

	h.setDataset(table, "db:"+req.TableName)

	resp := models.UploadResponse{
		Message:     fmt.Sprintf("Table '%s' loaded successfully", req.TableName),
		Rows:        len(table.Rows),
		Columns:     len(table.Columns),
		ColumnNames: table.ColumnNames(),
	}
	writeJSON(w, resp)
}

// ============================================================================
// Config
// ============================================================================

func (h *Handler) GetOllamaConfig(w http.ResponseWriter, r *http.Request) {
	if h.LLM == nil {
		writeJSON(w, map[string]interface{}{"enabled": false})
		return
	}
	cfg := h.LLM.ActiveConfig()
	writeJSON(w, map[string]interface{}{
		"baseUrl": cfg.BaseURL,
		"model":   cfg.Model,
		"enabled": cfg.Enabled,
	})
}

// ============================================================================
// Helpers
// ============================================================================

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("[API] failed to encode response", "error", err)
	}
}

func getIntParam(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
