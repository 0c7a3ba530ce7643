// handlers/query_handler.go
package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/cruscotto/pipeline/database"
)

// QueryHandler exposes the columnar store to the dashboard over JSON.
// It is read-only: the pipeline writes, the dashboard queries.
type QueryHandler struct {
	Store *database.Store
}

func NewQueryHandler(store *database.Store) *QueryHandler {
	return &QueryHandler{Store: store}
}

// Register mounts all query endpoints on the mux.
func (h *QueryHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/health", h.Health)
	mux.HandleFunc("/api/tables", h.ListTables)
	mux.HandleFunc("/api/tables/", h.GetTable)
	mux.HandleFunc("/api/query", h.Query)
	mux.HandleFunc("/api/coverage", h.Coverage)
	mux.HandleFunc("/api/stats", h.Stats)
}

func (h *QueryHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *QueryHandler) ListTables(w http.ResponseWriter, r *http.Request) {
	type entry struct {
		Name string `json:"name"`
		Info any    `json:"info,omitempty"`
	}
	var out []entry
	for _, name := range h.Store.Tables() {
		info, _ := h.Store.Info(name)
		out = append(out, entry{Name: name, Info: info})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *QueryHandler) GetTable(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/api/tables/")
	name = strings.Trim(name, "/")
	if name == "" {
		http.Error(w, `{"error": "table name required"}`, http.StatusBadRequest)
		return
	}

	var rows []map[string]any
	var err error
	if r.URL.Query().Get("reload") == "true" {
		rows, err = h.Store.ReloadTable(name)
	} else {
		rows, err = h.Store.Table(name)
	}
	if err != nil {
		log.Printf("GetTable %s failed: %v", name, err)
		http.Error(w, `{"error": "table not found"}`, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// Query runs a filtered query. Reserved parameters: table, date_column,
// start_date, end_date, columns. Any other parameter is a column filter;
// repeating it gives membership semantics.
func (h *QueryHandler) Query(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	table := params.Get("table")
	if table == "" {
		http.Error(w, `{"error": "table parameter required"}`, http.StatusBadRequest)
		return
	}

	q := database.Query{
		Table:      table,
		DateColumn: params.Get("date_column"),
		StartDate:  params.Get("start_date"),
		EndDate:    params.Get("end_date"),
		Filters:    map[string]any{},
	}
	if cols := params.Get("columns"); cols != "" {
		q.Columns = strings.Split(cols, ",")
	}

	reserved := map[string]bool{
		"table": true, "date_column": true, "start_date": true,
		"end_date": true, "columns": true, "reload": true,
	}
	for key, values := range params {
		if reserved[key] || len(values) == 0 {
			continue
		}
		if len(values) == 1 {
			q.Filters[key] = values[0]
		} else {
			q.Filters[key] = values
		}
	}

	rows, err := h.Store.Run(q)
	if err != nil {
		log.Printf("Query on %s failed: %v", table, err)
		http.Error(w, `{"error": "query failed"}`, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (h *QueryHandler) Coverage(w http.ResponseWriter, r *http.Request) {
	table := r.URL.Query().Get("table")
	if table == "" {
		http.Error(w, `{"error": "table parameter required"}`, http.StatusBadRequest)
		return
	}

	coverage, err := h.Store.TemporalCoverage(table)
	if err != nil {
		log.Printf("Coverage on %s failed: %v", table, err)
		http.Error(w, `{"error": "coverage failed"}`, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, coverage)
}

func (h *QueryHandler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Store.Stats())
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("Failed to encode JSON response: %v", err)
	}
}
