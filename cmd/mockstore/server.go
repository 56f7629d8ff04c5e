package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// server answers the PostgREST subset the storefront uses under
// /rest/v1/{table}.
type server struct {
	tables *tables
	logger *log.Logger
	apiKey string
}

func newRouter(s *server) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(s.requireAPIKey)

	r.Get("/rest/v1/{table}", s.handleSelect)
	r.Post("/rest/v1/{table}", s.handleInsert)
	r.Patch("/rest/v1/{table}", s.handleUpdate)
	r.Delete("/rest/v1/{table}", s.handleDelete)
	return r
}

func (s *server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"query", r.URL.RawQuery,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

func (s *server) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey != "" && r.Header.Get("apikey") != s.apiKey {
			writeError(w, http.StatusUnauthorized, "PGRST301", "No API key found in request")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *server) handleSelect(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")
	query := r.URL.Query()

	rows, ok := s.tables.selectRows(table, parseFilters(query), query.Get("order"))
	if !ok {
		writeUnknownTable(w, table)
		return
	}

	total := len(rows)
	offset, limit := parseRange(r.Header.Get("Range"))
	if offset > len(rows) {
		offset = len(rows)
	}
	rows = rows[offset:]
	if limit >= 0 && limit < len(rows) {
		rows = rows[:limit]
	}

	if strings.Contains(r.Header.Get("Prefer"), "count=exact") {
		w.Header().Set("Content-Range", contentRange(offset, len(rows), total))
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *server) handleInsert(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")

	payload, err := decodeRows(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "PGRST102", err.Error())
		return
	}

	rows, ok := s.tables.insert(table, payload, r.URL.Query().Get("on_conflict"))
	if !ok {
		writeUnknownTable(w, table)
		return
	}
	writeJSON(w, http.StatusCreated, rows)
}

func (s *server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")

	filters := parseFilters(r.URL.Query())
	if len(filters) == 0 {
		writeError(w, http.StatusBadRequest, "21000", "UPDATE requires a WHERE clause")
		return
	}

	var patch row
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "PGRST102", "invalid JSON body: "+err.Error())
		return
	}

	rows, ok := s.tables.update(table, filters, patch)
	if !ok {
		writeUnknownTable(w, table)
		return
	}
	if rows == nil {
		rows = []row{}
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *server) handleDelete(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")

	filters := parseFilters(r.URL.Query())
	if len(filters) == 0 {
		writeError(w, http.StatusBadRequest, "21000", "DELETE requires a WHERE clause")
		return
	}

	n, ok := s.tables.remove(table, filters)
	if !ok {
		writeUnknownTable(w, table)
		return
	}
	s.logger.Debug("rows deleted", "table", table, "count", n)
	w.WriteHeader(http.StatusNoContent)
}

// decodeRows accepts a single JSON object or an array of them.
func decodeRows(r *http.Request) ([]row, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("invalid JSON body: %w", err)
	}

	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "[") {
		var rows []row
		if err := json.Unmarshal(raw, &rows); err != nil {
			return nil, fmt.Errorf("invalid JSON body: %w", err)
		}
		return rows, nil
	}

	var one row
	if err := json.Unmarshal(raw, &one); err != nil {
		return nil, fmt.Errorf("invalid JSON body: %w", err)
	}
	return []row{one}, nil
}

// parseRange reads a "Range: 0-9" header. A missing or malformed header
// means no limit.
func parseRange(header string) (offset, limit int) {
	from, to, ok := strings.Cut(header, "-")
	if !ok {
		return 0, -1
	}
	start, err := strconv.Atoi(strings.TrimSpace(from))
	if err != nil || start < 0 {
		return 0, -1
	}
	end, err := strconv.Atoi(strings.TrimSpace(to))
	if err != nil || end < start {
		return start, -1
	}
	return start, end - start + 1
}

func contentRange(offset, n, total int) string {
	if n == 0 {
		return fmt.Sprintf("*/%d", total)
	}
	return fmt.Sprintf("%d-%d/%d", offset, offset+n-1, total)
}

func writeUnknownTable(w http.ResponseWriter, table string) {
	writeError(w, http.StatusNotFound, "42P01", fmt.Sprintf("relation \"public.%s\" does not exist", table))
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{
		"code":    code,
		"message": message,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
