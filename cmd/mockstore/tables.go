package main

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"maps"
	"path"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

type row = map[string]any

// tables is an in-memory copy of the Catalog Store, one slice of rows per
// table.
type tables struct {
	mu     sync.RWMutex
	rows   map[string][]row
	nextID map[string]int
	now    func() time.Time
}

// loadTables reads every testdata/<table>.json file of fsys.
func loadTables(fsys fs.FS) (*tables, error) {
	files, err := fs.Glob(fsys, "testdata/*.json")
	if err != nil {
		return nil, err
	}

	t := &tables{
		rows:   make(map[string][]row, len(files)),
		nextID: make(map[string]int, len(files)),
		now:    time.Now,
	}
	for _, file := range files {
		data, err := fs.ReadFile(fsys, file)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", file, err)
		}
		var rows []row
		if err := json.Unmarshal(data, &rows); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", file, err)
		}

		name := strings.TrimSuffix(path.Base(file), ".json")
		t.rows[name] = rows
		for _, r := range rows {
			if id, ok := r["id"].(float64); ok && int(id) > t.nextID[name] {
				t.nextID[name] = int(id)
			}
		}
	}
	return t, nil
}

func (t *tables) counts() map[string]int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[string]int, len(t.rows))
	for name, rows := range t.rows {
		out[name] = len(rows)
	}
	return out
}

// ============================================
// Filters and ordering
// ============================================

// filter is one PostgREST horizontal filter, e.g. active=eq.true.
type filter struct {
	column string
	op     string
	value  string
}

var reservedParams = map[string]bool{
	"select":      true,
	"order":       true,
	"limit":       true,
	"offset":      true,
	"on_conflict": true,
	"columns":     true,
}

// parseFilters extracts the eq. and ilike. filters of a query string.
func parseFilters(query map[string][]string) []filter {
	var out []filter
	for column, values := range query {
		if reservedParams[column] {
			continue
		}
		for _, v := range values {
			op, value, ok := strings.Cut(v, ".")
			if !ok {
				continue
			}
			switch op {
			case "eq", "ilike":
				out = append(out, filter{column: column, op: op, value: value})
			}
		}
	}
	return out
}

func (f filter) match(r row) bool {
	cell := cellString(r[f.column])
	switch f.op {
	case "eq":
		return cell == f.value
	case "ilike":
		needle := strings.ToLower(strings.Trim(f.value, "*%"))
		return strings.Contains(strings.ToLower(cell), needle)
	}
	return true
}

func matchAll(r row, filters []filter) bool {
	for _, f := range filters {
		if !f.match(r) {
			return false
		}
	}
	return true
}

func cellString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}

// sortRows applies the first clause of a PostgREST order parameter, e.g.
// "created_at.desc".
func sortRows(rows []row, order string) {
	if order == "" {
		return
	}
	clause, _, _ := strings.Cut(order, ",")
	column, dir, _ := strings.Cut(clause, ".")
	desc := strings.HasPrefix(dir, "desc")

	sort.SliceStable(rows, func(i, j int) bool {
		if desc {
			return lessCell(rows[j][column], rows[i][column])
		}
		return lessCell(rows[i][column], rows[j][column])
	})
}

func lessCell(a, b any) bool {
	fa, aok := a.(float64)
	fb, bok := b.(float64)
	if aok && bok {
		return fa < fb
	}
	return cellString(a) < cellString(b)
}

// ============================================
// Operations
// ============================================

func (t *tables) selectRows(table string, filters []filter, order string) ([]row, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	rows, ok := t.rows[table]
	if !ok {
		return nil, false
	}

	out := make([]row, 0, len(rows))
	for _, r := range rows {
		if matchAll(r, filters) {
			out = append(out, maps.Clone(r))
		}
	}
	sortRows(out, order)
	return out, true
}

// insert adds payload rows. With onConflict set, a payload row whose
// onConflict column matches an existing row is merged into it instead.
func (t *tables) insert(table string, payload []row, onConflict string) ([]row, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rows, ok := t.rows[table]
	if !ok {
		return nil, false
	}

	out := make([]row, 0, len(payload))
	for _, p := range payload {
		if onConflict != "" {
			if i := indexOf(rows, onConflict, p[onConflict]); i >= 0 {
				id := rows[i]["id"]
				maps.Copy(rows[i], p)
				rows[i]["id"] = id
				out = append(out, maps.Clone(rows[i]))
				continue
			}
		}

		r := maps.Clone(p)
		t.nextID[table]++
		r["id"] = float64(t.nextID[table])
		if _, ok := r["created_at"]; !ok {
			r["created_at"] = t.now().UTC().Format(time.RFC3339)
		}
		rows = append(rows, r)
		out = append(out, maps.Clone(r))
	}
	t.rows[table] = rows
	return out, true
}

func indexOf(rows []row, column string, value any) int {
	want := cellString(value)
	if want == "" {
		return -1
	}
	for i, r := range rows {
		if cellString(r[column]) == want {
			return i
		}
	}
	return -1
}

// update merges patch into every row matching filters. The id column is
// never changed.
func (t *tables) update(table string, filters []filter, patch row) ([]row, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rows, ok := t.rows[table]
	if !ok {
		return nil, false
	}

	var out []row
	for _, r := range rows {
		if !matchAll(r, filters) {
			continue
		}
		id := r["id"]
		maps.Copy(r, patch)
		r["id"] = id
		out = append(out, maps.Clone(r))
	}
	return out, true
}

// remove deletes every row matching filters and returns how many went.
func (t *tables) remove(table string, filters []filter) (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rows, ok := t.rows[table]
	if !ok {
		return 0, false
	}

	kept := rows[:0]
	for _, r := range rows {
		if !matchAll(r, filters) {
			kept = append(kept, r)
		}
	}
	t.rows[table] = kept
	return len(rows) - len(kept), true
}
