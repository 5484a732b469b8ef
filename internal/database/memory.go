package database

import (
	"context"
	"sync"

	"github.com/fluxbase-eu/filterable/internal/catalog"
	"github.com/fluxbase-eu/filterable/internal/query"
)

// MemoryExecutor evaluates conditions against rows held in memory. It backs
// the tests and the server when no database is configured.
type MemoryExecutor struct {
	mu     sync.RWMutex
	tables map[string][]query.Row
}

// NewMemoryExecutor creates an empty in-memory executor
func NewMemoryExecutor() *MemoryExecutor {
	return &MemoryExecutor{tables: make(map[string][]query.Row)}
}

// Insert appends rows to a table
func (e *MemoryExecutor) Insert(table *catalog.Table, rows ...query.Row) {
	e.mu.Lock()
	defer e.mu.Unlock()
	key := table.QualifiedName()
	e.tables[key] = append(e.tables[key], rows...)
}

func (e *MemoryExecutor) matching(table *catalog.Table, cond query.Condition) []query.Row {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var out []query.Row
	for _, row := range e.tables[table.QualifiedName()] {
		if cond.Match(row) {
			out = append(out, row)
		}
	}
	return out
}

// Count returns the number of rows matching the condition
func (e *MemoryExecutor) Count(_ context.Context, table *catalog.Table, cond query.Condition) (int64, error) {
	return int64(len(e.matching(table, cond))), nil
}

// Find returns one window of the matching rows in sort order
func (e *MemoryExecutor) Find(_ context.Context, table *catalog.Table, cond query.Condition, sort []query.SortKey, window query.Window) ([]interface{}, error) {
	rows := e.matching(table, cond)
	query.SortRows(rows, sort)

	if !window.All() {
		start := window.Offset()
		if start < 0 || start > len(rows) {
			start = len(rows)
		}
		end := start + window.Limit()
		if end > len(rows) {
			end = len(rows)
		}
		rows = rows[start:end]
	}

	out := make([]interface{}, len(rows))
	for i, row := range rows {
		out[i] = row
	}
	return out, nil
}
