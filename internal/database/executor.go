// Package database runs compiled filter conditions against a data store
package database

import (
	"context"

	"github.com/fluxbase-eu/filterable/internal/catalog"
	"github.com/fluxbase-eu/filterable/internal/query"
)

// Executor is the query execution collaborator used by the list endpoints.
// Implementations never see raw filter text, only compiled conditions.
type Executor interface {
	// Count returns the number of rows matching the condition
	Count(ctx context.Context, table *catalog.Table, cond query.Condition) (int64, error)
	// Find returns the rows of the window matching the condition, in sort order
	Find(ctx context.Context, table *catalog.Table, cond query.Condition, sort []query.SortKey, window query.Window) ([]interface{}, error)
}

// Paginate counts and fetches one page of rows
func Paginate(ctx context.Context, exec Executor, table *catalog.Table, f *query.Filtered, window query.Window) (query.Page, error) {
	total, err := exec.Count(ctx, table, f.Filter)
	if err != nil {
		return query.Page{}, err
	}
	rows, err := exec.Find(ctx, table, f.Filter, f.Sort, window)
	if err != nil {
		return query.Page{}, err
	}
	return query.NewPage(window, total, rows), nil
}
