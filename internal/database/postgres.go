package database

import (
	"context"
	"fmt"
	"time"

	"github.com/fluxbase-eu/filterable/internal/catalog"
	"github.com/fluxbase-eu/filterable/internal/logutil"
	"github.com/fluxbase-eu/filterable/internal/query"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"
)

// Querier is the subset of pgxpool.Pool used by PostgresExecutor
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresExecutor runs compiled conditions as parameterised PostgreSQL
type PostgresExecutor struct {
	db Querier
}

// NewPostgresExecutor creates an executor on a pgx pool or connection
func NewPostgresExecutor(db Querier) *PostgresExecutor {
	return &PostgresExecutor{db: db}
}

// Count returns the number of rows matching the condition
func (e *PostgresExecutor) Count(ctx context.Context, table *catalog.Table, cond query.Condition) (int64, error) {
	sql, args := query.NewStatement(table.Schema, table.Name).
		WithCondition(cond).
		BuildCount()

	start := time.Now()
	var total int64
	if err := e.db.QueryRow(ctx, sql, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table.QualifiedName(), err)
	}
	logQuery(sql, args, start)
	return total, nil
}

// Find returns one window of rows as column maps
func (e *PostgresExecutor) Find(ctx context.Context, table *catalog.Table, cond query.Condition, sort []query.SortKey, window query.Window) ([]interface{}, error) {
	sql, args := query.NewStatement(table.Schema, table.Name).
		WithCondition(cond).
		WithSort(sort).
		WithWindow(window).
		BuildSelect()

	start := time.Now()
	rows, err := e.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table.QualifiedName(), err)
	}

	records, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows of %s: %w", table.QualifiedName(), err)
	}
	logQuery(sql, args, start)

	out := make([]interface{}, len(records))
	for i, record := range records {
		out[i] = record
	}
	return out, nil
}

func logQuery(sql string, args []interface{}, start time.Time) {
	log.Debug().
		Str("sql", logutil.SanitizeSQL(sql)).
		Strs("args", logutil.RedactArgs(args)).
		Dur("duration", time.Since(start)).
		Msg("Executed filtered query")
}
