package database

import (
	"context"
	"time"

	"github.com/fluxbase-eu/filterable/internal/catalog"
	"github.com/fluxbase-eu/filterable/internal/query"
)

// QueryRecorder receives the duration and outcome of every execution
type QueryRecorder interface {
	RecordDBQuery(operation, table string, duration time.Duration, err error)
}

// InstrumentedExecutor reports Count and Find timings to a QueryRecorder
type InstrumentedExecutor struct {
	next     Executor
	recorder QueryRecorder
}

// NewInstrumentedExecutor wraps next
func NewInstrumentedExecutor(next Executor, recorder QueryRecorder) *InstrumentedExecutor {
	return &InstrumentedExecutor{next: next, recorder: recorder}
}

func (e *InstrumentedExecutor) Count(ctx context.Context, table *catalog.Table, cond query.Condition) (int64, error) {
	start := time.Now()
	total, err := e.next.Count(ctx, table, cond)
	e.recorder.RecordDBQuery("count", table.QualifiedName(), time.Since(start), err)
	return total, err
}

func (e *InstrumentedExecutor) Find(ctx context.Context, table *catalog.Table, cond query.Condition, sort []query.SortKey, window query.Window) ([]interface{}, error) {
	start := time.Now()
	rows, err := e.next.Find(ctx, table, cond, sort, window)
	e.recorder.RecordDBQuery("find", table.QualifiedName(), time.Since(start), err)
	return rows, err
}
