package cache

import (
	"context"

	"github.com/fluxbase-eu/filterable/internal/catalog"
	"github.com/fluxbase-eu/filterable/internal/database"
	"github.com/fluxbase-eu/filterable/internal/query"
	"github.com/rs/zerolog/log"
)

// Recorder receives cache lookup results ("hit", "miss", "error")
type Recorder interface {
	RecordCountCache(result string)
}

// CachedExecutor serves Count from a CountCache and delegates everything
// else. Cache failures are logged and fall through to the executor.
type CachedExecutor struct {
	next     database.Executor
	cache    CountCache
	recorder Recorder
}

// NewCachedExecutor wraps next; recorder may be nil
func NewCachedExecutor(next database.Executor, cache CountCache, recorder Recorder) *CachedExecutor {
	return &CachedExecutor{next: next, cache: cache, recorder: recorder}
}

func (e *CachedExecutor) record(result string) {
	if e.recorder != nil {
		e.recorder.RecordCountCache(result)
	}
}

// Count returns the cached total or counts and caches it
func (e *CachedExecutor) Count(ctx context.Context, table *catalog.Table, cond query.Condition) (int64, error) {
	sql, args := query.NewStatement(table.Schema, table.Name).WithCondition(cond).BuildCount()
	key, err := Key(sql, args)
	if err != nil {
		e.record("error")
		return e.next.Count(ctx, table, cond)
	}

	total, found, err := e.cache.Get(ctx, key)
	switch {
	case err != nil:
		e.record("error")
		log.Warn().Err(err).Str("table", table.QualifiedName()).Msg("Count cache lookup failed")
	case found:
		e.record("hit")
		return total, nil
	default:
		e.record("miss")
	}

	total, err = e.next.Count(ctx, table, cond)
	if err != nil {
		return 0, err
	}
	if err := e.cache.Set(ctx, key, total); err != nil {
		log.Warn().Err(err).Str("table", table.QualifiedName()).Msg("Failed to cache row count")
	}
	return total, nil
}

// Find delegates to the wrapped executor
func (e *CachedExecutor) Find(ctx context.Context, table *catalog.Table, cond query.Condition, sort []query.SortKey, window query.Window) ([]interface{}, error) {
	return e.next.Find(ctx, table, cond, sort, window)
}
