package cache

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/fluxbase-eu/filterable/internal/catalog"
	"github.com/fluxbase-eu/filterable/internal/database"
	"github.com/fluxbase-eu/filterable/internal/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryCache struct {
	mu      sync.Mutex
	entries map[string]int64
	getErr  error
	setErr  error
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string]int64)}
}

func (m *memoryCache) Get(_ context.Context, key string) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return 0, false, m.getErr
	}
	total, ok := m.entries[key]
	return total, ok, nil
}

func (m *memoryCache) Set(_ context.Context, key string, total int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.entries[key] = total
	return nil
}

type countingExecutor struct {
	database.Executor
	counts int
}

func (c *countingExecutor) Count(ctx context.Context, table *catalog.Table, cond query.Condition) (int64, error) {
	c.counts++
	return c.Executor.Count(ctx, table, cond)
}

type resultRecorder struct {
	results []string
}

func (r *resultRecorder) RecordCountCache(result string) {
	r.results = append(r.results, result)
}

func setup(t *testing.T) (*catalog.Table, *countingExecutor) {
	t.Helper()
	table := catalog.NewTable("", "events", map[string]catalog.Kind{
		"level":      catalog.KindScalar,
		"created_at": catalog.KindScalar,
	})
	mem := database.NewMemoryExecutor()
	mem.Insert(table,
		query.Row{"level": "alert"},
		query.Row{"level": "notice"},
		query.Row{"level": "alert"},
	)
	return table, &countingExecutor{Executor: mem}
}

func condition(t *testing.T, table *catalog.Table, filter string) query.Condition {
	t.Helper()
	cond, err := query.NewTableProcessor(table).Filter(url.Values{query.ParamFilter: {filter}})
	require.NoError(t, err)
	return cond
}

func TestKey(t *testing.T) {
	a, err := Key(`SELECT COUNT(*) FROM "events" WHERE "level" = $1`, []interface{}{"alert"})
	require.NoError(t, err)
	b, err := Key(`SELECT COUNT(*) FROM "events" WHERE "level" = $1`, []interface{}{"notice"})
	require.NoError(t, err)
	again, err := Key(`SELECT COUNT(*) FROM "events" WHERE "level" = $1`, []interface{}{"alert"})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(a, KeyPrefix))
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, again)
}

func TestCachedExecutor_Count(t *testing.T) {
	table, next := setup(t)
	recorder := &resultRecorder{}
	exec := NewCachedExecutor(next, newMemoryCache(), recorder)
	ctx := context.Background()
	alerts := condition(t, table, `[{"f":"level","v":"alert"}]`)

	total, err := exec.Count(ctx, table, alerts)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	total, err = exec.Count(ctx, table, alerts)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Equal(t, 1, next.counts)

	total, err = exec.Count(ctx, table, condition(t, table, `[{"f":"level","v":"notice"}]`))
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, 2, next.counts)

	assert.Equal(t, []string{"miss", "hit", "miss"}, recorder.results)
}

func TestCachedExecutor_CacheFailuresFallThrough(t *testing.T) {
	table, next := setup(t)
	cache := newMemoryCache()
	cache.getErr = errors.New("connection refused")
	cache.setErr = errors.New("connection refused")
	recorder := &resultRecorder{}
	exec := NewCachedExecutor(next, cache, recorder)

	total, err := exec.Count(context.Background(), table, query.Condition{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Equal(t, []string{"error"}, recorder.results)
}

func TestCachedExecutor_FindDelegates(t *testing.T) {
	table, next := setup(t)
	exec := NewCachedExecutor(next, newMemoryCache(), nil)

	rows, err := exec.Find(context.Background(), table, condition(t, table, `[{"f":"level","v":"alert"}]`), nil, query.Window{Page: 1, PageSize: 25})
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}
