// Package testutil provides shared test helper functions for unit testing.
package testutil

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/fluxbase-eu/filterable/internal/catalog"
	"github.com/fluxbase-eu/filterable/internal/database"
	"github.com/fluxbase-eu/filterable/internal/query"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Fixture Helpers
// =============================================================================

// EventsTable returns the catalog entry of the demo events table.
func EventsTable() *catalog.Table {
	return catalog.NewTable("public", "events", map[string]catalog.Kind{
		"id":           catalog.KindScalar,
		"name":         catalog.KindScalar,
		"level":        catalog.KindScalar,
		"code":         catalog.KindScalar,
		"tags":         catalog.KindScalar,
		"acknowledged": catalog.KindBoolean,
		"data":         catalog.KindDocument,
		"created_at":   catalog.KindScalar,
	})
}

// EventRows returns five events created one minute apart, oldest first.
func EventRows() []query.Row {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	return []query.Row{
		{"id": 1, "name": "disk-full", "level": "alert", "code": 500, "tags": []interface{}{"ops", "storage"}, "acknowledged": false, "data": map[string]interface{}{"app": "api", "host": "db-1"}, "created_at": base},
		{"id": 2, "name": "login", "level": "notice", "code": 200, "tags": []interface{}{"auth"}, "acknowledged": true, "data": map[string]interface{}{"app": "web"}, "created_at": base.Add(time.Minute)},
		{"id": 3, "name": "slow-query", "level": "warning", "code": 300, "tags": []interface{}{"ops", "db"}, "acknowledged": false, "data": map[string]interface{}{"app": "api"}, "created_at": base.Add(2 * time.Minute)},
		{"id": 4, "name": "oom", "level": "alert", "code": 500, "tags": []interface{}{"ops"}, "acknowledged": true, "data": map[string]interface{}{"app": "worker"}, "created_at": base.Add(3 * time.Minute)},
		{"id": 5, "name": "logout", "level": "notice", "code": 200, "tags": []interface{}{"auth"}, "acknowledged": false, "data": map[string]interface{}{"app": "carol"}, "created_at": base.Add(4 * time.Minute)},
	}
}

// SeededEvents returns an in-memory executor holding EventRows.
func SeededEvents(table *catalog.Table) *database.MemoryExecutor {
	exec := database.NewMemoryExecutor()
	exec.Insert(table, EventRows()...)
	return exec
}

// =============================================================================
// Fiber HTTP Helpers
// =============================================================================

// FilterQuery encodes filter and sort JSON plus extra key/value pairs into a
// query string. Empty filter or sort values are omitted.
//
// Example:
//
//	testutil.FilterQuery(`[{"f":"level","v":"alert"}]`, "", "pageSize", "10")
func FilterQuery(filter, sort string, extra ...string) string {
	params := url.Values{}
	if filter != "" {
		params.Set(query.ParamFilter, filter)
	}
	if sort != "" {
		params.Set(query.ParamSort, sort)
	}
	for i := 0; i+1 < len(extra); i += 2 {
		params.Set(extra[i], extra[i+1])
	}
	if len(params) == 0 {
		return ""
	}
	return "?" + params.Encode()
}

// Get performs a GET request against app and returns the status and body.
func Get(t *testing.T, app *fiber.App, target string) (int, string) {
	t.Helper()

	resp, err := app.Test(httptest.NewRequest("GET", target, nil))
	require.NoError(t, err)
	return resp.StatusCode, ReadBody(t, resp.Body)
}

// DecodeJSON unmarshals a response body into a map.
func DecodeJSON(t *testing.T, body string) map[string]interface{} {
	t.Helper()

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(body), &out), "Failed to parse body: %s", body)
	return out
}

// =============================================================================
// Assertion Helpers
// =============================================================================

// AssertJSONEqual asserts that two JSON strings represent equal objects.
func AssertJSONEqual(t *testing.T, expected, actual string) {
	t.Helper()

	var expectedJSON, actualJSON interface{}
	err := json.Unmarshal([]byte(expected), &expectedJSON)
	require.NoError(t, err, "Failed to parse expected JSON")
	err = json.Unmarshal([]byte(actual), &actualJSON)
	require.NoError(t, err, "Failed to parse actual JSON")

	assert.Equal(t, expectedJSON, actualJSON, "JSON objects are not equal")
}

// AssertFailure asserts the filtering failure body {"error": message, "code": code}.
func AssertFailure(t *testing.T, body string, code int, message string) {
	t.Helper()

	decoded := DecodeJSON(t, body)
	assert.Equal(t, float64(code), decoded["code"])
	assert.Equal(t, message, decoded["error"])
}

// RowNames extracts the "name" of each row of a page body.
func RowNames(t *testing.T, body string) []string {
	t.Helper()

	var page struct {
		Rows []map[string]interface{} `json:"rows"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &page))

	names := make([]string, 0, len(page.Rows))
	for _, row := range page.Rows {
		name, _ := row["name"].(string)
		names = append(names, name)
	}
	return names
}

// =============================================================================
// Buffer Helpers
// =============================================================================

// ReadBody reads the entire body into a string.
func ReadBody(t *testing.T, r io.ReadCloser) string {
	t.Helper()

	if r == nil {
		return ""
	}

	data, err := io.ReadAll(r)
	require.NoError(t, err, "Failed to read body")
	r.Close()

	return string(data)
}
