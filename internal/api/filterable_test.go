package api

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/fluxbase-eu/filterable/internal/catalog"
	"github.com/fluxbase-eu/filterable/internal/query"
	"github.com/fluxbase-eu/filterable/internal/testutil"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

func scenarioTable() *catalog.Table {
	return catalog.NewTable("", "people", map[string]catalog.Kind{
		"name":       catalog.KindScalar,
		"active":     catalog.KindBoolean,
		"data":       catalog.KindDocument,
		"created_at": catalog.KindScalar,
	})
}

// echoSQL answers with the SQL rendering of the binding
func echoSQL(c fiber.Ctx, f *query.Filtered) error {
	where, args := query.BuildWhere(f.Filter)
	return c.JSON(fiber.Map{
		"where":   where,
		"args":    args,
		"orderBy": query.BuildOrderBy(f.Sort),
	})
}

type outcomeRecorder struct {
	outcomes []string
}

func (r *outcomeRecorder) RecordFilter(_ string, outcome string, _ int) {
	r.outcomes = append(r.outcomes, outcome)
}

func TestFilterable_Binds(t *testing.T) {
	app := fiber.New()
	app.Get("/people", Filterable(scenarioTable(), echoSQL))

	tests := []struct {
		name     string
		query    string
		expected string
	}{
		{
			name:     "no parameters",
			query:    "",
			expected: `{"where":"TRUE","args":null,"orderBy":"\"created_at\" DESC"}`,
		},
		{
			name:     "boolean equality",
			query:    testutil.FilterQuery(`[{"f":"active","o":"eq","v":"true"}]`, ""),
			expected: `{"where":"\"active\" = $1","args":[true],"orderBy":"\"created_at\" DESC"}`,
		},
		{
			name:     "document key and sort",
			query:    testutil.FilterQuery(`[{"f":"data.app","o":"neq","v":"carol"}]`, `[{"f":"name","o":"desc"}]`),
			expected: `{"where":"(\"data\"->>'app') <> $1","args":["carol"],"orderBy":"\"name\" DESC"}`,
		},
		{
			name:     "rules are ANDed in order",
			query:    testutil.FilterQuery(`[{"f":"name","o":"in","v":["a","b"]},{"f":"active","v":0}]`, `[{"f":"name"},{"f":"created_at","o":"desc"}]`),
			expected: `{"where":"\"name\" IN ($1, $2) AND \"active\" = $3","args":["a","b",false],"orderBy":"\"name\" ASC, \"created_at\" DESC"}`,
		},
		{
			name:     "empty lists",
			query:    testutil.FilterQuery(`[]`, `[]`),
			expected: `{"where":"TRUE","args":null,"orderBy":"\"created_at\" DESC"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := testutil.Get(t, app, "/people"+tt.query)
			assert.Equal(t, fiber.StatusOK, status)
			testutil.AssertJSONEqual(t, tt.expected, body)
		})
	}
}

func TestFilterable_RejectsInvalidInput(t *testing.T) {
	called := false
	app := fiber.New()
	app.Get("/people", Filterable(scenarioTable(), func(c fiber.Ctx, f *query.Filtered) error {
		called = true
		return c.SendStatus(fiber.StatusOK)
	}))

	tests := []struct {
		name    string
		query   string
		message string
	}{
		{
			name:    "unknown field",
			query:   testutil.FilterQuery(`[{"f":"nope","v":1}]`, ""),
			message: "'nope' is not a valid entity field",
		},
		{
			name:    "filter is not a list",
			query:   testutil.FilterQuery(`{"f":"name"}`, ""),
			message: "Filters attribute must be a list/array of objects",
		},
		{
			name:    "document field without key",
			query:   testutil.FilterQuery(`[{"f":"data","v":"x"}]`, ""),
			message: "A key is mandatory filtering JSON fields. Eg: 'data.some_key'",
		},
		{
			name:    "unknown operator",
			query:   testutil.FilterQuery(`[{"f":"name","o":"like","v":"x"}]`, ""),
			message: "Invalid operation 'like' for field 'name'",
		},
		{
			name:    "btw needs two values",
			query:   testutil.FilterQuery(`[{"f":"name","o":"btw","v":[1]}]`, ""),
			message: `Operation "btw" must be a list with two values (from/to)`,
		},
		{
			name:    "in with a number",
			query:   testutil.FilterQuery(`[{"f":"name","o":"in","v":5}]`, ""),
			message: `Operation "in" must have a list`,
		},
		{
			name:    "ordering on booleans",
			query:   testutil.FilterQuery(`[{"f":"active","o":"gt","v":"1"}]`, ""),
			message: `Only "eq" and "neq" is allowed for boolean columns`,
		},
		{
			name:    "sort is not a list",
			query:   testutil.FilterQuery("", `{"f":"name"}`),
			message: "Sort attribute must be a list/array",
		},
		{
			name:    "sort on unknown field",
			query:   testutil.FilterQuery("", `[{"f":"age"}]`),
			message: "'age' is not a valid entity field",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := testutil.Get(t, app, "/people"+tt.query)
			assert.Equal(t, fiber.StatusBadRequest, status)
			testutil.AssertFailure(t, body, fiber.StatusBadRequest, tt.message)
		})
	}
	assert.False(t, called)
}

func TestFilterable_MalformedJSON(t *testing.T) {
	app := fiber.New()
	app.Get("/people", Filterable(scenarioTable(), echoSQL))

	status, body := testutil.Get(t, app, "/people"+testutil.FilterQuery(`[{"f":`, ""))
	assert.Equal(t, fiber.StatusBadRequest, status)

	decoded := testutil.DecodeJSON(t, body)
	assert.Equal(t, float64(fiber.StatusBadRequest), decoded["code"])
	assert.Contains(t, decoded["error"], "Malformed filtering data (")
}

func TestFilterable_InvalidQueryString(t *testing.T) {
	app := fiber.New()
	app.Get("/people", Filterable(scenarioTable(), echoSQL))

	status, body := testutil.Get(t, app, "/people?filter=%zz")
	assert.Equal(t, fiber.StatusBadRequest, status)

	decoded := testutil.DecodeJSON(t, body)
	assert.Contains(t, decoded["error"], "Malformed filtering data (invalid query string")
}

func TestFilterable_RecordsOutcomes(t *testing.T) {
	recorder := &outcomeRecorder{}
	app := fiber.New()
	app.Get("/people", Filterable(scenarioTable(), echoSQL, WithRecorder(recorder)))

	testutil.Get(t, app, "/people")
	testutil.Get(t, app, "/people"+testutil.FilterQuery(`[{"f":"nope"}]`, ""))
	testutil.Get(t, app, "/people?filter=%zz")

	assert.Equal(t, []string{"ok", "invalid", "error"}, recorder.outcomes)
}

func TestFilterable_InjectsRequestContext(t *testing.T) {
	app := fiber.New()
	app.Get("/people", Filterable(scenarioTable(), func(c fiber.Ctx, f *query.Filtered) error {
		params, err := query.RequestFrom(c.Context())
		require.NoError(t, err)
		return c.SendString(params.Get("filter"))
	}))

	status, body := testutil.Get(t, app, "/people"+testutil.FilterQuery(`[{"f":"name","v":"x"}]`, ""))
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, `[{"f":"name","v":"x"}]`, body)
}

func TestFilterMiddleware(t *testing.T) {
	app := fiber.New()
	app.Use(FilterMiddleware(scenarioTable()))
	app.Get("/people", func(c fiber.Ctx) error {
		f, ok := GetFiltered(c)
		require.True(t, ok)
		return echoSQL(c, f)
	})

	status, body := testutil.Get(t, app, "/people"+testutil.FilterQuery(`[{"f":"name","v":"ann"}]`, ""))
	assert.Equal(t, fiber.StatusOK, status)
	testutil.AssertJSONEqual(t, `{"where":"\"name\" = $1","args":["ann"],"orderBy":"\"created_at\" DESC"}`, body)

	status, body = testutil.Get(t, app, "/people"+testutil.FilterQuery(`[{"f":"age","v":1}]`, ""))
	assert.Equal(t, fiber.StatusBadRequest, status)
	testutil.AssertFailure(t, body, fiber.StatusBadRequest, "'age' is not a valid entity field")
}

func TestGetFiltered_Missing(t *testing.T) {
	app := fiber.New()
	c := app.AcquireCtx(&fasthttp.RequestCtx{})
	defer app.ReleaseCtx(c)

	f, ok := GetFiltered(c)
	assert.False(t, ok)
	assert.Nil(t, f)
}

func TestRespondBindError(t *testing.T) {
	app := fiber.New()

	t.Run("missing request context is a server error", func(t *testing.T) {
		c := app.AcquireCtx(&fasthttp.RequestCtx{})
		defer app.ReleaseCtx(c)

		_, bindErr := query.NewTableProcessor(scenarioTable()).Bind(context.Background())
		require.ErrorIs(t, bindErr, query.ErrNoRequestContext)

		err := respondBindError(c, bindErr)
		var fe *fiber.Error
		require.True(t, errors.As(err, &fe))
		assert.Equal(t, fiber.StatusInternalServerError, fe.Code)
		assert.Equal(t, "no request context provided", fe.Message)
	})

	t.Run("unexpected errors are reported as malformed data", func(t *testing.T) {
		c := app.AcquireCtx(&fasthttp.RequestCtx{})
		defer app.ReleaseCtx(c)

		require.NoError(t, respondBindError(c, errors.New("boom")))
		assert.Equal(t, fiber.StatusBadRequest, c.Response().StatusCode())
		testutil.AssertJSONEqual(t, `{"error":"Malformed filtering data (boom).","code":400}`, string(c.Response().Body()))
	})
}

func TestFilterable_DoesNotShareState(t *testing.T) {
	app := fiber.New()
	app.Get("/people", Filterable(scenarioTable(), echoSQL))

	first := httptest.NewRequest("GET", "/people"+testutil.FilterQuery(`[{"f":"name","v":"a"}]`, ""), nil)
	second := httptest.NewRequest("GET", "/people", nil)

	resp, err := app.Test(first)
	require.NoError(t, err)
	testutil.AssertJSONEqual(t, `{"where":"\"name\" = $1","args":["a"],"orderBy":"\"created_at\" DESC"}`, testutil.ReadBody(t, resp.Body))

	resp, err = app.Test(second)
	require.NoError(t, err)
	testutil.AssertJSONEqual(t, `{"where":"TRUE","args":null,"orderBy":"\"created_at\" DESC"}`, testutil.ReadBody(t, resp.Body))
}
