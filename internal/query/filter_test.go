package query

import (
	"errors"
	"net/url"
	"testing"

	"github.com/fluxbase-eu/filterable/internal/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func filterParams(filter string) url.Values {
	values := url.Values{}
	values.Set(ParamFilter, filter)
	return values
}

func TestProcessor_Filter(t *testing.T) {
	p := NewTableProcessor(testTable())

	t.Run("missing parameter is a tautology", func(t *testing.T) {
		cond, err := p.Filter(url.Values{})
		require.NoError(t, err)
		assert.True(t, cond.IsTautology())
	})

	t.Run("empty list is a tautology", func(t *testing.T) {
		cond, err := p.Filter(filterParams(`[]`))
		require.NoError(t, err)
		assert.True(t, cond.IsTautology())
	})

	t.Run("boolean rule", func(t *testing.T) {
		cond, err := p.Filter(filterParams(`[{"f":"active","o":"eq","v":"true"}]`))
		require.NoError(t, err)
		require.Len(t, cond.Predicates, 1)
		assert.Equal(t, Predicate{
			Field:    Field{Name: "active", Kind: catalog.KindBoolean},
			Operator: OpEqual,
			Value:    true,
		}, cond.Predicates[0])
	})

	t.Run("document rule", func(t *testing.T) {
		cond, err := p.Filter(filterParams(`[{"f":"data.app","o":"neq","v":"carol"}]`))
		require.NoError(t, err)
		require.Len(t, cond.Predicates, 1)
		assert.Equal(t, Predicate{
			Field:    Field{Name: "data", Kind: catalog.KindDocument, Key: "app"},
			Operator: OpNotEqual,
			Value:    "carol",
		}, cond.Predicates[0])
	})

	t.Run("operator defaults to eq", func(t *testing.T) {
		cond, err := p.Filter(filterParams(`[{"f":"name","v":"alert"}]`))
		require.NoError(t, err)
		require.Len(t, cond.Predicates, 1)
		assert.Equal(t, OpEqual, cond.Predicates[0].Operator)
	})

	t.Run("rules keep input order", func(t *testing.T) {
		cond, err := p.Filter(filterParams(`[
			{"f":"name","o":"lk","v":"al"},
			{"f":"age","o":"btw","v":[18,65]},
			{"f":"tags","o":"has","v":"red"}
		]`))
		require.NoError(t, err)
		require.Len(t, cond.Predicates, 3)
		assert.Equal(t, OpLike, cond.Predicates[0].Operator)
		assert.Equal(t, OpBetween, cond.Predicates[1].Operator)
		assert.Equal(t, OpHas, cond.Predicates[2].Operator)
	})
}

func TestProcessor_FilterErrors(t *testing.T) {
	p := NewTableProcessor(testTable())

	tests := []struct {
		name    string
		filter  string
		wantErr []error
		index   int
	}{
		{
			name:    "invalid json",
			filter:  `[{"f":`,
			wantErr: []error{ErrMalformedFilter},
			index:   -1,
		},
		{
			name:    "empty parameter",
			filter:  ``,
			wantErr: []error{ErrMalformedFilter},
			index:   -1,
		},
		{
			name:    "object instead of list",
			filter:  `{"f":"name","v":"x"}`,
			wantErr: []error{ErrMalformedFilter},
			index:   -1,
		},
		{
			name:    "unknown field",
			filter:  `[{"f":"ghost","o":"eq","v":1}]`,
			wantErr: []error{ErrInvalidFilterRule, ErrUnknownField},
			index:   0,
		},
		{
			name:    "missing f",
			filter:  `[{"o":"eq","v":1}]`,
			wantErr: []error{ErrInvalidFilterRule, ErrUnknownField},
			index:   0,
		},
		{
			name:    "non-object rule",
			filter:  `["name"]`,
			wantErr: []error{ErrInvalidFilterRule},
			index:   0,
		},
		{
			name:    "bare document field",
			filter:  `[{"f":"data","v":"x"}]`,
			wantErr: []error{ErrInvalidFilterRule, ErrNestedKey},
			index:   0,
		},
		{
			name:    "boolean gt",
			filter:  `[{"f":"active","o":"gt","v":"1"}]`,
			wantErr: []error{ErrInvalidFilterRule, ErrInvalidOperator},
			index:   0,
		},
		{
			name:    "non-string operator",
			filter:  `[{"f":"name","o":1,"v":"x"}]`,
			wantErr: []error{ErrInvalidFilterRule, ErrInvalidOperator},
			index:   0,
		},
		{
			name:    "btw arity",
			filter:  `[{"f":"age","o":"btw","v":[1,2,3]}]`,
			wantErr: []error{ErrInvalidFilterRule, ErrInvalidValueShape},
			index:   0,
		},
		{
			name:    "first invalid rule is reported",
			filter:  `[{"f":"name","v":"ok"},{"f":"ghost","v":1},{"f":"active","o":"lk","v":"x"}]`,
			wantErr: []error{ErrInvalidFilterRule, ErrUnknownField},
			index:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cond, err := p.Filter(filterParams(tt.filter))
			require.Error(t, err)
			assert.Empty(t, cond.Predicates)
			for _, want := range tt.wantErr {
				assert.ErrorIs(t, err, want)
			}
			assert.True(t, IsFilteringError(err))

			var ruleErr *RuleError
			if tt.index < 0 {
				assert.False(t, errors.As(err, &ruleErr))
				return
			}
			require.ErrorAs(t, err, &ruleErr)
			assert.Equal(t, tt.index, ruleErr.Index)
		})
	}
}

func TestProcessor_FilterMessages(t *testing.T) {
	p := NewTableProcessor(testTable())

	_, err := p.Filter(filterParams(`{"f":"name"}`))
	assert.EqualError(t, err, "Filters attribute must be a list/array of objects")

	_, err = p.Filter(filterParams(`[{"f":"age","o":"in","v":5}]`))
	assert.EqualError(t, err, `Operation "in" must have a list`)
}

func TestProcessor_Sort(t *testing.T) {
	p := NewTableProcessor(testTable())

	t.Run("missing parameter uses default", func(t *testing.T) {
		keys, err := p.Sort(url.Values{})
		require.NoError(t, err)
		assert.Equal(t, []SortKey{{Field: Field{Name: "created_at"}, Desc: true}}, keys)
	})

	t.Run("empty list uses default", func(t *testing.T) {
		keys, err := p.Sort(url.Values{ParamSort: {`[]`}})
		require.NoError(t, err)
		assert.Equal(t, []SortKey{{Field: Field{Name: "created_at"}, Desc: true}}, keys)
	})

	t.Run("desc", func(t *testing.T) {
		keys, err := p.Sort(url.Values{ParamSort: {`[{"f":"name","o":"desc"}]`}})
		require.NoError(t, err)
		require.Len(t, keys, 1)
		assert.Equal(t, "name DESC", keys[0].String())
	})

	t.Run("direction defaults to asc", func(t *testing.T) {
		keys, err := p.Sort(url.Values{ParamSort: {`[{"f":"age"},{"f":"name","o":"DESC"},{"f":"created_at","o":7}]`}})
		require.NoError(t, err)
		require.Len(t, keys, 3)
		for _, key := range keys {
			assert.False(t, key.Desc, key.String())
		}
	})

	t.Run("precedence follows input order", func(t *testing.T) {
		keys, err := p.Sort(url.Values{ParamSort: {`[{"f":"age","o":"desc"},{"f":"name"},{"f":"data.app","o":"desc"}]`}})
		require.NoError(t, err)
		require.Len(t, keys, 3)
		assert.Equal(t, "age DESC", keys[0].String())
		assert.Equal(t, "name ASC", keys[1].String())
		assert.Equal(t, "data.app DESC", keys[2].String())
	})

	t.Run("custom default field", func(t *testing.T) {
		custom := NewProcessor(testTable(), WithDefaultSort("age"))
		keys, err := custom.Sort(url.Values{})
		require.NoError(t, err)
		assert.Equal(t, "age DESC", keys[0].String())
	})
}

func TestProcessor_SortErrors(t *testing.T) {
	p := NewTableProcessor(testTable())

	tests := []struct {
		name    string
		sort    string
		wantErr []error
	}{
		{"invalid json", `[{`, []error{ErrMalformedSort}},
		{"string instead of list", `"name"`, []error{ErrMalformedSort}},
		{"unknown field", `[{"f":"ghost"}]`, []error{ErrInvalidSortRule, ErrUnknownField}},
		{"missing f", `[{"o":"desc"}]`, []error{ErrInvalidSortRule, ErrUnknownField}},
		{"bare document field", `[{"f":"data"}]`, []error{ErrInvalidSortRule, ErrNestedKey}},
		{"non-object rule", `[1]`, []error{ErrInvalidSortRule}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			keys, err := p.Sort(url.Values{ParamSort: {tt.sort}})
			require.Error(t, err)
			assert.Nil(t, keys)
			for _, want := range tt.wantErr {
				assert.ErrorIs(t, err, want)
			}
		})
	}
}

func TestProcessor_Process(t *testing.T) {
	p := NewTableProcessor(testTable())

	t.Run("both parameters", func(t *testing.T) {
		f, err := p.Process(url.Values{
			ParamFilter: {`[{"f":"name","v":"x"}]`},
			ParamSort:   {`[{"f":"name"}]`},
		})
		require.NoError(t, err)
		assert.Len(t, f.Filter.Predicates, 1)
		assert.Len(t, f.Sort, 1)
	})

	t.Run("invalid sort fails the whole request", func(t *testing.T) {
		f, err := p.Process(url.Values{
			ParamFilter: {`[{"f":"name","v":"x"}]`},
			ParamSort:   {`[{"f":"ghost"}]`},
		})
		assert.Nil(t, f)
		assert.ErrorIs(t, err, ErrInvalidSortRule)
	})
}
