package query

import (
	"testing"

	"github.com/fluxbase-eu/filterable/internal/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testTable is the catalog used across the query tests
func testTable() *catalog.Table {
	return catalog.NewTable("public", "events", map[string]catalog.Kind{
		"name":       catalog.KindScalar,
		"age":        catalog.KindScalar,
		"tags":       catalog.KindScalar,
		"active":     catalog.KindBoolean,
		"data":       catalog.KindDocument,
		"created_at": catalog.KindScalar,
	})
}

func TestResolve(t *testing.T) {
	table := testTable()

	tests := []struct {
		name     string
		raw      string
		expected Field
		wantErr  error
	}{
		{
			name:     "scalar field",
			raw:      "name",
			expected: Field{Name: "name", Kind: catalog.KindScalar},
		},
		{
			name:     "boolean field",
			raw:      "active",
			expected: Field{Name: "active", Kind: catalog.KindBoolean},
		},
		{
			name:     "document field with key",
			raw:      "data.app",
			expected: Field{Name: "data", Kind: catalog.KindDocument, Key: "app"},
		},
		{
			name:     "only the first dot splits",
			raw:      "data.app.version",
			expected: Field{Name: "data", Kind: catalog.KindDocument, Key: "app.version"},
		},
		{
			name:    "unknown field",
			raw:     "ghost",
			wantErr: ErrUnknownField,
		},
		{
			name:    "unknown base field with key",
			raw:     "ghost.key",
			wantErr: ErrUnknownField,
		},
		{
			name:    "document field without key",
			raw:     "data",
			wantErr: ErrNestedKey,
		},
		{
			name:    "document field with empty key",
			raw:     "data.",
			wantErr: ErrNestedKey,
		},
		{
			name:    "key on scalar field",
			raw:     "name.first",
			wantErr: ErrNestedKey,
		},
		{
			name:    "empty field",
			raw:     "",
			wantErr: ErrUnknownField,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			field, err := Resolve(table, tt.raw)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, field)
		})
	}
}

func TestResolve_ErrorMessages(t *testing.T) {
	table := testTable()

	_, err := Resolve(table, "data")
	assert.EqualError(t, err, "A key is mandatory filtering JSON fields. Eg: 'data.some_key'")

	_, err = Resolve(table, "ghost")
	assert.EqualError(t, err, "'ghost' is not a valid entity field")
}

func TestField_String(t *testing.T) {
	assert.Equal(t, "name", Field{Name: "name"}.String())
	assert.Equal(t, "data.app", Field{Name: "data", Kind: catalog.KindDocument, Key: "app"}.String())
}
