package logutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeSQL(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "string literal",
			input:    `SELECT * FROM "events" WHERE "level" = 'alert'`,
			expected: `SELECT * FROM "events" WHERE "level" = '<redacted>'`,
		},
		{
			name:     "escaped quotes in string",
			input:    `SELECT * FROM "users" WHERE "name" = 'O''Reilly'`,
			expected: `SELECT * FROM "users" WHERE "name" = '<redacted>'`,
		},
		{
			name:     "placeholders kept",
			input:    `SELECT * FROM "events" WHERE "level" = $1 AND "code" > $12`,
			expected: `SELECT * FROM "events" WHERE "level" = $1 AND "code" > $12`,
		},
		{
			name:     "limit and offset",
			input:    `SELECT * FROM "events" ORDER BY "created_at" DESC LIMIT 25 OFFSET 50`,
			expected: `SELECT * FROM "events" ORDER BY "created_at" DESC LIMIT <num> OFFSET <num>`,
		},
		{
			name:     "document key kept",
			input:    `SELECT * FROM "events" WHERE ("data"->>'app') = $1`,
			expected: `SELECT * FROM "events" WHERE ("data"->>'app') = $1`,
		},
		{
			name:     "document key with digits kept",
			input:    `SELECT * FROM "events" WHERE ("data"->>'v2') = $1 LIMIT 10`,
			expected: `SELECT * FROM "events" WHERE ("data"->>'v2') = $1 LIMIT <num>`,
		},
		{
			name:     "float literal",
			input:    `SELECT * FROM "products" WHERE "price" > 99.99`,
			expected: `SELECT * FROM "products" WHERE "price" > <num>`,
		},
		{
			name:     "no literals",
			input:    `SELECT COUNT(*) FROM "public"."events"`,
			expected: `SELECT COUNT(*) FROM "public"."events"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeSQL(tt.input))
		})
	}
}

func TestRedactArgs(t *testing.T) {
	args := []interface{}{"alert", 3.0, nil, []interface{}{"a"}}

	assert.Equal(t, []string{"$1:string", "$2:float64", "$3:nil", "$4:[]interface {}"}, RedactArgs(args))
	assert.Empty(t, RedactArgs(nil))
}
