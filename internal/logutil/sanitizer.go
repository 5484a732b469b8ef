// Package logutil provides logging utilities for sanitization
package logutil

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	// 'value', 'it''s'. A literal directly after ->> is a document key.
	stringLiteralPattern = regexp.MustCompile(`(->>\s*)?'(?:[^']|'')*'`)
	paramPattern         = regexp.MustCompile(`\$\d+`)
	numericPattern       = regexp.MustCompile(`\b\d+(?:\.\d+)?(?:[eE][+-]?\d+)?\b`)
)

// SanitizeSQL removes literal values from a generated query before it is
// logged. Filter values always travel as bind arguments, so this only guards
// against literals that reach the statement text.
//
// Replacements:
// - String literals (single quotes): '<redacted>'
// - Numeric literals: <num>
// - $1, $2, etc. parameter placeholders: kept as-is
// - Document keys ("data"->>'key'): kept as-is
//
// Example:
//
//	SELECT * FROM "events" WHERE "level" = 'alert' LIMIT 25
//	=> SELECT * FROM "events" WHERE "level" = '<redacted>' LIMIT <num>
func SanitizeSQL(query string) string {
	query = stringLiteralPattern.ReplaceAllStringFunc(query, func(lit string) string {
		if strings.HasPrefix(lit, "->>") {
			return lit
		}
		return "'<redacted>'"
	})

	// Hide placeholders so their digits survive numeric replacement
	params := paramPattern.FindAllString(query, -1)
	for i, param := range params {
		query = strings.Replace(query, param, "\x00PARAM"+fmt.Sprint(i)+"\x00", 1)
	}

	query = replaceOutsideLiterals(query, func(segment string) string {
		return numericPattern.ReplaceAllString(segment, "<num>")
	})

	for i, param := range params {
		query = strings.Replace(query, "\x00PARAM"+fmt.Sprint(i)+"\x00", param, 1)
	}
	return query
}

// replaceOutsideLiterals applies fn to the parts of query that are not inside
// single-quoted literals
func replaceOutsideLiterals(query string, fn func(string) string) string {
	var b strings.Builder
	inLiteral := false
	start := 0
	for i := 0; i < len(query); i++ {
		if query[i] != '\'' {
			continue
		}
		if inLiteral {
			b.WriteString(query[start : i+1])
		} else {
			b.WriteString(fn(query[start:i]))
			b.WriteByte('\'')
		}
		inLiteral = !inLiteral
		start = i + 1
	}
	if inLiteral {
		b.WriteString(query[start:])
	} else {
		b.WriteString(fn(query[start:]))
	}
	return b.String()
}

// RedactArgs describes bind arguments by position and Go type only, so logs
// show the shape of a query without the values users filtered on.
//
// Example:
//
//	[]interface{}{"alert", 3.0, nil}
//	=> []string{"$1:string", "$2:float64", "$3:nil"}
func RedactArgs(args []interface{}) []string {
	out := make([]string, len(args))
	for i, arg := range args {
		typ := "nil"
		if arg != nil {
			typ = fmt.Sprintf("%T", arg)
		}
		out[i] = fmt.Sprintf("$%d:%s", i+1, typ)
	}
	return out
}
