// Package query compiles the JSON filter and sort expressions received in
// request query parameters into conditions and sort keys checked against a
// field catalog.
//
// Filter URL usage example:
//
//	?filter=[{"f":"name","o":"eq","v":"alert"},{"f":"data.app","o":"neq","v":"carol"}]
//
// Sort URL usage example:
//
//	?sort=[{"f":"age","o":"desc"},{"f":"name"}]
package query

import (
	"strings"

	"github.com/fluxbase-eu/filterable/internal/catalog"
)

// Field is a catalog field resolved from a rule, with the nested key for
// document fields
type Field struct {
	Name string
	Kind catalog.Kind
	Key  string
}

// IsExtracted reports whether the field addresses a key inside a document
func (f Field) IsExtracted() bool {
	return f.Kind == catalog.KindDocument
}

// String returns the dotted form of the field
func (f Field) String() string {
	if f.Key != "" {
		return f.Name + "." + f.Key
	}
	return f.Name
}

// Resolve validates a rule field against the catalog. Only the first "." is
// significant: "data.a.b" addresses key "a.b" of document field "data".
func Resolve(fields catalog.Fields, raw string) (Field, error) {
	name, key, _ := strings.Cut(raw, ".")

	kind, ok := fields.Lookup(name)
	if !ok {
		return Field{}, newError(ErrUnknownField,
			"'%s' is not a valid entity field", name)
	}

	if kind == catalog.KindDocument {
		if key == "" {
			return Field{}, newError(ErrNestedKey,
				"A key is mandatory filtering JSON fields. Eg: '%s.some_key'", name)
		}
		return Field{Name: name, Kind: kind, Key: key}, nil
	}

	if key != "" {
		return Field{}, newError(ErrNestedKey,
			"Field '%s' is not a JSON field and does not accept the key '%s'", name, key)
	}
	return Field{Name: name, Kind: kind}, nil
}
