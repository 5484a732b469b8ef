// Package catalog describes the filterable fields of the tables exposed over HTTP.
package catalog

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// DefaultCreatedAtField is the creation timestamp column used for the default sort
const DefaultCreatedAtField = "created_at"

// Kind classifies a field for filtering purposes
type Kind int

const (
	// KindScalar covers numbers, text, dates and array columns
	KindScalar Kind = iota
	// KindBoolean fields only accept eq/neq with coerced values
	KindBoolean
	// KindDocument fields are JSON containers addressed as "field.key"
	KindDocument
)

// String returns the catalog name of the kind
func (k Kind) String() string {
	switch k {
	case KindBoolean:
		return "boolean"
	case KindDocument:
		return "document"
	default:
		return "scalar"
	}
}

// ParseKind parses a kind name as written in catalog files
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "scalar":
		return KindScalar, nil
	case "boolean", "bool":
		return KindBoolean, nil
	case "document", "json", "jsonb":
		return KindDocument, nil
	default:
		return KindScalar, fmt.Errorf("unknown field kind: %q", s)
	}
}

// UnmarshalYAML lets catalog files spell kinds by name
func (k *Kind) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseKind(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Fields is the whitelist consulted when resolving filter and sort rules
type Fields interface {
	Lookup(name string) (Kind, bool)
}

// Table is the field catalog of a single table
type Table struct {
	Schema         string
	Name           string
	CreatedAtField string
	fields         map[string]Kind
}

// NewTable creates a table catalog. An empty schema defaults to "public".
func NewTable(schema, name string, fields map[string]Kind) *Table {
	if schema == "" {
		schema = "public"
	}
	copied := make(map[string]Kind, len(fields))
	for field, kind := range fields {
		copied[field] = kind
	}
	return &Table{
		Schema:         schema,
		Name:           name,
		CreatedAtField: DefaultCreatedAtField,
		fields:         copied,
	}
}

// Lookup returns the kind of a field and whether it exists
func (t *Table) Lookup(name string) (Kind, bool) {
	kind, ok := t.fields[name]
	return kind, ok
}

// Validate checks that the creation timestamp field used for the default
// sort is a declared, sortable field
func (t *Table) Validate() error {
	kind, ok := t.Lookup(t.CreatedAtField)
	if !ok {
		return fmt.Errorf("table %s has no creation timestamp field %q", t.QualifiedName(), t.CreatedAtField)
	}
	if kind == KindDocument {
		return fmt.Errorf("creation timestamp field %q of table %s cannot be a document", t.CreatedAtField, t.QualifiedName())
	}
	return nil
}

// FieldNames returns the sorted field names of the table
func (t *Table) FieldNames() []string {
	names := make([]string, 0, len(t.fields))
	for name := range t.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// QualifiedName returns "schema.table"
func (t *Table) QualifiedName() string {
	return t.Schema + "." + t.Name
}

// Catalog is a set of tables addressable by name
type Catalog struct {
	tables map[string]*Table
	// bare names shared by tables of different schemas
	ambiguous map[string]bool
}

// New creates a catalog from the given tables
func New(tables ...*Table) *Catalog {
	c := &Catalog{
		tables:    make(map[string]*Table, len(tables)),
		ambiguous: make(map[string]bool),
	}
	for _, t := range tables {
		c.Add(t)
	}
	return c
}

// Add registers a table under its qualified name and, unless another schema
// has a table of the same name, under its bare name. An ambiguous bare name
// is removed for every table sharing it.
func (c *Catalog) Add(t *Table) {
	c.tables[t.QualifiedName()] = t

	if c.ambiguous[t.Name] {
		return
	}
	if existing, ok := c.tables[t.Name]; ok && existing.QualifiedName() != t.QualifiedName() {
		delete(c.tables, t.Name)
		c.ambiguous[t.Name] = true
		log.Warn().
			Str("table", t.Name).
			Strs("schemas", []string{existing.Schema, t.Schema}).
			Msg("Table name exists in several schemas, use the qualified name")
		return
	}
	c.tables[t.Name] = t
}

// Table looks up a table by "table" or "schema.table"
func (c *Catalog) Table(name string) (*Table, bool) {
	t, ok := c.tables[name]
	return t, ok
}

// Tables returns the registered tables ordered by qualified name
func (c *Catalog) Tables() []*Table {
	seen := make(map[*Table]bool, len(c.tables))
	out := make([]*Table, 0, len(c.tables))
	for _, t := range c.tables {
		if seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].QualifiedName() < out[j].QualifiedName()
	})
	return out
}
