package catalog

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// fileTable is the YAML shape of one table in a catalog file
type fileTable struct {
	Schema    string          `yaml:"schema"`
	Name      string          `yaml:"name"`
	CreatedAt string          `yaml:"created_at"`
	Fields    map[string]Kind `yaml:"fields"`
}

type fileCatalog struct {
	Tables []fileTable `yaml:"tables"`
}

// Parse reads a catalog from YAML.
//
// Example:
//
//	tables:
//	  - schema: public
//	    name: events
//	    fields:
//	      name: scalar
//	      active: boolean
//	      data: document
//	      created_at: scalar
func Parse(data []byte) (*Catalog, error) {
	var fc fileCatalog
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	c := New()
	for i, ft := range fc.Tables {
		if ft.Name == "" {
			return nil, fmt.Errorf("catalog table %d has no name", i)
		}
		if len(ft.Fields) == 0 {
			return nil, fmt.Errorf("catalog table %q declares no fields", ft.Name)
		}
		t := NewTable(ft.Schema, ft.Name, ft.Fields)
		if ft.CreatedAt != "" {
			t.CreatedAtField = ft.CreatedAt
		}
		if err := t.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.Table(t.QualifiedName()); dup {
			return nil, fmt.Errorf("catalog table %s is declared twice", t.QualifiedName())
		}
		c.Add(t)
	}
	return c, nil
}

// LoadFile reads a YAML catalog file from disk
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return Parse(data)
}

// KindForDataType maps a PostgreSQL data type to a field kind
func KindForDataType(dataType string) Kind {
	switch dataType {
	case "boolean":
		return KindBoolean
	case "json", "jsonb":
		return KindDocument
	default:
		return KindScalar
	}
}

// Introspect builds a table catalog from information_schema.columns
func Introspect(ctx context.Context, pool *pgxpool.Pool, schema, table string) (*Table, error) {
	rows, err := pool.Query(ctx, `
		SELECT column_name, data_type
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position
	`, schema, table)
	if err != nil {
		return nil, fmt.Errorf("failed to query columns of %s.%s: %w", schema, table, err)
	}

	type column struct {
		Name     string
		DataType string
	}
	columns, err := pgx.CollectRows(rows, pgx.RowToStructByPos[column])
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %s.%s: %w", schema, table, err)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("table not found: %s.%s", schema, table)
	}

	fields := make(map[string]Kind, len(columns))
	for _, col := range columns {
		fields[col.Name] = KindForDataType(col.DataType)
	}

	log.Debug().
		Str("schema", schema).
		Str("table", table).
		Int("fields", len(fields)).
		Msg("Introspected table catalog")

	t := NewTable(schema, table, fields)
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}
