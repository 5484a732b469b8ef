package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/fluxbase-eu/filterable/internal/catalog"
	"github.com/fluxbase-eu/filterable/internal/config"
	"github.com/fluxbase-eu/filterable/internal/database"
	"github.com/fluxbase-eu/filterable/internal/query"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// loadCatalog reads the catalog file and adds introspected tables. pool may
// be nil when no introspection is configured.
func loadCatalog(ctx context.Context, cc config.CatalogConfig, pool *pgxpool.Pool) (*catalog.Catalog, error) {
	cat := catalog.New()
	if cc.Path != "" {
		loaded, err := catalog.LoadFile(cc.Path)
		switch {
		case err == nil:
			cat = loaded
		case errors.Is(err, fs.ErrNotExist) && len(cc.Introspect) > 0:
			log.Debug().Str("path", cc.Path).Msg("Catalog file not found, using introspection only")
		default:
			return nil, err
		}
	}

	for _, name := range cc.Introspect {
		schema, table := "public", name
		if before, after, ok := strings.Cut(name, "."); ok {
			schema, table = before, after
		}
		if pool == nil {
			return nil, fmt.Errorf("cannot introspect %s without a database", name)
		}
		t, err := catalog.Introspect(ctx, pool, schema, table)
		if err != nil {
			return nil, err
		}
		cat.Add(t)
	}

	if len(cat.Tables()) == 0 {
		return nil, fmt.Errorf("catalog is empty")
	}
	return cat, nil
}

// loadFixtures fills an in-memory executor from a JSON file shaped
// {"table": [{"column": value}, ...]}
func loadFixtures(path string, cat *catalog.Catalog) (*database.MemoryExecutor, error) {
	exec := database.NewMemoryExecutor()
	if path == "" {
		return exec, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixtures: %w", err)
	}
	var fixtures map[string][]query.Row
	if err := json.Unmarshal(data, &fixtures); err != nil {
		return nil, fmt.Errorf("failed to parse fixtures %s: %w", path, err)
	}

	for name, rows := range fixtures {
		table, ok := cat.Table(name)
		if !ok {
			return nil, fmt.Errorf("fixtures reference unknown table %q", name)
		}
		exec.Insert(table, rows...)
		log.Debug().Str("table", table.QualifiedName()).Int("rows", len(rows)).Msg("Loaded fixtures")
	}
	return exec, nil
}
