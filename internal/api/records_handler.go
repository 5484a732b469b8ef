package api

import (
	"github.com/fluxbase-eu/filterable/internal/catalog"
	"github.com/fluxbase-eu/filterable/internal/database"
	"github.com/fluxbase-eu/filterable/internal/query"
	"github.com/gofiber/fiber/v3"
)

// RecordsHandler serves the filtered list endpoint of every catalog table
type RecordsHandler struct {
	catalog  *catalog.Catalog
	exec     database.Executor
	pageOpts query.PageOptions
	lists    map[string]fiber.Handler
}

// NewRecordsHandler builds one bound list handler per catalog table. The
// catalog must not change afterwards.
func NewRecordsHandler(cat *catalog.Catalog, exec database.Executor, pageOpts query.PageOptions, opts ...BindOption) *RecordsHandler {
	h := &RecordsHandler{
		catalog:  cat,
		exec:     exec,
		pageOpts: pageOpts,
		lists:    make(map[string]fiber.Handler),
	}
	for _, table := range cat.Tables() {
		h.lists[table.QualifiedName()] = Filterable(table, h.listRows(table), opts...)
	}
	return h
}

func (h *RecordsHandler) listRows(table *catalog.Table) FilteredHandler {
	return func(c fiber.Ctx, f *query.Filtered) error {
		return Paginate(c, h.exec, table, f, h.pageOpts)
	}
}

// List returns a page of rows of one table
// GET /api/v1/tables/:table?filter=[...]&sort=[...]&page=1&pageSize=25
func (h *RecordsHandler) List(c fiber.Ctx) error {
	name := c.Params("table")
	table, ok := h.catalog.Table(name)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Table '" + name + "' not found",
			"code":  fiber.StatusNotFound,
		})
	}
	return h.lists[table.QualifiedName()](c)
}

type fieldInfo struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

type tableInfo struct {
	Schema         string      `json:"schema"`
	Name           string      `json:"name"`
	CreatedAtField string      `json:"created_at_field"`
	Fields         []fieldInfo `json:"fields"`
}

// Tables describes the filterable tables and their field kinds
// GET /api/v1/tables
func (h *RecordsHandler) Tables(c fiber.Ctx) error {
	tables := h.catalog.Tables()
	out := make([]tableInfo, 0, len(tables))
	for _, table := range tables {
		info := tableInfo{
			Schema:         table.Schema,
			Name:           table.Name,
			CreatedAtField: table.CreatedAtField,
			Fields:         []fieldInfo{},
		}
		for _, name := range table.FieldNames() {
			kind, _ := table.Lookup(name)
			info.Fields = append(info.Fields, fieldInfo{Name: name, Kind: kind.String()})
		}
		out = append(out, info)
	}
	return c.JSON(out)
}
