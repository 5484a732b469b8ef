package api

import (
	"errors"

	"github.com/fluxbase-eu/filterable/internal/catalog"
	"github.com/fluxbase-eu/filterable/internal/database"
	"github.com/fluxbase-eu/filterable/internal/query"
	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"
)

// ParseWindow reads "page" and "pageSize" from the request
func ParseWindow(c fiber.Ctx, opts query.PageOptions) (query.Window, error) {
	params, err := QueryParams(c)
	if err != nil {
		return query.Window{}, err
	}
	return query.ParsePage(params, opts)
}

// Paginate answers the request with one page of the filtered rows:
// {"page", "pageSize", "totalRows", "rows"}
func Paginate(c fiber.Ctx, exec database.Executor, table *catalog.Table, f *query.Filtered, opts query.PageOptions) error {
	window, err := ParseWindow(c, opts)
	if err != nil {
		if errors.Is(err, query.ErrMalformedPage) {
			return badRequest(c, err.Error())
		}
		return respondBindError(c, err)
	}

	page, err := database.Paginate(c.Context(), exec, table, f, window)
	if err != nil {
		log.Error().Err(err).Str("table", table.QualifiedName()).Msg("Failed to fetch page")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch rows",
			"code":  fiber.StatusInternalServerError,
		})
	}
	return c.JSON(page)
}
