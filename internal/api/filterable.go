package api

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/fluxbase-eu/filterable/internal/catalog"
	"github.com/fluxbase-eu/filterable/internal/observability"
	"github.com/fluxbase-eu/filterable/internal/query"
	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// filteredLocalsKey is the c.Locals key set by FilterMiddleware
const filteredLocalsKey = "filterable_filtered"

// FilteredHandler is a Fiber handler that receives the compiled filter and
// sort of the current request
type FilteredHandler func(c fiber.Ctx, f *query.Filtered) error

// FilterRecorder receives the outcome of every binding
type FilterRecorder interface {
	RecordFilter(table, outcome string, predicates int)
}

// BindOption configures Filterable and FilterMiddleware
type BindOption func(*binder)

// WithRecorder reports binding outcomes to r
func WithRecorder(r FilterRecorder) BindOption {
	return func(b *binder) {
		b.recorder = r
	}
}

type binder struct {
	table     *catalog.Table
	processor *query.Processor
	recorder  FilterRecorder
}

func newBinder(table *catalog.Table, opts ...BindOption) *binder {
	b := &binder{
		table:     table,
		processor: query.NewTableProcessor(table),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Filterable wraps handler so it only runs with a valid filter and sort.
// Invalid input is answered with 400 {"error": message, "code": 400} and
// the handler is not called.
func Filterable(table *catalog.Table, handler FilteredHandler, opts ...BindOption) fiber.Handler {
	b := newBinder(table, opts...)
	return func(c fiber.Ctx) error {
		f, err := b.bind(c)
		if err != nil {
			return respondBindError(c, err)
		}
		return handler(c, f)
	}
}

// FilterMiddleware binds filter and sort for the routes after it and
// exposes the result through GetFiltered
func FilterMiddleware(table *catalog.Table, opts ...BindOption) fiber.Handler {
	b := newBinder(table, opts...)
	return func(c fiber.Ctx) error {
		f, err := b.bind(c)
		if err != nil {
			return respondBindError(c, err)
		}
		c.Locals(filteredLocalsKey, f)
		return c.Next()
	}
}

// GetFiltered returns the binding stored by FilterMiddleware
func GetFiltered(c fiber.Ctx) (*query.Filtered, bool) {
	f, ok := c.Locals(filteredLocalsKey).(*query.Filtered)
	return f, ok
}

// QueryParams parses the raw query string of the request
func QueryParams(c fiber.Ctx) (url.Values, error) {
	return url.ParseQuery(string(c.Request().URI().QueryString()))
}

func (b *binder) bind(c fiber.Ctx) (*query.Filtered, error) {
	ctx, span := observability.Tracer().Start(c.Context(), "filterable.bind",
		trace.WithAttributes(attribute.String("table", b.table.QualifiedName())))
	defer span.End()

	params, err := QueryParams(c)
	if err != nil {
		err = fmt.Errorf("invalid query string: %w", err)
		b.finish(span, nil, err)
		return nil, err
	}

	ctx = query.WithRequest(ctx, params)
	c.SetContext(ctx)

	f, err := b.processor.Bind(ctx)
	b.finish(span, f, err)
	return f, err
}

func (b *binder) finish(span trace.Span, f *query.Filtered, err error) {
	outcome := "ok"
	predicates := 0
	switch {
	case err == nil:
		predicates = len(f.Filter.Predicates)
		span.SetAttributes(
			attribute.Int("filter.predicates", predicates),
			attribute.Int("sort.keys", len(f.Sort)),
		)
	case query.IsFilteringError(err):
		outcome = "invalid"
		span.SetStatus(codes.Error, err.Error())
	default:
		outcome = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	if b.recorder != nil {
		b.recorder.RecordFilter(b.table.Name, outcome, predicates)
	}
}

// respondBindError writes the 400 failure body for client errors. A missing
// request context is an integration defect and is handed to Fiber as a 500.
func respondBindError(c fiber.Ctx, err error) error {
	if errors.Is(err, query.ErrNoRequestContext) {
		log.Error().Err(err).Str("path", c.Path()).Msg("Filtering invoked without a request context")
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	message := err.Error()
	if !query.IsFilteringError(err) {
		message = fmt.Sprintf("Malformed filtering data (%v).", err)
	}

	log.Debug().Err(err).Str("path", c.Path()).Msg("Rejected filtering parameters")
	return badRequest(c, message)
}

func badRequest(c fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": message,
		"code":  fiber.StatusBadRequest,
	})
}
