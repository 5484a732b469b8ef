package query

import (
	"context"
	"net/url"

	"github.com/fluxbase-eu/filterable/internal/catalog"
)

// Processor compiles filter and sort parameters against one field catalog.
// It holds no per-request state and is safe for concurrent use.
type Processor struct {
	fields      catalog.Fields
	defaultSort string
}

// Option configures a Processor
type Option func(*Processor)

// WithDefaultSort sets the field sorted descending when no sort is requested
func WithDefaultSort(field string) Option {
	return func(p *Processor) {
		if field != "" {
			p.defaultSort = field
		}
	}
}

// NewProcessor creates a processor for the given catalog
func NewProcessor(fields catalog.Fields, opts ...Option) *Processor {
	p := &Processor{
		fields:      fields,
		defaultSort: catalog.DefaultCreatedAtField,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NewTableProcessor creates a processor for a table, sorting on its creation
// timestamp field by default
func NewTableProcessor(table *catalog.Table) *Processor {
	return NewProcessor(table, WithDefaultSort(table.CreatedAtField))
}

// Filtered is the outcome of processing one request: the condition and the
// sort keys to apply to the caller's query
type Filtered struct {
	Filter Condition
	Sort   []SortKey
}

// Process compiles both parameters. No partial result is returned: one
// invalid rule fails the whole request.
func (p *Processor) Process(params url.Values) (*Filtered, error) {
	filter, err := p.Filter(params)
	if err != nil {
		return nil, err
	}
	sort, err := p.Sort(params)
	if err != nil {
		return nil, err
	}
	return &Filtered{Filter: filter, Sort: sort}, nil
}

// Bind processes the request parameters injected into ctx with WithRequest
func (p *Processor) Bind(ctx context.Context) (*Filtered, error) {
	params, err := RequestFrom(ctx)
	if err != nil {
		return nil, err
	}
	return p.Process(params)
}
