package query

import (
	"math"
	"net/url"
	"strconv"
	"strings"
)

// PageOptions bounds the page size accepted from clients
type PageOptions struct {
	DefaultPageSize int
	MaxPageSize     int
}

// DefaultPageOptions returns 25 rows per page, capped at 250
func DefaultPageOptions() PageOptions {
	return PageOptions{DefaultPageSize: 25, MaxPageSize: 250}
}

// Window is the requested slice of the result set. A negative PageSize
// requests every row.
type Window struct {
	Page     int
	PageSize int
}

// All reports whether the window spans the whole result set
func (w Window) All() bool {
	return w.PageSize < 0
}

// Offset returns the number of rows skipped before the page
func (w Window) Offset() int {
	if w.All() {
		return 0
	}
	return (w.Page - 1) * w.PageSize
}

// Limit returns the maximum number of rows of the page, or -1 for all rows
func (w Window) Limit() int {
	if w.All() {
		return -1
	}
	return w.PageSize
}

// ParsePage reads "page" and "pageSize". The page size is capped at
// MaxPageSize; a negative page size returns all rows and forces page 1.
func ParsePage(params url.Values, opts PageOptions) (Window, error) {
	page, err := intParam(params, ParamPage, 1)
	if err != nil {
		return Window{}, err
	}
	pageSize, err := intParam(params, ParamPageSize, opts.DefaultPageSize)
	if err != nil {
		return Window{}, err
	}

	if opts.MaxPageSize > 0 && pageSize > opts.MaxPageSize {
		pageSize = opts.MaxPageSize
	}
	if pageSize < 0 || page < 1 {
		page = 1
	}
	// The offset (page-1)*pageSize must fit in an int
	if pageSize > 0 && page-1 > math.MaxInt/pageSize {
		return Window{}, newError(ErrMalformedPage, "Parameter '%s' is out of range", ParamPage)
	}
	return Window{Page: page, PageSize: pageSize}, nil
}

func intParam(params url.Values, name string, fallback int) (int, error) {
	if !params.Has(name) {
		return fallback, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(params.Get(name)))
	if err != nil {
		return 0, newError(ErrMalformedPage, "Parameter '%s' must be an integer", name)
	}
	return n, nil
}

// Page is the paginated response body
type Page struct {
	Page      int           `json:"page"`
	PageSize  int           `json:"pageSize"`
	TotalRows int64         `json:"totalRows"`
	Rows      []interface{} `json:"rows"`
}

// JSONable is implemented by rows that control their own serialisation
type JSONable interface {
	JSONable() interface{}
}

// NewPage builds the response for a window, serialising rows through
// JSONable when they implement it
func NewPage(w Window, total int64, rows []interface{}) Page {
	out := make([]interface{}, len(rows))
	for i, row := range rows {
		if j, ok := row.(JSONable); ok {
			out[i] = j.JSONable()
			continue
		}
		out[i] = row
	}
	return Page{
		Page:      w.Page,
		PageSize:  w.PageSize,
		TotalRows: total,
		Rows:      out,
	}
}
