package query

import (
	"context"
	"net/url"
)

// requestKey is the context key for the request query parameters
type requestKey struct{}

// WithRequest returns a context carrying the query parameters of the request
// being handled. Host integrations call it once per request.
func WithRequest(ctx context.Context, params url.Values) context.Context {
	if params == nil {
		params = url.Values{}
	}
	return context.WithValue(ctx, requestKey{}, params)
}

// RequestFrom returns the query parameters injected with WithRequest, or
// ErrNoRequestContext when the context does not belong to a request
func RequestFrom(ctx context.Context) (url.Values, error) {
	if ctx == nil {
		return nil, ErrNoRequestContext
	}
	params, ok := ctx.Value(requestKey{}).(url.Values)
	if !ok {
		return nil, ErrNoRequestContext
	}
	return params, nil
}
