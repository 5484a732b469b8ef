package query

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedFilter is returned when the filter parameter is not a JSON list
	ErrMalformedFilter = errors.New("malformed filter")
	// ErrMalformedSort is returned when the sort parameter is not a JSON list
	ErrMalformedSort = errors.New("malformed sort")
	// ErrMalformedPage is returned when page or pageSize are not integers
	ErrMalformedPage = errors.New("malformed pagination")
	// ErrUnknownField is returned when a rule names a field missing from the catalog
	ErrUnknownField = errors.New("unknown field")
	// ErrNestedKey is returned when a document field lacks a key, or a plain field has one
	ErrNestedKey = errors.New("invalid nested key")
	// ErrInvalidOperator is returned for unrecognised operators or operators the field kind rejects
	ErrInvalidOperator = errors.New("invalid operator")
	// ErrInvalidValueShape is returned when the value does not fit the operator
	ErrInvalidValueShape = errors.New("invalid value shape")
	// ErrInvalidFilterRule marks errors raised while compiling a filter rule
	ErrInvalidFilterRule = errors.New("invalid filter rule")
	// ErrInvalidSortRule marks errors raised while compiling a sort rule
	ErrInvalidSortRule = errors.New("invalid sort rule")
	// ErrNoRequestContext is returned when no request parameters were injected into the context
	ErrNoRequestContext = errors.New("no request context provided")
)

// Error carries a client-facing message for one of the sentinel kinds
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func newError(kind error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// RuleError reports the first invalid rule of a filter or sort list
type RuleError struct {
	Rule  error // ErrInvalidFilterRule or ErrInvalidSortRule
	Index int
	Err   error
}

func (e *RuleError) Error() string {
	return e.Err.Error()
}

// Unwrap exposes both the rule kind and the underlying cause to errors.Is
func (e *RuleError) Unwrap() []error {
	return []error{e.Rule, e.Err}
}

// IsFilteringError reports whether err was caused by client input rather than
// by the host integration
func IsFilteringError(err error) bool {
	for _, kind := range []error{
		ErrMalformedFilter,
		ErrMalformedSort,
		ErrMalformedPage,
		ErrUnknownField,
		ErrNestedKey,
		ErrInvalidOperator,
		ErrInvalidValueShape,
		ErrInvalidFilterRule,
		ErrInvalidSortRule,
	} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}
