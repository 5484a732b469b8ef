package query

import (
	"encoding/json"
	"net/url"
)

// Query parameter names read by the processors
const (
	ParamFilter   = "filter"
	ParamSort     = "sort"
	ParamPage     = "page"
	ParamPageSize = "pageSize"
)

// Condition is the conjunction of the compiled predicates in rule order.
// A condition without predicates always matches.
type Condition struct {
	Predicates []Predicate
}

// IsTautology reports whether the condition matches every row
func (c Condition) IsTautology() bool {
	return len(c.Predicates) == 0
}

// Filter compiles the "filter" parameter into a condition. A missing
// parameter yields the always-true condition.
func (p *Processor) Filter(params url.Values) (Condition, error) {
	if !params.Has(ParamFilter) {
		return Condition{}, nil
	}

	rules, err := decodeRules(params.Get(ParamFilter))
	if err != nil {
		if isNotList(err) {
			return Condition{}, newError(ErrMalformedFilter, "Filters attribute must be a list/array of objects")
		}
		return Condition{}, newError(ErrMalformedFilter, "Malformed filtering data (%v).", err)
	}

	predicates := make([]Predicate, 0, len(rules))
	for i, raw := range rules {
		pred, err := p.compileFilterRule(raw)
		if err != nil {
			return Condition{}, &RuleError{Rule: ErrInvalidFilterRule, Index: i, Err: err}
		}
		predicates = append(predicates, pred)
	}
	return Condition{Predicates: predicates}, nil
}

func (p *Processor) compileFilterRule(raw interface{}) (Predicate, error) {
	rule, ok := raw.(map[string]interface{})
	if !ok {
		return Predicate{}, newError(ErrInvalidFilterRule, "Filter rules must be objects with 'f', 'o' and 'v' attributes")
	}

	name, ok := rule["f"].(string)
	if !ok {
		return Predicate{}, newError(ErrUnknownField, "A filter must have an 'f' attribute with a valid entity Field")
	}

	field, err := Resolve(p.fields, name)
	if err != nil {
		return Predicate{}, err
	}

	token := string(DefaultOperator)
	if o, exists := rule["o"]; exists {
		s, ok := o.(string)
		if !ok {
			return Predicate{}, newError(ErrInvalidOperator,
				"Invalid operation '%v' for field '%s'", o, field.Name)
		}
		token = s
	}

	return CompilePredicate(field, rule["v"], token)
}

// errNotList is returned by decodeRules when the JSON is valid but not an array
type errNotList struct{}

func (errNotList) Error() string { return "expected a JSON array" }

func isNotList(err error) bool {
	_, ok := err.(errNotList)
	return ok
}

// decodeRules parses a JSON array of rule objects
func decodeRules(raw string) ([]interface{}, error) {
	var decoded interface{}
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil, err
	}
	rules, ok := decoded.([]interface{})
	if !ok {
		return nil, errNotList{}
	}
	return rules, nil
}
