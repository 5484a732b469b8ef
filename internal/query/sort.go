package query

import (
	"net/url"

	"github.com/fluxbase-eu/filterable/internal/catalog"
)

// SortKey orders results by a field, or by the text of a document key
type SortKey struct {
	Field Field
	Desc  bool
}

// String renders the key as "field ASC" or "field DESC"
func (k SortKey) String() string {
	if k.Desc {
		return k.Field.String() + " DESC"
	}
	return k.Field.String() + " ASC"
}

// CompileSortKey builds a sort key. Only the exact token "desc" sorts
// descending; any other direction, including none, sorts ascending.
func CompileSortKey(field Field, direction string) SortKey {
	return SortKey{Field: field, Desc: direction == "desc"}
}

// DefaultSort returns the fallback ordering: newest first on the given
// creation timestamp field
func DefaultSort(createdAtField string) []SortKey {
	return []SortKey{{
		Field: Field{Name: createdAtField, Kind: catalog.KindScalar},
		Desc:  true,
	}}
}

// Sort compiles the "sort" parameter into sort keys in precedence order.
// A missing parameter or an empty list yields the default ordering.
func (p *Processor) Sort(params url.Values) ([]SortKey, error) {
	if !params.Has(ParamSort) {
		return DefaultSort(p.defaultSort), nil
	}

	rules, err := decodeRules(params.Get(ParamSort))
	if err != nil {
		if isNotList(err) {
			return nil, newError(ErrMalformedSort, "Sort attribute must be a list/array")
		}
		return nil, newError(ErrMalformedSort, "Malformed sorting data (%v).", err)
	}

	if len(rules) == 0 {
		return DefaultSort(p.defaultSort), nil
	}

	keys := make([]SortKey, 0, len(rules))
	for i, raw := range rules {
		key, err := p.compileSortRule(raw)
		if err != nil {
			return nil, &RuleError{Rule: ErrInvalidSortRule, Index: i, Err: err}
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func (p *Processor) compileSortRule(raw interface{}) (SortKey, error) {
	rule, ok := raw.(map[string]interface{})
	if !ok {
		return SortKey{}, newError(ErrInvalidSortRule, "Sort rules must be objects with 'f' and 'o' attributes")
	}

	name, ok := rule["f"].(string)
	if !ok {
		return SortKey{}, newError(ErrUnknownField, "A sort must have a 'f' attribute with a valid entity Field")
	}

	field, err := Resolve(p.fields, name)
	if err != nil {
		return SortKey{}, err
	}

	direction, _ := rule["o"].(string)
	return CompileSortKey(field, direction), nil
}
