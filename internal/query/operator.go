package query

import (
	"encoding/json"
	"strconv"

	"github.com/fluxbase-eu/filterable/internal/catalog"
)

// Operator is a filter rule operator token
type Operator string

const (
	OpEqual          Operator = "eq"
	OpNotEqual       Operator = "neq"
	OpGreaterThan    Operator = "gt"
	OpGreaterOrEqual Operator = "gte"
	OpLessThan       Operator = "lt"
	OpLessOrEqual    Operator = "lte"
	OpIn             Operator = "in"
	OpNotIn          Operator = "nin"
	OpHas            Operator = "has"
	OpNotHas         Operator = "hasn"
	OpLike           Operator = "lk"
	OpNotLike        Operator = "nlk"
	OpBetween        Operator = "btw"
)

// DefaultOperator is used when a filter rule has no "o" attribute
const DefaultOperator = OpEqual

// ParseOperator validates an operator token. Tokens are case-sensitive.
func ParseOperator(token string) (Operator, error) {
	switch op := Operator(token); op {
	case OpEqual, OpNotEqual, OpGreaterThan, OpGreaterOrEqual, OpLessThan, OpLessOrEqual,
		OpIn, OpNotIn, OpHas, OpNotHas, OpLike, OpNotLike, OpBetween:
		return op, nil
	default:
		return "", newError(ErrInvalidOperator, "Invalid operation '%s'", token)
	}
}

// requiresList reports whether the operator only accepts list values
func (o Operator) requiresList() bool {
	return o == OpIn || o == OpNotIn || o == OpBetween
}

// Predicate is a single compiled filter rule. Value holds the operand of
// comparison and pattern operators; Values holds the list operand of
// membership, containment and range operators.
type Predicate struct {
	Field    Field
	Operator Operator
	Value    interface{}
	Values   []interface{}
}

// CompilePredicate validates the value shape for the operator and builds the
// predicate for the resolved field
func CompilePredicate(field Field, value interface{}, token string) (Predicate, error) {
	op, err := ParseOperator(token)
	if err != nil {
		return Predicate{}, newError(ErrInvalidOperator,
			"Invalid operation '%s' for field '%s'", token, field.Name)
	}

	list, isList := value.([]interface{})
	if op.requiresList() && !isList {
		// A single string is accepted as a one-element set for in/nin
		if s, ok := value.(string); ok && op != OpBetween {
			list, isList = []interface{}{s}, true
		} else {
			return Predicate{}, newError(ErrInvalidValueShape, "Operation \"%s\" must have a list", op)
		}
	}

	if op == OpBetween && len(list) != 2 {
		return Predicate{}, newError(ErrInvalidValueShape,
			"Operation \"btw\" must be a list with two values (from/to)")
	}

	if field.Kind == catalog.KindBoolean {
		if op != OpEqual && op != OpNotEqual {
			return Predicate{}, newError(ErrInvalidOperator,
				"Only \"eq\" and \"neq\" is allowed for boolean columns")
		}
		return Predicate{Field: field, Operator: op, Value: coerceBool(value)}, nil
	}

	p := Predicate{Field: field, Operator: op}

	switch op {
	case OpEqual, OpNotEqual:
		if !isScalar(value) && value != nil {
			return Predicate{}, newError(ErrInvalidValueShape, "Operation \"%s\" must have a single value", op)
		}
		p.Value = operand(field, value)

	case OpGreaterThan, OpGreaterOrEqual, OpLessThan, OpLessOrEqual:
		if !isScalar(value) {
			return Predicate{}, newError(ErrInvalidValueShape, "Operation \"%s\" must have a single value", op)
		}
		p.Value = operand(field, value)

	case OpLike, OpNotLike:
		if !isScalar(value) {
			return Predicate{}, newError(ErrInvalidValueShape, "Operation \"%s\" must have a single value", op)
		}
		p.Value = "%" + textValue(value) + "%"

	case OpIn, OpNotIn, OpHas, OpNotHas:
		if !isList {
			s, ok := value.(string)
			if !ok {
				return Predicate{}, newError(ErrInvalidValueShape, "Operation \"%s\" must have a list", op)
			}
			list = []interface{}{s}
		}
		values, err := operands(field, op, list)
		if err != nil {
			return Predicate{}, err
		}
		p.Values = values

	case OpBetween:
		values, err := operands(field, op, list)
		if err != nil {
			return Predicate{}, err
		}
		p.Values = values

	default:
		return Predicate{}, newError(ErrInvalidOperator,
			"Invalid operation '%s' for field '%s'", token, field.Name)
	}

	return p, nil
}

// coerceBool maps "True", "true" and "1" to true and anything else to false
func coerceBool(value interface{}) bool {
	switch textValue(value) {
	case "True", "true", "1":
		return true
	default:
		return false
	}
}

// operand converts a value for comparison against the field. Values compared
// to an extracted document key are compared as text.
func operand(field Field, value interface{}) interface{} {
	if field.IsExtracted() && value != nil {
		return textValue(value)
	}
	return value
}

func operands(field Field, op Operator, list []interface{}) ([]interface{}, error) {
	values := make([]interface{}, len(list))
	for i, v := range list {
		if !isScalar(v) {
			return nil, newError(ErrInvalidValueShape,
				"Operation \"%s\" only accepts a list of single values", op)
		}
		values[i] = operand(field, v)
	}
	return values, nil
}

// isScalar reports whether v is a JSON string, number or boolean
func isScalar(v interface{}) bool {
	switch v.(type) {
	case string, float64, json.Number, bool:
		return true
	default:
		return false
	}
}

// textValue renders a JSON value as text
func textValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(data)
	}
}
