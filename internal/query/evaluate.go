package query

import (
	"encoding/json"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Row is a record keyed by column name
type Row = map[string]interface{}

// Match evaluates the condition against an in-memory row with SQL semantics:
// comparisons against a missing or NULL value are false.
func (c Condition) Match(row Row) bool {
	for _, p := range c.Predicates {
		if !p.Match(row) {
			return false
		}
	}
	return true
}

// Match evaluates a single predicate against a row
func (p Predicate) Match(row Row) bool {
	val := fieldValue(row, p.Field)

	switch p.Operator {
	case OpEqual:
		if p.Value == nil {
			return val == nil
		}
		c, ok := compareValues(val, p.Value)
		return ok && c == 0
	case OpNotEqual:
		if p.Value == nil {
			return val != nil
		}
		c, ok := compareValues(val, p.Value)
		return ok && c != 0
	case OpGreaterThan:
		c, ok := compareValues(val, p.Value)
		return ok && c > 0
	case OpGreaterOrEqual:
		c, ok := compareValues(val, p.Value)
		return ok && c >= 0
	case OpLessThan:
		c, ok := compareValues(val, p.Value)
		return ok && c < 0
	case OpLessOrEqual:
		c, ok := compareValues(val, p.Value)
		return ok && c <= 0
	case OpIn:
		return val != nil && containsValue(p.Values, val)
	case OpNotIn:
		if len(p.Values) == 0 {
			return true
		}
		return val != nil && !containsValue(p.Values, val)
	case OpHas:
		return hasAll(val, p.Values)
	case OpNotHas:
		return val != nil && !hasAll(val, p.Values)
	case OpLike:
		return val != nil && likeMatch(rowText(val), textValue(p.Value))
	case OpNotLike:
		return val != nil && !likeMatch(rowText(val), textValue(p.Value))
	case OpBetween:
		lo, ok := compareValues(val, p.Values[0])
		if !ok || lo < 0 {
			return false
		}
		hi, ok := compareValues(val, p.Values[1])
		return ok && hi <= 0
	default:
		return false
	}
}

// SortRows orders rows by the sort keys. NULLs sort last ascending and first
// descending, as in PostgreSQL.
func SortRows(rows []Row, keys []SortKey) {
	sort.SliceStable(rows, func(i, j int) bool {
		for _, key := range keys {
			a := fieldValue(rows[i], key.Field)
			b := fieldValue(rows[j], key.Field)

			c := orderValues(a, b)
			if c == 0 {
				continue
			}
			if key.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

// fieldValue reads the column, or the text of the nested key for document fields
func fieldValue(row Row, f Field) interface{} {
	val, ok := row[f.Name]
	if !ok || val == nil {
		return nil
	}
	if !f.IsExtracted() {
		return val
	}

	doc, ok := val.(map[string]interface{})
	if !ok {
		return nil
	}
	nested, ok := doc[f.Key]
	if !ok || nested == nil {
		return nil
	}
	return rowText(nested)
}

// orderValues compares two values for sorting, with NULL greater than any value
func orderValues(a, b interface{}) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	if c, ok := compareValues(a, b); ok {
		return c
	}
	return strings.Compare(rowText(a), rowText(b))
}

// compareValues compares a row value to an operand. The second result is
// false when either side is NULL.
func compareValues(a, b interface{}) (int, bool) {
	if a == nil || b == nil {
		return 0, false
	}

	if as, ok := a.(string); ok {
		if bs, ok := b.(string); ok {
			return strings.Compare(as, bs), true
		}
	}

	if af, ok := toFloat(a); ok {
		if bf, ok := toFloat(b); ok {
			return compareFloats(af, bf), true
		}
	}

	if at, ok := a.(time.Time); ok {
		if bt, ok := toTime(b); ok {
			return at.Compare(bt), true
		}
	}

	if ab, ok := a.(bool); ok {
		if bb, ok := b.(bool); ok {
			switch {
			case ab == bb:
				return 0, true
			case !ab:
				return -1, true
			default:
				return 1, true
			}
		}
	}

	return strings.Compare(rowText(a), rowText(b)), true
}

func compareFloats(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// toFloat converts numbers, and strings holding numbers, to float64
func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func toTime(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05", time.DateOnly} {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed, true
			}
		}
	}
	return time.Time{}, false
}

// rowText renders a row value the way PostgreSQL casts it to text
func rowText(v interface{}) string {
	if t, ok := v.(time.Time); ok {
		return t.Format(time.RFC3339Nano)
	}
	return textValue(v)
}

func containsValue(values []interface{}, val interface{}) bool {
	for _, v := range values {
		if c, ok := compareValues(val, v); ok && c == 0 {
			return true
		}
	}
	return false
}

// hasAll reports whether the collection value contains every wanted element
func hasAll(collection interface{}, wanted []interface{}) bool {
	if collection == nil {
		return false
	}
	rv := reflect.ValueOf(collection)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return false
	}

	elems := make([]interface{}, rv.Len())
	for i := range elems {
		elems[i] = rv.Index(i).Interface()
	}
	for _, w := range wanted {
		if !containsValue(elems, w) {
			return false
		}
	}
	return true
}

// likeMatch implements SQL LIKE: % matches any run, _ any single character
func likeMatch(s, pattern string) bool {
	var sb strings.Builder
	sb.WriteString("(?s)^")
	for _, r := range pattern {
		switch r {
		case '%':
			sb.WriteString(".*")
		case '_':
			sb.WriteString(".")
		default:
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	sb.WriteString("$")

	re, err := regexp.Compile(sb.String())
	if err != nil {
		return false
	}
	return re.MatchString(s)
}
