package query

import (
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// Statement builds parameterised PostgreSQL for a filtered, sorted and
// paginated read of one table
type Statement struct {
	schema string
	table  string
	cond   Condition
	sort   []SortKey
	window *Window
}

// NewStatement creates a statement reading from schema.table
func NewStatement(schema, table string) *Statement {
	return &Statement{schema: schema, table: table}
}

// WithCondition sets the WHERE condition
func (s *Statement) WithCondition(cond Condition) *Statement {
	s.cond = cond
	return s
}

// WithSort sets the ORDER BY keys
func (s *Statement) WithSort(keys []SortKey) *Statement {
	s.sort = keys
	return s
}

// WithWindow sets LIMIT and OFFSET from a page window
func (s *Statement) WithWindow(w Window) *Statement {
	s.window = &w
	return s
}

func (s *Statement) from() string {
	return pgx.Identifier{s.schema, s.table}.Sanitize()
}

// BuildSelect returns the SELECT statement and its arguments
func (s *Statement) BuildSelect() (string, []interface{}) {
	var sb strings.Builder
	args := &argList{}

	sb.WriteString("SELECT * FROM ")
	sb.WriteString(s.from())

	if !s.cond.IsTautology() {
		sb.WriteString(" WHERE ")
		sb.WriteString(encodeCondition(s.cond, args))
	}

	if len(s.sort) > 0 {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(BuildOrderBy(s.sort))
	}

	if s.window != nil && !s.window.All() {
		fmt.Fprintf(&sb, " LIMIT %d", s.window.Limit())
		if offset := s.window.Offset(); offset > 0 {
			fmt.Fprintf(&sb, " OFFSET %d", offset)
		}
	}

	return sb.String(), args.values
}

// BuildCount returns the COUNT statement for the condition, ignoring sort and window
func (s *Statement) BuildCount() (string, []interface{}) {
	args := &argList{}
	sql := "SELECT COUNT(*) FROM " + s.from()
	if !s.cond.IsTautology() {
		sql += " WHERE " + encodeCondition(s.cond, args)
	}
	return sql, args.values
}

// BuildWhere renders a condition as a WHERE clause body with $n placeholders
// numbered from 1. The empty condition renders as TRUE.
func BuildWhere(cond Condition) (string, []interface{}) {
	args := &argList{}
	return encodeCondition(cond, args), args.values
}

// BuildOrderBy renders sort keys as an ORDER BY clause body
func BuildOrderBy(keys []SortKey) string {
	parts := make([]string, len(keys))
	for i, key := range keys {
		dir := "ASC"
		if key.Desc {
			dir = "DESC"
		}
		parts[i] = columnExpr(key.Field) + " " + dir
	}
	return strings.Join(parts, ", ")
}

type argList struct {
	values []interface{}
}

// add appends a bound argument and returns its placeholder
func (a *argList) add(v interface{}) string {
	a.values = append(a.values, v)
	return fmt.Sprintf("$%d", len(a.values))
}

func encodeCondition(cond Condition, args *argList) string {
	if cond.IsTautology() {
		return "TRUE"
	}
	parts := make([]string, len(cond.Predicates))
	for i, p := range cond.Predicates {
		parts[i] = encodePredicate(p, args)
	}
	return strings.Join(parts, " AND ")
}

func encodePredicate(p Predicate, args *argList) string {
	col := columnExpr(p.Field)

	switch p.Operator {
	case OpEqual:
		if p.Value == nil {
			return col + " IS NULL"
		}
		return col + " = " + args.add(p.Value)
	case OpNotEqual:
		if p.Value == nil {
			return col + " IS NOT NULL"
		}
		return col + " <> " + args.add(p.Value)
	case OpGreaterThan:
		return col + " > " + args.add(p.Value)
	case OpGreaterOrEqual:
		return col + " >= " + args.add(p.Value)
	case OpLessThan:
		return col + " < " + args.add(p.Value)
	case OpLessOrEqual:
		return col + " <= " + args.add(p.Value)
	case OpIn:
		if len(p.Values) == 0 {
			return "FALSE"
		}
		return col + " IN (" + placeholders(p.Values, args) + ")"
	case OpNotIn:
		if len(p.Values) == 0 {
			return "TRUE"
		}
		return col + " NOT IN (" + placeholders(p.Values, args) + ")"
	case OpHas:
		return col + " @> " + args.add(p.Values)
	case OpNotHas:
		return "NOT (" + col + " @> " + args.add(p.Values) + ")"
	case OpLike:
		return col + " LIKE " + args.add(p.Value)
	case OpNotLike:
		return col + " NOT LIKE " + args.add(p.Value)
	case OpBetween:
		return col + " BETWEEN " + args.add(p.Values[0]) + " AND " + args.add(p.Values[1])
	default:
		// Unknown operators match nothing
		return "FALSE"
	}
}

func placeholders(values []interface{}, args *argList) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = args.add(v)
	}
	return strings.Join(parts, ", ")
}

// columnExpr quotes the column, extracting the nested key as text for
// document fields
func columnExpr(f Field) string {
	ident := pgx.Identifier{f.Name}.Sanitize()
	if f.IsExtracted() {
		return "(" + ident + "->>" + quoteLiteral(f.Key) + ")"
	}
	return ident
}

// quoteLiteral quotes a string literal, doubling embedded quotes
func quoteLiteral(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
