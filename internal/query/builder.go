package query

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lib/pq"

	"github.com/skolaris/skolaris-api/internal/models"
	appErrors "github.com/skolaris/skolaris-api/pkg/errors"
)

// Statement is a built SQL statement and its bound parameters, in placeholder
// order. Identifiers in Text have already passed validation; every literal
// value lives in Args.
type Statement struct {
	Text string
	Args []interface{}
}

// BuildSelect translates a FilterSet into a SELECT statement.
func BuildSelect(table Table, f *FilterSet) (*Statement, error) {
	cols := "*"
	if len(f.Select) > 0 {
		cols = strings.Join(f.Select, ", ")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s", cols, table.Name)

	args := appendWhere(&b, nil, allClauses(f))

	if f.Order != nil {
		direction := "DESC"
		if f.Order.Ascending {
			direction = "ASC"
		}
		fmt.Fprintf(&b, " ORDER BY %s %s", f.Order.Field, direction)
	}
	if f.Limit > 0 {
		args = append(args, f.Limit)
		fmt.Fprintf(&b, " LIMIT $%d", len(args))
	}

	return &Statement{Text: b.String(), Args: args}, nil
}

// BuildInsert emits a single INSERT covering every supplied row. The first
// row's keys define the column list for all rows; later rows missing a key
// contribute NULL for it rather than failing the request. Callers relying on
// uniform shapes must enforce that themselves.
func BuildInsert(table Table, rows []models.Record) (*Statement, error) {
	if len(rows) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "insert payload is empty")
	}

	columns := make([]string, 0, len(rows[0]))
	for col := range rows[0] {
		if err := ValidateColumn(col); err != nil {
			return nil, err
		}
		columns = append(columns, col)
	}
	if len(columns) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "insert row has no fields")
	}
	sort.Strings(columns)

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES ", table.Name, strings.Join(columns, ", "))

	args := make([]interface{}, 0, len(rows)*len(columns))
	groups := make([]string, 0, len(rows))
	for _, row := range rows {
		placeholders := make([]string, 0, len(columns))
		for _, col := range columns {
			value, ok := row[col]
			if !ok {
				value = nil
			}
			args = append(args, value)
			placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
		}
		groups = append(groups, "("+strings.Join(placeholders, ", ")+")")
	}
	b.WriteString(strings.Join(groups, ", "))
	b.WriteString(" RETURNING *")

	return &Statement{Text: b.String(), Args: args}, nil
}

// BuildUpdate emits an UPDATE with a mandatory SET payload. Only eq, neq and
// in predicates participate in the WHERE clause, in that order.
func BuildUpdate(table Table, payload models.Record, f *FilterSet) (*Statement, error) {
	if len(payload) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "update payload is empty")
	}

	columns := make([]string, 0, len(payload))
	for col := range payload {
		if err := ValidateColumn(col); err != nil {
			return nil, err
		}
		columns = append(columns, col)
	}
	sort.Strings(columns)

	var b strings.Builder
	fmt.Fprintf(&b, "UPDATE %s SET ", table.Name)

	var args []interface{}
	assignments := make([]string, 0, len(columns))
	for _, col := range columns {
		args = append(args, payload[col])
		assignments = append(assignments, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	b.WriteString(strings.Join(assignments, ", "))

	args = appendWhere(&b, args, writeClauses(f))
	b.WriteString(" RETURNING *")

	return &Statement{Text: b.String(), Args: args}, nil
}

// BuildDelete emits a DELETE. A delete without any WHERE clause is refused
// outright: an unconditional delete is never executed.
func BuildDelete(table Table, f *FilterSet) (*Statement, error) {
	clauses := writeClauses(f)
	if len(clauses) == 0 {
		return nil, appErrors.Clone(appErrors.ErrMalformedFilter, "delete requires at least one filter clause")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "DELETE FROM %s", table.Name)
	args := appendWhere(&b, nil, clauses)

	return &Statement{Text: b.String(), Args: args}, nil
}

// allClauses flattens every read predicate in deterministic order.
func allClauses(f *FilterSet) []Clause {
	clauses := append([]Clause{}, f.Eq...)
	for _, c := range []*Clause{f.Neq, f.In, f.Gt, f.Lt, f.Gte, f.Lte} {
		if c != nil {
			clauses = append(clauses, *c)
		}
	}
	return clauses
}

// writeClauses returns the predicates permitted on update/delete statements,
// in fixed eq, neq, in precedence.
func writeClauses(f *FilterSet) []Clause {
	clauses := append([]Clause{}, f.Eq...)
	if f.Neq != nil {
		clauses = append(clauses, *f.Neq)
	}
	if f.In != nil {
		clauses = append(clauses, *f.In)
	}
	return clauses
}

func appendWhere(b *strings.Builder, args []interface{}, clauses []Clause) []interface{} {
	if len(clauses) == 0 {
		return args
	}

	conditions := make([]string, 0, len(clauses))
	for _, clause := range clauses {
		switch clause.Op {
		case OpIn:
			seq, _ := clause.Value.([]interface{})
			args = append(args, pq.Array(seq))
			conditions = append(conditions, fmt.Sprintf("%s = ANY($%d)", clause.Field, len(args)))
		default:
			args = append(args, clause.Value)
			conditions = append(conditions, fmt.Sprintf("%s %s $%d", clause.Field, sqlOperator(clause.Op), len(args)))
		}
	}
	fmt.Fprintf(b, " WHERE %s", strings.Join(conditions, " AND "))
	return args
}

func sqlOperator(op Op) string {
	switch op {
	case OpEq:
		return "="
	case OpNeq:
		return "<>"
	case OpGt:
		return ">"
	case OpLt:
		return "<"
	case OpGte:
		return ">="
	case OpLte:
		return "<="
	default:
		return "="
	}
}
