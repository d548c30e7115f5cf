package query

import (
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	appErrors "github.com/skolaris/skolaris-api/pkg/errors"
)

// Op identifies a predicate operator.
type Op string

const (
	OpEq  Op = "eq"
	OpNeq Op = "neq"
	OpIn  Op = "in"
	OpGt  Op = "gt"
	OpLt  Op = "lt"
	OpGte Op = "gte"
	OpLte Op = "lte"
)

// Clause is one parsed predicate. For OpIn the value is always a slice.
type Clause struct {
	Op    Op
	Field string
	Value interface{}
}

// Order captures the requested result ordering.
type Order struct {
	Field     string
	Ascending bool
}

// FilterSet is the typed form of a request's query parameters. Eq is the only
// repeatable predicate; the rest appear at most once.
type FilterSet struct {
	Select []string
	Eq     []Clause
	Neq    *Clause
	In     *Clause
	Gt     *Clause
	Lt     *Clause
	Gte    *Clause
	Lte    *Clause
	Order  *Order
	Limit  int
}

// HasWriteClauses reports whether any predicate usable in a write WHERE
// clause is present.
func (f *FilterSet) HasWriteClauses() bool {
	return len(f.Eq) > 0 || f.Neq != nil || f.In != nil
}

// ParseFilters converts raw query values into a FilterSet. A single malformed
// clause fails the whole parse: partially applied filters could widen a
// result set instead of narrowing it.
func ParseFilters(values url.Values, maxLimit int) (*FilterSet, error) {
	if maxLimit <= 0 {
		maxLimit = 1000
	}

	f := &FilterSet{}

	if rawSelect := values.Get("select"); rawSelect != "" && rawSelect != "*" {
		for _, col := range strings.Split(rawSelect, ",") {
			col = strings.TrimSpace(col)
			if err := ValidateColumn(col); err != nil {
				return nil, err
			}
			f.Select = append(f.Select, col)
		}
	}

	for _, raw := range values["eq"] {
		clause, err := parseClause(OpEq, raw)
		if err != nil {
			return nil, err
		}
		f.Eq = append(f.Eq, *clause)
	}

	singular := []struct {
		op   Op
		dest **Clause
	}{
		{OpNeq, &f.Neq},
		{OpIn, &f.In},
		{OpGt, &f.Gt},
		{OpLt, &f.Lt},
		{OpGte, &f.Gte},
		{OpLte, &f.Lte},
	}
	for _, s := range singular {
		raws := values[string(s.op)]
		if len(raws) == 0 {
			continue
		}
		if len(raws) > 1 {
			return nil, appErrors.Clone(appErrors.ErrMalformedFilter, "predicate "+string(s.op)+" may appear only once")
		}
		clause, err := parseClause(s.op, raws[0])
		if err != nil {
			return nil, err
		}
		*s.dest = clause
	}

	if rawOrder := values.Get("order"); rawOrder != "" {
		order, err := parseOrder(rawOrder)
		if err != nil {
			return nil, err
		}
		f.Order = order
	}

	if rawLimit := values.Get("limit"); rawLimit != "" {
		limit, err := strconv.Atoi(rawLimit)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrMalformedFilter, "limit must be an integer")
		}
		if limit < 1 || limit > maxLimit {
			return nil, appErrors.Clone(appErrors.ErrMalformedFilter, "limit must be between 1 and "+strconv.Itoa(maxLimit))
		}
		f.Limit = limit
	}

	return f, nil
}

// parseClause decodes the two-element [field, value] tuple carried by every
// predicate parameter.
func parseClause(op Op, raw string) (*Clause, error) {
	var tuple []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &tuple); err != nil {
		return nil, appErrors.Clone(appErrors.ErrMalformedFilter, "predicate "+string(op)+" must be a [field, value] tuple")
	}
	if len(tuple) != 2 {
		return nil, appErrors.Clone(appErrors.ErrMalformedFilter, "predicate "+string(op)+" must have exactly two elements")
	}

	var field string
	if err := json.Unmarshal(tuple[0], &field); err != nil {
		return nil, appErrors.Clone(appErrors.ErrMalformedFilter, "predicate "+string(op)+" field must be a string")
	}
	if err := ValidateColumn(field); err != nil {
		return nil, err
	}

	var value interface{}
	if err := json.Unmarshal(tuple[1], &value); err != nil {
		return nil, appErrors.Clone(appErrors.ErrMalformedFilter, "predicate "+string(op)+" carries an undecodable value")
	}

	if op == OpIn {
		seq, ok := value.([]interface{})
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrMalformedFilter, "predicate in requires a sequence value")
		}
		value = seq
	}

	return &Clause{Op: op, Field: field, Value: value}, nil
}

// parseOrder accepts "column" or "column,direction". Direction defaults to
// descending unless exactly "asc" was supplied, case-insensitively.
func parseOrder(raw string) (*Order, error) {
	parts := strings.SplitN(raw, ",", 2)
	field := strings.TrimSpace(parts[0])
	if err := ValidateColumn(field); err != nil {
		return nil, err
	}

	ascending := false
	if len(parts) == 2 && strings.EqualFold(strings.TrimSpace(parts[1]), "asc") {
		ascending = true
	}
	return &Order{Field: field, Ascending: ascending}, nil
}
