package query

import (
	"regexp"

	appErrors "github.com/skolaris/skolaris-api/pkg/errors"
)

// columnPattern is the structural check applied to every identifier that ends
// up inside statement text. Identifiers cannot be parameterized by the
// driver, so they are validated instead.
var columnPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Table describes one entity exposed through the generic data endpoints.
type Table struct {
	Name           string
	YearSegregated bool
	YearColumn     string
}

// Registry is the immutable allow-list of addressable tables. It is built
// once at startup and never mutated afterwards.
type Registry struct {
	tables map[string]Table
}

// NewRegistry builds a registry from the given descriptors. Descriptors with
// structurally invalid names are dropped rather than registered.
func NewRegistry(tables []Table) *Registry {
	set := make(map[string]Table, len(tables))
	for _, t := range tables {
		if !columnPattern.MatchString(t.Name) {
			continue
		}
		if t.YearSegregated && t.YearColumn == "" {
			t.YearColumn = "academic_year_id"
		}
		set[t.Name] = t
	}
	return &Registry{tables: set}
}

// DefaultRegistry returns the compiled-in entity set of the school backend.
func DefaultRegistry() *Registry {
	return NewRegistry([]Table{
		{Name: "students"},
		{Name: "teachers"},
		{Name: "subjects"},
		{Name: "classes"},
		{Name: "academic_years"},
		{Name: "enrollments", YearSegregated: true},
		{Name: "grades", YearSegregated: true},
		{Name: "attendance", YearSegregated: true},
		{Name: "payments", YearSegregated: true},
		{Name: "admissions", YearSegregated: true},
	})
}

// ValidateTable resolves a table name against the allow-list.
func (r *Registry) ValidateTable(name string) (Table, error) {
	t, ok := r.tables[name]
	if !ok {
		return Table{}, appErrors.Clone(appErrors.ErrUnknownTable, "unknown table: "+name)
	}
	return t, nil
}

// Names returns the registered table names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tables))
	for name := range r.tables {
		names = append(names, name)
	}
	return names
}

// ValidateColumn checks a column identifier structurally.
func ValidateColumn(name string) error {
	if !columnPattern.MatchString(name) {
		return appErrors.Clone(appErrors.ErrInvalidIdentifier, "invalid identifier: "+name)
	}
	return nil
}
