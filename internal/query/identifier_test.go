package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateColumn(t *testing.T) {
	valid := []string{"id", "full_name", "_private", "Score2", "academic_year_id"}
	for _, name := range valid {
		assert.NoError(t, ValidateColumn(name), name)
	}

	invalid := []string{"", "1abc", "name;drop table students", "full name", "name--", "naïve", "a.b", "col)"}
	for _, name := range invalid {
		assert.Error(t, ValidateColumn(name), name)
	}
}

func TestRegistryValidateTable(t *testing.T) {
	registry := DefaultRegistry()

	table, err := registry.ValidateTable("grades")
	require.NoError(t, err)
	assert.True(t, table.YearSegregated)
	assert.Equal(t, "academic_year_id", table.YearColumn)

	table, err = registry.ValidateTable("students")
	require.NoError(t, err)
	assert.False(t, table.YearSegregated)

	_, err = registry.ValidateTable("pg_catalog")
	assert.Error(t, err)

	_, err = registry.ValidateTable("grades; DROP TABLE grades")
	assert.Error(t, err)
}

func TestNewRegistryDropsInvalidNames(t *testing.T) {
	registry := NewRegistry([]Table{
		{Name: "valid_table"},
		{Name: "bad name"},
	})

	_, err := registry.ValidateTable("valid_table")
	assert.NoError(t, err)
	_, err = registry.ValidateTable("bad name")
	assert.Error(t, err)
	assert.Len(t, registry.Names(), 1)
}
