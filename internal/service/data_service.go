package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"go.uber.org/zap"

	"github.com/skolaris/skolaris-api/internal/models"
	"github.com/skolaris/skolaris-api/internal/query"
	appErrors "github.com/skolaris/skolaris-api/pkg/errors"
)

type dataExecutor interface {
	Query(ctx context.Context, stmt *query.Statement) ([]models.Record, error)
	Exec(ctx context.Context, stmt *query.Statement) (int64, error)
}

type writeGate interface {
	CheckWrite(ctx context.Context, table query.Table, rows []models.Record, filters *query.FilterSet) error
}

// DataService orchestrates the generic table surface: identifier validation,
// filter parsing, write gating, then statement building and execution. No SQL
// text exists before the table and every column have passed validation.
type DataService struct {
	registry *query.Registry
	executor dataExecutor
	gate     writeGate
	logger   *zap.Logger
	maxLimit int
}

// NewDataService constructs the data service.
func NewDataService(registry *query.Registry, executor dataExecutor, gate writeGate, logger *zap.Logger, maxLimit int) *DataService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxLimit <= 0 {
		maxLimit = 1000
	}
	return &DataService{
		registry: registry,
		executor: executor,
		gate:     gate,
		logger:   logger,
		maxLimit: maxLimit,
	}
}

// Select reads rows from a table. With single set, exactly one record is
// returned and an empty result is a not-found outcome.
func (s *DataService) Select(ctx context.Context, tableName string, values url.Values, single bool) (interface{}, error) {
	table, err := s.registry.ValidateTable(tableName)
	if err != nil {
		return nil, err
	}
	filters, err := query.ParseFilters(values, s.maxLimit)
	if err != nil {
		return nil, err
	}

	stmt, err := query.BuildSelect(table, filters)
	if err != nil {
		return nil, err
	}

	records, err := s.executor.Query(ctx, stmt)
	if err != nil {
		return nil, err
	}

	if single {
		if len(records) == 0 {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no matching record")
		}
		return records[0], nil
	}
	return records, nil
}

// Insert writes one or many rows. A JSON object payload inserts one row; an
// array payload inserts all rows in a single statement, so the batch is
// all-or-nothing. Rows after the first may omit fields; omitted fields are
// stored as NULL.
func (s *DataService) Insert(ctx context.Context, tableName string, body json.RawMessage) (interface{}, error) {
	table, err := s.registry.ValidateTable(tableName)
	if err != nil {
		return nil, err
	}

	rows, single, err := normalizePayload(body)
	if err != nil {
		return nil, err
	}

	if err := s.gate.CheckWrite(ctx, table, rows, nil); err != nil {
		return nil, err
	}

	stmt, err := query.BuildInsert(table, rows)
	if err != nil {
		return nil, err
	}

	records, err := s.executor.Query(ctx, stmt)
	if err != nil {
		return nil, err
	}

	if single && len(records) == 1 {
		return records[0], nil
	}
	return records, nil
}

// Update applies a SET payload to the rows matched by the supplied
// predicates. Matching zero rows is a not-found outcome, not an error.
func (s *DataService) Update(ctx context.Context, tableName string, values url.Values, body json.RawMessage) ([]models.Record, error) {
	table, err := s.registry.ValidateTable(tableName)
	if err != nil {
		return nil, err
	}
	filters, err := query.ParseFilters(values, s.maxLimit)
	if err != nil {
		return nil, err
	}

	var payload models.Record
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "update payload must be a JSON object")
	}

	if err := s.gate.CheckWrite(ctx, table, nil, filters); err != nil {
		return nil, err
	}

	stmt, err := query.BuildUpdate(table, payload, filters)
	if err != nil {
		return nil, err
	}

	records, err := s.executor.Query(ctx, stmt)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no record matched the update")
	}
	return records, nil
}

// Delete removes the rows matched by the supplied predicates. An
// unconditional delete never reaches the store: the builder refuses it.
func (s *DataService) Delete(ctx context.Context, tableName string, values url.Values) (*models.DeleteResult, error) {
	table, err := s.registry.ValidateTable(tableName)
	if err != nil {
		return nil, err
	}
	filters, err := query.ParseFilters(values, s.maxLimit)
	if err != nil {
		return nil, err
	}

	if err := s.gate.CheckWrite(ctx, table, nil, filters); err != nil {
		return nil, err
	}

	stmt, err := query.BuildDelete(table, filters)
	if err != nil {
		return nil, err
	}

	affected, err := s.executor.Exec(ctx, stmt)
	if err != nil {
		return nil, err
	}

	return &models.DeleteResult{
		Message:  fmt.Sprintf("deleted %d row(s) from %s", affected, table.Name),
		RowCount: affected,
	}, nil
}

// normalizePayload accepts either a single JSON object or an array of
// objects, returning the rows and whether the input was a single object.
func normalizePayload(body json.RawMessage) ([]models.Record, bool, error) {
	var single models.Record
	if err := json.Unmarshal(body, &single); err == nil {
		if len(single) == 0 {
			return nil, false, appErrors.Clone(appErrors.ErrValidation, "insert payload is empty")
		}
		return []models.Record{single}, true, nil
	}

	var many []models.Record
	if err := json.Unmarshal(body, &many); err != nil {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "insert payload must be an object or array of objects")
	}
	if len(many) == 0 {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "insert payload is empty")
	}
	return many, false, nil
}
