package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/skolaris/skolaris-api/internal/models"
	"github.com/skolaris/skolaris-api/internal/query"
	appErrors "github.com/skolaris/skolaris-api/pkg/errors"
)

// queryObserver receives statement timing for instrumentation.
type queryObserver interface {
	ObserveDBQuery(operation string, duration time.Duration)
}

// DataRepository executes built statements against the pooled store. It is
// the only component that touches connections for the generic data surface;
// connections are scoped per call and released on every exit path.
type DataRepository struct {
	db      *sqlx.DB
	metrics queryObserver
	timeout time.Duration
}

// NewDataRepository constructs the executor. metrics may be nil.
func NewDataRepository(db *sqlx.DB, metrics queryObserver, timeout time.Duration) *DataRepository {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &DataRepository{db: db, metrics: metrics, timeout: timeout}
}

// Query runs a row-returning statement and scans every row into a Record,
// preserving result order.
func (r *DataRepository) Query(ctx context.Context, stmt *query.Statement) ([]models.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	records, err := scanRecords(r.db.QueryxContext(ctx, stmt.Text, stmt.Args...))
	r.observe("query", start)
	return records, err
}

func scanRecords(rows *sqlx.Rows, err error) ([]models.Record, error) {
	if err != nil {
		return nil, ClassifyDataError(err)
	}
	defer rows.Close()

	records := []models.Record{}
	for rows.Next() {
		row := models.Record{}
		if err := rows.MapScan(row); err != nil {
			return nil, ClassifyDataError(err)
		}
		records = append(records, normalizeRecord(row))
	}
	if err := rows.Err(); err != nil {
		return nil, ClassifyDataError(err)
	}
	return records, nil
}

// Exec runs a statement that reports affected rows instead of returning them.
func (r *DataRepository) Exec(ctx context.Context, stmt *query.Statement) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	result, err := r.db.ExecContext(ctx, stmt.Text, stmt.Args...)
	r.observe("exec", start)
	if err != nil {
		return 0, ClassifyDataError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, ClassifyDataError(err)
	}
	return affected, nil
}

func (r *DataRepository) observe(operation string, start time.Time) {
	if r.metrics != nil {
		r.metrics.ObserveDBQuery(operation, time.Since(start))
	}
}

// normalizeRecord converts driver byte slices to strings so records marshal
// to JSON as text rather than base64.
func normalizeRecord(row models.Record) models.Record {
	for key, value := range row {
		if raw, ok := value.([]byte); ok {
			row[key] = string(raw)
		}
	}
	return row
}

// ClassifyDataError maps store failures onto the error taxonomy. Constraint
// violations are distinguished from generic failures, and deadline blows
// surface as a transient unavailability.
func ClassifyDataError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.ErrNotFound
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return appErrors.Wrap(err, appErrors.ErrDataUnavailable.Code, appErrors.ErrDataUnavailable.Status, "statement timed out")
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch {
		case pqErr.Code.Class() == "23":
			return appErrors.Wrap(err, appErrors.ErrDuplicate.Code, appErrors.ErrDuplicate.Status, "constraint violation")
		case pqErr.Code == "57014": // query_canceled, raised on statement_timeout
			return appErrors.Wrap(err, appErrors.ErrDataUnavailable.Code, appErrors.ErrDataUnavailable.Status, "statement timed out")
		}
	}

	return appErrors.Wrap(err, "DATA_ERROR", appErrors.ErrInternal.Status, "data store failure")
}
