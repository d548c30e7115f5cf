package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/skolaris/skolaris-api/internal/models"
)

// YearRepository handles persistence for academic years and the archive-time
// grade snapshots.
type YearRepository struct {
	db *sqlx.DB
}

// NewYearRepository instantiates a year repository.
func NewYearRepository(db *sqlx.DB) *YearRepository {
	return &YearRepository{db: db}
}

const yearColumns = "id, name, is_current, is_archived, archived_at, archived_by, created_at, updated_at"

// FindByID loads a year by identifier.
func (r *YearRepository) FindByID(ctx context.Context, id string) (*models.AcademicYear, error) {
	query := fmt.Sprintf("SELECT %s FROM academic_years WHERE id = $1", yearColumns)
	var year models.AcademicYear
	if err := r.db.GetContext(ctx, &year, query, id); err != nil {
		return nil, err
	}
	return &year, nil
}

// List returns years matching the provided filters.
func (r *YearRepository) List(ctx context.Context, filter models.YearFilter) ([]models.AcademicYear, int, error) {
	base := "FROM academic_years WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.IsCurrent != nil {
		conditions = append(conditions, fmt.Sprintf("is_current = $%d", len(args)+1))
		args = append(args, *filter.IsCurrent)
	}
	if filter.IsArchived != nil {
		conditions = append(conditions, fmt.Sprintf("is_archived = $%d", len(args)+1))
		args = append(args, *filter.IsArchived)
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", yearColumns, base, size, offset)

	var years []models.AcademicYear
	if err := r.db.SelectContext(ctx, &years, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list years: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count years: %w", err)
	}

	return years, total, nil
}

// Create inserts a new academic year record.
func (r *YearRepository) Create(ctx context.Context, year *models.AcademicYear) error {
	if year.ID == "" {
		year.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if year.CreatedAt.IsZero() {
		year.CreatedAt = now
	}
	year.UpdatedAt = now

	const query = `INSERT INTO academic_years (id, name, is_current, is_archived, created_at, updated_at)
        VALUES (:id, :name, :is_current, :is_archived, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, year); err != nil {
		return fmt.Errorf("create year: %w", err)
	}
	return nil
}

// Activate marks the provided year as current and clears every other current
// year inside one transaction, so two concurrent activations cannot leave two
// current years behind.
func (r *YearRepository) Activate(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin activate tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	if _, err = tx.ExecContext(ctx, `UPDATE academic_years SET is_current = FALSE, updated_at = $1 WHERE is_current = TRUE AND id <> $2`, now, id); err != nil {
		return fmt.Errorf("clear current years: %w", err)
	}

	var affected int64
	result, execErr := tx.ExecContext(ctx, `UPDATE academic_years SET is_current = TRUE, updated_at = $2 WHERE id = $1 AND is_archived = FALSE`, id, now)
	if execErr != nil {
		err = fmt.Errorf("activate year: %w", execErr)
		return err
	}
	if affected, err = result.RowsAffected(); err != nil {
		return fmt.Errorf("activate year result: %w", err)
	}
	if affected == 0 {
		err = fmt.Errorf("activate year: no writable row for %s", id)
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit activate tx: %w", err)
	}
	return nil
}

// Archive freezes a year: every grade referencing it is copied into the
// snapshot table with conflict-ignore semantics, then the year is flagged
// archived. The whole sequence runs on a single transaction so a failure at
// any step leaves the year untouched. Returns the number of snapshot rows
// attempted; conflicts from a prior partial run are silently skipped, which
// keeps re-archival idempotent.
func (r *YearRepository) Archive(ctx context.Context, id, actorID string) (int, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin archive tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var grades []models.GradeSnapshot
	const gradeQuery = `SELECT id, student_id, subject_id, academic_year_id, quarter, score FROM grades WHERE academic_year_id = $1`
	if err = tx.SelectContext(ctx, &grades, gradeQuery, id); err != nil {
		return 0, fmt.Errorf("read grades for archive: %w", err)
	}

	now := time.Now().UTC()
	const snapshotQuery = `INSERT INTO grade_snapshots (id, student_id, subject_id, academic_year_id, quarter, score, snapshot_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        ON CONFLICT (student_id, subject_id, academic_year_id, quarter) DO NOTHING`
	for _, grade := range grades {
		if _, err = tx.ExecContext(ctx, snapshotQuery, uuid.NewString(), grade.StudentID, grade.SubjectID, grade.AcademicYearID, grade.Quarter, grade.Score, now); err != nil {
			return 0, fmt.Errorf("snapshot grade %s: %w", grade.ID, err)
		}
	}

	const flagQuery = `UPDATE academic_years SET is_archived = TRUE, is_current = FALSE, archived_at = $2, archived_by = $3, updated_at = $2 WHERE id = $1`
	if _, err = tx.ExecContext(ctx, flagQuery, id, now, actorID); err != nil {
		return 0, fmt.Errorf("flag year archived: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit archive tx: %w", err)
	}
	return len(grades), nil
}
