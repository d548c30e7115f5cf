package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skolaris/skolaris-api/internal/models"
)

func newYearMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestYearRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newYearMock(t)
	defer cleanup()
	repo := NewYearRepository(db)

	rows := sqlmock.NewRows([]string{"id", "name", "is_current", "is_archived", "archived_at", "archived_by", "created_at", "updated_at"}).
		AddRow("y1", "2025/2026", true, false, nil, nil, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, is_current, is_archived, archived_at, archived_by, created_at, updated_at FROM academic_years WHERE id = $1")).
		WithArgs("y1").
		WillReturnRows(rows)

	year, err := repo.FindByID(context.Background(), "y1")
	require.NoError(t, err)
	assert.True(t, year.IsCurrent)
	assert.False(t, year.IsArchived)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestYearRepositoryActivate(t *testing.T) {
	db, mock, cleanup := newYearMock(t)
	defer cleanup()
	repo := NewYearRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE academic_years SET is_current = FALSE, updated_at = $1 WHERE is_current = TRUE AND id <> $2")).
		WithArgs(sqlmock.AnyArg(), "y2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE academic_years SET is_current = TRUE, updated_at = $2 WHERE id = $1 AND is_archived = FALSE")).
		WithArgs("y2", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Activate(context.Background(), "y2"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestYearRepositoryActivateRollsBackWhenTargetMissing(t *testing.T) {
	db, mock, cleanup := newYearMock(t)
	defer cleanup()
	repo := NewYearRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE academic_years SET is_current = FALSE").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE academic_years SET is_current = TRUE").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Activate(context.Background(), "missing")
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestYearRepositoryArchive(t *testing.T) {
	db, mock, cleanup := newYearMock(t)
	defer cleanup()
	repo := NewYearRepository(db)

	mock.ExpectBegin()
	grades := sqlmock.NewRows([]string{"id", "student_id", "subject_id", "academic_year_id", "quarter", "score"}).
		AddRow("g1", "st1", "su1", "y1", 1, 85.5).
		AddRow("g2", "st2", "su1", "y1", 1, 90.0)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, student_id, subject_id, academic_year_id, quarter, score FROM grades WHERE academic_year_id = $1")).
		WithArgs("y1").
		WillReturnRows(grades)
	mock.ExpectExec("INSERT INTO grade_snapshots").
		WithArgs(sqlmock.AnyArg(), "st1", "su1", "y1", 1, 85.5, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO grade_snapshots").
		WithArgs(sqlmock.AnyArg(), "st2", "su1", "y1", 1, 90.0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0)) // conflict-ignored row
	mock.ExpectExec(regexp.QuoteMeta("UPDATE academic_years SET is_archived = TRUE, is_current = FALSE, archived_at = $2, archived_by = $3, updated_at = $2 WHERE id = $1")).
		WithArgs("y1", sqlmock.AnyArg(), "admin-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	count, err := repo.Archive(context.Background(), "y1", "admin-1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestYearRepositoryArchiveRollsBackOnSnapshotFailure(t *testing.T) {
	db, mock, cleanup := newYearMock(t)
	defer cleanup()
	repo := NewYearRepository(db)

	mock.ExpectBegin()
	grades := sqlmock.NewRows([]string{"id", "student_id", "subject_id", "academic_year_id", "quarter", "score"}).
		AddRow("g1", "st1", "su1", "y1", 1, 85.5)
	mock.ExpectQuery("SELECT id, student_id, subject_id").WillReturnRows(grades)
	mock.ExpectExec("INSERT INTO grade_snapshots").
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := repo.Archive(context.Background(), "y1", "admin-1")
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestYearRepositoryArchiveNoGrades(t *testing.T) {
	db, mock, cleanup := newYearMock(t)
	defer cleanup()
	repo := NewYearRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, student_id, subject_id").
		WillReturnRows(sqlmock.NewRows([]string{"id", "student_id", "subject_id", "academic_year_id", "quarter", "score"}))
	mock.ExpectExec("UPDATE academic_years SET is_archived = TRUE").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	count, err := repo.Archive(context.Background(), "y1", "admin-1")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestYearRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newYearMock(t)
	defer cleanup()
	repo := NewYearRepository(db)

	mock.ExpectExec("INSERT INTO academic_years").
		WithArgs(sqlmock.AnyArg(), "2026/2027", false, false, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	year := &models.AcademicYear{Name: "2026/2027"}
	require.NoError(t, repo.Create(context.Background(), year))
	assert.NotEmpty(t, year.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
