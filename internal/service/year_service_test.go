package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skolaris/skolaris-api/internal/models"
	appErrors "github.com/skolaris/skolaris-api/pkg/errors"
)

type yearStoreStub struct {
	years         map[string]*models.AcademicYear
	archiveCount  int
	archiveErr    error
	activateErr   error
	activatedID   string
	archivedID    string
	archivedActor string
}

func (s *yearStoreStub) FindByID(ctx context.Context, id string) (*models.AcademicYear, error) {
	year, ok := s.years[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *year
	return &copied, nil
}

func (s *yearStoreStub) List(ctx context.Context, filter models.YearFilter) ([]models.AcademicYear, int, error) {
	result := make([]models.AcademicYear, 0, len(s.years))
	for _, year := range s.years {
		result = append(result, *year)
	}
	return result, len(result), nil
}

func (s *yearStoreStub) Create(ctx context.Context, year *models.AcademicYear) error {
	if year.ID == "" {
		year.ID = "generated"
	}
	if s.years == nil {
		s.years = map[string]*models.AcademicYear{}
	}
	s.years[year.ID] = year
	return nil
}

func (s *yearStoreStub) Activate(ctx context.Context, id string) error {
	if s.activateErr != nil {
		return s.activateErr
	}
	s.activatedID = id
	for _, year := range s.years {
		year.IsCurrent = year.ID == id
	}
	return nil
}

func (s *yearStoreStub) Archive(ctx context.Context, id, actorID string) (int, error) {
	if s.archiveErr != nil {
		return 0, s.archiveErr
	}
	s.archivedID = id
	s.archivedActor = actorID
	year := s.years[id]
	year.IsArchived = true
	year.IsCurrent = false
	return s.archiveCount, nil
}

type gateInvalidatorStub struct {
	invalidated []string
}

func (s *gateInvalidatorStub) Invalidate(ctx context.Context, yearID string) {
	s.invalidated = append(s.invalidated, yearID)
}

type auditLoggerStub struct {
	logs []*models.AuditLog
}

func (s *auditLoggerStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	s.logs = append(s.logs, log)
	return nil
}

var adminClaims = &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}

func TestYearServiceActivate(t *testing.T) {
	store := &yearStoreStub{years: map[string]*models.AcademicYear{
		"y1": {ID: "y1", Name: "2024/2025", IsCurrent: true},
		"y2": {ID: "y2", Name: "2025/2026"},
	}}
	gate := &gateInvalidatorStub{}
	audit := &auditLoggerStub{}
	svc := NewYearService(store, gate, audit, nil, nil)

	year, err := svc.Activate(context.Background(), "y2", adminClaims)
	require.NoError(t, err)
	assert.True(t, year.IsCurrent)
	assert.Equal(t, "y2", store.activatedID)
	assert.Equal(t, []string{"y2"}, gate.invalidated)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionYearActivate, audit.logs[0].Action)

	// The stub mirrors the store's transactional guarantee: one current year.
	current := 0
	for _, y := range store.years {
		if y.IsCurrent {
			current++
		}
	}
	assert.Equal(t, 1, current)
}

func TestYearServiceActivateRejectsArchived(t *testing.T) {
	store := &yearStoreStub{years: map[string]*models.AcademicYear{
		"y1": {ID: "y1", IsArchived: true},
	}}
	svc := NewYearService(store, nil, nil, nil, nil)

	_, err := svc.Activate(context.Background(), "y1", adminClaims)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrYearArchived.Code, appErrors.FromError(err).Code)
	assert.Empty(t, store.activatedID)
}

func TestYearServiceActivateUnknownYear(t *testing.T) {
	svc := NewYearService(&yearStoreStub{}, nil, nil, nil, nil)

	_, err := svc.Activate(context.Background(), "missing", adminClaims)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestYearServiceArchive(t *testing.T) {
	store := &yearStoreStub{
		years:        map[string]*models.AcademicYear{"y1": {ID: "y1", Name: "2024/2025", IsCurrent: true}},
		archiveCount: 120,
	}
	gate := &gateInvalidatorStub{}
	audit := &auditLoggerStub{}
	svc := NewYearService(store, gate, audit, nil, nil)

	result, err := svc.Archive(context.Background(), "y1", adminClaims)
	require.NoError(t, err)
	assert.Equal(t, 120, result.SnapshotCount)
	assert.Equal(t, "admin-1", store.archivedActor)
	assert.Equal(t, []string{"y1"}, gate.invalidated)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionYearArchive, audit.logs[0].Action)
}

func TestYearServiceArchiveRejectsAlreadyArchived(t *testing.T) {
	store := &yearStoreStub{years: map[string]*models.AcademicYear{
		"y1": {ID: "y1", IsArchived: true},
	}}
	svc := NewYearService(store, nil, nil, nil, nil)

	_, err := svc.Archive(context.Background(), "y1", adminClaims)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrYearArchived.Code, appErrors.FromError(err).Code)
	assert.Empty(t, store.archivedID)
}

func TestYearServiceArchiveRequiresActor(t *testing.T) {
	svc := NewYearService(&yearStoreStub{}, nil, nil, nil, nil)

	_, err := svc.Archive(context.Background(), "y1", nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestYearServiceStatus(t *testing.T) {
	store := &yearStoreStub{years: map[string]*models.AcademicYear{
		"current":  {ID: "current", IsCurrent: true},
		"archived": {ID: "archived", IsArchived: true},
		"draft":    {ID: "draft"},
	}}
	svc := NewYearService(store, nil, nil, nil, nil)

	status, err := svc.Status(context.Background(), "current")
	require.NoError(t, err)
	assert.True(t, status.IsWritable)
	assert.False(t, status.IsReadOnly)

	status, err = svc.Status(context.Background(), "archived")
	require.NoError(t, err)
	assert.False(t, status.IsWritable)
	assert.True(t, status.IsReadOnly)

	status, err = svc.Status(context.Background(), "draft")
	require.NoError(t, err)
	assert.False(t, status.IsWritable)
	assert.True(t, status.IsReadOnly)
}

func TestYearServiceCreateValidation(t *testing.T) {
	svc := NewYearService(&yearStoreStub{}, nil, nil, nil, nil)

	_, err := svc.Create(context.Background(), CreateYearRequest{}, adminClaims)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestYearServiceCreateCurrentActivates(t *testing.T) {
	store := &yearStoreStub{}
	svc := NewYearService(store, nil, nil, nil, nil)

	year, err := svc.Create(context.Background(), CreateYearRequest{Name: "2026/2027", IsCurrent: true}, adminClaims)
	require.NoError(t, err)
	assert.True(t, year.IsCurrent)
	assert.Equal(t, year.ID, store.activatedID)
}
