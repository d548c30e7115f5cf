package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/skolaris/skolaris-api/internal/models"
	appErrors "github.com/skolaris/skolaris-api/pkg/errors"
)

type yearStore interface {
	FindByID(ctx context.Context, id string) (*models.AcademicYear, error)
	List(ctx context.Context, filter models.YearFilter) ([]models.AcademicYear, int, error)
	Create(ctx context.Context, year *models.AcademicYear) error
	Activate(ctx context.Context, id string) error
	Archive(ctx context.Context, id, actorID string) (int, error)
}

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type gateInvalidator interface {
	Invalidate(ctx context.Context, yearID string)
}

// CreateYearRequest describes the payload for creating an academic year.
type CreateYearRequest struct {
	Name      string `json:"name" validate:"required"`
	IsCurrent bool   `json:"is_current"`
}

// YearService owns the academic-year lifecycle: Draft → Current → Archived,
// one way only.
type YearService struct {
	repo      yearStore
	gate      gateInvalidator
	audit     auditLogger
	validator *validator.Validate
	logger    *zap.Logger
}

// NewYearService creates the lifecycle manager. gate and audit may be nil.
func NewYearService(repo yearStore, gate gateInvalidator, audit auditLogger, validate *validator.Validate, logger *zap.Logger) *YearService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &YearService{repo: repo, gate: gate, audit: audit, validator: validate, logger: logger}
}

// List returns paginated academic years.
func (s *YearService) List(ctx context.Context, filter models.YearFilter) ([]models.AcademicYear, *models.Pagination, error) {
	years, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list years")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return years, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Create registers a new academic year in draft state. A year flagged
// current at creation goes through Activate so the single-current invariant
// holds.
func (s *YearService) Create(ctx context.Context, req CreateYearRequest, actor *models.JWTClaims) (*models.AcademicYear, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid year payload")
	}

	year := &models.AcademicYear{Name: req.Name}
	if err := s.repo.Create(ctx, year); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create year")
	}

	if req.IsCurrent {
		activated, err := s.Activate(ctx, year.ID, actor)
		if err != nil {
			return nil, err
		}
		return activated, nil
	}
	return year, nil
}

// Get loads one year.
func (s *YearService) Get(ctx context.Context, id string) (*models.AcademicYear, error) {
	year, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "academic year not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load year")
	}
	return year, nil
}

// Status returns the derived lifecycle view of a year.
func (s *YearService) Status(ctx context.Context, id string) (*models.YearStatus, error) {
	year, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	status := models.StatusOf(year)
	return &status, nil
}

// Activate makes a year the single current one. Archived years can never be
// reactivated.
func (s *YearService) Activate(ctx context.Context, id string, actor *models.JWTClaims) (*models.AcademicYear, error) {
	year, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if year.IsArchived {
		return nil, appErrors.Clone(appErrors.ErrYearArchived, "archived year cannot be activated")
	}

	if err := s.repo.Activate(ctx, id); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to activate year")
	}

	if s.gate != nil {
		s.gate.Invalidate(ctx, id)
	}
	s.emitAudit(ctx, actor, models.AuditActionYearActivate, id, map[string]interface{}{"name": year.Name})

	return s.Get(ctx, id)
}

// Archive freezes a year permanently, snapshotting its grades. The
// repository runs the copy-and-flag sequence in one transaction; a failure
// there leaves the year unarchived. Re-running archive after a partial prior
// failure is safe because snapshot inserts ignore conflicts.
func (s *YearService) Archive(ctx context.Context, id string, actor *models.JWTClaims) (*models.ArchiveResult, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}

	year, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if year.IsArchived {
		return nil, appErrors.Clone(appErrors.ErrYearArchived, "year is already archived")
	}

	count, err := s.repo.Archive(ctx, id, actor.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to archive year")
	}

	if s.gate != nil {
		s.gate.Invalidate(ctx, id)
	}
	s.emitAudit(ctx, actor, models.AuditActionYearArchive, id, map[string]interface{}{
		"name":           year.Name,
		"snapshot_count": count,
	})

	s.logger.Info("academic year archived",
		zap.String("year_id", id),
		zap.String("actor_id", actor.UserID),
		zap.Int("snapshot_count", count))

	return &models.ArchiveResult{YearID: id, SnapshotCount: count}, nil
}

func (s *YearService) emitAudit(ctx context.Context, actor *models.JWTClaims, action, yearID string, detail map[string]interface{}) {
	if s.audit == nil {
		return
	}
	var userID *string
	if actor != nil {
		userID = &actor.UserID
	}
	payload, _ := json.Marshal(detail)
	log := &models.AuditLog{
		UserID:     userID,
		Action:     action,
		Resource:   "academic_year",
		ResourceID: &yearID,
		NewValues:  payload,
		IPAddress:  "system",
		UserAgent:  "year-service",
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to create year audit", zap.Error(err))
	}
}
