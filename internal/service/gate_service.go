package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/skolaris/skolaris-api/internal/models"
	"github.com/skolaris/skolaris-api/internal/query"
	"github.com/skolaris/skolaris-api/pkg/config"
	appErrors "github.com/skolaris/skolaris-api/pkg/errors"
)

type yearFinder interface {
	FindByID(ctx context.Context, id string) (*models.AcademicYear, error)
}

type statusCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

type gateObserver interface {
	ObserveGateDecision(outcome string)
}

// Gate decision outcomes, exported for metrics labelling.
const (
	GateOutcomeAllow          = "allow"
	GateOutcomeNoYearRef      = "allow_no_year_ref"
	GateOutcomeNotFound       = "not_found"
	GateOutcomeYearArchived   = "year_archived"
	GateOutcomeYearNotCurrent = "year_not_current"
	GateOutcomeFailOpen       = "fail_open"
	GateOutcomeFailClosed     = "fail_closed"
)

// GateService is the academic-year write gate. It is consulted for
// insert/update/delete against year-segregated tables and decides whether the
// referenced year still accepts writes.
type GateService struct {
	years         yearFinder
	cache         statusCache
	logger        *zap.Logger
	metrics       gateObserver
	cacheTTL      time.Duration
	lookupTimeout time.Duration
	failOpen      bool
}

// NewGateService constructs the gate. cache and metrics may be nil.
func NewGateService(years yearFinder, cache statusCache, metrics gateObserver, logger *zap.Logger, cfg config.GateConfig) *GateService {
	if logger == nil {
		logger = zap.NewNop()
	}
	cacheTTL := cfg.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Second
	}
	lookupTimeout := cfg.LookupTimeout
	if lookupTimeout <= 0 {
		lookupTimeout = 2 * time.Second
	}
	return &GateService{
		years:         years,
		cache:         cache,
		logger:        logger,
		metrics:       metrics,
		cacheTTL:      cacheTTL,
		lookupTimeout: lookupTimeout,
		failOpen:      cfg.FailOpen,
	}
}

// CheckWrite decides whether a write against the given table may proceed.
// For inserts every payload row's year reference is collected and each
// distinct year must pass; for update/delete the reference is taken from the
// eq predicates. A write with no determinable year reference is allowed: the
// store's integrity constraints remain the backstop for cross-year
// inconsistencies.
//
// When the gate's own lookup infrastructure misbehaves the configured
// fail-open policy applies: open lets the write through, on the view that
// blocking every write during a cache or store hiccup is worse than leaning
// on lower-level constraints. Either way the failure is logged and counted.
func (s *GateService) CheckWrite(ctx context.Context, table query.Table, rows []models.Record, filters *query.FilterSet) error {
	if !table.YearSegregated {
		return nil
	}

	yearIDs := extractYearRefs(table, rows, filters)
	if len(yearIDs) == 0 {
		s.observe(GateOutcomeNoYearRef)
		s.logger.Debug("write without year reference allowed", zap.String("table", table.Name))
		return nil
	}

	for _, yearID := range yearIDs {
		if err := s.checkYear(ctx, table, yearID); err != nil {
			return err
		}
	}

	s.observe(GateOutcomeAllow)
	return nil
}

func (s *GateService) checkYear(ctx context.Context, table query.Table, yearID string) error {
	status, err := s.lookupStatus(ctx, yearID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.observe(GateOutcomeNotFound)
			return appErrors.Clone(appErrors.ErrNotFound, "academic year not found: "+yearID)
		}
		if !s.failOpen {
			s.observe(GateOutcomeFailClosed)
			s.logger.Warn("year gate lookup failed, rejecting write",
				zap.String("table", table.Name),
				zap.String("year_id", yearID),
				zap.Error(err))
			return appErrors.Wrap(err, appErrors.ErrDataUnavailable.Code, appErrors.ErrDataUnavailable.Status, "year status lookup failed")
		}
		s.observe(GateOutcomeFailOpen)
		s.logger.Warn("year gate lookup failed, allowing write",
			zap.String("table", table.Name),
			zap.String("year_id", yearID),
			zap.Error(err))
		return nil
	}

	switch {
	case status.IsArchived:
		s.observe(GateOutcomeYearArchived)
		return appErrors.ErrYearArchived
	case !status.IsCurrent:
		s.observe(GateOutcomeYearNotCurrent)
		return appErrors.ErrYearNotCurrent
	}
	return nil
}

// Invalidate drops the cached status for a year after a lifecycle transition.
func (s *GateService) Invalidate(ctx context.Context, yearID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, statusCacheKey(yearID)); err != nil {
		s.logger.Warn("year gate cache invalidation failed", zap.String("year_id", yearID), zap.Error(err))
	}
}

func (s *GateService) lookupStatus(ctx context.Context, yearID string) (models.YearStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, s.lookupTimeout)
	defer cancel()

	key := statusCacheKey(yearID)
	if s.cache != nil {
		var cached models.YearStatus
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return cached, nil
		}
		// Cache errors and misses both fall through to the store.
	}

	year, err := s.years.FindByID(ctx, yearID)
	if err != nil {
		return models.YearStatus{}, err
	}

	status := models.StatusOf(year)
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, status, s.cacheTTL); err != nil {
			s.logger.Debug("year gate cache write failed", zap.String("year_id", yearID), zap.Error(err))
		}
	}
	return status, nil
}

func (s *GateService) observe(outcome string) {
	if s.metrics != nil {
		s.metrics.ObserveGateDecision(outcome)
	}
}

// extractYearRefs pulls the distinct academic-year ids a write refers to.
// Every insert row contributes its reference: a batch is only as writable as
// every year it touches.
func extractYearRefs(table query.Table, rows []models.Record, filters *query.FilterSet) []string {
	if len(rows) > 0 {
		seen := make(map[string]struct{}, 1)
		var refs []string
		for _, row := range rows {
			value, ok := row[table.YearColumn]
			if !ok || value == nil {
				continue
			}
			ref := fmt.Sprintf("%v", value)
			if _, dup := seen[ref]; dup {
				continue
			}
			seen[ref] = struct{}{}
			refs = append(refs, ref)
		}
		return refs
	}
	if filters == nil {
		return nil
	}
	for _, clause := range filters.Eq {
		if clause.Field == table.YearColumn && clause.Value != nil {
			return []string{fmt.Sprintf("%v", clause.Value)}
		}
	}
	return nil
}

func statusCacheKey(yearID string) string {
	return "year_gate:status:" + yearID
}
