package accountability

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/schoolgrants/backend/internal/domain/accountability"
	"github.com/schoolgrants/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// SummaryService calculates financial summaries through a read-through cache
type SummaryService struct {
	repo   accountability.Repository
	cache  accountability.SummaryCache
	logger *zap.Logger
	now    func() time.Time
}

// NewSummaryService creates a new SummaryService. cache may be nil.
func NewSummaryService(repo accountability.Repository, cache accountability.SummaryCache, logger *zap.Logger) *SummaryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SummaryService{repo: repo, cache: cache, logger: logger, now: time.Now}
}

// Calculate returns the summary of record id, with the opening balance
// carried from the same school's record for academicYear-1. A zero
// academicYear means the record's own year.
//
// Only own-year summaries are cached. Their inputs are this record and the
// previous year's, which are exactly what SummaryCacheInvalidator evicts on.
func (s *SummaryService) Calculate(ctx context.Context, id uuid.UUID, academicYear int) (*accountability.FinancialSummary, error) {
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if academicYear == 0 {
		academicYear = current.AcademicYear
	}
	cacheable := s.cache != nil && academicYear == current.AcademicYear

	if cacheable {
		cached, ok, err := s.cache.Get(ctx, current.Code, current.AcademicYear, academicYear)
		if err != nil {
			s.logger.Warn("Summary cache read failed", zap.String("school_code", current.Code), zap.Error(err))
		} else if ok {
			return cached, nil
		}
	}

	summary, err := s.calculate(ctx, current, academicYear)
	if err != nil {
		return nil, err
	}
	if cacheable {
		if err := s.cache.Set(ctx, current.Code, current.AcademicYear, academicYear, summary); err != nil {
			s.logger.Warn("Summary cache write failed", zap.String("school_code", current.Code), zap.Error(err))
		}
	}
	return &summary, nil
}

// UpdateStored recalculates the summary for the record's own year and
// persists it as the record's snapshot.
func (s *SummaryService) UpdateStored(ctx context.Context, id uuid.UUID) (*accountability.FinancialSummary, error) {
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	summary, err := s.calculate(ctx, current, current.AcademicYear)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SaveSummary(ctx, id, summary); err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, current.Code, current.AcademicYear, current.AcademicYear, summary); err != nil {
			s.logger.Warn("Summary cache write failed", zap.String("school_code", current.Code), zap.Error(err))
		}
	}
	s.logger.Info("Stored financial summary updated",
		zap.String("accountability_id", id.String()),
		zap.String("status", summary.AccountabilityStatus),
	)
	return &summary, nil
}

func (s *SummaryService) calculate(ctx context.Context, current *accountability.Accountability, academicYear int) (accountability.FinancialSummary, error) {
	previous, err := s.repo.FindByCodeAndYear(ctx, current.Code, academicYear-1)
	if err != nil {
		if !errors.Is(err, shared.ErrAccountabilityNotFound) {
			return accountability.FinancialSummary{}, err
		}
		previous = nil
	}
	return accountability.CalculateSummary(current, previous, s.now()), nil
}
