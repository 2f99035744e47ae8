// Package budget handles budget submission and grant eligibility.
package budget

import (
	"context"
	"errors"

	"github.com/google/uuid"
	capapp "github.com/schoolgrants/backend/internal/application/capitation"
	"github.com/schoolgrants/backend/internal/domain/budget"
	"github.com/schoolgrants/backend/internal/domain/capitation"
	"github.com/schoolgrants/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// EntitlementCalculator computes a school's OPEX grant
type EntitlementCalculator interface {
	Entitlement(ctx context.Context, academicYear int, schoolType capitation.SchoolType, learners int64) (*capapp.EntitlementResponse, error)
}

// Service handles budget operations
type Service struct {
	budgets     budget.BudgetRepository
	learners    budget.LearnerRegistry
	schools     budget.SchoolRegistry
	entitlement EntitlementCalculator
	publisher   shared.EventPublisher
	logger      *zap.Logger
}

// NewService creates a new budget Service
func NewService(
	budgets budget.BudgetRepository,
	learners budget.LearnerRegistry,
	schools budget.SchoolRegistry,
	entitlement EntitlementCalculator,
	publisher shared.EventPublisher,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		budgets:     budgets,
		learners:    learners,
		schools:     schools,
		entitlement: entitlement,
		publisher:   publisher,
		logger:      logger,
	}
}

// Submit stores a new budget. Ownership missing from the request is taken
// from the school registry when the school is known there.
func (s *Service) Submit(ctx context.Context, req SubmitBudgetRequest) (*budget.Budget, error) {
	schoolType, err := capitation.ParseSchoolType(req.SchoolType)
	if err != nil {
		return nil, err
	}
	ownership := req.Ownership
	if ownership == "" && s.schools != nil {
		ownership, err = s.schools.GetSchoolOwnership(ctx, req.Code)
		if err != nil && !shared.HasCode(err, shared.CodeNotFound) {
			return nil, err
		}
	}

	b, err := budget.NewBudget(budget.Identity{
		Code:         req.Code,
		AcademicYear: req.AcademicYear,
		SchoolName:   req.SchoolName,
		SchoolType:   schoolType,
		Ownership:    ownership,
		State:        req.State,
		County:       req.County,
		Payam:        req.Payam,
	}, req.Groups, req.Governance, req.PreviousYearLedgerAccountedFor)
	if err != nil {
		return nil, err
	}
	if err := s.budgets.Save(ctx, b); err != nil {
		return nil, err
	}

	s.logger.Info("Budget submitted",
		zap.String("school_code", b.Code),
		zap.Int("academic_year", b.AcademicYear),
		zap.String("submitted_amount", b.ResolveSubmittedAmount().StringFixed(2)),
	)
	events := b.GetDomainEvents()
	b.ClearDomainEvents()
	if s.publisher != nil && len(events) > 0 {
		if err := s.publisher.Publish(ctx, events...); err != nil {
			s.logger.Warn("Failed to publish budget events", zap.Error(err))
		}
	}
	return b, nil
}

// Get returns a budget by id
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*budget.Budget, error) {
	return s.budgets.FindByID(ctx, id)
}

// Eligibility evaluates the governance criteria against the school's
// active enrolment, and adds the OPEX entitlement for that enrolment.
func (s *Service) Eligibility(ctx context.Context, id uuid.UUID) (*EligibilityResponse, error) {
	b, err := s.budgets.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	enrolment, err := s.learners.CountActiveLearners(ctx, b.Code)
	if err != nil {
		return nil, err
	}
	resp := &EligibilityResponse{
		BudgetID:     b.ID,
		Code:         b.Code,
		AcademicYear: b.AcademicYear,
		Enrolment:    enrolment,
		Governance:   b.Governance,
		Eligibility:  b.Eligibility(enrolment),
	}
	if s.entitlement != nil {
		ent, err := s.entitlement.Entitlement(ctx, b.AcademicYear, b.SchoolType, enrolment)
		var de *shared.DomainError
		switch {
		case errors.As(err, &de):
			s.logger.Warn("Entitlement unavailable", zap.String("school_code", b.Code), zap.Error(err))
		case err != nil:
			return nil, err
		default:
			resp.Entitlement = ent
		}
	}
	return resp, nil
}
