// Package accountability converts reviewed budgets into accountability
// records and manages their tranches, ledger, receipts and summaries.
package accountability

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/schoolgrants/backend/internal/domain/accountability"
	"github.com/schoolgrants/backend/internal/domain/budget"
	"github.com/schoolgrants/backend/internal/domain/capitation"
	"github.com/schoolgrants/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RuleResolver returns the grant rule that applies to a school
type RuleResolver interface {
	Rule(ctx context.Context, academicYear int, category capitation.FundingCategory, schoolType capitation.SchoolType) (capitation.ResolvedRule, error)
}

// Metrics receives business measurements. telemetry.AccountabilityMetrics
// satisfies it.
type Metrics interface {
	RecordReview(ctx context.Context, schoolType string, created bool)
	RecordDisbursement(ctx context.Context, channel string, academicYear int, amount decimal.Decimal)
	RecordLedgerOperation(ctx context.Context, eventType string)
}

// ReviewService converts submitted budgets into accountability records
type ReviewService struct {
	tx        accountability.ReviewTransactor
	rules     RuleResolver
	publisher shared.EventPublisher
	metrics   Metrics
	logger    *zap.Logger
	now       func() time.Time
}

// NewReviewService creates a new ReviewService. metrics may be nil.
func NewReviewService(tx accountability.ReviewTransactor, rules RuleResolver, publisher shared.EventPublisher, metrics Metrics, logger *zap.Logger) *ReviewService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReviewService{tx: tx, rules: rules, publisher: publisher, metrics: metrics, logger: logger, now: time.Now}
}

// ReviewBudget creates the three-tranche record for a budget and links the
// budget to it. The budget row is locked for the duration, so concurrent
// reviews of the same budget serialize and the second one sees the link.
// Reviewing an already-linked budget returns the existing id with
// Created=false. So does a budget whose school-year already has a record,
// which gets linked to it.
func (s *ReviewService) ReviewBudget(ctx context.Context, budgetID uuid.UUID, reviewer string) (*ReviewResult, error) {
	var (
		result ReviewResult
		events []shared.DomainEvent
		b      *budget.Budget
	)
	err := s.tx.WithinReview(ctx, func(ctx context.Context, scope accountability.ReviewScope) error {
		var err error
		b, err = scope.Budgets.FindByIDForUpdate(ctx, budgetID)
		if err != nil {
			return err
		}
		result = ReviewResult{BudgetID: b.ID}
		if b.IsReviewed() {
			result.AccountabilityID = *b.AccountabilityID
			return nil
		}

		now := s.now()
		existing, err := scope.Records.FindByCodeAndYear(ctx, b.Code, b.AcademicYear)
		switch {
		case err == nil:
			s.logger.Warn("Linking budget to existing accountability record",
				zap.String("school_code", b.Code),
				zap.Int("academic_year", b.AcademicYear),
				zap.String("accountability_id", existing.ID.String()),
			)
			if err := b.MarkReviewed(reviewer, now, existing.ID); err != nil {
				return err
			}
			result.AccountabilityID = existing.ID
			events = b.GetDomainEvents()
			return scope.Budgets.Save(ctx, b)
		case !errors.Is(err, shared.ErrAccountabilityNotFound):
			return err
		}

		resolved, err := s.rules.Rule(ctx, b.AcademicYear, capitation.CategoryOPEX, b.SchoolType)
		if err != nil {
			return err
		}
		record := accountability.NewFromBudget(b, resolved.Rule, now)
		if err := scope.Records.Create(ctx, record); err != nil {
			return err
		}
		if err := b.MarkReviewed(reviewer, now, record.ID); err != nil {
			return err
		}
		if err := scope.Budgets.Save(ctx, b); err != nil {
			return err
		}

		result.AccountabilityID = record.ID
		result.Created = true
		result.Accountability = record
		events = append(b.GetDomainEvents(), record.GetDomainEvents()...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordReview(ctx, string(b.SchoolType), result.Created)
	}
	if result.Created {
		s.logger.Info("Budget reviewed",
			zap.String("school_code", b.Code),
			zap.Int("academic_year", b.AcademicYear),
			zap.String("accountability_id", result.AccountabilityID.String()),
			zap.String("reviewed_by", b.ReviewedBy),
		)
	}
	publish(ctx, s.publisher, s.logger, events...)
	return &result, nil
}

// publish sends events after the write they describe has committed. A
// failed publish never fails the operation.
func publish(ctx context.Context, p shared.EventPublisher, logger *zap.Logger, events ...shared.DomainEvent) {
	if p == nil || len(events) == 0 {
		return
	}
	if err := p.Publish(ctx, events...); err != nil {
		logger.Warn("Failed to publish events", zap.Int("count", len(events)), zap.Error(err))
	}
}
