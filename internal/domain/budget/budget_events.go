package budget

import (
	"time"

	"github.com/google/uuid"
	"github.com/schoolgrants/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

const (
	EventTypeBudgetSubmitted = "BudgetSubmitted"
	EventTypeBudgetReviewed  = "BudgetReviewed"

	aggregateType = "Budget"
)

// BudgetSubmittedEvent is raised when a school submits a budget
type BudgetSubmittedEvent struct {
	shared.BaseDomainEvent
	BudgetID        uuid.UUID       `json:"budget_id"`
	SubmittedAmount decimal.Decimal `json:"submitted_amount"`
}

// NewBudgetSubmittedEvent creates a new BudgetSubmittedEvent
func NewBudgetSubmittedEvent(b *Budget) *BudgetSubmittedEvent {
	return &BudgetSubmittedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBudgetSubmitted, aggregateType, b.ID, b.Code, b.AcademicYear),
		BudgetID:        b.ID,
		SubmittedAmount: b.ResolveSubmittedAmount(),
	}
}

// BudgetReviewedEvent is raised once a budget is converted into an accountability record
type BudgetReviewedEvent struct {
	shared.BaseDomainEvent
	BudgetID         uuid.UUID `json:"budget_id"`
	AccountabilityID uuid.UUID `json:"accountability_id"`
	ReviewedBy       string    `json:"reviewed_by"`
	ReviewDate       time.Time `json:"review_date"`
}

// NewBudgetReviewedEvent creates a new BudgetReviewedEvent
func NewBudgetReviewedEvent(b *Budget) *BudgetReviewedEvent {
	e := &BudgetReviewedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBudgetReviewed, aggregateType, b.ID, b.Code, b.AcademicYear),
		BudgetID:        b.ID,
		ReviewedBy:      b.ReviewedBy,
	}
	if b.AccountabilityID != nil {
		e.AccountabilityID = *b.AccountabilityID
	}
	if b.ReviewDate != nil {
		e.ReviewDate = *b.ReviewDate
	}
	return e
}
