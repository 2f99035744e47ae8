package accountability

import (
	"github.com/google/uuid"
	"github.com/schoolgrants/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Event types raised by accountability records
const (
	EventTypeAccountabilityCreated  = "AccountabilityCreated"
	EventTypeTrancheApproved        = "TrancheApproved"
	EventTypeTrancheDisbursed       = "TrancheDisbursed"
	EventTypeFundsReturned          = "FundsReturned"
	EventTypeFundsHeld              = "FundsHeld"
	EventTypeRevenueRecorded        = "RevenueRecorded"
	EventTypeExpenditureRecorded    = "ExpenditureRecorded"
	EventTypeAccountingEntryAdded   = "AccountingEntryAdded"
	EventTypeAccountingEntryUpdated = "AccountingEntryUpdated"
	EventTypeAccountingEntryDeleted = "AccountingEntryDeleted"

	AggregateType = "Accountability"
)

// LedgerEventTypes lists every event that changes a record's financial position
func LedgerEventTypes() []string {
	return []string{
		EventTypeTrancheApproved,
		EventTypeTrancheDisbursed,
		EventTypeFundsReturned,
		EventTypeFundsHeld,
		EventTypeRevenueRecorded,
		EventTypeExpenditureRecorded,
		EventTypeAccountingEntryAdded,
		EventTypeAccountingEntryUpdated,
		EventTypeAccountingEntryDeleted,
	}
}

// AccountabilityCreatedEvent is raised when a budget review creates a record
type AccountabilityCreatedEvent struct {
	shared.BaseDomainEvent
	BudgetID        uuid.UUID       `json:"budget_id"`
	SubmittedAmount decimal.Decimal `json:"submitted_amount"`
}

// NewAccountabilityCreatedEvent creates a new AccountabilityCreatedEvent
func NewAccountabilityCreatedEvent(a *Accountability) *AccountabilityCreatedEvent {
	return &AccountabilityCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAccountabilityCreated, AggregateType, a.ID, a.Code, a.AcademicYear),
		BudgetID:        a.BudgetID,
		SubmittedAmount: a.SubmittedAmount,
	}
}

// TrancheEvent is raised by every tranche-level mutation. Amount carries
// the amount relevant to the event type (approved ceiling, disbursed
// amount, ledger value and so on) and may be zero.
type TrancheEvent struct {
	shared.BaseDomainEvent
	AccountabilityID uuid.UUID       `json:"accountability_id"`
	TrancheName      string          `json:"tranche_name"`
	Amount           decimal.Decimal `json:"amount"`
	EntryID          *uuid.UUID      `json:"entry_id,omitempty"`
	Channel          string          `json:"channel,omitempty"`
}

// RecordRef identifies the record an operation targets, enough to scope events
type RecordRef struct {
	ID           uuid.UUID
	Code         string
	AcademicYear int
}

// Ref returns the record reference of a
func (a *Accountability) Ref() RecordRef {
	return RecordRef{ID: a.ID, Code: a.Code, AcademicYear: a.AcademicYear}
}

// NewTrancheEvent creates a tranche-level event of the given type
func NewTrancheEvent(eventType string, ref RecordRef, trancheName string, amount decimal.Decimal) *TrancheEvent {
	return &TrancheEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(eventType, AggregateType, ref.ID, ref.Code, ref.AcademicYear),
		AccountabilityID: ref.ID,
		TrancheName:      trancheName,
		Amount:           amount,
	}
}

// WithEntry attaches a ledger entry id
func (e *TrancheEvent) WithEntry(id uuid.UUID) *TrancheEvent {
	e.EntryID = &id
	return e
}

// WithChannel attaches the disbursement channel
func (e *TrancheEvent) WithChannel(p PaidThrough) *TrancheEvent {
	e.Channel = string(p)
	return e
}
