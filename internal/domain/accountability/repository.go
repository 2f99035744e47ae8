package accountability

import (
	"context"

	"github.com/google/uuid"
	"github.com/schoolgrants/backend/internal/domain/budget"
	"github.com/schoolgrants/backend/internal/domain/shared"
)

// Filter narrows accountability listings
type Filter struct {
	shared.Filter
	Code         string
	AcademicYear int
	SchoolType   string
	State        string
}

// Repository persists accountability records.
//
// Tranche and ledger mutations are single conditional statements keyed by
// record id and tranche name. When nothing matches they return
// shared.ErrAccountabilityNotFound or shared.ErrTrancheNotFound (and
// shared.ErrEntryNotFound for ledger lines) so callers can tell which lookup
// missed.
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Accountability, error)
	FindByCodeAndYear(ctx context.Context, code string, academicYear int) (*Accountability, error)
	List(ctx context.Context, filter Filter) ([]Accountability, int64, error)

	// Create inserts the record with its tranches. A duplicate
	// (code, academicYear) yields shared.ErrAlreadyExists.
	Create(ctx context.Context, a *Accountability) error

	// RecordRef loads only the identifying fields of a record
	RecordRef(ctx context.Context, id uuid.UUID) (RecordRef, error)

	ApproveTranche(ctx context.Context, id uuid.UUID, trancheName string, change ApprovalChange) (*Tranche, error)

	// DisburseTranche applies d through Tranche.Disburse and persists the
	// result only if the approved amount still covers it at the time of the
	// write. Otherwise it returns the EXCEEDS_APPROVED_AMOUNT error and leaves
	// the tranche unchanged.
	DisburseTranche(ctx context.Context, id uuid.UUID, trancheName string, d Disbursement) (*Tranche, error)

	SetReturnedFunds(ctx context.Context, id uuid.UUID, trancheName string, rf ReturnedFunds) (*Tranche, error)
	SetHeldFunds(ctx context.Context, id uuid.UUID, trancheName string, hf HeldFunds) (*Tranche, error)
	AddRevenue(ctx context.Context, id uuid.UUID, trancheName string, r Revenue) (*Tranche, error)
	AddExpenditure(ctx context.Context, id uuid.UUID, trancheName string, e Expenditure) (*Tranche, error)

	AddAccountingEntry(ctx context.Context, id uuid.UUID, trancheName string, e AccountingEntry) error
	FindAccountingEntry(ctx context.Context, id uuid.UUID, trancheName string, entryID uuid.UUID) (*AccountingEntry, error)
	UpdateAccountingEntry(ctx context.Context, id uuid.UUID, trancheName string, entryID uuid.UUID, patch EntryPatch) (*AccountingEntry, error)
	DeleteAccountingEntry(ctx context.Context, id uuid.UUID, trancheName string, entryID uuid.UUID) error
	SetEntryReceipt(ctx context.Context, id uuid.UUID, trancheName string, entryID uuid.UUID, key string) error

	// SaveSummary stores the summary snapshot on the record
	SaveSummary(ctx context.Context, id uuid.UUID, summary FinancialSummary) error
}

// ReviewScope exposes the repositories bound to one review transaction
type ReviewScope struct {
	Budgets budget.BudgetRepository
	Records Repository
}

// ReviewTransactor runs fn atomically: either every write made through the
// scope commits or none does.
type ReviewTransactor interface {
	WithinReview(ctx context.Context, fn func(ctx context.Context, scope ReviewScope) error) error
}

// SummaryCache holds calculated summaries keyed by the record's (code,
// academicYear) and the year the summary was calculated for. Entries expire
// after a TTL and are evicted per record when its ledger changes.
type SummaryCache interface {
	// Get reports ok=false on a miss
	Get(ctx context.Context, code string, academicYear, asOfYear int) (summary *FinancialSummary, ok bool, err error)
	Set(ctx context.Context, code string, academicYear, asOfYear int, summary FinancialSummary) error
	// Invalidate evicts every cached summary of code for each given year
	Invalidate(ctx context.Context, code string, academicYears ...int) error
}
