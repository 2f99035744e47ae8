package accountability

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/schoolgrants/backend/internal/domain/accountability"
	"github.com/schoolgrants/backend/internal/domain/budget"
	"github.com/schoolgrants/backend/internal/domain/capitation"
	"github.com/schoolgrants/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decp(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func strp(s string) *string {
	return &s
}

func newTestBudget(t *testing.T, code string, year int, total string) *budget.Budget {
	t.Helper()
	b, err := budget.NewBudget(budget.Identity{
		Code:         code,
		AcademicYear: year,
		SchoolName:   "Juba Day Secondary",
		SchoolType:   capitation.SchoolTypeSecondary,
		Ownership:    "Public",
		State:        "CES",
		County:       "Juba",
		Payam:        "Kator",
	}, []budget.Group{{Name: "OPEX", Categories: []budget.Category{{Name: "Supplies", Items: []budget.Item{{TotalCostSSP: dec(total)}}}}}},
		budget.Governance{SGB: true, SDP: true, BudgetSubmitted: true, BankAccount: true}, true)
	require.NoError(t, err)
	b.ClearDomainEvents()
	return b
}

func newTestRecord(t *testing.T, code string, year int, total string) *accountability.Accountability {
	t.Helper()
	a := accountability.NewFromBudget(newTestBudget(t, code, year, total), capitation.DefaultRule(), fixedNow)
	a.ClearDomainEvents()
	return a
}

func eventTypes(events []shared.DomainEvent) []string {
	types := make([]string, len(events))
	for i, e := range events {
		types[i] = e.EventType()
	}
	return types
}

type MockRepository struct {
	mock.Mock
}

var _ accountability.Repository = (*MockRepository)(nil)

func (m *MockRepository) FindByID(ctx context.Context, id uuid.UUID) (*accountability.Accountability, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accountability.Accountability), args.Error(1)
}

func (m *MockRepository) FindByCodeAndYear(ctx context.Context, code string, academicYear int) (*accountability.Accountability, error) {
	args := m.Called(ctx, code, academicYear)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accountability.Accountability), args.Error(1)
}

func (m *MockRepository) List(ctx context.Context, filter accountability.Filter) ([]accountability.Accountability, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]accountability.Accountability), args.Get(1).(int64), args.Error(2)
}

func (m *MockRepository) Create(ctx context.Context, a *accountability.Accountability) error {
	return m.Called(ctx, a).Error(0)
}

func (m *MockRepository) RecordRef(ctx context.Context, id uuid.UUID) (accountability.RecordRef, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(accountability.RecordRef), args.Error(1)
}

func (m *MockRepository) tranche(args mock.Arguments) (*accountability.Tranche, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accountability.Tranche), args.Error(1)
}

func (m *MockRepository) ApproveTranche(ctx context.Context, id uuid.UUID, name string, c accountability.ApprovalChange) (*accountability.Tranche, error) {
	return m.tranche(m.Called(ctx, id, name, c))
}

func (m *MockRepository) DisburseTranche(ctx context.Context, id uuid.UUID, name string, d accountability.Disbursement) (*accountability.Tranche, error) {
	return m.tranche(m.Called(ctx, id, name, d))
}

func (m *MockRepository) SetReturnedFunds(ctx context.Context, id uuid.UUID, name string, rf accountability.ReturnedFunds) (*accountability.Tranche, error) {
	return m.tranche(m.Called(ctx, id, name, rf))
}

func (m *MockRepository) SetHeldFunds(ctx context.Context, id uuid.UUID, name string, hf accountability.HeldFunds) (*accountability.Tranche, error) {
	return m.tranche(m.Called(ctx, id, name, hf))
}

func (m *MockRepository) AddRevenue(ctx context.Context, id uuid.UUID, name string, r accountability.Revenue) (*accountability.Tranche, error) {
	return m.tranche(m.Called(ctx, id, name, r))
}

func (m *MockRepository) AddExpenditure(ctx context.Context, id uuid.UUID, name string, e accountability.Expenditure) (*accountability.Tranche, error) {
	return m.tranche(m.Called(ctx, id, name, e))
}

func (m *MockRepository) AddAccountingEntry(ctx context.Context, id uuid.UUID, name string, e accountability.AccountingEntry) error {
	return m.Called(ctx, id, name, e).Error(0)
}

func (m *MockRepository) FindAccountingEntry(ctx context.Context, id uuid.UUID, name string, entryID uuid.UUID) (*accountability.AccountingEntry, error) {
	args := m.Called(ctx, id, name, entryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accountability.AccountingEntry), args.Error(1)
}

func (m *MockRepository) UpdateAccountingEntry(ctx context.Context, id uuid.UUID, name string, entryID uuid.UUID, p accountability.EntryPatch) (*accountability.AccountingEntry, error) {
	args := m.Called(ctx, id, name, entryID, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accountability.AccountingEntry), args.Error(1)
}

func (m *MockRepository) DeleteAccountingEntry(ctx context.Context, id uuid.UUID, name string, entryID uuid.UUID) error {
	return m.Called(ctx, id, name, entryID).Error(0)
}

func (m *MockRepository) SetEntryReceipt(ctx context.Context, id uuid.UUID, name string, entryID uuid.UUID, key string) error {
	return m.Called(ctx, id, name, entryID, key).Error(0)
}

func (m *MockRepository) SaveSummary(ctx context.Context, id uuid.UUID, s accountability.FinancialSummary) error {
	return m.Called(ctx, id, s).Error(0)
}

type MockBudgetRepository struct {
	mock.Mock
}

var _ budget.BudgetRepository = (*MockBudgetRepository)(nil)

func (m *MockBudgetRepository) FindByID(ctx context.Context, id uuid.UUID) (*budget.Budget, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*budget.Budget), args.Error(1)
}

func (m *MockBudgetRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*budget.Budget, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*budget.Budget), args.Error(1)
}

func (m *MockBudgetRepository) FindByCodeAndYear(ctx context.Context, code string, academicYear int) (*budget.Budget, error) {
	args := m.Called(ctx, code, academicYear)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*budget.Budget), args.Error(1)
}

func (m *MockBudgetRepository) Save(ctx context.Context, b *budget.Budget) error {
	return m.Called(ctx, b).Error(0)
}

// fakeTransactor runs fn against the mocks. commits counts successful runs.
type fakeTransactor struct {
	scope   accountability.ReviewScope
	commits int
}

func (f *fakeTransactor) WithinReview(ctx context.Context, fn func(context.Context, accountability.ReviewScope) error) error {
	if err := fn(ctx, f.scope); err != nil {
		return err
	}
	f.commits++
	return nil
}

type MockRuleResolver struct {
	mock.Mock
}

func (m *MockRuleResolver) Rule(ctx context.Context, year int, cat capitation.FundingCategory, st capitation.SchoolType) (capitation.ResolvedRule, error) {
	args := m.Called(ctx, year, cat, st)
	return args.Get(0).(capitation.ResolvedRule), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	return m.Called(ctx, events).Error(0)
}

type MockCache struct {
	mock.Mock
}

var _ accountability.SummaryCache = (*MockCache)(nil)

func (m *MockCache) Get(ctx context.Context, code string, year, asOf int) (*accountability.FinancialSummary, bool, error) {
	args := m.Called(ctx, code, year, asOf)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*accountability.FinancialSummary), args.Bool(1), args.Error(2)
}

func (m *MockCache) Set(ctx context.Context, code string, year, asOf int, s accountability.FinancialSummary) error {
	return m.Called(ctx, code, year, asOf, s).Error(0)
}

func (m *MockCache) Invalidate(ctx context.Context, code string, years ...int) error {
	return m.Called(ctx, code, years).Error(0)
}

type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) GenerateUploadURL(ctx context.Context, key, contentType string, expiresIn time.Duration) (string, time.Time, error) {
	args := m.Called(ctx, key, contentType, expiresIn)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}

func (m *MockStorage) GenerateDownloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, time.Time, error) {
	args := m.Called(ctx, key, expiresIn)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}

type MockMetrics struct {
	mock.Mock
}

func (m *MockMetrics) RecordReview(ctx context.Context, schoolType string, created bool) {
	m.Called(ctx, schoolType, created)
}

func (m *MockMetrics) RecordDisbursement(ctx context.Context, channel string, academicYear int, amount decimal.Decimal) {
	m.Called(ctx, channel, academicYear, amount)
}

func (m *MockMetrics) RecordLedgerOperation(ctx context.Context, eventType string) {
	m.Called(ctx, eventType)
}
