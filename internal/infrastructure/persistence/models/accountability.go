package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/schoolgrants/backend/internal/domain/accountability"
	"github.com/schoolgrants/backend/internal/domain/capitation"
	"github.com/schoolgrants/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// AccountabilityModel is the persistence model for an accountability record.
// The summary columns hold the last stored snapshot.
type AccountabilityModel struct {
	AggregateModel
	BudgetID     uuid.UUID `gorm:"type:uuid;not null;index"`
	Code         string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_accountability_code_year,priority:1"`
	AcademicYear int       `gorm:"not null;uniqueIndex:idx_accountability_code_year,priority:2"`
	SchoolName   string    `gorm:"type:varchar(200)"`
	SchoolType   string    `gorm:"type:varchar(10)"`
	Ownership    string    `gorm:"type:varchar(50)"`
	State        string    `gorm:"type:varchar(100)"`
	County       string    `gorm:"type:varchar(100)"`
	Payam        string    `gorm:"type:varchar(100)"`

	SubmittedAmount decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Currency        string          `gorm:"type:varchar(3);not null;default:'SSP'"`

	OpeningBalance                  decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	TotalRevenue                    decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	TotalExpenditure                decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	RecordedExpenditure             decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	ClosingBalance                  decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	UnaccountedBalance              decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	TotalDisbursed                  decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	TotalAccounted                  decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	AccountingPercentage            decimal.Decimal `gorm:"type:decimal(7,1);not null;default:0"`
	PreviousYearLedgerAccountedFor  bool            `gorm:"not null;default:false"`
	PercentageAccountedPreviousYear decimal.Decimal `gorm:"type:decimal(7,1);not null;default:0"`
	AccountabilityStatus            string          `gorm:"type:varchar(30)"`
	SummaryCalculatedAt             *time.Time

	Tranches []AccountabilityTrancheModel `gorm:"foreignKey:AccountabilityID;references:ID"`
}

// TableName returns the table name for GORM
func (AccountabilityModel) TableName() string {
	return "accountabilities"
}

// AccountabilityTrancheModel is the persistence model for one tranche.
// Returned and held funds are single-slot JSON documents.
type AccountabilityTrancheModel struct {
	BaseModel
	AccountabilityID       uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_tranche_accountability_name,priority:1"`
	Name                   string          `gorm:"type:varchar(50);not null;uniqueIndex:idx_tranche_accountability_name,priority:2"`
	Position               int             `gorm:"not null"`
	Currency               string          `gorm:"type:varchar(3);not null;default:'SSP'"`
	AmountApproved         decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	AmountDisbursed        decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	InflationCorrectionPct decimal.Decimal `gorm:"type:decimal(7,2);not null;default:0"`
	InflationCorrection    decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`

	ApprovedBy     string `gorm:"type:varchar(100)"`
	ApproverName   string `gorm:"type:varchar(200)"`
	ApprovalDate   *time.Time
	ApprovalStatus string `gorm:"type:varchar(20);not null;default:'Pending'"`
	ApprovalRemark string `gorm:"type:text"`

	PaidBy           string `gorm:"type:varchar(100)"`
	PaidThrough      string `gorm:"type:varchar(20)"`
	DateDisbursed    *time.Time
	BankInstructed   bool            `gorm:"not null;default:false"`
	ReceivedBySchool decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	ReturnedFunds    datatypes.JSON  `gorm:"type:jsonb"`
	HeldFunds        datatypes.JSON  `gorm:"type:jsonb"`

	Entries      []AccountingEntryModel    `gorm:"foreignKey:TrancheID;references:ID"`
	Revenues     []TrancheRevenueModel     `gorm:"foreignKey:TrancheID;references:ID"`
	Expenditures []TrancheExpenditureModel `gorm:"foreignKey:TrancheID;references:ID"`
}

// TableName returns the table name for GORM
func (AccountabilityTrancheModel) TableName() string {
	return "accountability_tranches"
}

// AccountingEntryModel is one ledger line
type AccountingEntryModel struct {
	BaseModel
	TrancheID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	Field        string          `gorm:"type:varchar(200);not null"`
	Value        decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Comment      string          `gorm:"type:text"`
	Category     string          `gorm:"type:varchar(100);not null;default:'General'"`
	DateRecorded time.Time       `gorm:"not null"`
	RecordedBy   string          `gorm:"type:varchar(100);not null"`
	ReceiptKey   string          `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (AccountingEntryModel) TableName() string {
	return "accounting_entries"
}

// ToDomain converts the model to a domain AccountingEntry
func (m *AccountingEntryModel) ToDomain() accountability.AccountingEntry {
	return accountability.AccountingEntry{
		ID:           m.ID,
		Field:        m.Field,
		Value:        m.Value,
		Comment:      m.Comment,
		Category:     m.Category,
		DateRecorded: m.DateRecorded,
		RecordedBy:   m.RecordedBy,
		ReceiptKey:   m.ReceiptKey,
	}
}

// AccountingEntryModelFromDomain creates a model from a domain entry
func AccountingEntryModelFromDomain(trancheID uuid.UUID, e accountability.AccountingEntry) *AccountingEntryModel {
	return &AccountingEntryModel{
		BaseModel:    BaseModel{ID: e.ID, CreatedAt: e.DateRecorded, UpdatedAt: e.DateRecorded},
		TrancheID:    trancheID,
		Field:        e.Field,
		Value:        e.Value,
		Comment:      e.Comment,
		Category:     e.Category,
		DateRecorded: e.DateRecorded,
		RecordedBy:   e.RecordedBy,
		ReceiptKey:   e.ReceiptKey,
	}
}

// TrancheRevenueModel is one revenue line
type TrancheRevenueModel struct {
	BaseModel
	TrancheID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	Amount       decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Category     string          `gorm:"type:varchar(100);not null"`
	Description  string          `gorm:"type:text"`
	DateReceived time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (TrancheRevenueModel) TableName() string {
	return "tranche_revenues"
}

// TrancheExpenditureModel is one expenditure line
type TrancheExpenditureModel struct {
	BaseModel
	TrancheID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	Amount      decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Category    string          `gorm:"type:varchar(100);not null"`
	Description string          `gorm:"type:text"`
	DateSpent   time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (TrancheExpenditureModel) TableName() string {
	return "tranche_expenditures"
}

// ToDomain converts the tranche model and its children
func (m *AccountabilityTrancheModel) ToDomain() (accountability.Tranche, error) {
	t := accountability.Tranche{
		ID:                     m.ID,
		Name:                   m.Name,
		Position:               m.Position,
		Currency:               valueobject.Currency(m.Currency),
		AmountApproved:         m.AmountApproved,
		AmountDisbursed:        m.AmountDisbursed,
		InflationCorrectionPct: m.InflationCorrectionPct,
		InflationCorrection:    m.InflationCorrection,
		Approval: accountability.Approval{
			ApprovedBy:   m.ApprovedBy,
			ApproverName: m.ApproverName,
			ApprovalDate: m.ApprovalDate,
			Status:       accountability.ApprovalStatus(m.ApprovalStatus),
			Remarks:      m.ApprovalRemark,
		},
		PaidBy:        m.PaidBy,
		PaidThrough:   accountability.PaidThrough(m.PaidThrough),
		DateDisbursed: m.DateDisbursed,
		FundsAccountability: accountability.FundsAccountability{
			BankInstructed:    m.BankInstructed,
			ReceivedBySchool:  m.ReceivedBySchool,
			AccountingEntries: make([]accountability.AccountingEntry, 0, len(m.Entries)),
		},
		Revenues:     make([]accountability.Revenue, 0, len(m.Revenues)),
		Expenditures: make([]accountability.Expenditure, 0, len(m.Expenditures)),
	}
	if isJSONSet(m.ReturnedFunds) {
		var rf accountability.ReturnedFunds
		if err := json.Unmarshal(m.ReturnedFunds, &rf); err != nil {
			return t, fmt.Errorf("decode returned funds for tranche %s: %w", m.ID, err)
		}
		t.FundsAccountability.ReturnedFunds = &rf
	}
	if isJSONSet(m.HeldFunds) {
		var hf accountability.HeldFunds
		if err := json.Unmarshal(m.HeldFunds, &hf); err != nil {
			return t, fmt.Errorf("decode held funds for tranche %s: %w", m.ID, err)
		}
		t.FundsAccountability.HeldFunds = &hf
	}
	sort.SliceStable(m.Entries, func(i, j int) bool { return m.Entries[i].DateRecorded.Before(m.Entries[j].DateRecorded) })
	for i := range m.Entries {
		t.FundsAccountability.AccountingEntries = append(t.FundsAccountability.AccountingEntries, m.Entries[i].ToDomain())
	}
	for _, r := range m.Revenues {
		t.Revenues = append(t.Revenues, accountability.Revenue{
			ID: r.ID, Amount: r.Amount, Category: r.Category, Description: r.Description, DateReceived: r.DateReceived,
		})
	}
	for _, e := range m.Expenditures {
		t.Expenditures = append(t.Expenditures, accountability.Expenditure{
			ID: e.ID, Amount: e.Amount, Category: e.Category, Description: e.Description, DateSpent: e.DateSpent,
		})
	}
	return t, nil
}

// TrancheModelFromDomain creates a tranche model with its children
func TrancheModelFromDomain(accountabilityID uuid.UUID, t accountability.Tranche, now time.Time) (*AccountabilityTrancheModel, error) {
	m := &AccountabilityTrancheModel{
		BaseModel:              BaseModel{ID: t.ID, CreatedAt: now, UpdatedAt: now},
		AccountabilityID:       accountabilityID,
		Name:                   t.Name,
		Position:               t.Position,
		Currency:               string(t.Currency),
		AmountApproved:         t.AmountApproved,
		AmountDisbursed:        t.AmountDisbursed,
		InflationCorrectionPct: t.InflationCorrectionPct,
		InflationCorrection:    t.InflationCorrection,
		ApprovedBy:             t.Approval.ApprovedBy,
		ApproverName:           t.Approval.ApproverName,
		ApprovalDate:           t.Approval.ApprovalDate,
		ApprovalStatus:         string(t.Approval.Status),
		ApprovalRemark:         t.Approval.Remarks,
		PaidBy:                 t.PaidBy,
		PaidThrough:            string(t.PaidThrough),
		DateDisbursed:          t.DateDisbursed,
		BankInstructed:         t.FundsAccountability.BankInstructed,
		ReceivedBySchool:       t.FundsAccountability.ReceivedBySchool,
	}
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.ApprovalStatus == "" {
		m.ApprovalStatus = string(accountability.ApprovalPending)
	}
	var err error
	if rf := t.FundsAccountability.ReturnedFunds; rf != nil {
		if m.ReturnedFunds, err = MarshalJSON(rf); err != nil {
			return nil, err
		}
	}
	if hf := t.FundsAccountability.HeldFunds; hf != nil {
		if m.HeldFunds, err = MarshalJSON(hf); err != nil {
			return nil, err
		}
	}
	for _, e := range t.FundsAccountability.AccountingEntries {
		m.Entries = append(m.Entries, *AccountingEntryModelFromDomain(m.ID, e))
	}
	for _, r := range t.Revenues {
		m.Revenues = append(m.Revenues, *RevenueModelFromDomain(m.ID, r))
	}
	for _, e := range t.Expenditures {
		m.Expenditures = append(m.Expenditures, *ExpenditureModelFromDomain(m.ID, e))
	}
	return m, nil
}

// RevenueModelFromDomain creates a revenue model
func RevenueModelFromDomain(trancheID uuid.UUID, r accountability.Revenue) *TrancheRevenueModel {
	return &TrancheRevenueModel{
		BaseModel:    BaseModel{ID: r.ID, CreatedAt: r.DateReceived, UpdatedAt: r.DateReceived},
		TrancheID:    trancheID,
		Amount:       r.Amount,
		Category:     r.Category,
		Description:  r.Description,
		DateReceived: r.DateReceived,
	}
}

// ExpenditureModelFromDomain creates an expenditure model
func ExpenditureModelFromDomain(trancheID uuid.UUID, e accountability.Expenditure) *TrancheExpenditureModel {
	return &TrancheExpenditureModel{
		BaseModel:   BaseModel{ID: e.ID, CreatedAt: e.DateSpent, UpdatedAt: e.DateSpent},
		TrancheID:   trancheID,
		Amount:      e.Amount,
		Category:    e.Category,
		Description: e.Description,
		DateSpent:   e.DateSpent,
	}
}

// ToDomain converts the record and its tranches, ordered by position
func (m *AccountabilityModel) ToDomain() (*accountability.Accountability, error) {
	a := &accountability.Accountability{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		BudgetID:          m.BudgetID,
		Code:              m.Code,
		AcademicYear:      m.AcademicYear,
		SchoolName:        m.SchoolName,
		SchoolType:        capitation.SchoolType(m.SchoolType),
		Ownership:         m.Ownership,
		State:             m.State,
		County:            m.County,
		Payam:             m.Payam,
		SubmittedAmount:   m.SubmittedAmount,
		Currency:          valueobject.Currency(m.Currency),
		FinancialSummary:  m.summary(),
		Tranches:          make([]accountability.Tranche, 0, len(m.Tranches)),
	}
	sort.SliceStable(m.Tranches, func(i, j int) bool { return m.Tranches[i].Position < m.Tranches[j].Position })
	for i := range m.Tranches {
		t, err := m.Tranches[i].ToDomain()
		if err != nil {
			return nil, err
		}
		a.Tranches = append(a.Tranches, t)
	}
	return a, nil
}

func (m *AccountabilityModel) summary() accountability.FinancialSummary {
	return accountability.FinancialSummary{
		OpeningBalance:                  m.OpeningBalance,
		TotalRevenue:                    m.TotalRevenue,
		TotalExpenditure:                m.TotalExpenditure,
		RecordedExpenditure:             m.RecordedExpenditure,
		ClosingBalance:                  m.ClosingBalance,
		UnaccountedBalance:              m.UnaccountedBalance,
		TotalDisbursed:                  m.TotalDisbursed,
		TotalAccounted:                  m.TotalAccounted,
		AccountingPercentage:            m.AccountingPercentage,
		PreviousYearLedgerAccountedFor:  m.PreviousYearLedgerAccountedFor,
		PercentageAccountedPreviousYear: m.PercentageAccountedPreviousYear,
		AccountabilityStatus:            m.AccountabilityStatus,
		CalculatedAt:                    m.SummaryCalculatedAt,
	}
}

// SummaryColumns maps a summary onto the snapshot columns for an UPDATE
func SummaryColumns(s accountability.FinancialSummary) map[string]interface{} {
	return map[string]interface{}{
		"opening_balance":                    s.OpeningBalance,
		"total_revenue":                      s.TotalRevenue,
		"total_expenditure":                  s.TotalExpenditure,
		"recorded_expenditure":               s.RecordedExpenditure,
		"closing_balance":                    s.ClosingBalance,
		"unaccounted_balance":                s.UnaccountedBalance,
		"total_disbursed":                    s.TotalDisbursed,
		"total_accounted":                    s.TotalAccounted,
		"accounting_percentage":              s.AccountingPercentage,
		"previous_year_ledger_accounted_for": s.PreviousYearLedgerAccountedFor,
		"percentage_accounted_previous_year": s.PercentageAccountedPreviousYear,
		"accountability_status":              s.AccountabilityStatus,
		"summary_calculated_at":              s.CalculatedAt,
	}
}

// AccountabilityModelFromDomain creates a record model with all tranches
func AccountabilityModelFromDomain(a *accountability.Accountability) (*AccountabilityModel, error) {
	s := a.FinancialSummary
	m := &AccountabilityModel{
		BudgetID:                        a.BudgetID,
		Code:                            a.Code,
		AcademicYear:                    a.AcademicYear,
		SchoolName:                      a.SchoolName,
		SchoolType:                      string(a.SchoolType),
		Ownership:                       a.Ownership,
		State:                           a.State,
		County:                          a.County,
		Payam:                           a.Payam,
		SubmittedAmount:                 a.SubmittedAmount,
		Currency:                        string(a.Currency),
		OpeningBalance:                  s.OpeningBalance,
		TotalRevenue:                    s.TotalRevenue,
		TotalExpenditure:                s.TotalExpenditure,
		RecordedExpenditure:             s.RecordedExpenditure,
		ClosingBalance:                  s.ClosingBalance,
		UnaccountedBalance:              s.UnaccountedBalance,
		TotalDisbursed:                  s.TotalDisbursed,
		TotalAccounted:                  s.TotalAccounted,
		AccountingPercentage:            s.AccountingPercentage,
		PreviousYearLedgerAccountedFor:  s.PreviousYearLedgerAccountedFor,
		PercentageAccountedPreviousYear: s.PercentageAccountedPreviousYear,
		AccountabilityStatus:            s.AccountabilityStatus,
		SummaryCalculatedAt:             s.CalculatedAt,
	}
	m.FromDomainAggregateRoot(a.BaseAggregateRoot)
	for _, t := range a.Tranches {
		tm, err := TrancheModelFromDomain(a.ID, t, a.CreatedAt)
		if err != nil {
			return nil, err
		}
		m.Tranches = append(m.Tranches, *tm)
	}
	return m, nil
}

// MarshalJSON encodes v for a JSON column
func MarshalJSON(v interface{}) (datatypes.JSON, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode json column: %w", err)
	}
	return datatypes.JSON(b), nil
}

func isJSONSet(j datatypes.JSON) bool {
	return len(j) > 0 && string(j) != "null"
}
