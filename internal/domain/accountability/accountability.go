package accountability

import (
	"time"

	"github.com/google/uuid"
	"github.com/schoolgrants/backend/internal/domain/budget"
	"github.com/schoolgrants/backend/internal/domain/capitation"
	"github.com/schoolgrants/backend/internal/domain/shared"
	"github.com/schoolgrants/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// Accountability documents how a school's grant tranches were disbursed
// and accounted for in one academic year. (Code, AcademicYear) is unique.
type Accountability struct {
	shared.BaseAggregateRoot
	BudgetID     uuid.UUID             `json:"budgetId"`
	Code         string                `json:"code"`
	AcademicYear int                   `json:"academicYear"`
	SchoolName   string                `json:"schoolName"`
	SchoolType   capitation.SchoolType `json:"schoolType"`
	Ownership    string                `json:"ownership"`
	State        string                `json:"state"`
	County       string                `json:"county"`
	Payam        string                `json:"payam"`

	SubmittedAmount decimal.Decimal      `json:"submittedAmount"`
	Currency        valueobject.Currency `json:"currency"`
	Tranches        []Tranche            `json:"tranches"`

	// FinancialSummary is a cached snapshot; CalculateSummary is the source of truth
	FinancialSummary FinancialSummary `json:"financialSummary"`
}

// NewFromBudget builds the three-tranche record for a reviewed budget
func NewFromBudget(b *budget.Budget, rule capitation.GrantRule, now time.Time) *Accountability {
	submitted := b.ResolveSubmittedAmount()
	a := &Accountability{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		BudgetID:          b.ID,
		Code:              b.Code,
		AcademicYear:      b.AcademicYear,
		SchoolName:        b.SchoolName,
		SchoolType:        b.SchoolType,
		Ownership:         b.Ownership,
		State:             b.State,
		County:            b.County,
		Payam:             b.Payam,
		SubmittedAmount:   submitted,
		Currency:          rule.Currency,
		Tranches:          SplitTranches(submitted, rule),
		FinancialSummary: FinancialSummary{
			OpeningBalance:                  decimal.Zero,
			TotalRevenue:                    decimal.Zero,
			TotalExpenditure:                decimal.Zero,
			RecordedExpenditure:             decimal.Zero,
			ClosingBalance:                  decimal.Zero,
			UnaccountedBalance:              decimal.Zero,
			TotalDisbursed:                  decimal.Zero,
			TotalAccounted:                  decimal.Zero,
			AccountingPercentage:            decimal.Zero,
			PercentageAccountedPreviousYear: decimal.Zero,
			PreviousYearLedgerAccountedFor:  b.PreviousYearLedgerAccountedFor,
			AccountabilityStatus:            StatusNotDisbursed,
		},
	}
	if a.Currency == "" {
		a.Currency = valueobject.SSP
	}
	a.CreatedAt = now
	a.UpdatedAt = now
	a.AddDomainEvent(NewAccountabilityCreatedEvent(a))
	return a
}

// TotalDisbursed sums amountDisbursed across tranches
func (a *Accountability) TotalDisbursed() decimal.Decimal {
	total := decimal.Zero
	for i := range a.Tranches {
		total = total.Add(a.Tranches[i].AmountDisbursed)
	}
	return total
}

// TotalAccounted sums every accounting entry across tranches
func (a *Accountability) TotalAccounted() decimal.Decimal {
	total := decimal.Zero
	for i := range a.Tranches {
		total = total.Add(a.Tranches[i].TotalAccounted())
	}
	return total
}

// TotalRevenue sums revenues across tranches
func (a *Accountability) TotalRevenue() decimal.Decimal {
	total := decimal.Zero
	for i := range a.Tranches {
		total = total.Add(a.Tranches[i].TotalRevenue())
	}
	return total
}

// RecordedExpenditure sums itemized expenditures across tranches
func (a *Accountability) RecordedExpenditure() decimal.Decimal {
	total := decimal.Zero
	for i := range a.Tranches {
		total = total.Add(a.Tranches[i].TotalExpenditure())
	}
	return total
}

// AccountingPercentage is accounted/disbursed as a percentage, one decimal
func (a *Accountability) AccountingPercentage() decimal.Decimal {
	return valueobject.Ratio(a.TotalAccounted(), a.TotalDisbursed())
}
