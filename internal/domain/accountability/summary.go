package accountability

import (
	"time"

	"github.com/schoolgrants/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// Accountability status labels
const (
	StatusNotDisbursed       = "Not Disbursed"
	StatusNotAccounted       = "Not Accounted"
	StatusPartiallyAccounted = "Partially Accounted"
	StatusFullyAccounted     = "Fully Accounted"
)

// FullyAccountedThreshold tolerates rounding when comparing against 100%
var FullyAccountedThreshold = decimal.RequireFromString("99.9")

// FinancialSummary is the derived financial position of one record
type FinancialSummary struct {
	OpeningBalance                  decimal.Decimal `json:"openingBalance"`
	TotalRevenue                    decimal.Decimal `json:"totalRevenue"`
	TotalExpenditure                decimal.Decimal `json:"totalExpenditure"`
	RecordedExpenditure             decimal.Decimal `json:"recordedExpenditure"`
	ClosingBalance                  decimal.Decimal `json:"closingBalance"`
	UnaccountedBalance              decimal.Decimal `json:"unaccountedBalance"`
	TotalDisbursed                  decimal.Decimal `json:"totalDisbursed"`
	TotalAccounted                  decimal.Decimal `json:"totalAccounted"`
	AccountingPercentage            decimal.Decimal `json:"accountingPercentage"`
	PreviousYearLedgerAccountedFor  bool            `json:"previousYearLedgerAccountedFor"`
	PercentageAccountedPreviousYear decimal.Decimal `json:"percentageAccountedPreviousYear"`
	AccountabilityStatus            string          `json:"accountabilityStatus"`
	CalculatedAt                    *time.Time      `json:"calculatedAt,omitempty"`
}

// OpeningBalance is the previous year's unaccounted money, floored at zero.
// Over-accounting never produces a credit.
func OpeningBalance(previous *Accountability) decimal.Decimal {
	if previous == nil {
		return decimal.Zero
	}
	unaccounted := previous.TotalDisbursed().Sub(previous.TotalAccounted())
	if unaccounted.IsPositive() {
		return valueobject.Round2(unaccounted)
	}
	return decimal.Zero
}

// StatusLabel derives the accountability status from disbursement and percentage
func StatusLabel(totalDisbursed, pct decimal.Decimal) string {
	switch {
	case totalDisbursed.IsZero():
		return StatusNotDisbursed
	case pct.GreaterThanOrEqual(FullyAccountedThreshold):
		return StatusFullyAccounted
	case pct.IsPositive():
		return StatusPartiallyAccounted
	default:
		return StatusNotAccounted
	}
}

// CalculateSummary derives the financial summary of current, carrying the
// opening balance from previous (the same school's prior year, or nil).
// totalExpenditure equals totalAccounted; itemized spending is reported
// separately as recordedExpenditure.
func CalculateSummary(current, previous *Accountability, now time.Time) FinancialSummary {
	opening := OpeningBalance(previous)
	disbursed := current.TotalDisbursed()
	accounted := current.TotalAccounted()
	revenue := current.TotalRevenue()
	expenditure := accounted
	pct := valueobject.Ratio(accounted, disbursed)

	prevPct := decimal.Zero
	prevAccountedFor := true
	if previous != nil {
		prevPct = previous.AccountingPercentage()
		prevAccountedFor = prevPct.GreaterThanOrEqual(FullyAccountedThreshold)
	}

	return FinancialSummary{
		OpeningBalance:                  opening,
		TotalRevenue:                    valueobject.Round2(revenue),
		TotalExpenditure:                valueobject.Round2(expenditure),
		RecordedExpenditure:             valueobject.Round2(current.RecordedExpenditure()),
		ClosingBalance:                  valueobject.Round2(opening.Add(revenue).Sub(expenditure)),
		UnaccountedBalance:              valueobject.Round2(disbursed.Sub(accounted)),
		TotalDisbursed:                  valueobject.Round2(disbursed),
		TotalAccounted:                  valueobject.Round2(accounted),
		AccountingPercentage:            pct,
		PreviousYearLedgerAccountedFor:  prevAccountedFor,
		PercentageAccountedPreviousYear: prevPct,
		AccountabilityStatus:            StatusLabel(disbursed, pct),
		CalculatedAt:                    &now,
	}
}
