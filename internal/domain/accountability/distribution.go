package accountability

import (
	"github.com/google/uuid"
	"github.com/schoolgrants/backend/internal/domain/capitation"
	"github.com/schoolgrants/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// SplitTranches divides the submitted total into three tranches. The first
// two are rounded to the cent and the third takes the remainder, so the
// three always sum to the submitted amount. Each inflation correction is a
// percentage of its own tranche.
func SplitTranches(submitted decimal.Decimal, rule capitation.GrantRule) []Tranche {
	dist := rule.TrancheDistribution
	pcts := dist.Percentages()
	inflation := dist.InflationPercentages()
	amounts := splitAmounts(submitted, pcts)

	currency := rule.Currency
	if currency == "" {
		currency = valueobject.SSP
	}

	tranches := make([]Tranche, 3)
	for i := range tranches {
		tranches[i] = Tranche{
			ID:                     uuid.New(),
			Name:                   TrancheName(i + 1),
			Position:               i + 1,
			Currency:               currency,
			AmountApproved:         amounts[i],
			AmountDisbursed:        decimal.Zero,
			InflationCorrectionPct: inflation[i],
			InflationCorrection:    valueobject.PercentOf(amounts[i], inflation[i]),
			Approval:               Approval{Status: ApprovalPending},
			FundsAccountability: FundsAccountability{
				ReceivedBySchool:  decimal.Zero,
				AccountingEntries: []AccountingEntry{},
			},
			Revenues:     []Revenue{},
			Expenditures: []Expenditure{},
		}
	}
	return tranches
}

// splitAmounts rounds the first two shares up front. When both round up far
// enough to push the remainder below zero, the third is held at zero and the
// overshoot is taken back from the second share, then the first.
func splitAmounts(submitted decimal.Decimal, pcts [3]decimal.Decimal) [3]decimal.Decimal {
	amounts := [3]decimal.Decimal{
		valueobject.PercentOf(submitted, pcts[0]),
		valueobject.PercentOf(submitted, pcts[1]),
	}
	amounts[2] = valueobject.Round2(submitted.Sub(amounts[0]).Sub(amounts[1]))
	if !amounts[2].IsNegative() {
		return amounts
	}
	over := amounts[2].Neg()
	amounts[2] = decimal.Zero
	for i := 1; i >= 0 && over.IsPositive(); i-- {
		take := decimal.Min(over, amounts[i])
		amounts[i] = amounts[i].Sub(take)
		over = over.Sub(take)
	}
	return amounts
}
