package budget

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/schoolgrants/backend/internal/domain/capitation"
	"github.com/schoolgrants/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func identity() Identity {
	return Identity{
		Code:         "CES-0042",
		AcademicYear: 2024,
		SchoolName:   "Juba Day Primary",
		SchoolType:   capitation.SchoolTypePrimary,
		Ownership:    "Public",
		State:        "CES",
		County:       "Juba",
		Payam:        "Kator",
	}
}

func sampleGroups() []Group {
	return []Group{
		{Name: "OPEX", Categories: []Category{
			{Name: "Learning materials", Items: []Item{
				{Description: "Exercise books", UnitCostSSP: dec("2.5"), Units: dec("400"), TotalCostSSP: dec("1000")},
				{Description: "Chalk", TotalCostSSP: dec("250.25")},
			}},
			{Name: "Empty"},
		}},
		{Name: "CAPEX"},
		{Name: "Repairs", Categories: []Category{
			{Name: "Roof", Items: []Item{{TotalCostSSP: dec("749.75")}}},
		}},
	}
}

func TestComputeSubmittedAmount(t *testing.T) {
	tests := []struct {
		name   string
		groups []Group
		want   string
	}{
		{"nil tree", nil, "0"},
		{"empty groups", []Group{{}, {Categories: []Category{{}}}}, "0"},
		{"nested tree", sampleGroups(), "2000"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.True(t, ComputeSubmittedAmount(tc.groups).Equal(dec(tc.want)))
		})
	}
}

func TestComputeEligibility(t *testing.T) {
	all := Governance{SGB: true, SDP: true, BudgetSubmitted: true, BankAccount: true}
	tests := []struct {
		name      string
		gov       Governance
		enrolment int64
		want      string
	}{
		{"all criteria met", all, 10, Eligible},
		{"no learners", all, 0, NotEligible},
		{"no SGB", Governance{SDP: true, BudgetSubmitted: true, BankAccount: true}, 10, NotEligible},
		{"no SDP", Governance{SGB: true, BudgetSubmitted: true, BankAccount: true}, 10, NotEligible},
		{"budget not submitted", Governance{SGB: true, SDP: true, BankAccount: true}, 10, NotEligible},
		{"no bank account", Governance{SGB: true, SDP: true, BudgetSubmitted: true}, 10, NotEligible},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ComputeEligibility(tc.gov, tc.enrolment))
		})
	}
}

func TestNewBudget(t *testing.T) {
	t.Run("caches submitted amount and raises event", func(t *testing.T) {
		b, err := NewBudget(identity(), sampleGroups(), Governance{SGB: true}, true)
		require.NoError(t, err)
		require.NotNil(t, b.SubmittedAmount)
		assert.True(t, b.SubmittedAmount.Equal(dec("2000")))
		assert.True(t, b.PreviousYearLedgerAccountedFor)
		require.Len(t, b.GetDomainEvents(), 1)
		assert.Equal(t, EventTypeBudgetSubmitted, b.GetDomainEvents()[0].EventType())
	})

	t.Run("validates identity", func(t *testing.T) {
		id := identity()
		id.Code = " "
		_, err := NewBudget(id, nil, Governance{}, false)
		assert.True(t, shared.HasCode(err, shared.CodeValidation))

		id = identity()
		id.SchoolType = "UNI"
		_, err = NewBudget(id, nil, Governance{}, false)
		assert.Error(t, err)
	})

	t.Run("rejects negative line totals", func(t *testing.T) {
		groups := []Group{{Categories: []Category{{Items: []Item{{TotalCostSSP: dec("-1")}}}}}}
		_, err := NewBudget(identity(), groups, Governance{}, false)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "groups[0].categories[0].items[0]")
	})
}

func TestBudget_ResolveSubmittedAmount(t *testing.T) {
	b, err := NewBudget(identity(), sampleGroups(), Governance{}, false)
	require.NoError(t, err)

	t.Run("uses the cached value", func(t *testing.T) {
		cached := dec("1234.56")
		b.SubmittedAmount = &cached
		assert.True(t, b.ResolveSubmittedAmount().Equal(cached))
	})

	t.Run("recomputes when absent", func(t *testing.T) {
		b.SubmittedAmount = nil
		assert.True(t, b.ResolveSubmittedAmount().Equal(dec("2000")))
	})

	t.Run("recomputes when invalid", func(t *testing.T) {
		bad := dec("-5")
		b.SubmittedAmount = &bad
		assert.True(t, b.ResolveSubmittedAmount().Equal(dec("2000")))
	})
}

func TestBudget_MarkReviewed(t *testing.T) {
	b, err := NewBudget(identity(), sampleGroups(), Governance{}, false)
	require.NoError(t, err)
	b.ClearDomainEvents()

	accID := uuid.New()
	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, b.MarkReviewed("", at, accID))

	assert.True(t, b.IsReviewed())
	assert.Equal(t, "Unknown", b.ReviewedBy)
	assert.Equal(t, accID, *b.AccountabilityID)
	assert.Equal(t, 2, b.GetVersion())
	require.Len(t, b.GetDomainEvents(), 1)
	ev, ok := b.GetDomainEvents()[0].(*BudgetReviewedEvent)
	require.True(t, ok)
	assert.Equal(t, accID, ev.AccountabilityID)
	assert.Equal(t, "CES-0042", ev.SchoolCode())

	err = b.MarkReviewed("admin", at, uuid.New())
	assert.True(t, shared.HasCode(err, shared.CodeInvalidState))
	assert.Equal(t, accID, *b.AccountabilityID)
}
