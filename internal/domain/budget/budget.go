package budget

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/schoolgrants/backend/internal/domain/capitation"
	"github.com/schoolgrants/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Eligibility labels
const (
	Eligible    = "Eligible"
	NotEligible = "Not Eligible"
)

// Item is a single budget line
type Item struct {
	Description  string          `json:"description"`
	UnitCostSSP  decimal.Decimal `json:"unitCostSSP"`
	Units        decimal.Decimal `json:"units"`
	TotalCostSSP decimal.Decimal `json:"totalCostSSP"`
}

// Category groups line items
type Category struct {
	Name  string `json:"name"`
	Items []Item `json:"items"`
}

// Group is a funding group such as OPEX or CAPEX
type Group struct {
	Name       string     `json:"name"`
	Categories []Category `json:"categories"`
}

// Governance holds the school governance criteria used for eligibility
type Governance struct {
	SGB             bool `json:"SGB"`
	SDP             bool `json:"SDP"`
	BudgetSubmitted bool `json:"budgetSubmitted"`
	BankAccount     bool `json:"bankAccount"`
}

// ComputeSubmittedAmount sums totalCostSSP over the group → category → item
// tree. Nil or empty levels contribute zero.
func ComputeSubmittedAmount(groups []Group) decimal.Decimal {
	total := decimal.Zero
	for _, g := range groups {
		for _, c := range g.Categories {
			for _, it := range c.Items {
				total = total.Add(it.TotalCostSSP)
			}
		}
	}
	return total
}

// ComputeEligibility returns Eligible iff enrolment is positive and all four
// governance criteria hold.
func ComputeEligibility(g Governance, enrolment int64) string {
	if enrolment > 0 && g.SGB && g.SDP && g.BudgetSubmitted && g.BankAccount {
		return Eligible
	}
	return NotEligible
}

// Budget is a school's annual budget submission
type Budget struct {
	shared.BaseAggregateRoot
	Code         string                `json:"code"`
	AcademicYear int                   `json:"academicYear"`
	SchoolName   string                `json:"schoolName"`
	SchoolType   capitation.SchoolType `json:"schoolType"`
	Ownership    string                `json:"ownership"`
	State        string                `json:"state"`
	County       string                `json:"county"`
	Payam        string                `json:"payam"`

	Groups []Group `json:"groups"`
	// SubmittedAmount is a cached total and may be stale or absent
	SubmittedAmount                *decimal.Decimal `json:"submittedAmount,omitempty"`
	PreviousYearLedgerAccountedFor bool             `json:"previousYearLedgerAccountedFor"`
	Governance                     Governance       `json:"governance"`

	ReviewedBy       string     `json:"reviewedBy,omitempty"`
	ReviewDate       *time.Time `json:"reviewDate,omitempty"`
	AccountabilityID *uuid.UUID `json:"accountabilityId,omitempty"`
}

// Identity describes the school a budget belongs to
type Identity struct {
	Code         string
	AcademicYear int
	SchoolName   string
	SchoolType   capitation.SchoolType
	Ownership    string
	State        string
	County       string
	Payam        string
}

// NewBudget creates a submitted budget and caches its total
func NewBudget(id Identity, groups []Group, governance Governance, previousYearAccounted bool) (*Budget, error) {
	code := strings.TrimSpace(id.Code)
	if code == "" {
		return nil, shared.NewDomainError(shared.CodeValidation, "code is required")
	}
	if id.AcademicYear < 1900 || id.AcademicYear > 9999 {
		return nil, shared.NewDomainError(shared.CodeValidation, fmt.Sprintf("academicYear %d is out of range", id.AcademicYear))
	}
	if !id.SchoolType.IsValid() {
		return nil, shared.NewDomainError(shared.CodeValidation, fmt.Sprintf("schoolType %q is not valid", id.SchoolType))
	}
	for gi, g := range groups {
		for ci, c := range g.Categories {
			for ii, it := range c.Items {
				if it.TotalCostSSP.IsNegative() {
					return nil, shared.NewDomainError(shared.CodeValidation,
						fmt.Sprintf("groups[%d].categories[%d].items[%d].totalCostSSP cannot be negative", gi, ci, ii))
				}
			}
		}
	}

	b := &Budget{
		BaseAggregateRoot:              shared.NewBaseAggregateRoot(),
		Code:                           code,
		AcademicYear:                   id.AcademicYear,
		SchoolName:                     id.SchoolName,
		SchoolType:                     id.SchoolType,
		Ownership:                      id.Ownership,
		State:                          id.State,
		County:                         id.County,
		Payam:                          id.Payam,
		Groups:                         groups,
		Governance:                     governance,
		PreviousYearLedgerAccountedFor: previousYearAccounted,
	}
	b.RefreshSubmittedAmount()
	b.AddDomainEvent(NewBudgetSubmittedEvent(b))
	return b, nil
}

// RefreshSubmittedAmount recomputes the cached total from the line items
func (b *Budget) RefreshSubmittedAmount() decimal.Decimal {
	total := ComputeSubmittedAmount(b.Groups)
	b.SubmittedAmount = &total
	return total
}

// ResolveSubmittedAmount prefers the cached total when it is present and
// non-negative, otherwise recomputes it from the tree.
func (b *Budget) ResolveSubmittedAmount() decimal.Decimal {
	if b.SubmittedAmount != nil && !b.SubmittedAmount.IsNegative() {
		return *b.SubmittedAmount
	}
	return ComputeSubmittedAmount(b.Groups)
}

// IsReviewed reports whether the budget already links to an accountability record
func (b *Budget) IsReviewed() bool {
	return b.AccountabilityID != nil && *b.AccountabilityID != uuid.Nil
}

// Eligibility evaluates the budget's governance criteria against enrolment
func (b *Budget) Eligibility(enrolment int64) string {
	return ComputeEligibility(b.Governance, enrolment)
}

// MarkReviewed links the budget to its accountability record. The link is set once.
func (b *Budget) MarkReviewed(reviewer string, at time.Time, accountabilityID uuid.UUID) error {
	if b.IsReviewed() {
		return shared.NewDomainError(shared.CodeInvalidState, "budget has already been reviewed")
	}
	if accountabilityID == uuid.Nil {
		return shared.NewDomainError(shared.CodeInvalidInput, "accountability id cannot be empty")
	}
	if reviewer == "" {
		reviewer = "Unknown"
	}
	b.ReviewedBy = reviewer
	b.ReviewDate = &at
	b.AccountabilityID = &accountabilityID
	b.UpdatedAt = at
	b.IncrementVersion()
	b.AddDomainEvent(NewBudgetReviewedEvent(b))
	return nil
}
