package budget

import (
	"github.com/google/uuid"
	capapp "github.com/schoolgrants/backend/internal/application/capitation"
	"github.com/schoolgrants/backend/internal/domain/budget"
)

// SubmitBudgetRequest is a school's budget submission. submittedAmount is
// never accepted from the client; it is computed from the line items.
type SubmitBudgetRequest struct {
	Code                           string            `json:"code" binding:"required,max=50"`
	AcademicYear                   int               `json:"academicYear" binding:"required,min=1900,max=9999"`
	SchoolName                     string            `json:"schoolName" binding:"max=200"`
	SchoolType                     string            `json:"schoolType" binding:"required"`
	Ownership                      string            `json:"ownership" binding:"max=100"`
	State                          string            `json:"state" binding:"max=100"`
	County                         string            `json:"county" binding:"max=100"`
	Payam                          string            `json:"payam" binding:"max=100"`
	Groups                         []budget.Group    `json:"groups"`
	Governance                     budget.Governance `json:"governance"`
	PreviousYearLedgerAccountedFor bool              `json:"previousYearLedgerAccountedFor"`
}

// EligibilityResponse reports whether a school qualifies for its grant
type EligibilityResponse struct {
	BudgetID     uuid.UUID                   `json:"budgetId"`
	Code         string                      `json:"code"`
	AcademicYear int                         `json:"academicYear"`
	Enrolment    int64                       `json:"enrolment"`
	Governance   budget.Governance           `json:"governance"`
	Eligibility  string                      `json:"eligibility"`
	Entitlement  *capapp.EntitlementResponse `json:"entitlement,omitempty"`
}
