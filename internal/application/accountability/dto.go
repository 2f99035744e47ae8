package accountability

import (
	"time"

	"github.com/google/uuid"
	"github.com/schoolgrants/backend/internal/domain/accountability"
	"github.com/shopspring/decimal"
)

// ApproveTrancheRequest approves a tranche and optionally resets its ceiling
type ApproveTrancheRequest struct {
	TrancheName    string           `json:"trancheName" binding:"required"`
	ApprovedBy     string           `json:"approvedBy"`
	ApproverName   string           `json:"approverName"`
	ApprovalDate   *time.Time       `json:"approvalDate"`
	Status         string           `json:"status"`
	Remarks        string           `json:"remarks" binding:"max=2000"`
	AmountApproved *decimal.Decimal `json:"amountApproved"`
}

// DisburseTrancheRequest records a payment against a tranche
type DisburseTrancheRequest struct {
	TrancheName      string           `json:"trancheName" binding:"required"`
	AmountDisbursed  *decimal.Decimal `json:"amountDisbursed"`
	PaidBy           string           `json:"paidBy"`
	DisbursementDate *time.Time       `json:"disbursementDate"`
	PaidThrough      string           `json:"paidThrough"`
}

// ReturnedFundsRequest records money returned by the school
type ReturnedFundsRequest struct {
	TrancheName string          `json:"trancheName"`
	Amount      decimal.Decimal `json:"amount"`
	Reason      string          `json:"reason"`
	ReturnDate  *time.Time      `json:"returnDate"`
	RecordedBy  string          `json:"recordedBy"`
}

// HeldFundsRequest records money held back from the school
type HeldFundsRequest struct {
	TrancheName string          `json:"trancheName"`
	Amount      decimal.Decimal `json:"amount"`
	HeldBy      string          `json:"heldBy"`
	Reason      string          `json:"reason"`
	DateHeld    *time.Time      `json:"dateHeld"`
	RecordedBy  string          `json:"recordedBy"`
}

// FlowRequest appends a revenue or expenditure line
type FlowRequest struct {
	TrancheName string          `json:"trancheName"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Description string          `json:"description" binding:"max=2000"`
	Date        *time.Time      `json:"date"`
}

// AddEntryRequest appends a ledger line
type AddEntryRequest struct {
	TrancheName string           `json:"trancheName"`
	Field       string           `json:"field"`
	Value       *decimal.Decimal `json:"value"`
	Comment     string           `json:"comment" binding:"max=2000"`
	Category    string           `json:"category"`
	RecordedBy  string           `json:"recordedBy"`
}

// UpdateEntryRequest patches a ledger line; absent fields are unchanged
type UpdateEntryRequest struct {
	TrancheName string           `json:"trancheName"`
	Field       *string          `json:"field"`
	Value       *decimal.Decimal `json:"value"`
	Comment     *string          `json:"comment"`
	Category    *string          `json:"category"`
}

// ReceiptUploadRequest asks for an upload URL for an entry's receipt
type ReceiptUploadRequest struct {
	TrancheName string `json:"trancheName"`
	ContentType string `json:"contentType" binding:"required"`
}

// ReceiptURLResponse is a presigned receipt URL
type ReceiptURLResponse struct {
	EntryID   uuid.UUID `json:"entryId"`
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	Method    string    `json:"method"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ReviewResult is the outcome of converting a budget
type ReviewResult struct {
	AccountabilityID uuid.UUID                      `json:"accountabilityId"`
	BudgetID         uuid.UUID                      `json:"budgetId"`
	Created          bool                           `json:"-"`
	Accountability   *accountability.Accountability `json:"accountability,omitempty"`
}

// ListQuery filters the record listing
type ListQuery struct {
	Code         string `form:"code"`
	AcademicYear int    `form:"academicYear"`
	SchoolType   string `form:"schoolType"`
	State        string `form:"state"`
	Page         int    `form:"page" binding:"omitempty,min=1"`
	PageSize     int    `form:"pageSize" binding:"omitempty,min=1,max=100"`
	OrderBy      string `form:"orderBy"`
	OrderDir     string `form:"orderDir" binding:"omitempty,oneof=asc desc"`
}
