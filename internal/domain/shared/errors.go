package shared

import "errors"

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target carries the same code, so errors.Is matches
// a freshly built error against the sentinels below.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Error codes
const (
	CodeNotFound              = "NOT_FOUND"
	CodeAlreadyExists         = "ALREADY_EXISTS"
	CodeInvalidInput          = "INVALID_INPUT"
	CodeValidation            = "VALIDATION_ERROR"
	CodeConcurrencyConflict   = "CONCURRENCY_CONFLICT"
	CodeUnauthorized          = "UNAUTHORIZED"
	CodeInvalidState          = "INVALID_STATE"
	CodeStorageUnavailable    = "STORAGE_UNAVAILABLE"
	CodeBudgetNotFound        = "BUDGET_NOT_FOUND"
	CodeAccountabilityMissing = "ACCOUNTABILITY_NOT_FOUND"
	CodeTrancheNotFound       = "TRANCHE_NOT_FOUND"
	CodeEntryNotFound         = "ACCOUNTING_ENTRY_NOT_FOUND"
	CodeSettingsNotFound      = "SETTINGS_NOT_FOUND"
	CodeExceedsApproved       = "EXCEEDS_APPROVED_AMOUNT"
	CodeDistributionSum       = "DISTRIBUTION_SUM_MISMATCH"
	CodeInvalidDistribution   = "INVALID_DISTRIBUTION"
	CodeInvalidPaidThrough    = "INVALID_PAID_THROUGH"
	CodeInvalidApprovalStatus = "INVALID_APPROVAL_STATUS"
)

// Common domain errors
var (
	ErrNotFound            = NewDomainError(CodeNotFound, "Resource not found")
	ErrAlreadyExists       = NewDomainError(CodeAlreadyExists, "Resource already exists")
	ErrInvalidInput        = NewDomainError(CodeInvalidInput, "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError(CodeConcurrencyConflict, "Resource was modified by another process")
	ErrUnauthorized        = NewDomainError(CodeUnauthorized, "Not authorized to perform this action")
	ErrInvalidState        = NewDomainError(CodeInvalidState, "Operation not allowed in current state")
	ErrStorageUnavailable  = NewDomainError(CodeStorageUnavailable, "Receipt storage is not configured")

	ErrBudgetNotFound         = NewDomainError(CodeBudgetNotFound, "Budget not found")
	ErrAccountabilityNotFound = NewDomainError(CodeAccountabilityMissing, "Accountability record not found")
	ErrTrancheNotFound        = NewDomainError(CodeTrancheNotFound, "Tranche not found")
	ErrEntryNotFound          = NewDomainError(CodeEntryNotFound, "Accounting entry not found")
	ErrSettingsNotFound       = NewDomainError(CodeSettingsNotFound, "Capitation settings not found")
)

// HasCode reports whether err is a DomainError with the given code.
func HasCode(err error, code string) bool {
	var de *DomainError
	return errors.As(err, &de) && de.Code == code
}
