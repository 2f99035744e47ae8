package dto

import (
	"net/http"

	"github.com/schoolgrants/backend/internal/domain/shared"
)

// Transport-level error codes. Domain errors keep their own codes
// (see shared.Code*) and are mapped to a status by GetHTTPStatus.
const (
	ErrCodeInternal     = "ERR_INTERNAL"
	ErrCodeBadRequest   = "ERR_BAD_REQUEST"
	ErrCodeInvalidJSON  = "ERR_INVALID_JSON"
	ErrCodeValidation   = "ERR_VALIDATION"
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	ErrCodeTokenExpired = "ERR_TOKEN_EXPIRED"
	ErrCodeTokenInvalid = "ERR_TOKEN_INVALID"
	ErrCodeNotFound     = "ERR_NOT_FOUND"
	ErrCodeBodyTooLarge = "ERR_BODY_TOO_LARGE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal: http.StatusInternalServerError,

	// Input errors -> 400
	ErrCodeBadRequest:                http.StatusBadRequest,
	ErrCodeInvalidJSON:               http.StatusBadRequest,
	ErrCodeValidation:                http.StatusBadRequest,
	shared.CodeValidation:            http.StatusBadRequest,
	shared.CodeInvalidInput:          http.StatusBadRequest,
	shared.CodeInvalidPaidThrough:    http.StatusBadRequest,
	shared.CodeInvalidApprovalStatus: http.StatusBadRequest,
	shared.CodeInvalidDistribution:   http.StatusBadRequest,

	// Invariant violations are reported as bad input
	shared.CodeExceedsApproved: http.StatusBadRequest,
	shared.CodeDistributionSum: http.StatusBadRequest,

	// Auth -> 401
	ErrCodeUnauthorized:     http.StatusUnauthorized,
	ErrCodeTokenExpired:     http.StatusUnauthorized,
	ErrCodeTokenInvalid:     http.StatusUnauthorized,
	shared.CodeUnauthorized: http.StatusUnauthorized,

	// Lookups -> 404
	ErrCodeNotFound:                  http.StatusNotFound,
	shared.CodeNotFound:              http.StatusNotFound,
	shared.CodeBudgetNotFound:        http.StatusNotFound,
	shared.CodeAccountabilityMissing: http.StatusNotFound,
	shared.CodeTrancheNotFound:       http.StatusNotFound,
	shared.CodeEntryNotFound:         http.StatusNotFound,
	shared.CodeSettingsNotFound:      http.StatusNotFound,

	// Conflicts -> 409
	shared.CodeAlreadyExists:       http.StatusConflict,
	shared.CodeConcurrencyConflict: http.StatusConflict,
	shared.CodeInvalidState:        http.StatusConflict,

	ErrCodeBodyTooLarge:           http.StatusRequestEntityTooLarge,
	shared.CodeStorageUnavailable: http.StatusServiceUnavailable,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
