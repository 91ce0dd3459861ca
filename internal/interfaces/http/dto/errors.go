package dto

import (
	"net/http"

	"github.com/dukapos/backend/internal/domain/shared"
)

// Transport-level error codes. Domain codes pass through unchanged; the
// codes below cover failures that never reach the domain.
const (
	ErrCodeInternal     = "INTERNAL_ERROR"
	ErrCodeBadRequest   = "BAD_REQUEST"
	ErrCodeUnauthorized = "UNAUTHORIZED"
)

// errorCodeHTTPStatus maps error codes to HTTP status codes. Conflicts
// that resolve by re-reading and retrying map to 409; requests that are
// well-formed but unprocessable map to 422; exhausted contention retries
// map to 503 so clients know the whole request is safe to resubmit.
var errorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:     http.StatusInternalServerError,
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeUnauthorized: http.StatusUnauthorized,

	shared.CodeNotFound:  http.StatusNotFound,
	shared.CodeForbidden: http.StatusForbidden,

	shared.CodeVersionConflict:        http.StatusConflict,
	shared.CodeInsufficientStock:      http.StatusConflict,
	shared.CodeOverpaymentRejected:    http.StatusConflict,
	shared.CodeAlreadyExists:          http.StatusConflict,
	shared.CodeTransferStateViolation: http.StatusConflict,
	shared.CodeInvalidState:           http.StatusConflict,

	shared.CodePriceBelowMinimum:    http.StatusUnprocessableEntity,
	shared.CodePaymentSumMismatch:   http.StatusUnprocessableEntity,
	shared.CodeMissingCreditDetails: http.StatusUnprocessableEntity,
	shared.CodeInvalidInput:         http.StatusUnprocessableEntity,

	shared.CodeTransientFailure: http.StatusServiceUnavailable,
}

// GetHTTPStatus returns the HTTP status for an error code, defaulting to
// 500 for codes with no mapping.
func GetHTTPStatus(code string) int {
	if status, ok := errorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
