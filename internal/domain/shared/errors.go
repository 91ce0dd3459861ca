package shared

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Error codes for the stock/sale engine. All of these are expected,
// recoverable-by-caller conditions, never process faults.
const (
	CodePriceBelowMinimum      = "PRICE_BELOW_MINIMUM"
	CodeInsufficientStock      = "INSUFFICIENT_STOCK"
	CodeVersionConflict        = "VERSION_CONFLICT"
	CodePaymentSumMismatch     = "PAYMENT_SUM_MISMATCH"
	CodeMissingCreditDetails   = "MISSING_CREDIT_DETAILS"
	CodeOverpaymentRejected    = "OVERPAYMENT_REJECTED"
	CodeTransferStateViolation = "TRANSFER_STATE_VIOLATION"
	CodeTransientFailure       = "TRANSIENT_FAILURE"

	CodeNotFound      = "NOT_FOUND"
	CodeAlreadyExists = "ALREADY_EXISTS"
	CodeInvalidInput  = "INVALID_INPUT"
	CodeForbidden     = "FORBIDDEN"
	CodeInvalidState  = "INVALID_STATE"
)

// Common domain errors
var (
	ErrNotFound             = NewDomainError(CodeNotFound, "Resource not found")
	ErrAlreadyExists        = NewDomainError(CodeAlreadyExists, "Resource already exists")
	ErrInvalidInput         = NewDomainError(CodeInvalidInput, "Invalid input provided")
	ErrForbidden            = NewDomainError(CodeForbidden, "Access to this resource is forbidden")
	ErrInvalidState         = NewDomainError(CodeInvalidState, "Operation not allowed in current state")
	ErrVersionConflict      = NewDomainError(CodeVersionConflict, "Record was modified by another process")
	ErrInsufficientStock    = NewDomainError(CodeInsufficientStock, "Insufficient stock available")
	ErrTransientFailure     = NewDomainError(CodeTransientFailure, "Operation timed out under contention; retry the whole request")
	ErrOverpaymentRejected  = NewDomainError(CodeOverpaymentRejected, "Installment would exceed the remaining credit balance")
	ErrPaymentSumMismatch   = NewDomainError(CodePaymentSumMismatch, "Payment legs do not sum to the sale total")
	ErrMissingCreditDetails = NewDomainError(CodeMissingCreditDetails, "Credit payment requires customer name and a valid mobile number")
)

// IsCode reports whether err is a DomainError carrying the given code.
func IsCode(err error, code string) bool {
	de, ok := err.(*DomainError)
	return ok && de.Code == code
}
