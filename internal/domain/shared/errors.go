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

// Is reports whether target carries the same error code, so that
// errors.Is(err, ErrStageLocked) matches any STAGE_LOCKED error regardless of message.
func (e *DomainError) Is(target error) bool {
	var de *DomainError
	if !errors.As(target, &de) {
		return false
	}
	return e.Code == de.Code
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
	CodeNotFound                  = "NOT_FOUND"
	CodeAlreadyExists             = "ALREADY_EXISTS"
	CodeInvalidInput              = "INVALID_INPUT"
	CodeInvalidState              = "INVALID_STATE"
	CodeTenantRequired            = "TENANT_REQUIRED"
	CodeInvariantViolation        = "INVARIANT_VIOLATION"
	CodeInsufficientAvailable     = "INSUFFICIENT_AVAILABLE"
	CodeInsufficientBatchQuantity = "INSUFFICIENT_BATCH_QUANTITY"
	CodeAlreadyResolved           = "ALREADY_RESOLVED"
	CodeStageLocked               = "STAGE_LOCKED"
	CodeTerminalStage             = "TERMINAL_STAGE"
	CodeCorrectionNoteRequired    = "CORRECTION_NOTE_REQUIRED"
	CodeTransactionConflict       = "TRANSACTION_CONFLICT"
	CodeTransactionTimeout        = "TRANSACTION_TIMEOUT"
)

// Common domain errors
var (
	ErrNotFound                  = NewDomainError(CodeNotFound, "Resource not found")
	ErrAlreadyExists             = NewDomainError(CodeAlreadyExists, "Resource already exists")
	ErrInvalidInput              = NewDomainError(CodeInvalidInput, "Invalid input provided")
	ErrInvalidState              = NewDomainError(CodeInvalidState, "Operation not allowed in current state")
	ErrTenantRequired            = NewDomainError(CodeTenantRequired, "Tenant is required for this operation")
	ErrInvariantViolation        = NewDomainError(CodeInvariantViolation, "Operation would break a stock balance invariant")
	ErrInsufficientAvailable     = NewDomainError(CodeInsufficientAvailable, "Insufficient available quantity")
	ErrInsufficientBatchQuantity = NewDomainError(CodeInsufficientBatchQuantity, "Insufficient batch quantity")
	ErrAlreadyResolved           = NewDomainError(CodeAlreadyResolved, "Reservation already resolved")
	ErrStageLocked               = NewDomainError(CodeStageLocked, "Order is in a locked stage")
	ErrTerminalStage             = NewDomainError(CodeTerminalStage, "Order is in a terminal stage")
	ErrCorrectionNoteRequired    = NewDomainError(CodeCorrectionNoteRequired, "Corrections require a note")
	ErrTransactionConflict       = NewDomainError(CodeTransactionConflict, "Transaction conflicted with a concurrent write")
	ErrTransactionTimeout        = NewDomainError(CodeTransactionTimeout, "Transaction exceeded its deadline")
)

// IsRetryable reports whether the whole unit of work may be retried from scratch.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransactionConflict) || errors.Is(err, ErrTransactionTimeout)
}

// ErrorCode extracts the domain error code, or "" when err is not a DomainError.
func ErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}
