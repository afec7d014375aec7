package shared

import "fmt"

// DomainError represents a domain-level error with a stable code
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target is a DomainError with the same code.
// This lets detailed errors (e.g. an INSUFFICIENT_STOCK error naming the
// failing line) match their sentinel via errors.Is.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithDetails returns a copy of the error with key=value appended to the
// message. The code is preserved, so errors.Is still matches the sentinel.
func (e *DomainError) WithDetails(key, value string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: fmt.Sprintf("%s (%s=%s)", e.Message, key, value),
	}
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound               = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists          = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput           = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict    = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrTenantMismatch         = NewDomainError("TENANT_MISMATCH", "Entity belongs to a different tenant")
	ErrInvalidStateTransition = NewDomainError("INVALID_STATE_TRANSITION", "Operation not allowed in current document state")
	ErrInsufficientStock      = NewDomainError("INSUFFICIENT_STOCK", "Insufficient stock available")
	ErrInsufficientPermission = NewDomainError("INSUFFICIENT_PERMISSION", "Not authorized to perform this action")
	ErrDuplicateSubmission    = NewDomainError("DUPLICATE_SUBMISSION", "Request with this idempotency key was already applied")
	ErrReconciliationDrift    = NewDomainError("RECONCILIATION_DRIFT", "Cached aggregate diverged from its ledger")
	ErrCurrencyNotFound       = NewDomainError("CURRENCY_NOT_FOUND", "Currency is not configured for this tenant")
	ErrReferenceNotFound      = NewDomainError("REFERENCE_NOT_FOUND", "Referenced entity does not exist")
	ErrBusy                   = NewDomainError("BUSY", "Aggregate is locked by another operation, retry later")
)
