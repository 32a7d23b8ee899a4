package errors

import (
	"errors"
	"fmt"
)

var (
	// Order errors
	ErrOrderNotFound          = errors.New("order not found")
	ErrDuplicateTransaction   = errors.New("duplicate transaction uuid")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrOptimisticLockFailed   = errors.New("optimistic lock conflict")

	// Product / settlement errors
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")

	// Webhook verification errors
	ErrOriginRejected    = errors.New("origin not allowed")
	ErrReplayRejected    = errors.New("stale or missing timestamp")
	ErrInvalidSignature  = errors.New("invalid signature")
	ErrSignatureRequired = errors.New("signature required")
	ErrAmountMismatch    = errors.New("amount mismatch")

	// Gateway errors
	ErrSecretNotConfigured = errors.New("gateway secret key not configured")
	ErrGatewayUnavailable  = errors.New("gateway unavailable")

	// DLQ errors
	ErrFailedPaymentNotFound = errors.New("failed payment not found")
	ErrRetryExhausted        = errors.New("max retries exceeded")
	ErrSettlementDeferred    = errors.New("settlement deferred for retry")

	// Validation errors
	ErrInvalidInput = errors.New("invalid input")
)

// DomainError wraps errors with additional context
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}
