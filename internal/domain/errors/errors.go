package errors

import (
	"errors"
	"fmt"
)

var (
	// Invoice errors
	ErrInvoiceNotFound = errors.New("invoice not found")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidStatus   = errors.New("invalid invoice status")

	// Customer errors
	ErrCustomerNotFound = errors.New("customer not found")
	ErrInvalidCurrency  = errors.New("invalid currency")

	// Charge errors. Providers wrap these so the billing engine can classify
	// the outcome of a charge attempt.
	ErrCurrencyMismatch    = errors.New("currency mismatch")
	ErrNetwork             = errors.New("network error")
	ErrProviderNotFound    = errors.New("payment provider not found")
	ErrProviderUnavailable = errors.New("payment provider unavailable")

	// Lock errors
	ErrLockAcquisitionFailed = errors.New("failed to acquire lock")
	ErrLockNotHeld           = errors.New("lock not held")
)

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

// CurrencyMismatchError reports an invoice whose currency differs from the
// one the customer is billed in.
type CurrencyMismatchError struct {
	InvoiceID  int64
	CustomerID int64
}

func (e *CurrencyMismatchError) Error() string {
	return fmt.Sprintf("currency of invoice %d does not match currency of customer %d", e.InvoiceID, e.CustomerID)
}

func (e *CurrencyMismatchError) Unwrap() error {
	return ErrCurrencyMismatch
}

// CustomerNotFoundError reports a charge or lookup for an unknown customer.
type CustomerNotFoundError struct {
	CustomerID int64
}

func (e *CustomerNotFoundError) Error() string {
	return fmt.Sprintf("customer %d not found", e.CustomerID)
}

func (e *CustomerNotFoundError) Unwrap() error {
	return ErrCustomerNotFound
}
