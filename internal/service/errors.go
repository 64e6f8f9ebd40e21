package service

import (
	"errors"
	"fmt"
)

// Common service errors - sentinel errors used across service implementations.
// These errors represent common conditions that callers may want to check for with errors.Is().
//
// Error handling principles:
// 1. Service methods return sentinel errors for expected error conditions
// 2. Unexpected errors are wrapped in ProductServiceError
// 3. Callers use errors.Is/errors.As to check for specific error conditions
// 4. The API layer maps service errors to appropriate HTTP status codes
var (
	// ErrInsufficientStock indicates a stock adjustment would leave a negative quantity.
	// API layer should map this to HTTP 409 Conflict.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrEmptyUpdate indicates an update request that changes no field.
	// API layer should map this to HTTP 400 Bad Request.
	ErrEmptyUpdate = errors.New("update contains no fields")
)

// ProductServiceError is a custom error type for product service errors.
type ProductServiceError struct {
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface for ProductServiceError.
func (e *ProductServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("product service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("product service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ProductServiceError) Unwrap() error {
	return e.Err
}

// NewProductServiceError creates a new ProductServiceError.
func NewProductServiceError(operation, message string, err error) *ProductServiceError {
	return &ProductServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
