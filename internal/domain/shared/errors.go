// Package shared contains common domain errors used across all domain packages.
// This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound = errors.New("entity not found")

	// Validation errors
	ErrInvalidID     = errors.New("invalid ID")
	ErrInvalidInput  = errors.New("invalid input")
	ErrNegativeValue = errors.New("value cannot be negative")

	// State errors
	ErrInvalidState = errors.New("invalid state")

	// Authorization errors
	ErrForbidden = errors.New("forbidden")

	// Concurrency errors
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// External service errors
	ErrExternalService    = errors.New("external service error")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrRateLimited        = errors.New("rate limited")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "streak", "store", "access"
	Op      string // Operation that failed, e.g., "Submit", "Reset"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Streak domain errors
var (
	ErrRecordNotFound = NewDomainError("streak", "Find", ErrNotFound, "streak record not found")
	ErrInvalidUserID  = NewDomainError("streak", "Validate", ErrInvalidID, "invalid user ID")
	ErrInvalidGuildID = NewDomainError("streak", "Validate", ErrInvalidID, "invalid guild ID")
	ErrNegativeAmount = NewDomainError("streak", "Validate", ErrNegativeValue, "amount cannot be negative")
)

// Access domain errors
var (
	ErrAuthorizationDenied = NewDomainError("access", "Require", ErrForbidden, "capability not granted")
)

// External service errors
var (
	ErrCommandThrottled = NewDomainError("discord", "Dispatch", ErrRateLimited, "too many commands")
	ErrMemberNotFound   = NewDomainError("discord", "FindMember", ErrNotFound, "guild member not found")
)

// StoreUnavailable wraps a persistence failure. Every store error that is not
// a domain outcome (not found, conflict) surfaces as this kind.
func StoreUnavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	var de *DomainError
	if errors.As(err, &de) && (de.Domain == "store" || errors.Is(de.Kind, ErrNotFound)) {
		return err
	}
	return WrapError("store", op, ErrServiceUnavailable, "record store unavailable", err)
}

// InvalidInput creates a validation error for a bad command argument.
func InvalidInput(op, message string) error {
	return NewDomainError("command", op, ErrInvalidInput, message)
}

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrNegativeValue)
}

// IsForbidden checks if the error is an authorization denial.
func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}

// IsStoreUnavailable checks if the record store failed.
func IsStoreUnavailable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable)
}

// IsExternalService checks if the error is from an external service.
func IsExternalService(err error) bool {
	return errors.Is(err, ErrExternalService) ||
		errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrRateLimited)
}
