/*
errors.go - Centralized error types for the attendance core

PURPOSE:
  All error types in one place for consistency and discoverability.
  Stores translate driver failures into these sentinels so that services
  and HTTP handlers never inspect driver-specific messages.

ERROR CATEGORIES:
  1. Not found  - unknown employee code/id, unknown shift name
  2. Conflict   - duplicate employee code, delete with ledger history
  3. Validation - unparseable dates, clock times, out-of-range months

USAGE:
  if errors.Is(err, attendance.ErrEmployeeNotFound) {
      // 404
  }

  var verr *attendance.ValidationError
  if errors.As(err, &verr) {
      // 400 with verr.Field
  }

SEE ALSO:
  - api/handlers.go: maps these errors to HTTP status codes
*/
package attendance

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrEmployeeNotFound is returned when no employee matches a code or id.
	ErrEmployeeNotFound = errors.New("employee not found")

	// ErrShiftNotFound is returned when the named shift policy does not exist.
	ErrShiftNotFound = errors.New("shift not found")

	// ErrDuplicateCode is returned when enrolling a code that is already taken.
	ErrDuplicateCode = errors.New("emp_code already exists")

	// ErrEmployeeHasHistory is returned when deleting an employee that still
	// owns attendance events. Ledger rows are never orphaned or cascaded.
	ErrEmployeeHasHistory = errors.New("employee has attendance history")

	// ErrInvalidInput is the parent of every ValidationError.
	ErrInvalidInput = errors.New("invalid input")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError describes which input field was rejected and why.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// Invalid builds a ValidationError.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEmployeeNotFound) ||
		errors.Is(err, ErrShiftNotFound)
}

// IsConflict returns true if the error is a uniqueness or referential conflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateCode) ||
		errors.Is(err, ErrEmployeeHasHistory)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput) || IsConflict(err) || IsNotFound(err)
}
