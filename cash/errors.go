/*
errors.go - Error taxonomy for cash operations

PURPOSE:
  All error types for the ledger in one place. The API layer maps these to
  status codes; nothing else inspects error strings.

TAXONOMY:
  ValidationError - malformed or out-of-bound input; detected before any
                    store interaction, never retried
  auth.ErrForbidden - role/scope denial (defined next to the policy)
  ErrNotFound     - no row for the id
  ConflictError   - duplicate payment purpose caught inside the create
                    transaction; carries the colliding id
  anything else   - internal; logged with full detail, surfaced opaquely

USAGE:
  if errors.Is(err, cash.ErrNotFound) { ... }
  var conflict *cash.ConflictError
  if errors.As(err, &conflict) { conflict.ExistingID }

SEE ALSO:
  - auth/policy.go: ErrForbidden
  - api/handlers.go: Status-code mapping
*/
package cash

import (
	"errors"
	"fmt"

	"github.com/warp/cashdesk/auth"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotFound is returned when no transaction exists for the id.
	ErrNotFound = errors.New("cash transaction not found")

	// ErrDuplicatePurpose is the sentinel under every ConflictError.
	ErrDuplicatePurpose = errors.New("duplicate payment purpose")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError reports a single malformed input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// ConflictError reports a duplicate order-linked payment purpose. ExistingID
// identifies the colliding row for operator diagnosis.
type ConflictError struct {
	PaymentPurpose string
	ExistingID     int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("payment purpose %q already posted (transaction %d)",
		e.PaymentPurpose, e.ExistingID)
}

func (e *ConflictError) Unwrap() error {
	return ErrDuplicatePurpose
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsClientError reports whether err is the caller's fault (4xx class).
func IsClientError(err error) bool {
	return IsValidation(err) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrDuplicatePurpose) ||
		errors.Is(err, auth.ErrForbidden)
}
