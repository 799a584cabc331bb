/*
Package cash implements the cash-transaction ledger: validation, scoped
listing, and the concurrency-safe create path with a duplicate guard on
order-linked payment purposes.

KEY CONCEPTS IN THIS FILE (types.go):
  - Kind: income or expense, a closed set
  - Transaction: A cash posting. id and createdAt are immutable once created.
  - CreateInput/UpdateInput: Typed operation inputs. Update uses pointers so
    "field absent" and "field set to empty" stay distinguishable.
  - Actor: The caller plus the request attributes audit events need.

OWNERSHIP:
  Each transaction records both the creator's immutable user id (used for
  ownership checks) and the display name captured at creation time (shown in
  listings). Ownership never keys on the display name: names change and
  collide, ids do not.

SEE ALSO:
  - validate.go: Amount bounds, URL shape, length limits
  - service.go: The Ledger orchestration
*/
package cash

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/cashdesk/auth"
)

// =============================================================================
// KIND - Transaction direction
// =============================================================================

type Kind string

const (
	KindIncome  Kind = "income"
	KindExpense Kind = "expense"
)

// ParseKind maps a wire value to a Kind.
func ParseKind(s string) (Kind, bool) {
	switch Kind(s) {
	case KindIncome, KindExpense:
		return Kind(s), true
	default:
		return "", false
	}
}

// =============================================================================
// TRANSACTION
// =============================================================================

// Transaction is a single cash posting.
//
// INVARIANTS:
//   - ID and CreatedAt are assigned by the store and never change.
//   - Amount stays within the bounds enforced by validate.go.
//   - City changes require the caller's scope to cover both the old and the
//     new city (see service.Update).
type Transaction struct {
	ID             int64
	Kind           Kind
	Amount         decimal.Decimal
	City           string
	Note           string
	ReceiptDocURL  string
	PaymentPurpose string

	CreatedByID   int64
	CreatedByName string
	CreatedAt     time.Time
}

// =============================================================================
// OPERATION INPUTS
// =============================================================================

// CreateInput carries a validated-on-entry create request.
type CreateInput struct {
	Kind           Kind
	Amount         decimal.Decimal
	City           string
	Note           string
	ReceiptDocURL  string
	PaymentPurpose string
}

// UpdateInput is a partial update. Nil pointers leave the stored field
// untouched; a pointer to the empty string clears an optional text field.
type UpdateInput struct {
	Kind           *Kind
	Amount         *decimal.Decimal
	City           *string
	Note           *string
	ReceiptDocURL  *string
	PaymentPurpose *string
}

// Actor bundles the caller identity with the request attributes that audit
// events record. Threaded explicitly; never read from globals.
type Actor struct {
	Caller    auth.Caller
	SourceIP  string
	UserAgent string
}
