/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON structures for the wire. These decouple the domain model from the
  API contract; handlers convert and never expose domain types directly.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  DTOs are pure data carriers. Validation lives in the cash package and runs
  inside the service, not here.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/cashdesk/cash"
	"github.com/warp/cashdesk/handover"
)

// =============================================================================
// CASH TRANSACTIONS
// =============================================================================

// TransactionDTO represents a cash transaction in API responses. Amount is a
// decimal string so clients never see float rounding.
type TransactionDTO struct {
	ID             int64  `json:"id"`
	Kind           string `json:"kind"`
	Amount         string `json:"amount"`
	City           string `json:"city"`
	Note           string `json:"note,omitempty"`
	ReceiptDocURL  string `json:"receiptDocUrl,omitempty"`
	PaymentPurpose string `json:"paymentPurpose,omitempty"`
	CreatedBy      string `json:"createdBy"`
	CreatedAt      string `json:"createdAt"`
}

// CreateCashRequest is the request to create a transaction.
type CreateCashRequest struct {
	Kind           string          `json:"kind"`
	Amount         decimal.Decimal `json:"amount"`
	City           string          `json:"city"`
	Note           string          `json:"note,omitempty"`
	ReceiptDocURL  string          `json:"receiptDocUrl,omitempty"`
	PaymentPurpose string          `json:"paymentPurpose,omitempty"`
}

// UpdateCashRequest is a partial update. Absent fields stay untouched;
// optional text fields present as "" are cleared.
type UpdateCashRequest struct {
	Kind           *string          `json:"kind,omitempty"`
	Amount         *decimal.Decimal `json:"amount,omitempty"`
	City           *string          `json:"city,omitempty"`
	Note           *string          `json:"note,omitempty"`
	ReceiptDocURL  *string          `json:"receiptDocUrl,omitempty"`
	PaymentPurpose *string          `json:"paymentPurpose,omitempty"`
}

// ListResponse is one page of transactions.
type ListResponse struct {
	Items      []TransactionDTO `json:"items"`
	Total      int              `json:"total"`
	Page       int              `json:"page"`
	Limit      int              `json:"limit"`
	TotalPages int              `json:"totalPages"`
}

// =============================================================================
// HANDOVER
// =============================================================================

// HandoverOrderDTO represents a ready order in the master handover listing.
type HandoverOrderDTO struct {
	ID               int64  `json:"id"`
	MasterName       string `json:"masterName"`
	City             string `json:"city"`
	Amount           string `json:"amount"`
	SubmissionStatus string `json:"submissionStatus"`
	ClosedAt         string `json:"closedAt"`
}

// HandoverListResponse is one page of handover orders.
type HandoverListResponse struct {
	Items      []HandoverOrderDTO `json:"items"`
	Total      int                `json:"total"`
	Page       int                `json:"page"`
	Limit      int                `json:"limit"`
	TotalPages int                `json:"totalPages"`
}

// ErrorResponse is the standard error body.
type ErrorResponse struct {
	Error string `json:"error"`
	// ExistingID is set on duplicate-purpose conflicts so operators can find
	// the colliding row.
	ExistingID int64 `json:"existingId,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toTransactionDTO(tx cash.Transaction) TransactionDTO {
	return TransactionDTO{
		ID:             tx.ID,
		Kind:           string(tx.Kind),
		Amount:         tx.Amount.StringFixed(2),
		City:           tx.City,
		Note:           tx.Note,
		ReceiptDocURL:  tx.ReceiptDocURL,
		PaymentPurpose: tx.PaymentPurpose,
		CreatedBy:      tx.CreatedByName,
		CreatedAt:      tx.CreatedAt.Format(time.RFC3339),
	}
}

func toHandoverOrderDTO(o handover.Order) HandoverOrderDTO {
	return HandoverOrderDTO{
		ID:               o.ID,
		MasterName:       o.MasterName,
		City:             o.City,
		Amount:           o.Amount.StringFixed(2),
		SubmissionStatus: string(o.SubmissionStatus),
		ClosedAt:         o.ClosedAt.Format(time.RFC3339),
	}
}
