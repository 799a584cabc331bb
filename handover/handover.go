/*
Package handover lists the orders a field master still needs to hand cash
over for. Read-only: submissions and approvals are another service's write
path, this one only answers "what is ready, and where does its cash stand".

SCOPING:
  The listing is implicitly restricted to the calling master's own orders;
  the master id comes from the verified caller identity, never from a query
  parameter. Only the master role may call it at all.

SEE ALSO:
  - cash/query.go: Same pagination rules
  - store/sqlite: Store binding
*/
package handover

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/cashdesk/auth"
	"github.com/warp/cashdesk/cash"
)

// =============================================================================
// TYPES
// =============================================================================

// SubmissionStatus tracks where an order's cash stands in the handover flow.
type SubmissionStatus string

const (
	StatusNotSubmitted SubmissionStatus = "not_submitted"
	StatusUnderReview  SubmissionStatus = "under_review"
	StatusApproved     SubmissionStatus = "approved"
	StatusRejected     SubmissionStatus = "rejected"

	// StatusAll is the filter wildcard, not a stored status.
	StatusAll = "all"
)

// ParseStatusFilter validates a status filter value. Empty means "all".
func ParseStatusFilter(s string) (string, bool) {
	switch s {
	case "", StatusAll:
		return StatusAll, true
	case string(StatusNotSubmitted), string(StatusUnderReview),
		string(StatusApproved), string(StatusRejected):
		return s, true
	default:
		return "", false
	}
}

// Order is a completed service order awaiting (or past) cash handover.
type Order struct {
	ID               int64
	MasterID         int64
	MasterName       string
	City             string
	Amount           decimal.Decimal
	SubmissionStatus SubmissionStatus
	ClosedAt         time.Time
}

// ListFilter is the raw listing filter from the caller.
type ListFilter struct {
	Status string // "" or "all" = any; otherwise a SubmissionStatus
	Page   int
	Limit  int
}

// ListQuery is the store-executable form.
type ListQuery struct {
	MasterID int64
	Status   string // "all" = any; not_submitted also matches NULL
	Offset   int
	Limit    int
}

// ListResult is one page of orders, newest closing date first.
type ListResult struct {
	Items      []Order
	Total      int
	Page       int
	Limit      int
	TotalPages int
}

// Store lists ready orders for one master. Orders whose work is not finished
// never appear here regardless of filter.
type Store interface {
	ListReady(ctx context.Context, q ListQuery) ([]Order, int, error)
}

// =============================================================================
// SERVICE
// =============================================================================

type Service struct {
	store  Store
	logger *slog.Logger
}

func NewService(store Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// ListForMaster returns the calling master's ready orders, filtered by
// submission status. Any other role is denied.
func (s *Service) ListForMaster(ctx context.Context, caller auth.Caller, f ListFilter) (*ListResult, error) {
	if caller.Role != auth.RoleMaster {
		return nil, auth.ErrForbidden
	}

	status, ok := ParseStatusFilter(f.Status)
	if !ok {
		return nil, &cash.ValidationError{Field: "status", Message: "unknown handover status"}
	}

	page := f.Page
	if page == 0 {
		page = cash.DefaultPage
	}
	if page < 1 {
		return nil, &cash.ValidationError{Field: "page", Message: "must be at least 1"}
	}
	limit := f.Limit
	if limit == 0 {
		limit = cash.DefaultLimit
	}
	if limit < 1 || limit > cash.MaxLimit {
		return nil, &cash.ValidationError{Field: "limit", Message: "must be between 1 and 100"}
	}

	q := ListQuery{
		MasterID: caller.UserID,
		Status:   status,
		Offset:   (page - 1) * limit,
		Limit:    limit,
	}

	items, total, err := s.store.ListReady(ctx, q)
	if err != nil {
		s.logger.Error("failed to list handover orders", "master_id", caller.UserID, "error", err)
		return nil, fmt.Errorf("list handover orders: %w", err)
	}

	return &ListResult{
		Items:      items,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: cash.TotalPages(total, limit),
	}, nil
}
