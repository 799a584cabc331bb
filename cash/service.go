/*
service.go - The cash ledger service

PURPOSE:
  Orchestrates every cash operation: policy check, validation, the
  transactional duplicate-guarded insert, and the post-commit audit hook.
  Handlers do HTTP; this type does the rules.

REQUEST FLOW (create):
  1. Role check and cheap validation - fails fast, no transaction consumed
  2. City scope check against the caller's allowed set
  3. WithTx: duplicate check for order-linked purposes, then insert
  4. Post-commit: one audit event, best-effort

DUPLICATE GUARD:
  Only purposes of the exact shape "Order #<digits>" are guarded; free-form
  category purposes may repeat. The check and the insert share one store
  transaction so concurrent creates with the same purpose cannot both pass.
  A collision aborts with ConflictError carrying the existing row's id -
  never a silent overwrite or merge.

AUDIT:
  Exactly one event per successful create/update/delete, emitted AFTER the
  commit through a single hook. Emission failures never reach the caller.

SEE ALSO:
  - auth/policy.go: Decision rules
  - store.go: TxStore unit of work
  - audit/recorder.go: Best-effort delivery
*/
package cash

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/warp/cashdesk/audit"
	"github.com/warp/cashdesk/auth"
)

// Ledger is the cash-transaction service.
type Ledger struct {
	store  TxStore
	audit  *audit.Recorder
	logger *slog.Logger
}

func NewLedger(store TxStore, recorder *audit.Recorder, logger *slog.Logger) *Ledger {
	return &Ledger{store: store, audit: recorder, logger: logger}
}

// =============================================================================
// READS
// =============================================================================

// Get returns a single transaction, scope-checked for the caller.
func (l *Ledger) Get(ctx context.Context, caller auth.Caller, id int64) (*Transaction, error) {
	if err := auth.Decide(caller, auth.ActionGet, nil).Err(); err != nil {
		return nil, err
	}

	tx, err := l.store.Get(ctx, id)
	if err != nil {
		l.logger.Error("failed to load cash transaction", "id", id, "error", err)
		return nil, fmt.Errorf("get cash transaction: %w", err)
	}
	if tx == nil {
		return nil, ErrNotFound
	}

	res := &auth.Resource{City: tx.City, CreatedByID: tx.CreatedByID}
	if err := auth.Decide(caller, auth.ActionGet, res).Err(); err != nil {
		return nil, err
	}
	return tx, nil
}

// List returns one page of transactions visible to the caller.
func (l *Ledger) List(ctx context.Context, caller auth.Caller, f ListFilter) (*ListResult, error) {
	if err := auth.Decide(caller, auth.ActionList, nil).Err(); err != nil {
		return nil, err
	}

	q, err := BuildListQuery(f, caller)
	if err != nil {
		return nil, err
	}

	items, total, err := l.store.List(ctx, q)
	if err != nil {
		l.logger.Error("failed to list cash transactions", "error", err)
		return nil, fmt.Errorf("list cash transactions: %w", err)
	}

	page := f.Page
	if page == 0 {
		page = DefaultPage
	}
	limit := q.Limit
	return &ListResult{
		Items:      items,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: TotalPages(total, limit),
	}, nil
}

// =============================================================================
// CREATE - duplicate-guarded
// =============================================================================

// Create validates, scope-checks, and inserts a transaction. Order-linked
// payment purposes are checked for duplicates inside the same store
// transaction as the insert.
func (l *Ledger) Create(ctx context.Context, actor Actor, in CreateInput) (*Transaction, error) {
	caller := actor.Caller
	if err := auth.Decide(caller, auth.ActionCreate, nil).Err(); err != nil {
		return nil, err
	}
	if err := validateCreate(in); err != nil {
		return nil, err
	}
	if !caller.CityAllowed(in.City) {
		return nil, auth.ErrForbidden
	}

	tx := &Transaction{
		Kind:           in.Kind,
		Amount:         in.Amount,
		City:           in.City,
		Note:           in.Note,
		ReceiptDocURL:  in.ReceiptDocURL,
		PaymentPurpose: in.PaymentPurpose,
		CreatedByID:    caller.UserID,
		CreatedByName:  caller.DisplayName,
	}

	err := l.store.WithTx(ctx, func(s Store) error {
		if IsOrderReference(in.PaymentPurpose) {
			existing, err := s.FindByPurpose(ctx, in.PaymentPurpose)
			if err != nil {
				return err
			}
			if existing != nil {
				return &ConflictError{
					PaymentPurpose: in.PaymentPurpose,
					ExistingID:     existing.ID,
				}
			}
		}
		return s.Insert(ctx, tx)
	})
	if err != nil {
		if IsClientError(err) {
			return nil, err
		}
		l.logger.Error("failed to create cash transaction",
			"kind", tx.Kind, "city", tx.City, "error", err)
		return nil, fmt.Errorf("create cash transaction: %w", err)
	}

	eventType := audit.EventCashIncomeCreate
	if tx.Kind == KindExpense {
		eventType = audit.EventCashExpenseCreate
	}
	l.emit(actor, eventType, map[string]string{
		"cashId": fmt.Sprintf("%d", tx.ID),
		"amount": tx.Amount.String(),
		"city":   tx.City,
	})

	return tx, nil
}

// =============================================================================
// UPDATE / DELETE
// =============================================================================

// Update applies a partial update. Fields left nil stay untouched; optional
// text fields set to the empty string are cleared. Scope is checked against
// the current city and, when the city changes, the target city too.
func (l *Ledger) Update(ctx context.Context, actor Actor, id int64, in UpdateInput) (*Transaction, error) {
	caller := actor.Caller
	if err := auth.Decide(caller, auth.ActionUpdate, nil).Err(); err != nil {
		return nil, err
	}
	if err := validateUpdate(in); err != nil {
		return nil, err
	}

	tx, err := l.store.Get(ctx, id)
	if err != nil {
		l.logger.Error("failed to load cash transaction", "id", id, "error", err)
		return nil, fmt.Errorf("update cash transaction: %w", err)
	}
	if tx == nil {
		return nil, ErrNotFound
	}

	res := &auth.Resource{City: tx.City, CreatedByID: tx.CreatedByID}
	if err := auth.Decide(caller, auth.ActionUpdate, res).Err(); err != nil {
		return nil, err
	}
	if in.City != nil && !caller.CityAllowed(*in.City) {
		return nil, auth.ErrForbidden
	}

	changes := map[string]string{"cashId": fmt.Sprintf("%d", id)}
	if in.Kind != nil {
		tx.Kind = *in.Kind
		changes["kind"] = string(*in.Kind)
	}
	if in.Amount != nil {
		tx.Amount = *in.Amount
		changes["amount"] = in.Amount.String()
	}
	if in.City != nil {
		tx.City = *in.City
		changes["city"] = *in.City
	}
	if in.Note != nil {
		tx.Note = *in.Note
		changes["note"] = *in.Note
	}
	if in.ReceiptDocURL != nil {
		tx.ReceiptDocURL = *in.ReceiptDocURL
		changes["receiptDocUrl"] = *in.ReceiptDocURL
	}
	if in.PaymentPurpose != nil {
		tx.PaymentPurpose = *in.PaymentPurpose
		changes["paymentPurpose"] = *in.PaymentPurpose
	}

	if err := l.store.Update(ctx, tx); err != nil {
		l.logger.Error("failed to update cash transaction", "id", id, "error", err)
		return nil, fmt.Errorf("update cash transaction: %w", err)
	}

	l.emit(actor, audit.EventCashUpdate, changes)
	return tx, nil
}

// Delete removes a transaction. Role-gated only; no scope check beyond the
// matrix, and no cascading side effects.
func (l *Ledger) Delete(ctx context.Context, actor Actor, id int64) error {
	if err := auth.Decide(actor.Caller, auth.ActionDelete, nil).Err(); err != nil {
		return err
	}

	deleted, err := l.store.Delete(ctx, id)
	if err != nil {
		l.logger.Error("failed to delete cash transaction", "id", id, "error", err)
		return fmt.Errorf("delete cash transaction: %w", err)
	}
	if !deleted {
		return ErrNotFound
	}

	l.emit(actor, audit.EventCashDelete, map[string]string{
		"cashId": fmt.Sprintf("%d", id),
	})
	return nil
}

// emit is the single post-commit audit hook for every write path.
func (l *Ledger) emit(actor Actor, eventType string, metadata map[string]string) {
	if l.audit == nil {
		return
	}
	l.audit.Emit(audit.Event{
		EventType:  eventType,
		ActorID:    actor.Caller.UserID,
		ActorRole:  string(actor.Caller.Role),
		ActorLogin: actor.Caller.Login,
		SourceIP:   actor.SourceIP,
		UserAgent:  actor.UserAgent,
		Success:    true,
		Metadata:   metadata,
	})
}
