/*
store.go - Persistence interface for cash transactions

PURPOSE:
  The seam between the ledger and the database. The ledger service depends on
  these interfaces only; store/sqlite provides the production binding and a
  PostgreSQL binding would attach at the same seam.

UNIT OF WORK:
  TxStore.WithTx runs a function against a transaction-scoped Store with
  read-your-writes consistency. The duplicate-guarded create runs its
  check-then-insert inside ONE WithTx call, so two concurrent creates with
  the same order-linked purpose cannot both observe "not found". Bindings
  must make that guarantee hold (serialized writers, serializable isolation,
  or a unique index as backstop - sqlite does the first and third).

CONVENTIONS:
  Get returns (nil, nil) when no row matches; NotFound is the service's
  decision, not the store's.

SEE ALSO:
  - service.go: The only consumer
  - store/sqlite/sqlite.go: Production binding
*/
package cash

import "context"

// Store handles persistence of cash transactions.
type Store interface {
	// Get returns the transaction with the given id, or (nil, nil) if absent.
	Get(ctx context.Context, id int64) (*Transaction, error)

	// List returns one page of transactions matching q plus the total match
	// count. Ordering is fixed: created_at DESC, id DESC.
	List(ctx context.Context, q ListQuery) ([]Transaction, int, error)

	// Insert persists tx, assigning ID and CreatedAt on the way in.
	Insert(ctx context.Context, tx *Transaction) error

	// Update rewrites the mutable columns of tx by ID.
	Update(ctx context.Context, tx *Transaction) error

	// Delete removes the row. Returns false if no row matched (hard delete,
	// no tombstones).
	Delete(ctx context.Context, id int64) (bool, error)

	// FindByPurpose returns a transaction with exactly this payment purpose,
	// or (nil, nil). Inside WithTx it must see the transaction's own writes.
	FindByPurpose(ctx context.Context, purpose string) (*Transaction, error)
}

// TxStore wraps Store with a unit-of-work facility.
type TxStore interface {
	Store

	// WithTx executes fn within a database transaction. If fn returns an
	// error the transaction is rolled back, otherwise committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}
