/*
Package sqlite provides the SQLite binding of the storage interfaces.

PURPOSE:
  Implements cash.TxStore, handover.Store and audit.Sink on one SQLite
  database. In production the same patterns apply to PostgreSQL - only the
  dialect and the concurrency story differ (see below).

INTERFACES IMPLEMENTED:
  cash.TxStore:   Transaction rows + unit-of-work for the create path
  handover.Store: Read-only listing of ready orders
  audit.Sink:     Append-only audit_logs rows

DUPLICATE GUARD:
  The create path's check-then-insert runs inside WithTx. Two layers keep it
  race-free:
  1. WithTx holds the writer lock, so in-process writers are serialized.
  2. idx_cash_order_purpose is a partial UNIQUE index over order-shaped
     payment purposes. If some other process slips an identical purpose in
     anyway, the insert fails and is mapped to cash.ConflictError.
  With PostgreSQL, layer 1 would be a serializable transaction instead; the
  index backstop stays.

CONCURRENCY:
  sync.RWMutex for thread-safety, WAL mode for readers-do-not-block.

KEY TABLES:
  cash_transactions: The ledger rows
  handover_orders:   Completed orders awaiting cash handover
  audit_logs:        Append-only audit trail (write-once, never read back)

SEE ALSO:
  - cash/store.go: Interface contracts
  - handover/handover.go: Listing semantics
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/cashdesk/audit"
	"github.com/warp/cashdesk/cash"
	"github.com/warp/cashdesk/handover"
)

// Store implements the storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a SQLite store at the given path. Use ":memory:" for tests.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection: a ":memory:" database exists per connection, and the
	// writer mutex already serializes access anyway.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS cash_transactions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		kind TEXT NOT NULL,
		amount TEXT NOT NULL,
		city TEXT NOT NULL,
		note TEXT NOT NULL DEFAULT '',
		receipt_doc_url TEXT NOT NULL DEFAULT '',
		payment_purpose TEXT NOT NULL DEFAULT '',
		created_by_id INTEGER NOT NULL,
		created_by_name TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_cash_kind ON cash_transactions(kind);
	CREATE INDEX IF NOT EXISTS idx_cash_city ON cash_transactions(city);

	-- Listing hot path: fixed ordering created_at DESC, id DESC
	CREATE INDEX IF NOT EXISTS idx_cash_created_at
		ON cash_transactions(created_at DESC, id DESC);

	-- Backstop for the create-path duplicate guard: order-linked purposes
	-- are unique. Free-form purposes are exempt.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_cash_order_purpose
		ON cash_transactions(payment_purpose)
		WHERE payment_purpose LIKE 'Order #%';

	CREATE TABLE IF NOT EXISTS handover_orders (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		master_id INTEGER NOT NULL,
		master_name TEXT NOT NULL,
		city TEXT NOT NULL,
		amount TEXT NOT NULL,
		work_status TEXT NOT NULL,
		submission_status TEXT,
		closed_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_handover_master
		ON handover_orders(master_id, work_status, closed_at DESC);

	CREATE TABLE IF NOT EXISTS audit_logs (
		id TEXT PRIMARY KEY,
		timestamp TEXT NOT NULL,
		event_type TEXT NOT NULL,
		actor_id INTEGER,
		actor_role TEXT,
		actor_login TEXT,
		source_ip TEXT,
		user_agent TEXT,
		success INTEGER NOT NULL,
		metadata_json TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_audit_event_type ON audit_logs(event_type);
	`

	_, err := s.db.Exec(schema)
	return err
}

// dbtx is satisfied by both *sql.DB and *sql.Tx so the row helpers can run
// inside or outside a transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// CASH TRANSACTIONS (cash.Store interface)
// =============================================================================

const cashColumns = `id, kind, amount, city, note, receipt_doc_url,
	payment_purpose, created_by_id, created_by_name, created_at`

// Get returns the transaction with the given id, or (nil, nil).
func (s *Store) Get(ctx context.Context, id int64) (*cash.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getCash(ctx, s.db, id)
}

func getCash(ctx context.Context, db dbtx, id int64) (*cash.Transaction, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+cashColumns+` FROM cash_transactions WHERE id = ?`, id)
	return scanCash(row)
}

// List returns one page of transactions plus the total match count.
func (s *Store) List(ctx context.Context, q cash.ListQuery) ([]cash.Transaction, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listCash(ctx, s.db, q)
}

func listCash(ctx context.Context, db dbtx, q cash.ListQuery) ([]cash.Transaction, int, error) {
	where := []string{}
	args := []any{}

	if q.MatchNone {
		// Fail-closed filter: an impossible predicate, not an error.
		where = append(where, "1 = 0")
	}
	if q.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, string(q.Kind))
	}
	if len(q.Cities) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(q.Cities)), ", ")
		where = append(where, "city IN ("+placeholders+")")
		for _, c := range q.Cities {
			args = append(args, c)
		}
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	err := db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM cash_transactions"+clause, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count cash transactions: %w", err)
	}

	query := `SELECT ` + cashColumns + ` FROM cash_transactions` + clause +
		` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	rows, err := db.QueryContext(ctx, query, append(args, q.Limit, q.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list cash transactions: %w", err)
	}
	defer rows.Close()

	var items []cash.Transaction
	for rows.Next() {
		tx, err := scanCashRows(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, tx)
	}
	return items, total, rows.Err()
}

// Insert persists tx, assigning ID and CreatedAt.
func (s *Store) Insert(ctx context.Context, tx *cash.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertCash(ctx, s.db, tx)
}

func insertCash(ctx context.Context, db dbtx, tx *cash.Transaction) error {
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}

	res, err := db.ExecContext(ctx, `
		INSERT INTO cash_transactions
		(kind, amount, city, note, receipt_doc_url, payment_purpose,
		 created_by_id, created_by_name, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(tx.Kind),
		tx.Amount.String(),
		tx.City,
		tx.Note,
		tx.ReceiptDocURL,
		tx.PaymentPurpose,
		tx.CreatedByID,
		tx.CreatedByName,
		tx.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			// The partial unique index caught a concurrent duplicate that
			// slipped past the in-transaction check.
			existing, ferr := findByPurpose(ctx, db, tx.PaymentPurpose)
			if ferr == nil && existing != nil {
				return &cash.ConflictError{
					PaymentPurpose: tx.PaymentPurpose,
					ExistingID:     existing.ID,
				}
			}
			return &cash.ConflictError{PaymentPurpose: tx.PaymentPurpose}
		}
		return fmt.Errorf("failed to insert cash transaction: %w", err)
	}

	tx.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read inserted id: %w", err)
	}
	return nil
}

// Update rewrites the mutable columns. id and created_at are never touched.
func (s *Store) Update(ctx context.Context, tx *cash.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateCash(ctx, s.db, tx)
}

func updateCash(ctx context.Context, db dbtx, tx *cash.Transaction) error {
	_, err := db.ExecContext(ctx, `
		UPDATE cash_transactions
		SET kind = ?, amount = ?, city = ?, note = ?,
		    receipt_doc_url = ?, payment_purpose = ?
		WHERE id = ?`,
		string(tx.Kind),
		tx.Amount.String(),
		tx.City,
		tx.Note,
		tx.ReceiptDocURL,
		tx.PaymentPurpose,
		tx.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update cash transaction: %w", err)
	}
	return nil
}

// Delete removes the row; hard delete, no tombstones.
func (s *Store) Delete(ctx context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteCash(ctx, s.db, id)
}

func deleteCash(ctx context.Context, db dbtx, id int64) (bool, error) {
	res, err := db.ExecContext(ctx,
		"DELETE FROM cash_transactions WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("failed to delete cash transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// FindByPurpose returns a transaction with exactly this payment purpose.
func (s *Store) FindByPurpose(ctx context.Context, purpose string) (*cash.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return findByPurpose(ctx, s.db, purpose)
}

func findByPurpose(ctx context.Context, db dbtx, purpose string) (*cash.Transaction, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+cashColumns+` FROM cash_transactions
		 WHERE payment_purpose = ? ORDER BY id ASC LIMIT 1`, purpose)
	return scanCash(row)
}

func scanCash(row *sql.Row) (*cash.Transaction, error) {
	var (
		tx        cash.Transaction
		amount    string
		createdAt string
	)
	err := row.Scan(&tx.ID, &tx.Kind, &amount, &tx.City, &tx.Note,
		&tx.ReceiptDocURL, &tx.PaymentPurpose,
		&tx.CreatedByID, &tx.CreatedByName, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan cash transaction: %w", err)
	}
	tx.Amount = mustDecimal(amount)
	tx.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &tx, nil
}

func scanCashRows(rows *sql.Rows) (cash.Transaction, error) {
	var (
		tx        cash.Transaction
		amount    string
		createdAt string
	)
	err := rows.Scan(&tx.ID, &tx.Kind, &amount, &tx.City, &tx.Note,
		&tx.ReceiptDocURL, &tx.PaymentPurpose,
		&tx.CreatedByID, &tx.CreatedByName, &createdAt)
	if err != nil {
		return tx, fmt.Errorf("failed to scan cash transaction: %w", err)
	}
	tx.Amount = mustDecimal(amount)
	tx.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return tx, nil
}

// =============================================================================
// UNIT OF WORK (cash.TxStore interface)
// =============================================================================

// WithTx executes fn within a database transaction. The writer lock is held
// for the duration, so concurrent WithTx calls - and with them the
// duplicate-guarded creates - are serialized.
func (s *Store) WithTx(ctx context.Context, fn func(cash.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// txStore runs every operation on the transaction handle so reads inside
// WithTx observe the transaction's own writes.
type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) Get(ctx context.Context, id int64) (*cash.Transaction, error) {
	return getCash(ctx, ts.tx, id)
}

func (ts *txStore) List(ctx context.Context, q cash.ListQuery) ([]cash.Transaction, int, error) {
	return listCash(ctx, ts.tx, q)
}

func (ts *txStore) Insert(ctx context.Context, tx *cash.Transaction) error {
	return insertCash(ctx, ts.tx, tx)
}

func (ts *txStore) Update(ctx context.Context, tx *cash.Transaction) error {
	return updateCash(ctx, ts.tx, tx)
}

func (ts *txStore) Delete(ctx context.Context, id int64) (bool, error) {
	return deleteCash(ctx, ts.tx, id)
}

func (ts *txStore) FindByPurpose(ctx context.Context, purpose string) (*cash.Transaction, error) {
	return findByPurpose(ctx, ts.tx, purpose)
}

// =============================================================================
// HANDOVER ORDERS (handover.Store interface)
// =============================================================================

const handoverColumns = `id, master_id, master_name, city, amount,
	submission_status, closed_at`

// ListReady returns one page of the master's ready orders plus the total.
func (s *Store) ListReady(ctx context.Context, q handover.ListQuery) ([]handover.Order, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	where := []string{"master_id = ?", "work_status = 'ready'"}
	args := []any{q.MasterID}

	switch q.Status {
	case handover.StatusAll:
		// no submission-status predicate
	case string(handover.StatusNotSubmitted):
		// rows created before the handover flow existed have NULL status
		where = append(where, "(submission_status IS NULL OR submission_status = ?)")
		args = append(args, string(handover.StatusNotSubmitted))
	default:
		where = append(where, "submission_status = ?")
		args = append(args, q.Status)
	}

	clause := " WHERE " + strings.Join(where, " AND ")

	var total int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM handover_orders"+clause, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count handover orders: %w", err)
	}

	query := `SELECT ` + handoverColumns + ` FROM handover_orders` + clause +
		` ORDER BY closed_at DESC, id DESC LIMIT ? OFFSET ?`
	rows, err := s.db.QueryContext(ctx, query, append(args, q.Limit, q.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list handover orders: %w", err)
	}
	defer rows.Close()

	var orders []handover.Order
	for rows.Next() {
		var (
			o        handover.Order
			amount   string
			status   sql.NullString
			closedAt string
		)
		if err := rows.Scan(&o.ID, &o.MasterID, &o.MasterName, &o.City,
			&amount, &status, &closedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan handover order: %w", err)
		}
		o.Amount = mustDecimal(amount)
		o.ClosedAt, _ = time.Parse(time.RFC3339, closedAt)
		if status.Valid {
			o.SubmissionStatus = handover.SubmissionStatus(status.String)
		} else {
			o.SubmissionStatus = handover.StatusNotSubmitted
		}
		orders = append(orders, o)
	}
	return orders, total, rows.Err()
}

// SaveHandoverOrder inserts an order row. The order lifecycle is owned by
// the order service; this exists for fixtures and the demo dataset.
func (s *Store) SaveHandoverOrder(ctx context.Context, o handover.Order, workStatus string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var status any
	if o.SubmissionStatus != "" {
		status = string(o.SubmissionStatus)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO handover_orders
		(master_id, master_name, city, amount, work_status, submission_status, closed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		o.MasterID, o.MasterName, o.City, o.Amount.String(),
		workStatus, status, o.ClosedAt.Format(time.RFC3339),
	)
	return err
}

// =============================================================================
// AUDIT LOGS (audit.Sink interface)
// =============================================================================

// Record appends an audit event. Append-only: no update or delete statements
// exist for audit_logs, and this service never reads the table back.
func (s *Store) Record(ctx context.Context, e audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	metadataJSON, _ := json.Marshal(e.Metadata)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs
		(id, timestamp, event_type, actor_id, actor_role, actor_login,
		 source_ip, user_agent, success, metadata_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID,
		e.Timestamp.Format(time.RFC3339),
		e.EventType,
		e.ActorID,
		e.ActorRole,
		e.ActorLogin,
		e.SourceIP,
		e.UserAgent,
		boolToInt(e.Success),
		string(metadataJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to append audit log: %w", err)
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func mustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
