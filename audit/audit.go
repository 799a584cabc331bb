/*
Package audit defines the audit-event record and the sink boundary.

PURPOSE:
  Every successful cash mutation emits exactly one audit event after the
  store commit. Events are append-only, write-once, and never read back by
  this service; the sink's persistence lives behind the Sink interface.

BEST EFFORT:
  Audit emission must never turn a committed business operation into an
  error. The Recorder (recorder.go) decouples emission from the request path
  and swallows sink failures after logging them.

SEE ALSO:
  - recorder.go: Async post-commit delivery
  - store/sqlite: A sink binding persisting to audit_logs
*/
package audit

import (
	"context"
	"time"
)

// Event types emitted by the cash ledger.
const (
	EventCashIncomeCreate  = "cash.income.create"
	EventCashExpenseCreate = "cash.expense.create"
	EventCashUpdate        = "cash.update"
	EventCashDelete        = "cash.delete"
)

// Event is an immutable audit record.
type Event struct {
	ID        string
	Timestamp time.Time
	EventType string

	ActorID    int64
	ActorRole  string
	ActorLogin string
	SourceIP   string
	UserAgent  string

	Success  bool
	Metadata map[string]string
}

// Sink accepts audit events. Implementations must be safe for concurrent
// use; failures are reported via the returned error and handled by the
// Recorder, never by business code.
//
//go:generate mockgen -destination=mocks/mock_sink.go -source=audit.go Sink
type Sink interface {
	Record(ctx context.Context, e Event) error
}
