/*
recorder.go - Async, best-effort audit delivery

PURPOSE:
  A single post-commit hook for every write path. The ledger service calls
  Emit after a successful commit; a background goroutine forwards events to
  the Sink. Sink errors are logged and dropped - the business operation has
  already succeeded and stays successful.

BACKPRESSURE:
  The channel is bounded. When it is full, the event is dropped and the drop
  is logged; blocking the request path on the audit channel would invert the
  best-effort contract.

SHUTDOWN:
  Close drains buffered events before returning so a normal shutdown does
  not lose the tail of the audit stream.
*/
package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

const defaultBuffer = 256

// Recorder forwards events to a Sink off the request path.
type Recorder struct {
	sink   Sink
	logger *slog.Logger

	ch        chan Event
	closeOnce sync.Once
	done      chan struct{}
}

// NewRecorder starts the delivery goroutine.
func NewRecorder(sink Sink, logger *slog.Logger) *Recorder {
	r := &Recorder{
		sink:   sink,
		logger: logger,
		ch:     make(chan Event, defaultBuffer),
		done:   make(chan struct{}),
	}
	go r.run()
	return r
}

func (r *Recorder) run() {
	defer close(r.done)
	for e := range r.ch {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := r.sink.Record(ctx, e); err != nil {
			r.logger.Error("audit sink write failed",
				"event_type", e.EventType, "event_id", e.ID, "error", err)
		}
		cancel()
	}
}

// Emit queues an event for delivery. Missing id/timestamp are filled in.
// Never blocks: a full buffer drops the event and logs the drop.
func (r *Recorder) Emit(e Event) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	select {
	case r.ch <- e:
	default:
		r.logger.Error("audit buffer full, event dropped",
			"event_type", e.EventType, "event_id", e.ID)
	}
}

// Close stops accepting events and waits for the buffer to drain.
func (r *Recorder) Close() {
	r.closeOnce.Do(func() { close(r.ch) })
	<-r.done
}

// SlogSink writes events to a structured logger. Useful standalone in
// development and as a fallback when no persistent sink is configured.
type SlogSink struct {
	Logger *slog.Logger
}

func (s *SlogSink) Record(_ context.Context, e Event) error {
	s.Logger.Info("audit",
		"event_id", e.ID,
		"event_type", e.EventType,
		"timestamp", e.Timestamp,
		"actor_id", e.ActorID,
		"actor_role", e.ActorRole,
		"actor_login", e.ActorLogin,
		"source_ip", e.SourceIP,
		"user_agent", e.UserAgent,
		"success", e.Success,
		"metadata", e.Metadata,
	)
	return nil
}
