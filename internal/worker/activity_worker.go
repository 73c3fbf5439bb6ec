// Package worker consumes ledger change messages and mirrors them as activity
// rows into a spreadsheet.
package worker

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"finboard/internal/amqp"
	applog "finboard/internal/log"
	"finboard/internal/sheets"
)

// ActivityWorker appends one activity row per change message.
type ActivityWorker struct {
	sink     sheets.ActivityWriter
	now      func() time.Time
	mirrored int64
	failed   int64
}

func NewActivityWorker(sink sheets.ActivityWriter) *ActivityWorker {
	return &ActivityWorker{sink: sink, now: time.Now}
}

// HandleChangeMessage mirrors msg. A returned error makes the consumer requeue
// the message, so only sink failures are reported.
func (w *ActivityWorker) HandleChangeMessage(ctx context.Context, msg *amqp.ChangeMessage) error {
	logger := applog.FromContext(ctx).WithComponent(applog.ComponentWorker)

	at := msg.Timestamp
	if at.IsZero() {
		at = w.now()
	}
	cs := msg.ChangeSet()
	if cs.Empty() {
		logger.DebugContext(ctx, "Skipping empty change message",
			applog.FieldResource, msg.Resource,
			applog.FieldAction, msg.Action)
		return nil
	}

	ref, err := w.sink.Append(ctx, sheets.Activity{At: at, Change: cs})
	if err != nil {
		atomic.AddInt64(&w.failed, 1)
		return fmt.Errorf("append activity: %w", err)
	}
	atomic.AddInt64(&w.mirrored, 1)

	logger.InfoContext(ctx, "Mirrored ledger change",
		applog.NewFields().
			WithUserID(cs.UserID).
			WithChange(cs.Resource, cs.Action, len(cs.IDs)).
			ToSlice()...)
	logger.DebugContext(ctx, "Activity row written", "sheets_ref", ref)
	return nil
}

// Stats returns how many messages were mirrored and how many failed.
func (w *ActivityWorker) Stats() (mirrored, failed int64) {
	return atomic.LoadInt64(&w.mirrored), atomic.LoadInt64(&w.failed)
}
