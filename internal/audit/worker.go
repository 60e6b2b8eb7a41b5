package audit

import (
	"context"
	"log/slog"
)

// Worker consumes review events from a channel and persists them. It keeps
// background processing testable without wiring queue implementations.
type Worker struct {
	store  Store
	inbox  <-chan Event
	logger *slog.Logger
}

func NewWorker(store Store, inbox <-chan Event) *Worker {
	return &Worker{store: store, inbox: inbox}
}

// WithLogger sets the logger used to report append failures.
func (w *Worker) WithLogger(logger *slog.Logger) *Worker {
	w.logger = logger
	return w
}

// Run consumes the inbox until ctx is cancelled. An append failure loses that
// one entry and is logged; the worker keeps consuming so a transient store
// outage does not silence the trail for the rest of the process lifetime.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.store.Append(ctx, event); err != nil && w.logger != nil {
				w.logger.WarnContext(ctx, "audit trail append failed",
					"validation_id", event.ValidationID,
					"error", err,
				)
			}
		}
	}
}
