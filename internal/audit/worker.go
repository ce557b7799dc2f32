package audit

import (
	"context"
	"log/slog"
)

// Worker consumes audit events from the publisher's channel and persists
// them. Store or sink failures are logged and skipped; the trail is
// best-effort and must never take the service down.
type Worker struct {
	store  Store
	sink   Sink
	inbox  <-chan Event
	logger *slog.Logger
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithSink attaches an optional broker sink that receives a copy of every
// persisted event.
func WithSink(sink Sink) WorkerOption {
	return func(w *Worker) {
		w.sink = sink
	}
}

func NewWorker(store Store, inbox <-chan Event, logger *slog.Logger, opts ...WorkerOption) *Worker {
	w := &Worker{store: store, inbox: inbox, logger: logger}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run drains the inbox until ctx is cancelled. On cancellation it flushes
// whatever is already buffered before returning.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.drain()
			return ctx.Err()
		case event := <-w.inbox:
			w.handle(ctx, event)
		}
	}
}

func (w *Worker) handle(ctx context.Context, event Event) {
	if err := w.store.Append(ctx, event); err != nil {
		w.logger.Error("audit append failed",
			"action", event.Action,
			"error", err,
		)
	}
	if w.sink != nil {
		if err := w.sink.Publish(ctx, event); err != nil {
			w.logger.Error("audit sink publish failed",
				"action", event.Action,
				"error", err,
			)
		}
	}
}

// drain persists already-buffered events with a fresh context, since the
// run context is cancelled at shutdown.
func (w *Worker) drain() {
	ctx := context.Background()
	for {
		select {
		case event := <-w.inbox:
			w.handle(ctx, event)
		default:
			return
		}
	}
}
