package audit

import (
	"log/slog"
	"time"
)

// Publisher hands events to the worker over a buffered channel. Emit never
// blocks the caller: when the buffer is full the event is dropped and logged,
// because audit must not fail or slow the request path.
type Publisher struct {
	inbox  chan Event
	logger *slog.Logger
	clock  func() time.Time
}

// PublisherOption configures a Publisher.
type PublisherOption func(*Publisher)

// WithPublisherClock overrides the timestamp source, for tests.
func WithPublisherClock(clock func() time.Time) PublisherOption {
	return func(p *Publisher) {
		p.clock = clock
	}
}

// NewPublisher creates a publisher with the given buffer size.
func NewPublisher(buffer int, logger *slog.Logger, opts ...PublisherOption) *Publisher {
	if buffer <= 0 {
		buffer = 256
	}
	p := &Publisher{
		inbox:  make(chan Event, buffer),
		logger: logger,
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Inbox exposes the receive side for the worker.
func (p *Publisher) Inbox() <-chan Event {
	return p.inbox
}

// Emit queues an event for background persistence. Best-effort: a full
// buffer drops the event rather than blocking the caller.
func (p *Publisher) Emit(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = p.clock()
	}
	select {
	case p.inbox <- event:
	default:
		p.logger.Warn("audit buffer full, dropping event",
			"action", event.Action,
			"user_id", event.UserID.String(),
		)
	}
}
