package audit_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scubaai/internal/audit"
	"scubaai/internal/audit/store/memory"
	id "scubaai/pkg/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPublisherStampsTimestamp(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	pub := audit.NewPublisher(4, discardLogger(), audit.WithPublisherClock(func() time.Time { return now }))

	pub.Emit(audit.Event{Action: audit.ActionLoginSucceeded})

	event := <-pub.Inbox()
	assert.Equal(t, now, event.Timestamp)
}

func TestPublisherKeepsExplicitTimestamp(t *testing.T) {
	stamped := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	pub := audit.NewPublisher(4, discardLogger())

	pub.Emit(audit.Event{Action: audit.ActionLogout, Timestamp: stamped})

	event := <-pub.Inbox()
	assert.Equal(t, stamped, event.Timestamp)
}

func TestPublisherDropsWhenBufferFull(t *testing.T) {
	pub := audit.NewPublisher(1, discardLogger())

	pub.Emit(audit.Event{Action: audit.ActionMessageSent})
	// Buffer is full now; this must not block.
	done := make(chan struct{})
	go func() {
		pub.Emit(audit.Event{Action: audit.ActionMessageSent})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Emit blocked on a full buffer")
	}
}

func TestWorkerPersistsEvents(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := audit.NewPublisher(16, discardLogger())
	worker := audit.NewWorker(store, pub.Inbox(), discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = worker.Run(ctx)
		close(done)
	}()

	userID := id.NewUserID()
	pub.Emit(audit.Event{UserID: userID, Action: audit.ActionUserRegistered})
	pub.Emit(audit.Event{UserID: userID, Action: audit.ActionLoginSucceeded})

	require.Eventually(t, func() bool {
		events, err := store.ListByUser(context.Background(), userID, 0)
		return err == nil && len(events) == 2
	}, time.Second, 10*time.Millisecond)

	cancel()
	<-done
}

func TestWorkerDrainsBufferedEventsOnShutdown(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := audit.NewPublisher(16, discardLogger())
	worker := audit.NewWorker(store, pub.Inbox(), discardLogger())

	// Queue before the worker starts, then cancel immediately: the shutdown
	// drain must still persist everything already buffered.
	for range 5 {
		pub.Emit(audit.Event{UserID: id.NewUserID(), Action: audit.ActionMessageSent})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := worker.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	events, err := store.ListRecent(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, events, 5)
}

type recordingSink struct {
	mu     sync.Mutex
	events []audit.Event
	err    error
}

func (s *recordingSink) Publish(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return s.err
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func TestWorkerFansOutToSink(t *testing.T) {
	store := memory.NewInMemoryStore()
	sink := &recordingSink{}
	pub := audit.NewPublisher(16, discardLogger())
	worker := audit.NewWorker(store, pub.Inbox(), discardLogger(), audit.WithSink(sink))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = worker.Run(ctx)
		close(done)
	}()

	pub.Emit(audit.Event{UserID: id.NewUserID(), Action: audit.ActionSettingChanged})

	require.Eventually(t, func() bool { return sink.count() == 1 }, time.Second, 10*time.Millisecond)

	cancel()
	<-done
}

func TestWorkerSinkFailureStillPersists(t *testing.T) {
	store := memory.NewInMemoryStore()
	sink := &recordingSink{err: errors.New("broker down")}
	pub := audit.NewPublisher(16, discardLogger())
	worker := audit.NewWorker(store, pub.Inbox(), discardLogger(), audit.WithSink(sink))

	userID := id.NewUserID()
	pub.Emit(audit.Event{UserID: userID, Action: audit.ActionLoginFailed})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = worker.Run(ctx)

	events, err := store.ListByUser(context.Background(), userID, 0)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}
