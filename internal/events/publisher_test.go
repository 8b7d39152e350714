package events_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homefind/usersvc/internal/events"
	_ "github.com/homefind/usersvc/testing"
)

type recordingEnqueuer struct {
	mu     sync.Mutex
	events []events.ChangeEvent
	err    error
	gate   chan struct{}
}

func (e *recordingEnqueuer) EnqueueUserEvent(ctx context.Context, event events.ChangeEvent) error {
	if e.gate != nil {
		select {
		case <-e.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return e.err
	}
	e.events = append(e.events, event)
	return nil
}

func (e *recordingEnqueuer) all() []events.ChangeEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]events.ChangeEvent(nil), e.events...)
}

func change(id string) events.ChangeEvent {
	return events.ChangeEvent{
		Type:       events.TypeUserCreated,
		UserID:     id,
		OccurredAt: time.Now().UTC(),
		User:       events.UserSnapshot{ID: id},
	}
}

func TestPublishDeliversAndCloseDrains(t *testing.T) {
	enq := &recordingEnqueuer{}
	pub := events.NewAsyncPublisher(events.AsyncPublisherConfig{Enqueuer: enq})

	for i := 0; i < 10; i++ {
		pub.Publish(change("u"))
	}
	pub.Close()

	assert.Len(t, enq.all(), 10)
}

func TestPublishAbsorbsEnqueueFailure(t *testing.T) {
	enq := &recordingEnqueuer{err: errors.New("broker unreachable")}
	pub := events.NewAsyncPublisher(events.AsyncPublisherConfig{Enqueuer: enq})

	pub.Publish(change("u"))
	pub.Close()

	assert.Empty(t, enq.all())
}

func TestPublishNeverBlocksWhenQueueFull(t *testing.T) {
	// Workers are stuck on the gate, so the queue fills. Every Publish call
	// must still return promptly; overflow is dropped.
	enq := &recordingEnqueuer{gate: make(chan struct{})}
	pub := events.NewAsyncPublisher(events.AsyncPublisherConfig{
		Enqueuer:  enq,
		QueueSize: 1,
		Workers:   1,
		Timeout:   time.Minute,
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			pub.Publish(change("u"))
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a full queue")
	}

	close(enq.gate)
	pub.Close()

	require.NotEmpty(t, enq.all())
	assert.Less(t, len(enq.all()), 100)
}

func TestCloseIsIdempotent(t *testing.T) {
	pub := events.NewAsyncPublisher(events.AsyncPublisherConfig{Enqueuer: &recordingEnqueuer{}})
	pub.Close()
	pub.Close()
}
