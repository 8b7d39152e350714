package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Enqueuer submits an event to the durable publish channel.
type Enqueuer interface {
	EnqueueUserEvent(ctx context.Context, event ChangeEvent) error
}

// AsyncPublisher dispatches change events off the request path through a
// bounded queue. When the queue is full the event is dropped with a warning;
// pending publishes never accumulate without limit under backpressure.
type AsyncPublisher struct {
	enqueuer Enqueuer
	logger   *slog.Logger
	timeout  time.Duration

	queue     chan ChangeEvent
	group     *errgroup.Group
	closeOnce sync.Once
}

// AsyncPublisherConfig collects AsyncPublisher dependencies.
type AsyncPublisherConfig struct {
	Enqueuer  Enqueuer
	Logger    *slog.Logger
	QueueSize int
	Timeout   time.Duration
	Workers   int
}

// NewAsyncPublisher constructs and starts an AsyncPublisher.
func NewAsyncPublisher(cfg AsyncPublisherConfig) *AsyncPublisher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	p := &AsyncPublisher{
		enqueuer: cfg.Enqueuer,
		logger:   cfg.Logger,
		timeout:  cfg.Timeout,
		queue:    make(chan ChangeEvent, cfg.QueueSize),
		group:    &errgroup.Group{},
	}
	for i := 0; i < cfg.Workers; i++ {
		p.group.Go(p.run)
	}
	return p
}

// Publish hands the event to the dispatch queue without blocking the caller.
// The mutation has already committed by the time Publish runs, so every
// failure mode here ends in a log line, not an error return.
func (p *AsyncPublisher) Publish(event ChangeEvent) {
	select {
	case p.queue <- event:
	default:
		p.warn("event dropped, publish queue full", event)
	}
}

func (p *AsyncPublisher) run() error {
	for event := range p.queue {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		if err := p.enqueuer.EnqueueUserEvent(ctx, event); err != nil {
			p.warn("event publish failed", event, slog.Any("error", err))
		}
		cancel()
	}
	return nil
}

// Close drains queued events and stops the workers.
func (p *AsyncPublisher) Close() {
	p.closeOnce.Do(func() {
		close(p.queue)
		_ = p.group.Wait()
	})
}

func (p *AsyncPublisher) warn(msg string, event ChangeEvent, attrs ...any) {
	if p.logger == nil {
		return
	}
	args := append([]any{
		slog.String("type", event.Type),
		slog.String("user_id", event.UserID),
	}, attrs...)
	p.logger.Warn(msg, args...)
}

var _ Publisher = (*AsyncPublisher)(nil)
