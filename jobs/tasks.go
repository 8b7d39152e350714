package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/homefind/usersvc/internal/events"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeUserEvent is the task type for user lifecycle change events.
	TaskTypeUserEvent = "user:event"
)

// NewUserEventTask constructs an Asynq task carrying a change event.
func NewUserEventTask(event events.ChangeEvent) (*asynq.Task, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeUserEvent, data), nil
}

// EventDeliverer fans change events out to the configured Redis topic.
// Consumers subscribe to the topic; no delivery confirmation flows back.
type EventDeliverer struct {
	redis  *redis.Client
	topic  string
	logger *slog.Logger
}

// NewEventDeliverer constructs an EventDeliverer publishing on topic.
func NewEventDeliverer(client *redis.Client, topic string, logger *slog.Logger) *EventDeliverer {
	return &EventDeliverer{redis: client, topic: topic, logger: logger}
}

// HandleUserEventTask processes TaskTypeUserEvent tasks.
func (d *EventDeliverer) HandleUserEventTask(ctx context.Context, t *asynq.Task) error {
	var event events.ChangeEvent
	if err := json.Unmarshal(t.Payload(), &event); err != nil {
		return asynq.SkipRetry
	}
	if err := d.redis.Publish(ctx, d.topic, t.Payload()).Err(); err != nil {
		return fmt.Errorf("jobs: publish %s to %s: %w", event.Type, d.topic, err)
	}
	if d.logger != nil {
		d.logger.Info("event delivered",
			slog.String("type", event.Type),
			slog.String("user_id", event.UserID),
			slog.String("topic", d.topic))
	}
	return nil
}

// Client submits jobs to the queue.
type Client struct {
	client *asynq.Client
}

// NewClient constructs an Asynq client.
func NewClient(redisOpts asynq.RedisClientOpt) *Client {
	return &Client{client: asynq.NewClient(redisOpts)}
}

// EnqueueUserEvent enqueues a user change event for delivery.
func (c *Client) EnqueueUserEvent(ctx context.Context, event events.ChangeEvent) error {
	task, err := NewUserEventTask(event)
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault))
	return err
}

// Close releases client resources.
func (c *Client) Close() error {
	return c.client.Close()
}

var _ events.Enqueuer = (*Client)(nil)
