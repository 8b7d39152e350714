// Package events announces user lifecycle changes to downstream consumers.
// Delivery is best-effort and at-most-once: a failed publish is logged and
// dropped, never reflected in the outcome of the mutation that produced it.
package events

import "time"

// Change event types.
const (
	TypeUserCreated = "user.created"
	TypeUserUpdated = "user.updated"
	TypeUserDeleted = "user.deleted"
)

// UserSnapshot is the sanitized payload carried by a change event.
// It never contains credential material.
type UserSnapshot struct {
	ID       string `json:"id"`
	Email    string `json:"email,omitempty"`
	Name     string `json:"name,omitempty"`
	Role     string `json:"role,omitempty"`
	External bool   `json:"external"`
	IsActive bool   `json:"is_active"`
}

// ChangeEvent describes a completed mutation to the user entity.
type ChangeEvent struct {
	Type       string       `json:"type"`
	UserID     string       `json:"user_id"`
	OccurredAt time.Time    `json:"occurred_at"`
	User       UserSnapshot `json:"user"`
}

// Publisher hands change events to the publish channel.
type Publisher interface {
	Publish(event ChangeEvent)
}

// NopPublisher discards all events. Used when no publish channel is configured.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(ChangeEvent) {}
