package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Notification types.
const (
	TaskCreatedType = "task.created"
	TaskUpdatedType = "task.updated"
	TaskDeletedType = "task.deleted"
	TaskDueType     = "task.due"
)

// Notification is a live update addressed to a set of users.
type Notification struct {
	ID         uuid.UUID   `json:"id"`
	Type       string      `json:"type"`
	Timestamp  time.Time   `json:"timestamp"`
	Recipients []uuid.UUID `json:"recipients"`
	TaskID     uuid.UUID   `json:"task_id"`
	TeamID     uuid.UUID   `json:"team_id"`
	Title      string      `json:"title"`
	DueDate    *time.Time  `json:"due_date,omitempty"`
}

// NewNotification creates a notification with a fresh id and timestamp.
func NewNotification(kind string, recipients ...uuid.UUID) *Notification {
	return &Notification{
		ID:         uuid.New(),
		Type:       kind,
		Timestamp:  time.Now().UTC(),
		Recipients: recipients,
	}
}

// AddressedTo reports whether userID is among the recipients.
func (n *Notification) AddressedTo(userID uuid.UUID) bool {
	for _, r := range n.Recipients {
		if r == userID {
			return true
		}
	}
	return false
}

// Publisher delivers notifications to connected clients.
type Publisher interface {
	Publish(ctx context.Context, n *Notification) error
}

// NopPublisher discards notifications.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(context.Context, *Notification) error { return nil }
