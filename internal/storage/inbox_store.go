package storage

import (
	"context"
	"time"
)

// InboxNotification is one in-app inbox entry, created as a side effect of a
// successful in-app channel send. Only the read flag changes after creation.
type InboxNotification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// InboxStore persists the per-user in-app notification inbox.
type InboxStore interface {
	// AddNotification creates a new unread inbox entry for the user.
	AddNotification(ctx context.Context, userID, title, body string) (*InboxNotification, error)
	// ListNotifications returns the user's most recent entries, newest first.
	ListNotifications(ctx context.Context, userID string, limit int) ([]InboxNotification, error)
	// MarkRead flags the given entries as read. Entries belonging to other
	// users are ignored.
	MarkRead(ctx context.Context, userID string, ids []string) error
}
