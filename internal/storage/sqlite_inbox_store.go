package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SQLiteInboxStore implements InboxStore backed by SQLite.
type SQLiteInboxStore struct {
	db *sql.DB
}

// NewSQLiteInboxStore returns a new SQLiteInboxStore.
func NewSQLiteInboxStore(db *sql.DB) *SQLiteInboxStore {
	return &SQLiteInboxStore{db: db}
}

// AddNotification inserts a new unread inbox entry.
func (s *SQLiteInboxStore) AddNotification(ctx context.Context, userID, title, body string) (*InboxNotification, error) {
	n := &InboxNotification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO inbox_notifications (id, user_id, title, body, read, created_at)
		VALUES (?, ?, ?, ?, 0, ?)`,
		n.ID, n.UserID, n.Title, n.Body, n.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("inserting inbox notification: %w", err)
	}
	return n, nil
}

// ListNotifications returns the user's most recent inbox entries.
func (s *SQLiteInboxStore) ListNotifications(ctx context.Context, userID string, limit int) ([]InboxNotification, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, title, body, read, created_at
		FROM inbox_notifications
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying inbox: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			err = fmt.Errorf("closing rows: %w", cerr)
		}
	}()

	var entries []InboxNotification
	for rows.Next() {
		var n InboxNotification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Body, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning inbox row: %w", err)
		}
		entries = append(entries, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating inbox rows: %w", err)
	}
	return entries, nil
}

// MarkRead flags the given entries as read for the user.
func (s *SQLiteInboxStore) MarkRead(ctx context.Context, userID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, 0, len(ids)+1)
	args = append(args, userID)
	for _, id := range ids {
		args = append(args, id)
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE inbox_notifications SET read = 1 WHERE user_id = ? AND id IN (`+placeholders+`)`,
		args...)
	if err != nil {
		return fmt.Errorf("marking inbox notifications read: %w", err)
	}
	return nil
}
