package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/taskdeck/taskdeck/internal/domain"
	"github.com/taskdeck/taskdeck/internal/storage"
)

type notificationRow struct {
	ID        string         `db:"id"`
	UserID    string         `db:"user_id"`
	Title     string         `db:"title"`
	Message   string         `db:"message"`
	Type      string         `db:"type"`
	IsRead    bool           `db:"is_read"`
	TaskID    sql.NullString `db:"task_id"`
	ProjectID sql.NullString `db:"project_id"`
	CreatedAt int64          `db:"created_at"`
}

func (r notificationRow) toDomain() domain.Notification {
	return domain.Notification{
		ID:        r.ID,
		UserID:    r.UserID,
		Title:     r.Title,
		Message:   r.Message,
		Type:      domain.NotificationType(r.Type),
		Read:      r.IsRead,
		TaskID:    fromNullString(r.TaskID),
		ProjectID: fromNullString(r.ProjectID),
		CreatedAt: fromMillis(r.CreatedAt),
	}
}

// GetNotification loads one notification by id.
func (s *Store) GetNotification(ctx context.Context, id string) (domain.Notification, error) {
	var row notificationRow
	err := s.db.GetContext(ctx, &row, "SELECT * FROM notifications WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Notification{}, storage.ErrNotFound
	}
	if err != nil {
		return domain.Notification{}, fmt.Errorf("get notification: %w", err)
	}
	return row.toDomain(), nil
}

// PutNotification inserts one notification row.
func (s *Store) PutNotification(ctx context.Context, notification domain.Notification) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, user_id, title, message, type, is_read, task_id, project_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		notification.ID, notification.UserID, notification.Title, notification.Message,
		string(notification.Type), notification.Read, nullString(notification.TaskID),
		nullString(notification.ProjectID), toMillis(notification.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("put notification: %w", err)
	}
	return nil
}

// ListNotificationsByUser returns a user's notifications, newest first.
func (s *Store) ListNotificationsByUser(ctx context.Context, userID string) ([]domain.Notification, error) {
	var rows []notificationRow
	err := s.db.SelectContext(ctx, &rows,
		"SELECT * FROM notifications WHERE user_id = ? ORDER BY created_at DESC, rowid DESC", userID)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return notificationsToDomain(rows), nil
}

// ListUnreadNotificationsByUser returns a user's unread notifications,
// newest first.
func (s *Store) ListUnreadNotificationsByUser(ctx context.Context, userID string) ([]domain.Notification, error) {
	var rows []notificationRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT * FROM notifications
		WHERE user_id = ? AND is_read = 0
		ORDER BY created_at DESC, rowid DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list unread notifications: %w", err)
	}
	return notificationsToDomain(rows), nil
}

// CountUnreadNotificationsByUser counts a user's unread notifications.
func (s *Store) CountUnreadNotificationsByUser(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM notifications WHERE user_id = ? AND is_read = 0", userID)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}

// MarkNotificationRead sets the read flag on one notification. Idempotent.
func (s *Store) MarkNotificationRead(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE notifications SET is_read = 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark notification read rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func notificationsToDomain(rows []notificationRow) []domain.Notification {
	notifications := make([]domain.Notification, 0, len(rows))
	for _, row := range rows {
		notifications = append(notifications, row.toDomain())
	}
	return notifications
}
