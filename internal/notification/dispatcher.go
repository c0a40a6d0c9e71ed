// Package notification manages per-user notification inboxes. Inboxes are
// strictly private: reads are scoped to the requesting user with no
// cross-user access, not even for admins, and only the owning user may
// flip a notification's read flag.
package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/taskdeck/taskdeck/internal/domain"
	apperrors "github.com/taskdeck/taskdeck/internal/errors"
	"github.com/taskdeck/taskdeck/internal/platform/id"
	"github.com/taskdeck/taskdeck/internal/realtime"
	"github.com/taskdeck/taskdeck/internal/storage"
)

// Broadcaster publishes best-effort realtime events.
type Broadcaster interface {
	Publish(topic string, payload any)
}

// Message is the realtime payload sent on a user's notification stream.
type Message struct {
	NotificationID string `json:"notificationId"`
	UserID         string `json:"userId"`
	Title          string `json:"title"`
	Message        string `json:"message"`
	Type           string `json:"type"`
	TaskID         string `json:"taskId,omitempty"`
	ProjectID      string `json:"projectId,omitempty"`
}

// Dispatcher creates notifications and serves inbox reads.
type Dispatcher struct {
	store       storage.NotificationStore
	broadcaster Broadcaster
	clock       func() time.Time
	newID       func() (string, error)
}

// NewDispatcher constructs the notification dispatcher.
func NewDispatcher(store storage.NotificationStore, broadcaster Broadcaster, clock func() time.Time, newID func() (string, error)) *Dispatcher {
	if clock == nil {
		clock = time.Now
	}
	if newID == nil {
		newID = id.NewID
	}
	return &Dispatcher{
		store:       store,
		broadcaster: broadcaster,
		clock:       clock,
		newID:       newID,
	}
}

// Notify creates one unread notification for the user and publishes it on
// the user's private stream. The publish is fire-and-forget; only the
// persisted notification is authoritative.
func (d *Dispatcher) Notify(ctx context.Context, userID, title, message string, notificationType domain.NotificationType, taskID, projectID string) (domain.Notification, error) {
	notificationID, err := d.newID()
	if err != nil {
		return domain.Notification{}, fmt.Errorf("generate notification id: %w", err)
	}
	notification := domain.Notification{
		ID:        notificationID,
		UserID:    userID,
		Title:     title,
		Message:   message,
		Type:      notificationType,
		Read:      false,
		TaskID:    taskID,
		ProjectID: projectID,
		CreatedAt: d.clock().UTC(),
	}
	if err := d.store.PutNotification(ctx, notification); err != nil {
		return domain.Notification{}, err
	}

	if d.broadcaster != nil {
		d.broadcaster.Publish(realtime.UserNotifications(userID), Message{
			NotificationID: notification.ID,
			UserID:         notification.UserID,
			Title:          notification.Title,
			Message:        notification.Message,
			Type:           string(notification.Type),
			TaskID:         notification.TaskID,
			ProjectID:      notification.ProjectID,
		})
	}
	return notification, nil
}

// ListAll returns the requesting user's notifications, newest first.
func (d *Dispatcher) ListAll(ctx context.Context, user domain.User) ([]domain.Notification, error) {
	return d.store.ListNotificationsByUser(ctx, user.ID)
}

// ListUnread returns the requesting user's unread notifications, newest
// first.
func (d *Dispatcher) ListUnread(ctx context.Context, user domain.User) ([]domain.Notification, error) {
	return d.store.ListUnreadNotificationsByUser(ctx, user.ID)
}

// CountUnread counts the requesting user's unread notifications.
func (d *Dispatcher) CountUnread(ctx context.Context, user domain.User) (int, error) {
	return d.store.CountUnreadNotificationsByUser(ctx, user.ID)
}

// MarkRead sets the read flag on one notification. Fails with an
// authorization error when the requester does not own it; otherwise
// idempotent.
func (d *Dispatcher) MarkRead(ctx context.Context, notificationID string, requester domain.User) error {
	notification, err := d.store.GetNotification(ctx, notificationID)
	if errors.Is(err, storage.ErrNotFound) {
		return apperrors.New(apperrors.CodeNotFound, "notification not found")
	}
	if err != nil {
		return err
	}
	if notification.UserID != requester.ID {
		return apperrors.New(apperrors.CodeNotificationNotRecipient,
			"you can only mark your own notifications as read")
	}
	return d.store.MarkNotificationRead(ctx, notificationID)
}

// MarkAllRead flips every currently-unread notification to read. The
// unread set is a snapshot: notifications created after the read but
// before the writes complete stay unread.
func (d *Dispatcher) MarkAllRead(ctx context.Context, user domain.User) error {
	unread, err := d.store.ListUnreadNotificationsByUser(ctx, user.ID)
	if err != nil {
		return err
	}
	for _, notification := range unread {
		if err := d.store.MarkNotificationRead(ctx, notification.ID); err != nil {
			return err
		}
	}
	return nil
}
