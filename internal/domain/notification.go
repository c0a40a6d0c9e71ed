package domain

import "time"

// NotificationType enumerates the kinds of per-user notifications.
type NotificationType string

const (
	NotificationTaskAssigned    NotificationType = "TASK_ASSIGNED"
	NotificationTaskUpdated     NotificationType = "TASK_UPDATED"
	NotificationCommentAdded    NotificationType = "COMMENT_ADDED"
	NotificationDueDateReminder NotificationType = "DUE_DATE_REMINDER"
)

// Notification is one item in a user's private inbox. UserID is immutable
// and only that user may flip the Read flag.
type Notification struct {
	ID        string
	UserID    string
	Title     string
	Message   string
	Type      NotificationType
	Read      bool
	TaskID    string
	ProjectID string
	CreatedAt time.Time
}
