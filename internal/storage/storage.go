// Package storage defines the persistence boundary for the engine. The
// engine never reaches into a database directly; it talks to these
// interfaces, keyed by identifier, and treats composite Save*With* methods
// as single atomic units so a domain write and its audit rows are durable
// together or not at all.
package storage

import (
	"context"
	"errors"

	"github.com/taskdeck/taskdeck/internal/domain"
)

// ErrNotFound indicates a record id did not resolve. Implementations must
// return it (possibly wrapped) for missing rows so callers can map it to a
// NotFound failure.
var ErrNotFound = errors.New("record not found")

// UserStore persists users.
type UserStore interface {
	GetUser(ctx context.Context, id string) (domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
	// ListUsersExcept returns every user except the given one, for team
	// member pickers.
	ListUsersExcept(ctx context.Context, id string) ([]domain.User, error)
	SaveUser(ctx context.Context, user domain.User) error
}

// ProjectStore persists projects and their member sets.
type ProjectStore interface {
	GetProject(ctx context.Context, id string) (domain.Project, error)
	ListProjects(ctx context.Context) ([]domain.Project, error)
	// ListProjectsAccessibleTo returns projects the user owns or is a
	// member of, newest first.
	ListProjectsAccessibleTo(ctx context.Context, userID string) ([]domain.Project, error)
	// SaveProjectWithActivities upserts the project, replaces its member
	// set, and appends the given audit rows in one transaction.
	SaveProjectWithActivities(ctx context.Context, project domain.Project, activities []domain.Activity) error
	// DeleteProjectWithActivity removes the project, detaches tasks,
	// activities, and notifications that reference it, and appends the
	// audit row, all in one transaction.
	DeleteProjectWithActivity(ctx context.Context, projectID string, activity domain.Activity) error
}

// TaskStore persists tasks.
type TaskStore interface {
	GetTask(ctx context.Context, id string) (domain.Task, error)
	ListTasks(ctx context.Context) ([]domain.Task, error)
	// ListTasksAccessibleTo returns tasks the user created or is assigned
	// to, newest first.
	ListTasksAccessibleTo(ctx context.Context, userID string) ([]domain.Task, error)
	ListTasksByProject(ctx context.Context, projectID string) ([]domain.Task, error)
	ListTasksByProjectAccessibleTo(ctx context.Context, projectID, userID string) ([]domain.Task, error)
	CountTasksByProject(ctx context.Context, projectID string) (int, error)
	// SaveTaskWithActivities upserts the task and appends the given audit
	// rows in one transaction.
	SaveTaskWithActivities(ctx context.Context, task domain.Task, activities []domain.Activity) error
	// DeleteTaskWithActivity removes the task and its comments, clears the
	// task reference on surviving activity and notification rows, and
	// appends the audit row, all in one transaction.
	DeleteTaskWithActivity(ctx context.Context, taskID string, activity domain.Activity) error
}

// CommentStore persists task comments.
type CommentStore interface {
	GetComment(ctx context.Context, id string) (domain.Comment, error)
	ListCommentsByTask(ctx context.Context, taskID string) ([]domain.Comment, error)
	// SaveCommentWithActivity inserts the comment and its audit row in one
	// transaction.
	SaveCommentWithActivity(ctx context.Context, comment domain.Comment, activity domain.Activity) error
	DeleteComment(ctx context.Context, id string) error
}

// ActivityStore persists the append-only audit trail. Rows are never
// updated except to clear a deleted task's reference, and never deleted.
type ActivityStore interface {
	AppendActivity(ctx context.Context, activity domain.Activity) error
	// ListRecentActivities returns up to limit rows, newest first.
	ListRecentActivities(ctx context.Context, limit int) ([]domain.Activity, error)
	ListActivitiesByTask(ctx context.Context, taskID string) ([]domain.Activity, error)
	ListActivitiesByProject(ctx context.Context, projectID string) ([]domain.Activity, error)
	ListActivitiesByUser(ctx context.Context, userID string, limit int) ([]domain.Activity, error)
	// ClearTaskRefs nulls the task reference on all rows pointing at the
	// task without touching the rows themselves.
	ClearTaskRefs(ctx context.Context, taskID string) error
}

// NotificationStore persists per-user notification inboxes.
type NotificationStore interface {
	GetNotification(ctx context.Context, id string) (domain.Notification, error)
	PutNotification(ctx context.Context, notification domain.Notification) error
	ListNotificationsByUser(ctx context.Context, userID string) ([]domain.Notification, error)
	ListUnreadNotificationsByUser(ctx context.Context, userID string) ([]domain.Notification, error)
	CountUnreadNotificationsByUser(ctx context.Context, userID string) (int, error)
	// MarkNotificationRead sets the read flag. Idempotent.
	MarkNotificationRead(ctx context.Context, id string) error
}

// Store aggregates every persistence concern behind one handle.
type Store interface {
	UserStore
	ProjectStore
	TaskStore
	CommentStore
	ActivityStore
	NotificationStore
	Close() error
}
