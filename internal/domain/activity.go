package domain

import "time"

// ActivityType enumerates the kinds of audit events the engine records.
type ActivityType string

const (
	ActivityTaskCreated    ActivityType = "TASK_CREATED"
	ActivityTaskUpdated    ActivityType = "TASK_UPDATED"
	ActivityTaskDeleted    ActivityType = "TASK_DELETED"
	ActivityTaskAssigned   ActivityType = "TASK_ASSIGNED"
	ActivityTaskCompleted  ActivityType = "TASK_COMPLETED"
	ActivityCommentAdded   ActivityType = "COMMENT_ADDED"
	ActivityProjectCreated ActivityType = "PROJECT_CREATED"
	ActivityProjectUpdated ActivityType = "PROJECT_UPDATED"
	ActivityProjectDeleted ActivityType = "PROJECT_DELETED"
	ActivityMemberAdded    ActivityType = "MEMBER_ADDED"
	ActivityMemberRemoved  ActivityType = "MEMBER_REMOVED"
)

// Activity is one immutable audit record. Rows are only ever created; when a
// referenced task is deleted the TaskID is cleared but the row survives.
type Activity struct {
	ID          string
	Type        ActivityType
	Description string
	UserID      string
	TaskID      string
	ProjectID   string
	CreatedAt   time.Time
}
