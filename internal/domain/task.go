package domain

import (
	"time"

	apperrors "github.com/taskdeck/taskdeck/internal/errors"
)

// TaskStatus describes a task's lifecycle state.
type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "TODO"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusCompleted  TaskStatus = "COMPLETED"
)

// ParseTaskStatus validates a status name against the closed set.
func ParseTaskStatus(value string) (TaskStatus, error) {
	switch TaskStatus(value) {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusCompleted:
		return TaskStatus(value), nil
	}
	return "", apperrors.New(apperrors.CodeTaskStatusInvalid, "invalid task status: "+value)
}

// TaskPriority describes task urgency.
type TaskPriority string

const (
	TaskPriorityLow      TaskPriority = "LOW"
	TaskPriorityMedium   TaskPriority = "MEDIUM"
	TaskPriorityHigh     TaskPriority = "HIGH"
	TaskPriorityCritical TaskPriority = "CRITICAL"
)

// ParseTaskPriority validates a priority name against the closed set.
func ParseTaskPriority(value string) (TaskPriority, error) {
	switch TaskPriority(value) {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh, TaskPriorityCritical:
		return TaskPriority(value), nil
	}
	return "", apperrors.New(apperrors.CodeTaskPriorityInvalid, "invalid task priority: "+value)
}

// Task is a unit of work, optionally scoped to a project and assigned to a user.
// CreatedByID is immutable; an unset assignee defaults to the creator at
// creation time. Optional references are empty strings when absent.
type Task struct {
	ID           string
	Title        string
	Description  string
	Status       TaskStatus
	Priority     TaskPriority
	DueDate      *time.Time
	ProjectID    string
	CreatedByID  string
	AssignedToID string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
