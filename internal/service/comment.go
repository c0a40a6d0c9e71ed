package service

import (
	"context"
	"time"

	"github.com/taskdeck/taskdeck/internal/activity"
	"github.com/taskdeck/taskdeck/internal/domain"
	"github.com/taskdeck/taskdeck/internal/notification"
	"github.com/taskdeck/taskdeck/internal/policy"
	"github.com/taskdeck/taskdeck/internal/realtime"
	"github.com/taskdeck/taskdeck/internal/storage"
)

// CommentEvent is the realtime payload published on a task's comment
// stream.
type CommentEvent struct {
	ID         string    `json:"id"`
	TaskID     string    `json:"taskId"`
	AuthorID   string    `json:"authorId"`
	AuthorName string    `json:"authorName"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"createdAt"`
}

// CommentService is the comment mutation pipeline. A comment create counts
// as a task mutation: it appends a comment-added activity and notifies the
// task's assignee.
type CommentService struct {
	deps
	activities    *activity.Service
	notifications *notification.Dispatcher
}

// NewCommentService constructs the comment pipeline.
func NewCommentService(store storage.Store, activities *activity.Service, notifications *notification.Dispatcher, broadcaster Broadcaster, clock func() time.Time, newID func() (string, error)) *CommentService {
	return &CommentService{
		deps:          newDeps(store, broadcaster, clock, newID),
		activities:    activities,
		notifications: notifications,
	}
}

// ListByTask returns a task's comments, newest first.
func (s *CommentService) ListByTask(ctx context.Context, taskID string) ([]domain.Comment, error) {
	return s.store.ListCommentsByTask(ctx, taskID)
}

// Create adds a comment to a task, notifies the assignee when different
// from the author, and broadcasts on the task's comment stream.
func (s *CommentService) Create(ctx context.Context, actor domain.User, taskID, content string) (domain.Comment, error) {
	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return domain.Comment{}, notFoundOr(err, "task not found")
	}

	commentID, err := s.newID()
	if err != nil {
		return domain.Comment{}, err
	}
	now := s.clock().UTC()
	comment := domain.Comment{
		ID:        commentID,
		TaskID:    task.ID,
		AuthorID:  actor.ID,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}

	record, err := s.activities.NewRecord(domain.ActivityCommentAdded,
		actor.FullName+" commented on task: "+task.Title, actor.ID, task.ID, task.ProjectID)
	if err != nil {
		return domain.Comment{}, err
	}
	if err := s.store.SaveCommentWithActivity(ctx, comment, record); err != nil {
		return domain.Comment{}, err
	}

	if task.AssignedToID != "" && task.AssignedToID != actor.ID {
		if _, err := s.notifications.Notify(ctx, task.AssignedToID, "New Comment",
			actor.FullName+" commented on your task: "+task.Title,
			domain.NotificationCommentAdded, task.ID, ""); err != nil {
			logSideEffect("notify comment", err)
		}
	}
	s.publish(realtime.TaskComments(task.ID), CommentEvent{
		ID:         comment.ID,
		TaskID:     comment.TaskID,
		AuthorID:   actor.ID,
		AuthorName: actor.FullName,
		Content:    comment.Content,
		CreatedAt:  comment.CreatedAt,
	})
	return comment, nil
}

// Delete removes a comment. Author-only; there is no admin override.
func (s *CommentService) Delete(ctx context.Context, actor domain.User, commentID string) error {
	comment, err := s.store.GetComment(ctx, commentID)
	if err != nil {
		return notFoundOr(err, "comment not found")
	}
	if err := policy.CanDeleteComment(actor, comment).Err(); err != nil {
		return err
	}
	if err := s.store.DeleteComment(ctx, commentID); err != nil {
		return notFoundOr(err, "comment not found")
	}
	return nil
}
