// Package activity maintains the append-only audit trail. Records are
// created as a side effect of mutations (or direct log calls for non-CRUD
// events) and are never updated or deleted; deleting a referenced task only
// clears the task reference so history survives the resource.
package activity

import (
	"context"
	"fmt"
	"time"

	"github.com/taskdeck/taskdeck/internal/domain"
	"github.com/taskdeck/taskdeck/internal/platform/id"
	"github.com/taskdeck/taskdeck/internal/storage"
)

// recentCap bounds how far back the recent feed reaches.
const recentCap = 50

// Service builds and queries audit records.
type Service struct {
	store storage.ActivityStore
	clock func() time.Time
	newID func() (string, error)
}

// NewService constructs the audit trail service.
func NewService(store storage.ActivityStore, clock func() time.Time, newID func() (string, error)) *Service {
	if clock == nil {
		clock = time.Now
	}
	if newID == nil {
		newID = id.NewID
	}
	return &Service{
		store: store,
		clock: clock,
		newID: newID,
	}
}

// NewRecord stamps one audit record without persisting it. Mutation
// pipelines persist the record inside the same transaction as the domain
// write.
func (s *Service) NewRecord(activityType domain.ActivityType, description, actorID, taskID, projectID string) (domain.Activity, error) {
	activityID, err := s.newID()
	if err != nil {
		return domain.Activity{}, fmt.Errorf("generate activity id: %w", err)
	}
	return domain.Activity{
		ID:          activityID,
		Type:        activityType,
		Description: description,
		UserID:      actorID,
		TaskID:      taskID,
		ProjectID:   projectID,
		CreatedAt:   s.clock().UTC(),
	}, nil
}

// Log stamps and appends one audit record outside any mutation
// transaction, for events with no accompanying domain write.
func (s *Service) Log(ctx context.Context, activityType domain.ActivityType, description, actorID, taskID, projectID string) (domain.Activity, error) {
	record, err := s.NewRecord(activityType, description, actorID, taskID, projectID)
	if err != nil {
		return domain.Activity{}, err
	}
	if err := s.store.AppendActivity(ctx, record); err != nil {
		return domain.Activity{}, err
	}
	return record, nil
}

// Recent returns the newest records, most recent first. Non-positive
// limits yield an empty result; limits beyond the feed cap are truncated.
func (s *Service) Recent(ctx context.Context, limit int) ([]domain.Activity, error) {
	if limit <= 0 {
		return []domain.Activity{}, nil
	}
	if limit > recentCap {
		limit = recentCap
	}
	return s.store.ListRecentActivities(ctx, limit)
}

// ByTask returns a task's records, most recent first. A deleted task id
// resolves to an empty result because deletion clears the reference.
func (s *Service) ByTask(ctx context.Context, taskID string) ([]domain.Activity, error) {
	return s.store.ListActivitiesByTask(ctx, taskID)
}

// ByProject returns a project's records, most recent first.
func (s *Service) ByProject(ctx context.Context, projectID string) ([]domain.Activity, error) {
	return s.store.ListActivitiesByProject(ctx, projectID)
}

// ByUser returns a user's records, most recent first, up to limit.
func (s *Service) ByUser(ctx context.Context, userID string, limit int) ([]domain.Activity, error) {
	if limit <= 0 {
		return []domain.Activity{}, nil
	}
	return s.store.ListActivitiesByUser(ctx, userID, limit)
}

// OnTaskDeleted clears the task reference on all records pointing at the
// task. It runs as part of task deletion; standalone use exists for
// callers that manage their own transaction boundary.
func (s *Service) OnTaskDeleted(ctx context.Context, taskID string) error {
	return s.store.ClearTaskRefs(ctx, taskID)
}
