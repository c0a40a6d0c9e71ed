package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/taskdeck/taskdeck/internal/domain"
)

type activityRow struct {
	ID          string         `db:"id"`
	Type        string         `db:"type"`
	Description string         `db:"description"`
	UserID      string         `db:"user_id"`
	TaskID      sql.NullString `db:"task_id"`
	ProjectID   sql.NullString `db:"project_id"`
	CreatedAt   int64          `db:"created_at"`
}

func (r activityRow) toDomain() domain.Activity {
	return domain.Activity{
		ID:          r.ID,
		Type:        domain.ActivityType(r.Type),
		Description: r.Description,
		UserID:      r.UserID,
		TaskID:      fromNullString(r.TaskID),
		ProjectID:   fromNullString(r.ProjectID),
		CreatedAt:   fromMillis(r.CreatedAt),
	}
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertActivity(ctx context.Context, db execer, activity domain.Activity) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO activities (id, type, description, user_id, task_id, project_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		activity.ID, string(activity.Type), activity.Description, activity.UserID,
		nullString(activity.TaskID), nullString(activity.ProjectID), toMillis(activity.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

// AppendActivity appends one audit row outside any mutation transaction.
func (s *Store) AppendActivity(ctx context.Context, activity domain.Activity) error {
	return insertActivity(ctx, s.db, activity)
}

// ListRecentActivities returns up to limit rows, newest first.
func (s *Store) ListRecentActivities(ctx context.Context, limit int) ([]domain.Activity, error) {
	var rows []activityRow
	err := s.db.SelectContext(ctx, &rows,
		"SELECT * FROM activities ORDER BY created_at DESC, rowid DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("list recent activities: %w", err)
	}
	return activitiesToDomain(rows), nil
}

// ListActivitiesByTask returns a task's audit rows, newest first.
func (s *Store) ListActivitiesByTask(ctx context.Context, taskID string) ([]domain.Activity, error) {
	var rows []activityRow
	err := s.db.SelectContext(ctx, &rows,
		"SELECT * FROM activities WHERE task_id = ? ORDER BY created_at DESC, rowid DESC", taskID)
	if err != nil {
		return nil, fmt.Errorf("list task activities: %w", err)
	}
	return activitiesToDomain(rows), nil
}

// ListActivitiesByProject returns a project's audit rows, newest first.
func (s *Store) ListActivitiesByProject(ctx context.Context, projectID string) ([]domain.Activity, error) {
	var rows []activityRow
	err := s.db.SelectContext(ctx, &rows,
		"SELECT * FROM activities WHERE project_id = ? ORDER BY created_at DESC, rowid DESC", projectID)
	if err != nil {
		return nil, fmt.Errorf("list project activities: %w", err)
	}
	return activitiesToDomain(rows), nil
}

// ListActivitiesByUser returns up to limit of a user's audit rows, newest
// first.
func (s *Store) ListActivitiesByUser(ctx context.Context, userID string, limit int) ([]domain.Activity, error) {
	var rows []activityRow
	err := s.db.SelectContext(ctx, &rows,
		"SELECT * FROM activities WHERE user_id = ? ORDER BY created_at DESC, rowid DESC LIMIT ?",
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list user activities: %w", err)
	}
	return activitiesToDomain(rows), nil
}

// ClearTaskRefs nulls the task reference on all audit rows pointing at the
// task.
func (s *Store) ClearTaskRefs(ctx context.Context, taskID string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE activities SET task_id = NULL WHERE task_id = ?", taskID)
	if err != nil {
		return fmt.Errorf("clear activity task refs: %w", err)
	}
	return nil
}

func activitiesToDomain(rows []activityRow) []domain.Activity {
	activities := make([]domain.Activity, 0, len(rows))
	for _, row := range rows {
		activities = append(activities, row.toDomain())
	}
	return activities
}
