package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/taskdeck/taskdeck/internal/domain"
	"github.com/taskdeck/taskdeck/internal/storage"
)

type taskRow struct {
	ID           string         `db:"id"`
	Title        string         `db:"title"`
	Description  string         `db:"description"`
	Status       string         `db:"status"`
	Priority     string         `db:"priority"`
	DueDate      sql.NullInt64  `db:"due_date"`
	ProjectID    sql.NullString `db:"project_id"`
	CreatedByID  string         `db:"created_by_id"`
	AssignedToID sql.NullString `db:"assigned_to_id"`
	CreatedAt    int64          `db:"created_at"`
	UpdatedAt    int64          `db:"updated_at"`
}

func (r taskRow) toDomain() domain.Task {
	return domain.Task{
		ID:           r.ID,
		Title:        r.Title,
		Description:  r.Description,
		Status:       domain.TaskStatus(r.Status),
		Priority:     domain.TaskPriority(r.Priority),
		DueDate:      fromNullMillis(r.DueDate),
		ProjectID:    fromNullString(r.ProjectID),
		CreatedByID:  r.CreatedByID,
		AssignedToID: fromNullString(r.AssignedToID),
		CreatedAt:    fromMillis(r.CreatedAt),
		UpdatedAt:    fromMillis(r.UpdatedAt),
	}
}

// GetTask loads one task by id.
func (s *Store) GetTask(ctx context.Context, id string) (domain.Task, error) {
	var row taskRow
	err := s.db.GetContext(ctx, &row, "SELECT * FROM tasks WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Task{}, storage.ErrNotFound
	}
	if err != nil {
		return domain.Task{}, fmt.Errorf("get task: %w", err)
	}
	return row.toDomain(), nil
}

// ListTasks returns every task, newest first.
func (s *Store) ListTasks(ctx context.Context) ([]domain.Task, error) {
	var rows []taskRow
	err := s.db.SelectContext(ctx, &rows,
		"SELECT * FROM tasks ORDER BY created_at DESC, rowid DESC")
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasksToDomain(rows), nil
}

// ListTasksAccessibleTo returns tasks the user created or is assigned to,
// newest first.
func (s *Store) ListTasksAccessibleTo(ctx context.Context, userID string) ([]domain.Task, error) {
	var rows []taskRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT * FROM tasks
		WHERE created_by_id = ? OR assigned_to_id = ?
		ORDER BY created_at DESC, rowid DESC`,
		userID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list accessible tasks: %w", err)
	}
	return tasksToDomain(rows), nil
}

// ListTasksByProject returns every task in a project, newest first.
func (s *Store) ListTasksByProject(ctx context.Context, projectID string) ([]domain.Task, error) {
	var rows []taskRow
	err := s.db.SelectContext(ctx, &rows,
		"SELECT * FROM tasks WHERE project_id = ? ORDER BY created_at DESC, rowid DESC", projectID)
	if err != nil {
		return nil, fmt.Errorf("list project tasks: %w", err)
	}
	return tasksToDomain(rows), nil
}

// ListTasksByProjectAccessibleTo returns project tasks the user created or
// is assigned to, newest first.
func (s *Store) ListTasksByProjectAccessibleTo(ctx context.Context, projectID, userID string) ([]domain.Task, error) {
	var rows []taskRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT * FROM tasks
		WHERE project_id = ? AND (created_by_id = ? OR assigned_to_id = ?)
		ORDER BY created_at DESC, rowid DESC`,
		projectID, userID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list accessible project tasks: %w", err)
	}
	return tasksToDomain(rows), nil
}

// CountTasksByProject counts tasks in a project.
func (s *Store) CountTasksByProject(ctx context.Context, projectID string) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM tasks WHERE project_id = ?", projectID)
	if err != nil {
		return 0, fmt.Errorf("count project tasks: %w", err)
	}
	return count, nil
}

// SaveTaskWithActivities upserts the task and appends the audit rows in one
// transaction.
func (s *Store) SaveTaskWithActivities(ctx context.Context, task domain.Task, activities []domain.Activity) error {
	return s.inTx(func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO tasks (
				id, title, description, status, priority, due_date,
				project_id, created_by_id, assigned_to_id, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				title = excluded.title,
				description = excluded.description,
				status = excluded.status,
				priority = excluded.priority,
				due_date = excluded.due_date,
				project_id = excluded.project_id,
				assigned_to_id = excluded.assigned_to_id,
				updated_at = excluded.updated_at`,
			task.ID, task.Title, task.Description, string(task.Status), string(task.Priority),
			nullMillis(task.DueDate), nullString(task.ProjectID), task.CreatedByID,
			nullString(task.AssignedToID), toMillis(task.CreatedAt), toMillis(task.UpdatedAt),
		)
		if err != nil {
			return fmt.Errorf("save task: %w", err)
		}
		for _, activity := range activities {
			if err := insertActivity(ctx, tx, activity); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteTaskWithActivity removes the task and its comments, clears the task
// reference on surviving audit and notification rows, and appends the audit
// row, all in one transaction.
func (s *Store) DeleteTaskWithActivity(ctx context.Context, taskID string, activity domain.Activity) error {
	return s.inTx(func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"UPDATE activities SET task_id = NULL WHERE task_id = ?", taskID); err != nil {
			return fmt.Errorf("clear activity task refs: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE notifications SET task_id = NULL WHERE task_id = ?", taskID); err != nil {
			return fmt.Errorf("clear notification task refs: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM comments WHERE task_id = ?", taskID); err != nil {
			return fmt.Errorf("delete task comments: %w", err)
		}
		result, err := tx.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", taskID)
		if err != nil {
			return fmt.Errorf("delete task: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("delete task rows affected: %w", err)
		}
		if affected == 0 {
			return storage.ErrNotFound
		}
		return insertActivity(ctx, tx, activity)
	})
}

func tasksToDomain(rows []taskRow) []domain.Task {
	tasks := make([]domain.Task, 0, len(rows))
	for _, row := range rows {
		tasks = append(tasks, row.toDomain())
	}
	return tasks
}
