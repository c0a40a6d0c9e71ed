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

type projectRow struct {
	ID          string         `db:"id"`
	Name        string         `db:"name"`
	Description string         `db:"description"`
	OwnerID     string         `db:"owner_id"`
	ManagerID   sql.NullString `db:"manager_id"`
	CreatedAt   int64          `db:"created_at"`
	UpdatedAt   int64          `db:"updated_at"`
}

func (r projectRow) toDomain(memberIDs []string) domain.Project {
	return domain.Project{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		OwnerID:     r.OwnerID,
		ManagerID:   fromNullString(r.ManagerID),
		MemberIDs:   memberIDs,
		CreatedAt:   fromMillis(r.CreatedAt),
		UpdatedAt:   fromMillis(r.UpdatedAt),
	}
}

// GetProject loads one project with its member set.
func (s *Store) GetProject(ctx context.Context, id string) (domain.Project, error) {
	var row projectRow
	err := s.db.GetContext(ctx, &row, "SELECT * FROM projects WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Project{}, storage.ErrNotFound
	}
	if err != nil {
		return domain.Project{}, fmt.Errorf("get project: %w", err)
	}
	members, err := s.projectMembers(ctx, id)
	if err != nil {
		return domain.Project{}, err
	}
	return row.toDomain(members), nil
}

// ListProjects returns every project, newest first.
func (s *Store) ListProjects(ctx context.Context) ([]domain.Project, error) {
	var rows []projectRow
	err := s.db.SelectContext(ctx, &rows,
		"SELECT * FROM projects ORDER BY created_at DESC, rowid DESC")
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return s.projectsToDomain(ctx, rows)
}

// ListProjectsAccessibleTo returns projects the user owns or is a member
// of, newest first.
func (s *Store) ListProjectsAccessibleTo(ctx context.Context, userID string) ([]domain.Project, error) {
	var rows []projectRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT p.* FROM projects p
		WHERE p.owner_id = ?
		   OR EXISTS (
			SELECT 1 FROM project_members m
			WHERE m.project_id = p.id AND m.user_id = ?
		   )
		ORDER BY p.created_at DESC, p.rowid DESC`,
		userID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list accessible projects: %w", err)
	}
	return s.projectsToDomain(ctx, rows)
}

// SaveProjectWithActivities upserts the project, replaces its member set,
// and appends the audit rows in one transaction.
func (s *Store) SaveProjectWithActivities(ctx context.Context, project domain.Project, activities []domain.Activity) error {
	return s.inTx(func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO projects (id, name, description, owner_id, manager_id, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				description = excluded.description,
				manager_id = excluded.manager_id,
				updated_at = excluded.updated_at`,
			project.ID, project.Name, project.Description, project.OwnerID,
			nullString(project.ManagerID), toMillis(project.CreatedAt), toMillis(project.UpdatedAt),
		)
		if err != nil {
			return fmt.Errorf("save project: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM project_members WHERE project_id = ?", project.ID); err != nil {
			return fmt.Errorf("clear project members: %w", err)
		}
		for _, memberID := range project.MemberIDs {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO project_members (project_id, user_id) VALUES (?, ?)",
				project.ID, memberID); err != nil {
				return fmt.Errorf("insert project member: %w", err)
			}
		}
		for _, activity := range activities {
			if err := insertActivity(ctx, tx, activity); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteProjectWithActivity removes the project, detaches rows that
// reference it, and appends the audit row, all in one transaction. The
// audit row itself must not reference the deleted project.
func (s *Store) DeleteProjectWithActivity(ctx context.Context, projectID string, activity domain.Activity) error {
	return s.inTx(func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"UPDATE tasks SET project_id = NULL WHERE project_id = ?", projectID); err != nil {
			return fmt.Errorf("detach project tasks: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE activities SET project_id = NULL WHERE project_id = ?", projectID); err != nil {
			return fmt.Errorf("clear activity project refs: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE notifications SET project_id = NULL WHERE project_id = ?", projectID); err != nil {
			return fmt.Errorf("clear notification project refs: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM project_members WHERE project_id = ?", projectID); err != nil {
			return fmt.Errorf("delete project members: %w", err)
		}
		result, err := tx.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", projectID)
		if err != nil {
			return fmt.Errorf("delete project: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("delete project rows affected: %w", err)
		}
		if affected == 0 {
			return storage.ErrNotFound
		}
		return insertActivity(ctx, tx, activity)
	})
}

func (s *Store) projectMembers(ctx context.Context, projectID string) ([]string, error) {
	var memberIDs []string
	err := s.db.SelectContext(ctx, &memberIDs,
		"SELECT user_id FROM project_members WHERE project_id = ? ORDER BY user_id", projectID)
	if err != nil {
		return nil, fmt.Errorf("list project members: %w", err)
	}
	return memberIDs, nil
}

func (s *Store) projectsToDomain(ctx context.Context, rows []projectRow) ([]domain.Project, error) {
	projects := make([]domain.Project, 0, len(rows))
	for _, row := range rows {
		members, err := s.projectMembers(ctx, row.ID)
		if err != nil {
			return nil, err
		}
		projects = append(projects, row.toDomain(members))
	}
	return projects, nil
}
