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

type commentRow struct {
	ID        string `db:"id"`
	TaskID    string `db:"task_id"`
	AuthorID  string `db:"author_id"`
	Content   string `db:"content"`
	CreatedAt int64  `db:"created_at"`
	UpdatedAt int64  `db:"updated_at"`
}

func (r commentRow) toDomain() domain.Comment {
	return domain.Comment{
		ID:        r.ID,
		TaskID:    r.TaskID,
		AuthorID:  r.AuthorID,
		Content:   r.Content,
		CreatedAt: fromMillis(r.CreatedAt),
		UpdatedAt: fromMillis(r.UpdatedAt),
	}
}

// GetComment loads one comment by id.
func (s *Store) GetComment(ctx context.Context, id string) (domain.Comment, error) {
	var row commentRow
	err := s.db.GetContext(ctx, &row, "SELECT * FROM comments WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Comment{}, storage.ErrNotFound
	}
	if err != nil {
		return domain.Comment{}, fmt.Errorf("get comment: %w", err)
	}
	return row.toDomain(), nil
}

// ListCommentsByTask returns a task's comments, newest first.
func (s *Store) ListCommentsByTask(ctx context.Context, taskID string) ([]domain.Comment, error) {
	var rows []commentRow
	err := s.db.SelectContext(ctx, &rows,
		"SELECT * FROM comments WHERE task_id = ? ORDER BY created_at DESC, rowid DESC", taskID)
	if err != nil {
		return nil, fmt.Errorf("list task comments: %w", err)
	}
	comments := make([]domain.Comment, 0, len(rows))
	for _, row := range rows {
		comments = append(comments, row.toDomain())
	}
	return comments, nil
}

// SaveCommentWithActivity inserts the comment and its audit row in one
// transaction.
func (s *Store) SaveCommentWithActivity(ctx context.Context, comment domain.Comment, activity domain.Activity) error {
	return s.inTx(func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO comments (id, task_id, author_id, content, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			comment.ID, comment.TaskID, comment.AuthorID, comment.Content,
			toMillis(comment.CreatedAt), toMillis(comment.UpdatedAt),
		)
		if err != nil {
			return fmt.Errorf("save comment: %w", err)
		}
		return insertActivity(ctx, tx, activity)
	})
}

// DeleteComment removes one comment.
func (s *Store) DeleteComment(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM comments WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete comment rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}
