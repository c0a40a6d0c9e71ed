package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/taskdeck/taskdeck/internal/domain"
	"github.com/taskdeck/taskdeck/internal/storage"
)

type userRow struct {
	ID        string `db:"id"`
	Username  string `db:"username"`
	FullName  string `db:"full_name"`
	Email     string `db:"email"`
	Role      string `db:"role"`
	CreatedAt int64  `db:"created_at"`
}

func (r userRow) toDomain() domain.User {
	return domain.User{
		ID:        r.ID,
		Username:  r.Username,
		FullName:  r.FullName,
		Email:     r.Email,
		Role:      domain.Role(r.Role),
		CreatedAt: fromMillis(r.CreatedAt),
	}
}

// GetUser loads one user by id.
func (s *Store) GetUser(ctx context.Context, id string) (domain.User, error) {
	var row userRow
	err := s.db.GetContext(ctx, &row, "SELECT * FROM users WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, storage.ErrNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	return row.toDomain(), nil
}

// ListUsers returns every user ordered by username.
func (s *Store) ListUsers(ctx context.Context) ([]domain.User, error) {
	var rows []userRow
	if err := s.db.SelectContext(ctx, &rows, "SELECT * FROM users ORDER BY username"); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return usersToDomain(rows), nil
}

// ListUsersExcept returns every user except the given one, ordered by username.
func (s *Store) ListUsersExcept(ctx context.Context, id string) ([]domain.User, error) {
	var rows []userRow
	err := s.db.SelectContext(ctx, &rows, "SELECT * FROM users WHERE id != ? ORDER BY username", id)
	if err != nil {
		return nil, fmt.Errorf("list users except %s: %w", id, err)
	}
	return usersToDomain(rows), nil
}

// SaveUser upserts one user.
func (s *Store) SaveUser(ctx context.Context, user domain.User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, full_name, email, role, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			username = excluded.username,
			full_name = excluded.full_name,
			email = excluded.email,
			role = excluded.role`,
		user.ID, user.Username, user.FullName, user.Email, string(user.Role), toMillis(user.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

func usersToDomain(rows []userRow) []domain.User {
	users := make([]domain.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.toDomain())
	}
	return users
}
