package sqlite

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

type migration struct {
	version int
	name    string
	stmts   []string
}

var migrations = []migration{
	{
		version: 1,
		name:    "initial schema",
		stmts: []string{
			`CREATE TABLE users (
				id TEXT PRIMARY KEY,
				username TEXT NOT NULL UNIQUE,
				full_name TEXT NOT NULL,
				email TEXT NOT NULL,
				role TEXT NOT NULL,
				created_at INTEGER NOT NULL
			)`,
			`CREATE TABLE projects (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				owner_id TEXT NOT NULL REFERENCES users(id),
				manager_id TEXT REFERENCES users(id),
				created_at INTEGER NOT NULL,
				updated_at INTEGER NOT NULL
			)`,
			`CREATE TABLE project_members (
				project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
				user_id TEXT NOT NULL REFERENCES users(id),
				PRIMARY KEY (project_id, user_id)
			)`,
			`CREATE TABLE tasks (
				id TEXT PRIMARY KEY,
				title TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				status TEXT NOT NULL,
				priority TEXT NOT NULL,
				due_date INTEGER,
				project_id TEXT REFERENCES projects(id),
				created_by_id TEXT NOT NULL REFERENCES users(id),
				assigned_to_id TEXT REFERENCES users(id),
				created_at INTEGER NOT NULL,
				updated_at INTEGER NOT NULL
			)`,
			`CREATE INDEX idx_tasks_project ON tasks(project_id)`,
			`CREATE INDEX idx_tasks_created_by ON tasks(created_by_id)`,
			`CREATE INDEX idx_tasks_assigned_to ON tasks(assigned_to_id)`,
			`CREATE TABLE comments (
				id TEXT PRIMARY KEY,
				task_id TEXT NOT NULL REFERENCES tasks(id),
				author_id TEXT NOT NULL REFERENCES users(id),
				content TEXT NOT NULL,
				created_at INTEGER NOT NULL,
				updated_at INTEGER NOT NULL
			)`,
			`CREATE INDEX idx_comments_task ON comments(task_id)`,
			// Audit rows outlive the tasks and projects they reference, so
			// the references are plain columns cleared on delete, not
			// foreign keys.
			`CREATE TABLE activities (
				id TEXT PRIMARY KEY,
				type TEXT NOT NULL,
				description TEXT NOT NULL,
				user_id TEXT NOT NULL REFERENCES users(id),
				task_id TEXT,
				project_id TEXT,
				created_at INTEGER NOT NULL
			)`,
			`CREATE INDEX idx_activities_task ON activities(task_id)`,
			`CREATE INDEX idx_activities_project ON activities(project_id)`,
			`CREATE INDEX idx_activities_user ON activities(user_id)`,
			`CREATE INDEX idx_activities_created ON activities(created_at)`,
			`CREATE TABLE notifications (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL REFERENCES users(id),
				title TEXT NOT NULL,
				message TEXT NOT NULL,
				type TEXT NOT NULL,
				is_read INTEGER NOT NULL DEFAULT 0,
				task_id TEXT,
				project_id TEXT,
				created_at INTEGER NOT NULL
			)`,
			`CREATE INDEX idx_notifications_user ON notifications(user_id, is_read)`,
		},
	},
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *Store) runMigrations() error {
	if _, err := s.db.Exec(
		`CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at INTEGER NOT NULL
		)`,
	); err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var currentVersion int
	if err := s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version"); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		err := s.inTx(func(tx *sqlx.Tx) error {
			for _, stmt := range m.stmts {
				if _, err := tx.Exec(stmt); err != nil {
					return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
				}
			}
			_, err := tx.Exec(
				"INSERT INTO schema_version (version, name, applied_at) VALUES (?, ?, strftime('%s','now')*1000)",
				m.version, m.name,
			)
			return err
		})
		if err != nil {
			return err
		}
	}
	return nil
}
