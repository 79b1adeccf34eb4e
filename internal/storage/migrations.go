package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// Migration represents a database migration.
type Migration struct {
	Version int
	Name    string
	Up      string
}

// migrations holds all database migrations in order.
var migrations = []Migration{
	{
		Version: 1,
		Name:    "initial_schema",
		Up: `
			-- Users table
			CREATE TABLE IF NOT EXISTS users (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				email TEXT UNIQUE NOT NULL,
				password_hash TEXT NOT NULL,
				global_role TEXT NOT NULL DEFAULT 'member',
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL
			);

			-- Projects table
			CREATE TABLE IF NOT EXISTS projects (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				description TEXT,
				owner_id TEXT NOT NULL,
				visibility TEXT NOT NULL DEFAULT 'private',
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL,
				FOREIGN KEY (owner_id) REFERENCES users(id)
			);

			-- Direct permission grants (one row per project/user pair)
			CREATE TABLE IF NOT EXISTS project_permissions (
				project_id TEXT NOT NULL,
				user_id TEXT NOT NULL,
				email TEXT NOT NULL,
				role TEXT NOT NULL,
				granted_at DATETIME NOT NULL,
				granted_by TEXT NOT NULL,
				PRIMARY KEY (project_id, user_id),
				FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE,
				FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
			);

			-- Group permission grants (one row per project/group pair)
			CREATE TABLE IF NOT EXISTS project_group_permissions (
				project_id TEXT NOT NULL,
				group_id TEXT NOT NULL,
				role TEXT NOT NULL,
				granted_at DATETIME NOT NULL,
				granted_by TEXT NOT NULL,
				PRIMARY KEY (project_id, group_id),
				FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE,
				FOREIGN KEY (group_id) REFERENCES groups(id) ON DELETE CASCADE
			);

			-- Groups table
			CREATE TABLE IF NOT EXISTS groups (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				description TEXT,
				owner_id TEXT NOT NULL,
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL,
				FOREIGN KEY (owner_id) REFERENCES users(id)
			);

			-- Group membership roster (owner is implicit, never listed)
			CREATE TABLE IF NOT EXISTS group_members (
				group_id TEXT NOT NULL,
				user_id TEXT NOT NULL,
				added_at DATETIME NOT NULL,
				added_by TEXT NOT NULL,
				PRIMARY KEY (group_id, user_id),
				FOREIGN KEY (group_id) REFERENCES groups(id) ON DELETE CASCADE,
				FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
			);

			-- Custom field definitions
			CREATE TABLE IF NOT EXISTS field_definitions (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				key TEXT UNIQUE NOT NULL,
				type TEXT NOT NULL,
				required INTEGER NOT NULL DEFAULT 0,
				display_order INTEGER NOT NULL DEFAULT 0,
				options_json TEXT,
				default_json TEXT,
				validation_json TEXT,
				active INTEGER NOT NULL DEFAULT 1,
				description TEXT,
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL
			);

			-- Custom field values stored per project. Deleting a definition
			-- cascade-removes its values so field ids never dangle.
			CREATE TABLE IF NOT EXISTS project_field_values (
				project_id TEXT NOT NULL,
				field_id TEXT NOT NULL,
				value_json TEXT,
				PRIMARY KEY (project_id, field_id),
				FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE,
				FOREIGN KEY (field_id) REFERENCES field_definitions(id) ON DELETE CASCADE
			);

			-- Refresh tokens
			CREATE TABLE IF NOT EXISTS refresh_tokens (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL,
				token_hash TEXT UNIQUE NOT NULL,
				expires_at DATETIME NOT NULL,
				created_at DATETIME NOT NULL,
				revoked INTEGER NOT NULL DEFAULT 0,
				revoked_at DATETIME,
				FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
			);

			-- Indexes
			CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);
			CREATE INDEX IF NOT EXISTS idx_projects_owner ON projects(owner_id);
			CREATE INDEX IF NOT EXISTS idx_projects_visibility ON projects(visibility);
			CREATE INDEX IF NOT EXISTS idx_permissions_user ON project_permissions(user_id);
			CREATE INDEX IF NOT EXISTS idx_group_permissions_group ON project_group_permissions(group_id);
			CREATE INDEX IF NOT EXISTS idx_groups_owner ON groups(owner_id);
			CREATE INDEX IF NOT EXISTS idx_group_members_user ON group_members(user_id);
			CREATE INDEX IF NOT EXISTS idx_field_definitions_key ON field_definitions(key);
			CREATE INDEX IF NOT EXISTS idx_field_values_field ON project_field_values(field_id);
			CREATE INDEX IF NOT EXISTS idx_refresh_tokens_hash ON refresh_tokens(token_hash);
			CREATE INDEX IF NOT EXISTS idx_refresh_tokens_user ON refresh_tokens(user_id);
		`,
	},
}

// runMigrations applies all pending migrations.
func runMigrations(db *sql.DB) error {
	// Create migrations table if not exists
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at DATETIME NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	err = db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("get current version: %w", err)
	}

	// Apply pending migrations
	for _, m := range migrations {
		if m.Version <= currentVersion {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.Up); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration %d (%s): %w", m.Version, m.Name, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)",
			m.Version, m.Name, time.Now(),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}
