package db

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
)

// Migrate applies every schema migration newer than the recorded
// user_version. Each migration runs in its own transaction.
func Migrate(database *sql.DB) error {
	ctx := context.Background()

	var version int
	if err := database.QueryRowContext(ctx, `PRAGMA user_version`).Scan(&version); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	for i := version; i < len(migrations); i++ {
		if err := applyMigration(ctx, database, i); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	return nil
}

// SchemaVersion is the version a fully migrated database reports.
func SchemaVersion() int { return len(migrations) }

func applyMigration(ctx context.Context, database *sql.DB, i int) error {
	tx, err := database.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	for _, stmt := range migrations[i] {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	// PRAGMA does not accept bound parameters.
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`PRAGMA user_version = %d`, i+1)); err != nil {
		return fmt.Errorf("recording schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing: %w", err)
	}
	committed = true
	return nil
}

var migrations = [][]string{
	// 1: goal tree, task lists, tasks
	{
		`CREATE TABLE IF NOT EXISTS nodes (
			id                TEXT PRIMARY KEY,
			owner_id          TEXT NOT NULL,
			parent_id         TEXT REFERENCES nodes(id) ON DELETE CASCADE,
			level             TEXT NOT NULL
			                  CHECK(level IN ('range','mountain','hill','terrain','length','step','breath')),
			title             TEXT NOT NULL,
			tag               TEXT,
			position          INTEGER NOT NULL DEFAULT 0,
			locked            INTEGER NOT NULL DEFAULT 0,
			mandatory         INTEGER NOT NULL DEFAULT 0,
			completed         INTEGER NOT NULL DEFAULT 0,
			scheduled_move_at TEXT,
			target_list_id    TEXT,
			duration_min      INTEGER NOT NULL DEFAULT 0,
			color             TEXT NOT NULL DEFAULT '',
			icon              TEXT NOT NULL DEFAULT '',
			scheduled_time    TEXT,
			elapsed_sec       INTEGER NOT NULL DEFAULT 0,
			estimated_sec     INTEGER NOT NULL DEFAULT 0,
			running           INTEGER NOT NULL DEFAULT 0,
			started_at        TEXT,
			ended_at          TEXT,
			created_at        TEXT NOT NULL,
			updated_at        TEXT NOT NULL,
			CHECK(scheduled_move_at IS NULL OR target_list_id IS NOT NULL)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_nodes_owner ON nodes(owner_id)`,
		`CREATE INDEX IF NOT EXISTS idx_nodes_parent_position ON nodes(parent_id, position)`,
		`CREATE INDEX IF NOT EXISTS idx_nodes_staged ON nodes(scheduled_move_at) WHERE scheduled_move_at IS NOT NULL`,

		`CREATE TABLE IF NOT EXISTS task_lists (
			id         TEXT PRIMARY KEY,
			owner_id   TEXT NOT NULL,
			name       TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_task_lists_owner ON task_lists(owner_id)`,

		`CREATE TABLE IF NOT EXISTS tasks (
			id             TEXT PRIMARY KEY,
			owner_id       TEXT NOT NULL,
			list_id        TEXT NOT NULL REFERENCES task_lists(id) ON DELETE CASCADE,
			title          TEXT NOT NULL,
			duration_min   INTEGER NOT NULL DEFAULT 0,
			color          TEXT NOT NULL DEFAULT '',
			icon           TEXT NOT NULL DEFAULT '',
			position       INTEGER NOT NULL DEFAULT 0,
			completed      INTEGER NOT NULL DEFAULT 0,
			scheduled_time TEXT,
			source_step_id TEXT,
			created_at     TEXT NOT NULL,
			updated_at     TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_list_position ON tasks(list_id, position)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_tasks_source_step ON tasks(source_step_id) WHERE source_step_id IS NOT NULL`,
	},

	// 2: timestamps carry a fixed-width nanosecond fraction
	slices.Concat(
		widenTimestamps("nodes", "scheduled_move_at", "started_at", "ended_at", "created_at", "updated_at"),
		widenTimestamps("tasks", "created_at", "updated_at"),
		widenTimestamps("task_lists", "created_at"),
	),
}

// widenTimestamps rewrites second-precision UTC values such as
// 2024-01-01T09:00:00Z to 2024-01-01T09:00:00.000000000Z.
func widenTimestamps(table string, columns ...string) []string {
	stmts := make([]string, 0, len(columns))
	for _, c := range columns {
		stmts = append(stmts, fmt.Sprintf(
			`UPDATE %[1]s SET %[2]s = substr(%[2]s, 1, 19) || '.000000000Z'
			WHERE length(%[2]s) = 20 AND substr(%[2]s, 20, 1) = 'Z'`, table, c))
	}
	return stmts
}
