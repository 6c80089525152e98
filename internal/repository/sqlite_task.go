package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/alexanderramin/ascent/internal/db"
	"github.com/alexanderramin/ascent/internal/domain"
)

const taskColumns = `id, owner_id, list_id, title, duration_min, color, icon, position,
		completed, scheduled_time, source_step_id, created_at, updated_at`

// SQLiteTaskRepo implements TaskRepo using a SQLite database.
type SQLiteTaskRepo struct {
	db db.DBTX
}

func NewSQLiteTaskRepo(db db.DBTX) *SQLiteTaskRepo {
	return &SQLiteTaskRepo{db: db}
}

func (r *SQLiteTaskRepo) Create(ctx context.Context, t *domain.Task) error {
	query := `INSERT INTO tasks (` + taskColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		t.ID,
		t.OwnerID,
		t.ListID,
		t.Title,
		t.DurationMin,
		t.Color,
		t.Icon,
		t.Position,
		boolToInt(t.Completed),
		nullableString(t.ScheduledTime),
		nullableString(t.SourceStepID),
		formatTime(t.CreatedAt),
		formatTime(t.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting task: %w", err)
	}
	return nil
}

func (r *SQLiteTaskRepo) GetByID(ctx context.Context, ownerID, id string) (*domain.Task, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE owner_id = ? AND id = ?`, ownerID, id)
	return scanTaskRow(row, "task "+id)
}

func (r *SQLiteTaskRepo) GetBySourceStep(ctx context.Context, stepID string) (*domain.Task, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE source_step_id = ?`, stepID)
	return scanTaskRow(row, "task from step "+stepID)
}

func (r *SQLiteTaskRepo) ListByList(ctx context.Context, ownerID, listID string) ([]*domain.Task, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks
		WHERE owner_id = ? AND list_id = ? ORDER BY position, created_at, id`, ownerID, listID)
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning task row: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tasks: %w", err)
	}
	return tasks, nil
}

func (r *SQLiteTaskRepo) Update(ctx context.Context, t *domain.Task) error {
	res, err := r.db.ExecContext(ctx, `UPDATE tasks SET list_id = ?, title = ?, duration_min = ?,
		color = ?, icon = ?, position = ?, completed = ?, scheduled_time = ?, updated_at = ?
		WHERE owner_id = ? AND id = ?`,
		t.ListID, t.Title, t.DurationMin, t.Color, t.Icon, t.Position,
		boolToInt(t.Completed), nullableString(t.ScheduledTime), formatTime(t.UpdatedAt),
		t.OwnerID, t.ID,
	)
	if err != nil {
		return fmt.Errorf("updating task: %w", err)
	}
	return requireAffected(res, "task "+t.ID)
}

func (r *SQLiteTaskRepo) Delete(ctx context.Context, ownerID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE owner_id = ? AND id = ?`, ownerID, id)
	if err != nil {
		return fmt.Errorf("deleting task: %w", err)
	}
	return requireAffected(res, "task "+id)
}

func (r *SQLiteTaskRepo) NormalizePositions(ctx context.Context, listID string) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id FROM tasks WHERE list_id = ? ORDER BY position, created_at, id`, listID)
	if err != nil {
		return fmt.Errorf("listing tasks for normalization: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("scanning task id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating task ids: %w", err)
	}

	for i, id := range ids {
		if _, err := r.db.ExecContext(ctx,
			`UPDATE tasks SET position = ? WHERE id = ? AND position != ?`, i, id, i); err != nil {
			return fmt.Errorf("renumbering task %s: %w", id, err)
		}
	}
	return nil
}

func scanTaskRow(row *sql.Row, what string) (*domain.Task, error) {
	t, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", what, ErrNotFound)
		}
		return nil, fmt.Errorf("scanning task: %w", err)
	}
	return t, nil
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var t domain.Task
	var scheduledTime, sourceStepID sql.NullString
	var createdAtStr, updatedAtStr string
	var completed int

	err := row.Scan(
		&t.ID, &t.OwnerID, &t.ListID, &t.Title, &t.DurationMin, &t.Color, &t.Icon, &t.Position,
		&completed, &scheduledTime, &sourceStepID, &createdAtStr, &updatedAtStr,
	)
	if err != nil {
		return nil, err
	}
	t.Completed = intToBool(completed)
	t.ScheduledTime = stringPtr(scheduledTime)
	t.SourceStepID = stringPtr(sourceStepID)
	if t.CreatedAt, err = parseTime(createdAtStr); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if t.UpdatedAt, err = parseTime(updatedAtStr); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &t, nil
}
