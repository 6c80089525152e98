package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/alexanderramin/ascent/internal/db"
	"github.com/alexanderramin/ascent/internal/domain"
)

// SQLiteTaskListRepo implements TaskListRepo using a SQLite database.
type SQLiteTaskListRepo struct {
	db db.DBTX
}

func NewSQLiteTaskListRepo(db db.DBTX) *SQLiteTaskListRepo {
	return &SQLiteTaskListRepo{db: db}
}

func (r *SQLiteTaskListRepo) Create(ctx context.Context, l *domain.TaskList) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO task_lists (id, owner_id, name, created_at) VALUES (?, ?, ?, ?)`,
		l.ID, l.OwnerID, l.Name, formatTime(l.CreatedAt))
	if err != nil {
		return fmt.Errorf("inserting task list: %w", err)
	}
	return nil
}

func (r *SQLiteTaskListRepo) GetByID(ctx context.Context, ownerID, id string) (*domain.TaskList, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, owner_id, name, created_at FROM task_lists WHERE owner_id = ? AND id = ?`, ownerID, id)
	l, err := scanTaskList(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("task list %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("scanning task list: %w", err)
	}
	return l, nil
}

func (r *SQLiteTaskListRepo) ListByOwner(ctx context.Context, ownerID string) ([]*domain.TaskList, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner_id, name, created_at FROM task_lists WHERE owner_id = ? ORDER BY created_at, name`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing task lists: %w", err)
	}
	defer rows.Close()

	var lists []*domain.TaskList
	for rows.Next() {
		l, err := scanTaskList(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning task list row: %w", err)
		}
		lists = append(lists, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating task lists: %w", err)
	}
	return lists, nil
}

func scanTaskList(row rowScanner) (*domain.TaskList, error) {
	var l domain.TaskList
	var createdAtStr string
	if err := row.Scan(&l.ID, &l.OwnerID, &l.Name, &createdAtStr); err != nil {
		return nil, err
	}
	var err error
	if l.CreatedAt, err = parseTime(createdAtStr); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	return &l, nil
}
