package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/ascent/internal/db"
	"github.com/alexanderramin/ascent/internal/domain"
)

// nodeColumns is the canonical SELECT column list for nodes.
const nodeColumns = `id, owner_id, parent_id, level, title, tag, position,
		locked, mandatory, completed, scheduled_move_at, target_list_id,
		duration_min, color, icon, scheduled_time,
		elapsed_sec, estimated_sec, running, started_at, ended_at,
		created_at, updated_at`

const levelDepthOrder = `CASE level
		WHEN 'range' THEN 0 WHEN 'mountain' THEN 1 WHEN 'hill' THEN 2
		WHEN 'terrain' THEN 3 WHEN 'length' THEN 4 WHEN 'step' THEN 5
		ELSE 6 END`

// SQLiteNodeRepo implements NodeRepo using a SQLite database.
type SQLiteNodeRepo struct {
	db db.DBTX
}

// NewSQLiteNodeRepo accepts the pool or a transaction.
func NewSQLiteNodeRepo(db db.DBTX) *SQLiteNodeRepo {
	return &SQLiteNodeRepo{db: db}
}

func (r *SQLiteNodeRepo) Create(ctx context.Context, n *domain.Node) error {
	query := `INSERT INTO nodes (` + nodeColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		n.ID,
		n.OwnerID,
		nullableString(n.ParentID),
		string(n.Level),
		n.Title,
		nullableString(n.Tag),
		n.Position,
		boolToInt(n.Locked),
		boolToInt(n.Mandatory),
		boolToInt(n.Completed),
		nullableTimeToString(n.ScheduledMoveAt),
		nullableString(n.TargetListID),
		n.DurationMin,
		n.Color,
		n.Icon,
		nullableString(n.ScheduledTime),
		n.ElapsedSec,
		n.EstimatedSec,
		boolToInt(n.Running),
		nullableTimeToString(n.StartedAt),
		nullableTimeToString(n.EndedAt),
		formatTime(n.CreatedAt),
		formatTime(n.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting node: %w", err)
	}
	return nil
}

func (r *SQLiteNodeRepo) GetByID(ctx context.Context, ownerID, id string) (*domain.Node, error) {
	query := `SELECT ` + nodeColumns + ` FROM nodes WHERE owner_id = ? AND id = ?`
	n, err := scanNode(r.db.QueryRowContext(ctx, query, ownerID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("node %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("scanning node: %w", err)
	}
	return n, nil
}

func (r *SQLiteNodeRepo) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Node, error) {
	query := `SELECT ` + nodeColumns + ` FROM nodes WHERE owner_id = ?
		ORDER BY ` + levelDepthOrder + `, parent_id, position`
	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing nodes by owner: %w", err)
	}
	defer rows.Close()
	return scanNodes(rows)
}

func (r *SQLiteNodeRepo) ListChildren(ctx context.Context, ownerID, parentID string) ([]*domain.Node, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if parentID == "" {
		rows, err = r.db.QueryContext(ctx, `SELECT `+nodeColumns+` FROM nodes
			WHERE owner_id = ? AND parent_id IS NULL ORDER BY position`, ownerID)
	} else {
		rows, err = r.db.QueryContext(ctx, `SELECT `+nodeColumns+` FROM nodes
			WHERE owner_id = ? AND parent_id = ? ORDER BY position`, ownerID, parentID)
	}
	if err != nil {
		return nil, fmt.Errorf("listing child nodes: %w", err)
	}
	defer rows.Close()
	return scanNodes(rows)
}

// UpdateFields writes only the column groups named by fields, plus
// updated_at. Structural columns (parent, level, position) are never touched
// here; positions change through UpdatePositions alone.
func (r *SQLiteNodeRepo) UpdateFields(ctx context.Context, n *domain.Node, fields ...NodeField) error {
	if len(fields) == 0 {
		return errors.New("updating node: no fields given")
	}
	var (
		set  []string
		args []any
	)
	add := func(col string, v any) {
		set = append(set, col+" = ?")
		args = append(args, v)
	}
	for _, f := range fields {
		switch f {
		case FieldTitle:
			add("title", n.Title)
		case FieldTag:
			add("tag", nullableString(n.Tag))
		case FieldCompleted:
			add("completed", boolToInt(n.Completed))
		case FieldSchedule:
			add("scheduled_move_at", nullableTimeToString(n.ScheduledMoveAt))
			add("target_list_id", nullableString(n.TargetListID))
		case FieldStepDetails:
			add("duration_min", n.DurationMin)
			add("color", n.Color)
			add("icon", n.Icon)
			add("scheduled_time", nullableString(n.ScheduledTime))
		case FieldBreathTimer:
			add("elapsed_sec", n.ElapsedSec)
			add("estimated_sec", n.EstimatedSec)
			add("running", boolToInt(n.Running))
			add("started_at", nullableTimeToString(n.StartedAt))
			add("ended_at", nullableTimeToString(n.EndedAt))
		default:
			return fmt.Errorf("updating node: unknown field %d", f)
		}
	}
	add("updated_at", formatTime(n.UpdatedAt))
	args = append(args, n.OwnerID, n.ID)

	query := `UPDATE nodes SET ` + strings.Join(set, ", ") + ` WHERE owner_id = ? AND id = ?`
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating node: %w", err)
	}
	return requireAffected(res, "node "+n.ID)
}

func (r *SQLiteNodeRepo) UpdatePositions(ctx context.Context, ownerID string, orderedIDs []string) error {
	now := formatTime(time.Now())
	for i, id := range orderedIDs {
		res, err := r.db.ExecContext(ctx,
			`UPDATE nodes SET position = ?, updated_at = ? WHERE owner_id = ? AND id = ?`,
			i, now, ownerID, id)
		if err != nil {
			return fmt.Errorf("updating position of node %s: %w", id, err)
		}
		if err := requireAffected(res, "node "+id); err != nil {
			return err
		}
	}
	return nil
}

func (r *SQLiteNodeRepo) Delete(ctx context.Context, ownerID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM nodes WHERE owner_id = ? AND id = ?`, ownerID, id)
	if err != nil {
		return fmt.Errorf("deleting node: %w", err)
	}
	return requireAffected(res, "node "+id)
}

func (r *SQLiteNodeRepo) ListStagedDue(ctx context.Context, asOf time.Time) ([]*domain.Node, error) {
	query := `SELECT ` + nodeColumns + ` FROM nodes
		WHERE level = 'step'
		  AND scheduled_move_at IS NOT NULL
		  AND scheduled_move_at <= ?
		  AND target_list_id IS NOT NULL
		ORDER BY scheduled_move_at, id`
	rows, err := r.db.QueryContext(ctx, query, formatTime(asOf))
	if err != nil {
		return nil, fmt.Errorf("listing staged steps: %w", err)
	}
	defer rows.Close()
	return scanNodes(rows)
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanNode(row rowScanner) (*domain.Node, error) {
	var n domain.Node
	var levelStr, createdAtStr, updatedAtStr string
	var parentID, tag, targetListID, scheduledTime sql.NullString
	var scheduledMoveAt, startedAt, endedAt sql.NullString
	var locked, mandatory, completed, running int

	err := row.Scan(
		&n.ID, &n.OwnerID, &parentID, &levelStr, &n.Title, &tag, &n.Position,
		&locked, &mandatory, &completed, &scheduledMoveAt, &targetListID,
		&n.DurationMin, &n.Color, &n.Icon, &scheduledTime,
		&n.ElapsedSec, &n.EstimatedSec, &running, &startedAt, &endedAt,
		&createdAtStr, &updatedAtStr,
	)
	if err != nil {
		return nil, err
	}

	n.Level = domain.Level(levelStr)
	n.ParentID = stringPtr(parentID)
	n.Tag = stringPtr(tag)
	n.TargetListID = stringPtr(targetListID)
	n.ScheduledTime = stringPtr(scheduledTime)
	n.Locked = intToBool(locked)
	n.Mandatory = intToBool(mandatory)
	n.Completed = intToBool(completed)
	n.Running = intToBool(running)
	n.ScheduledMoveAt = parseNullableTime(scheduledMoveAt)
	n.StartedAt = parseNullableTime(startedAt)
	n.EndedAt = parseNullableTime(endedAt)

	if n.CreatedAt, err = parseTime(createdAtStr); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if n.UpdatedAt, err = parseTime(updatedAtStr); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &n, nil
}

func scanNodes(rows *sql.Rows) ([]*domain.Node, error) {
	var nodes []*domain.Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning node row: %w", err)
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating nodes: %w", err)
	}
	return nodes, nil
}
