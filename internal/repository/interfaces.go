package repository

import (
	"context"
	"time"

	"github.com/alexanderramin/ascent/internal/domain"
)

// NodeRepo stores the flat goal tree. Every call except ListStagedDue is
// scoped to one owner.
type NodeRepo interface {
	Create(ctx context.Context, n *domain.Node) error
	GetByID(ctx context.Context, ownerID, id string) (*domain.Node, error)
	// ListByOwner returns every node of the owner ordered by level depth,
	// parent and position.
	ListByOwner(ctx context.Context, ownerID string) ([]*domain.Node, error)
	// ListChildren returns the ordered children of parentID; an empty
	// parentID lists the owner's ranges.
	ListChildren(ctx context.Context, ownerID, parentID string) ([]*domain.Node, error)
	// UpdateFields writes the named column groups of n and its updated_at.
	UpdateFields(ctx context.Context, n *domain.Node, fields ...NodeField) error
	// UpdatePositions sets position = index for every id.
	UpdatePositions(ctx context.Context, ownerID string, orderedIDs []string) error
	// Delete removes the node and, through the foreign key, its subtree.
	Delete(ctx context.Context, ownerID, id string) error
	// ListStagedDue returns, across owners, every step whose trigger time is
	// at or before asOf and that names a target list.
	ListStagedDue(ctx context.Context, asOf time.Time) ([]*domain.Node, error)
}

// NodeField names a group of node columns written together by
// NodeRepo.UpdateFields.
type NodeField int

const (
	FieldTitle NodeField = iota + 1
	FieldTag
	FieldCompleted
	// FieldSchedule is the trigger time and target list of a staged step.
	FieldSchedule
	// FieldStepDetails is a step's duration, color, icon and time of day.
	FieldStepDetails
	// FieldBreathTimer is a breath's elapsed, estimated, running, start and
	// end fields.
	FieldBreathTimer
)

type TaskRepo interface {
	Create(ctx context.Context, t *domain.Task) error
	GetByID(ctx context.Context, ownerID, id string) (*domain.Task, error)
	GetBySourceStep(ctx context.Context, stepID string) (*domain.Task, error)
	ListByList(ctx context.Context, ownerID, listID string) ([]*domain.Task, error)
	Update(ctx context.Context, t *domain.Task) error
	Delete(ctx context.Context, ownerID, id string) error
	// NormalizePositions renumbers a list's tasks to 0..n-1 keeping order.
	NormalizePositions(ctx context.Context, listID string) error
}

type TaskListRepo interface {
	Create(ctx context.Context, l *domain.TaskList) error
	GetByID(ctx context.Context, ownerID, id string) (*domain.TaskList, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*domain.TaskList, error)
}
