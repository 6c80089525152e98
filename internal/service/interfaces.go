package service

import (
	"context"
	"time"

	"github.com/alexanderramin/ascent/internal/domain"
)

// Hierarchy is the goal-tree surface the CLI consumes.
type Hierarchy interface {
	Load(ctx context.Context, forceRefresh bool) ([]*TreeNode, error)
	Node(id string) (*domain.Node, bool)
	Children(parentID string) []*domain.Node
	AddChild(ctx context.Context, parentID string, level domain.Level, title string) (*domain.Node, error)
	Reorder(ctx context.Context, parentID string, orderedChildIDs []string) error
	UpdateTag(ctx context.Context, nodeID string, tag *string) error
	Rename(ctx context.Context, nodeID, title string) error
	Remove(ctx context.Context, nodeID string) error
	ScheduleMove(ctx context.Context, stepID string, at time.Time, targetListID string) error
	ClearSchedule(ctx context.Context, stepID string) error
	SetCompleted(ctx context.Context, nodeID string, completed bool) error
	SetStepDetails(ctx context.Context, stepID string, details domain.StepDetails) error
	StartBreath(ctx context.Context, breathID string) error
	StopBreath(ctx context.Context, breathID string) error
	SetBreathEstimate(ctx context.Context, breathID string, estimate time.Duration) error
}

// Promoter migrates due staged steps into their target lists.
type Promoter interface {
	Run(ctx context.Context, asOf time.Time) (*PromotionReport, error)
	RunNow(ctx context.Context) (*PromotionReport, error)
}

var (
	_ Hierarchy = (*HierarchyStore)(nil)
	_ Promoter  = (*PromotionWorker)(nil)
)
