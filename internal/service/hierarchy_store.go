package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/alexanderramin/ascent/internal/db"
	"github.com/alexanderramin/ascent/internal/domain"
	"github.com/alexanderramin/ascent/internal/repository"
	"github.com/alexanderramin/ascent/internal/timeutil"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrStaleLoad is returned by a load whose result was discarded because
	// the store was closed or invalidated while the fetch was in flight.
	ErrStaleLoad = errors.New("hierarchy load discarded: store changed while fetching")

	// ErrStoreClosed is returned by every operation after Close.
	ErrStoreClosed = errors.New("hierarchy store closed")
)

// TreeNode is a read-only snapshot of one node and its ordered subtree.
type TreeNode struct {
	Node     domain.Node
	Children []*TreeNode
}

// HierarchyStore keeps one owner's goal tree in memory as a flat arena of
// nodes plus a parent index, writing every mutation to storage before it is
// applied locally.
type HierarchyStore struct {
	owner    string
	nodes    repository.NodeRepo
	uow      db.UnitOfWork
	txNodes  func(db.DBTX) repository.NodeRepo
	clock    timeutil.Clock
	newID    func() string
	observer UseCaseObserver

	mu       sync.RWMutex
	arena    map[string]*domain.Node
	children map[string][]string // parent id ("" for ranges) -> ordered child ids
	loaded   bool
	gen      uint64
	closed   bool

	loads singleflight.Group

	parentMu    sync.Mutex
	parentLocks map[string]*sync.Mutex
}

// StoreOption configures a HierarchyStore.
type StoreOption func(*HierarchyStore)

func WithStoreClock(c timeutil.Clock) StoreOption {
	return func(s *HierarchyStore) {
		s.clock = c
	}
}

func WithStoreObserver(o UseCaseObserver) StoreOption {
	return func(s *HierarchyStore) {
		s.observer = useCaseObserverOrNoop([]UseCaseObserver{o})
	}
}

func WithStoreIDGenerator(fn func() string) StoreOption {
	return func(s *HierarchyStore) {
		s.newID = fn
	}
}

func NewHierarchyStore(owner string, nodes repository.NodeRepo, uow db.UnitOfWork, opts ...StoreOption) *HierarchyStore {
	s := &HierarchyStore{
		owner:       owner,
		nodes:       nodes,
		uow:         uow,
		txNodes:     func(tx db.DBTX) repository.NodeRepo { return repository.NewSQLiteNodeRepo(tx) },
		clock:       timeutil.SystemClock{},
		newID:       func() string { return uuid.New().String() },
		observer:    NoopUseCaseObserver{},
		arena:       make(map[string]*domain.Node),
		children:    make(map[string][]string),
		parentLocks: make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Owner returns the owner id every operation is scoped to.
func (s *HierarchyStore) Owner() string { return s.owner }

// Load fetches the owner's tree. The first call hits storage; later calls
// return the cached tree unless forceRefresh is set. Concurrent callers share
// a single in-flight fetch.
func (s *HierarchyStore) Load(ctx context.Context, forceRefresh bool) (tree []*TreeNode, err error) {
	defer s.observe(ctx, "load-hierarchy", time.Now(), map[string]any{"force": forceRefresh}, &err)

	s.mu.RLock()
	closed, loaded := s.closed, s.loaded
	s.mu.RUnlock()
	if closed {
		return nil, ErrStoreClosed
	}
	if loaded && !forceRefresh {
		return s.Snapshot(), nil
	}

	if _, err, _ = s.loads.Do("load", func() (any, error) {
		return nil, s.fetch(ctx)
	}); err != nil {
		return nil, err
	}
	return s.Snapshot(), nil
}

func (s *HierarchyStore) fetch(ctx context.Context) error {
	s.mu.RLock()
	gen := s.gen
	s.mu.RUnlock()

	nodes, err := s.nodes.ListByOwner(ctx, s.owner)
	if err != nil {
		return domain.NewStorageError("loading hierarchy", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.gen != gen {
		return ErrStaleLoad
	}
	s.arena = make(map[string]*domain.Node, len(nodes))
	s.children = make(map[string][]string)
	for _, n := range nodes {
		s.arena[n.ID] = n
	}
	// ListByOwner orders by depth, parent, position, so appending keeps
	// sibling order.
	for _, n := range nodes {
		key := n.ParentKey()
		if key != "" {
			if _, ok := s.arena[key]; !ok {
				continue
			}
		}
		s.children[key] = append(s.children[key], n.ID)
	}
	s.loaded = true
	return nil
}

// Invalidate discards the cached tree. An in-flight load started before the
// call returns ErrStaleLoad, and the next Load refetches.
func (s *HierarchyStore) Invalidate() {
	s.mu.Lock()
	s.gen++
	s.loaded = false
	s.arena = make(map[string]*domain.Node)
	s.children = make(map[string][]string)
	s.mu.Unlock()
}

// Close marks the store unusable and discards any in-flight load.
func (s *HierarchyStore) Close() {
	s.mu.Lock()
	s.gen++
	s.closed = true
	s.mu.Unlock()
}

// Snapshot returns a deep copy of the cached tree.
func (s *HierarchyStore) Snapshot() []*TreeNode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.buildTree("")
}

func (s *HierarchyStore) buildTree(parentID string) []*TreeNode {
	ids := s.children[parentID]
	out := make([]*TreeNode, 0, len(ids))
	for _, id := range ids {
		out = append(out, &TreeNode{
			Node:     *s.arena[id],
			Children: s.buildTree(id),
		})
	}
	return out
}

// Node returns a copy of the cached node.
func (s *HierarchyStore) Node(id string) (*domain.Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.arena[id]
	if !ok {
		return nil, false
	}
	cp := *n
	return &cp, true
}

// Children returns copies of parentID's children in position order. An empty
// parentID lists the ranges.
func (s *HierarchyStore) Children(parentID string) []*domain.Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.children[parentID]
	out := make([]*domain.Node, 0, len(ids))
	for _, id := range ids {
		cp := *s.arena[id]
		out = append(out, &cp)
	}
	return out
}

// AddChild creates a node at the end of parentID's children. Ranges are
// created with an empty parentID.
func (s *HierarchyStore) AddChild(ctx context.Context, parentID string, level domain.Level, title string) (child *domain.Node, err error) {
	defer s.observe(ctx, "add-child", time.Now(), map[string]any{"parent_id": parentID, "level": string(level)}, &err)

	if err = s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	if !level.Valid() {
		return nil, domain.NewValidationError("level", fmt.Sprintf("unknown level %q", level))
	}

	unlock := s.lockParent(parentID)
	defer unlock()

	s.mu.RLock()
	parent, parentOK := s.arena[parentID]
	position := len(s.children[parentID])
	s.mu.RUnlock()

	now := s.clock.Now()
	child = &domain.Node{
		ID:        s.newID(),
		OwnerID:   s.owner,
		Level:     level,
		Title:     title,
		Position:  position,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if parentID != "" {
		if !parentOK {
			return nil, fmt.Errorf("parent %s: %w", parentID, repository.ErrNotFound)
		}
		if !domain.CanParent(parent.Level, level) {
			return nil, domain.NewValidationError("level",
				fmt.Sprintf("a %s cannot contain a %s", parent.Level, level))
		}
		p := parentID
		child.ParentID = &p
	}
	if err = child.Validate(); err != nil {
		return nil, err
	}

	if err = s.nodes.Create(ctx, child); err != nil {
		return nil, domain.NewStorageError("adding child", err)
	}

	s.mu.Lock()
	s.arena[child.ID] = child
	s.children[parentID] = append(s.children[parentID], child.ID)
	s.mu.Unlock()

	cp := *child
	return &cp, nil
}

// Reorder rewrites the position of every child of parentID to its index in
// orderedChildIDs, which must be a permutation of the current children.
// Reorders of the same parent are serialized; the last to commit wins.
func (s *HierarchyStore) Reorder(ctx context.Context, parentID string, orderedChildIDs []string) (err error) {
	defer s.observe(ctx, "reorder", time.Now(), map[string]any{"parent_id": parentID, "count": len(orderedChildIDs)}, &err)

	if err = s.ensureLoaded(ctx); err != nil {
		return err
	}

	unlock := s.lockParent(parentID)
	defer unlock()

	s.mu.RLock()
	_, parentOK := s.arena[parentID]
	current := append([]string(nil), s.children[parentID]...)
	s.mu.RUnlock()

	if parentID != "" && !parentOK {
		return fmt.Errorf("parent %s: %w", parentID, repository.ErrNotFound)
	}
	if err = checkPermutation(current, orderedChildIDs); err != nil {
		return err
	}

	ordered := append([]string(nil), orderedChildIDs...)
	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		return s.txNodes(tx).UpdatePositions(ctx, s.owner, ordered)
	})
	if err != nil {
		return domain.NewStorageError("reordering children", err)
	}

	now := s.clock.Now()
	s.mu.Lock()
	s.children[parentID] = ordered
	for i, id := range ordered {
		if n, ok := s.arena[id]; ok {
			n.Position = i
			n.UpdatedAt = now
		}
	}
	s.mu.Unlock()
	return nil
}

func checkPermutation(current, ordered []string) error {
	if len(ordered) != len(current) {
		return domain.NewValidationError("ordered_ids",
			fmt.Sprintf("expected %d child ids, got %d", len(current), len(ordered)))
	}
	want := make(map[string]bool, len(current))
	for _, id := range current {
		want[id] = true
	}
	seen := make(map[string]bool, len(ordered))
	for _, id := range ordered {
		if !want[id] {
			return domain.NewValidationError("ordered_ids", fmt.Sprintf("%s is not a child of this parent", id))
		}
		if seen[id] {
			return domain.NewValidationError("ordered_ids", fmt.Sprintf("%s listed more than once", id))
		}
		seen[id] = true
	}
	return nil
}

// UpdateTag sets or clears (nil) the tag of a Mountain, Hill or Terrain.
func (s *HierarchyStore) UpdateTag(ctx context.Context, nodeID string, tag *string) (err error) {
	defer s.observe(ctx, "update-tag", time.Now(), map[string]any{"node_id": nodeID, "clear": tag == nil}, &err)

	return s.updateNode(ctx, nodeID, "updating tag", []repository.NodeField{repository.FieldTag}, func(n *domain.Node) error {
		if tag != nil {
			t := *tag
			n.Tag = &t
		} else {
			n.Tag = nil
		}
		return nil
	})
}

func (s *HierarchyStore) Rename(ctx context.Context, nodeID, title string) (err error) {
	defer s.observe(ctx, "rename", time.Now(), map[string]any{"node_id": nodeID}, &err)

	return s.updateNode(ctx, nodeID, "renaming node", []repository.NodeField{repository.FieldTitle}, func(n *domain.Node) error {
		n.Title = title
		return nil
	})
}

// ScheduleMove stages a step for promotion into targetListID at the given
// trigger time.
func (s *HierarchyStore) ScheduleMove(ctx context.Context, stepID string, at time.Time, targetListID string) (err error) {
	defer s.observe(ctx, "schedule-move", time.Now(), map[string]any{"node_id": stepID, "list_id": targetListID}, &err)

	return s.updateNode(ctx, stepID, "scheduling move", []repository.NodeField{repository.FieldSchedule}, func(n *domain.Node) error {
		if err := requireLevel(n, domain.LevelStep, "scheduled"); err != nil {
			return err
		}
		if targetListID == "" {
			return domain.NewValidationError("target_list_id", "a scheduled step requires a target list")
		}
		trigger := at.UTC()
		list := targetListID
		n.ScheduledMoveAt = &trigger
		n.TargetListID = &list
		return nil
	})
}

// ClearSchedule removes a step from staging.
func (s *HierarchyStore) ClearSchedule(ctx context.Context, stepID string) (err error) {
	defer s.observe(ctx, "clear-schedule", time.Now(), map[string]any{"node_id": stepID}, &err)

	return s.updateNode(ctx, stepID, "clearing schedule", []repository.NodeField{repository.FieldSchedule}, func(n *domain.Node) error {
		if err := requireLevel(n, domain.LevelStep, "scheduled"); err != nil {
			return err
		}
		n.ScheduledMoveAt = nil
		n.TargetListID = nil
		return nil
	})
}

// SetCompleted toggles completion of a Step or Breath.
func (s *HierarchyStore) SetCompleted(ctx context.Context, nodeID string, completed bool) (err error) {
	defer s.observe(ctx, "set-completed", time.Now(), map[string]any{"node_id": nodeID, "completed": completed}, &err)

	return s.updateNode(ctx, nodeID, "updating completion", []repository.NodeField{repository.FieldCompleted}, func(n *domain.Node) error {
		if n.Level != domain.LevelStep && n.Level != domain.LevelBreath {
			return domain.NewValidationError("level", fmt.Sprintf("a %s cannot be completed", n.Level))
		}
		n.Completed = completed
		return nil
	})
}

// SetStepDetails replaces the duration, color, icon and time of day a step
// hands to its task when promoted.
func (s *HierarchyStore) SetStepDetails(ctx context.Context, stepID string, details domain.StepDetails) (err error) {
	defer s.observe(ctx, "set-step-details", time.Now(), map[string]any{"node_id": stepID, "duration_min": details.DurationMin}, &err)

	return s.updateNode(ctx, stepID, "updating step details", []repository.NodeField{repository.FieldStepDetails}, func(n *domain.Node) error {
		if err := requireLevel(n, domain.LevelStep, "given step details"); err != nil {
			return err
		}
		details.Apply(n)
		return nil
	})
}

// StartBreath starts a breath's timer. Starting a running breath is a
// validation error.
func (s *HierarchyStore) StartBreath(ctx context.Context, breathID string) (err error) {
	defer s.observe(ctx, "start-breath", time.Now(), map[string]any{"node_id": breathID}, &err)

	return s.updateNode(ctx, breathID, "starting breath", []repository.NodeField{repository.FieldBreathTimer}, func(n *domain.Node) error {
		if err := requireLevel(n, domain.LevelBreath, "timed"); err != nil {
			return err
		}
		if n.Running {
			return domain.NewValidationError("running", "breath is already running")
		}
		now := s.clock.Now()
		n.Running = true
		n.StartedAt = &now
		n.EndedAt = nil
		return nil
	})
}

// StopBreath stops a running breath and adds the run to its elapsed time.
func (s *HierarchyStore) StopBreath(ctx context.Context, breathID string) (err error) {
	defer s.observe(ctx, "stop-breath", time.Now(), map[string]any{"node_id": breathID}, &err)

	return s.updateNode(ctx, breathID, "stopping breath", []repository.NodeField{repository.FieldBreathTimer}, func(n *domain.Node) error {
		if err := requireLevel(n, domain.LevelBreath, "timed"); err != nil {
			return err
		}
		if !n.Running {
			return domain.NewValidationError("running", "breath is not running")
		}
		now := s.clock.Now()
		if n.StartedAt != nil && now.After(*n.StartedAt) {
			n.ElapsedSec += int(now.Sub(*n.StartedAt) / time.Second)
		}
		n.Running = false
		n.EndedAt = &now
		return nil
	})
}

// SetBreathEstimate records how long a breath is expected to take.
func (s *HierarchyStore) SetBreathEstimate(ctx context.Context, breathID string, estimate time.Duration) (err error) {
	defer s.observe(ctx, "set-breath-estimate", time.Now(), map[string]any{"node_id": breathID, "estimate": estimate.String()}, &err)

	return s.updateNode(ctx, breathID, "estimating breath", []repository.NodeField{repository.FieldBreathTimer}, func(n *domain.Node) error {
		if err := requireLevel(n, domain.LevelBreath, "timed"); err != nil {
			return err
		}
		if estimate < 0 {
			return domain.NewValidationError("estimated_sec", "estimate must not be negative")
		}
		n.EstimatedSec = int(estimate / time.Second)
		return nil
	})
}

func requireLevel(n *domain.Node, want domain.Level, verb string) error {
	if n.Level != want {
		return domain.NewValidationError("level", fmt.Sprintf("a %s cannot be %s", n.Level, verb))
	}
	return nil
}

// updateNode applies mutate to a copy of the cached node, validates it and
// writes only the given column groups. On success those groups are copied
// into the cached node; its parent and position are left as they are now,
// since a reorder or remove may have committed in the meantime.
func (s *HierarchyStore) updateNode(ctx context.Context, nodeID, op string, fields []repository.NodeField, mutate func(n *domain.Node) error) error {
	if err := s.ensureLoaded(ctx); err != nil {
		return err
	}

	s.mu.RLock()
	cur, ok := s.arena[nodeID]
	var next domain.Node
	if ok {
		next = *cur
	}
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("node %s: %w", nodeID, repository.ErrNotFound)
	}

	if err := mutate(&next); err != nil {
		return err
	}
	next.UpdatedAt = s.clock.Now()
	if err := next.Validate(); err != nil {
		return err
	}

	if err := s.nodes.UpdateFields(ctx, &next, fields...); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return err
		}
		return domain.NewStorageError(op, err)
	}

	s.mu.Lock()
	if n, still := s.arena[nodeID]; still {
		copyFields(n, &next, fields)
		n.UpdatedAt = next.UpdatedAt
	}
	s.mu.Unlock()
	return nil
}

// copyFields copies the named column groups from src to dst.
func copyFields(dst, src *domain.Node, fields []repository.NodeField) {
	for _, f := range fields {
		switch f {
		case repository.FieldTitle:
			dst.Title = src.Title
		case repository.FieldTag:
			dst.Tag = src.Tag
		case repository.FieldCompleted:
			dst.Completed = src.Completed
		case repository.FieldSchedule:
			dst.ScheduledMoveAt = src.ScheduledMoveAt
			dst.TargetListID = src.TargetListID
		case repository.FieldStepDetails:
			dst.DurationMin = src.DurationMin
			dst.Color = src.Color
			dst.Icon = src.Icon
			dst.ScheduledTime = src.ScheduledTime
		case repository.FieldBreathTimer:
			dst.ElapsedSec = src.ElapsedSec
			dst.EstimatedSec = src.EstimatedSec
			dst.Running = src.Running
			dst.StartedAt = src.StartedAt
			dst.EndedAt = src.EndedAt
		}
	}
}

// Remove deletes a node with its whole subtree and closes the position gap
// among its siblings.
func (s *HierarchyStore) Remove(ctx context.Context, nodeID string) (err error) {
	defer s.observe(ctx, "remove", time.Now(), map[string]any{"node_id": nodeID}, &err)

	if err = s.ensureLoaded(ctx); err != nil {
		return err
	}

	s.mu.RLock()
	n, ok := s.arena[nodeID]
	var parentID string
	if ok {
		parentID = n.ParentKey()
	}
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("node %s: %w", nodeID, repository.ErrNotFound)
	}

	unlock := s.lockParent(parentID)
	defer unlock()

	s.mu.RLock()
	survivors := make([]string, 0, len(s.children[parentID]))
	for _, id := range s.children[parentID] {
		if id != nodeID {
			survivors = append(survivors, id)
		}
	}
	s.mu.RUnlock()

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		txNodes := s.txNodes(tx)
		if err := txNodes.Delete(ctx, s.owner, nodeID); err != nil {
			return err
		}
		return txNodes.UpdatePositions(ctx, s.owner, survivors)
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return err
		}
		return domain.NewStorageError("removing node", err)
	}

	now := s.clock.Now()
	s.mu.Lock()
	s.dropSubtree(nodeID)
	s.children[parentID] = survivors
	for i, id := range survivors {
		if sib, ok := s.arena[id]; ok {
			sib.Position = i
			sib.UpdatedAt = now
		}
	}
	s.mu.Unlock()
	return nil
}

// dropSubtree removes id and its descendants from the arena. Callers hold mu.
func (s *HierarchyStore) dropSubtree(id string) {
	for _, child := range s.children[id] {
		s.dropSubtree(child)
	}
	delete(s.children, id)
	delete(s.arena, id)
}

func (s *HierarchyStore) ensureLoaded(ctx context.Context) error {
	s.mu.RLock()
	closed, loaded := s.closed, s.loaded
	s.mu.RUnlock()
	if closed {
		return ErrStoreClosed
	}
	if loaded {
		return nil
	}
	_, err := s.Load(ctx, false)
	return err
}

func (s *HierarchyStore) lockParent(parentID string) func() {
	s.parentMu.Lock()
	m, ok := s.parentLocks[parentID]
	if !ok {
		m = &sync.Mutex{}
		s.parentLocks[parentID] = m
	}
	s.parentMu.Unlock()

	m.Lock()
	return m.Unlock
}

func (s *HierarchyStore) observe(ctx context.Context, name string, startedAt time.Time, fields map[string]any, errp *error) {
	err := *errp
	fields["owner"] = s.owner
	s.observer.ObserveUseCase(ctx, UseCaseEvent{
		Name:      name,
		StartedAt: startedAt,
		Duration:  time.Since(startedAt),
		Success:   err == nil,
		Err:       err,
		Fields:    fields,
	})
}
