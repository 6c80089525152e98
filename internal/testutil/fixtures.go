package testutil

import (
	"time"

	"github.com/alexanderramin/ascent/internal/domain"
	"github.com/google/uuid"
)

// TestOwner is the owner id fixtures default to.
const TestOwner = "owner-1"

// Node options
type NodeOption func(*domain.Node)

func WithOwner(owner string) NodeOption {
	return func(n *domain.Node) {
		n.OwnerID = owner
	}
}

func WithPosition(p int) NodeOption {
	return func(n *domain.Node) {
		n.Position = p
	}
}

func WithTag(tag string) NodeOption {
	return func(n *domain.Node) {
		n.Tag = &tag
	}
}

func WithDuration(min int) NodeOption {
	return func(n *domain.Node) {
		n.DurationMin = min
	}
}

func WithColor(color, icon string) NodeOption {
	return func(n *domain.Node) {
		n.Color = color
		n.Icon = icon
	}
}

// WithSchedule stages a step for promotion into listID at trigger.
func WithSchedule(trigger time.Time, listID string) NodeOption {
	return func(n *domain.Node) {
		n.ScheduledMoveAt = &trigger
		n.TargetListID = &listID
	}
}

func WithScheduledTime(hhmm string) NodeOption {
	return func(n *domain.Node) {
		n.ScheduledTime = &hhmm
	}
}

func WithID(id string) NodeOption {
	return func(n *domain.Node) {
		n.ID = id
	}
}

// NewTestNode builds a node at level under parent. Pass an empty parent for
// a range.
func NewTestNode(level domain.Level, parent, title string, opts ...NodeOption) *domain.Node {
	now := time.Now().UTC()
	n := &domain.Node{
		ID:        uuid.New().String(),
		OwnerID:   TestOwner,
		Level:     level,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if parent != "" {
		p := parent
		n.ParentID = &p
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// NewTestChain builds one node per level from Range down to Step, each the
// only child of the previous one. The last element is the step.
func NewTestChain(title string, opts ...NodeOption) []*domain.Node {
	var chain []*domain.Node
	parent := ""
	for _, lv := range domain.Levels[:domain.LevelStep.Depth()+1] {
		var n *domain.Node
		if lv == domain.LevelStep {
			n = NewTestNode(lv, parent, title, opts...)
		} else {
			n = NewTestNode(lv, parent, title+" "+string(lv))
		}
		chain = append(chain, n)
		parent = n.ID
	}
	return chain
}

func NewTestTaskList(name string) *domain.TaskList {
	return &domain.TaskList{
		ID:        uuid.New().String(),
		OwnerID:   TestOwner,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
}

// Task options
type TaskOption func(*domain.Task)

func WithTaskPosition(p int) TaskOption {
	return func(t *domain.Task) {
		t.Position = p
	}
}

func WithTaskTime(hhmm string, dur int) TaskOption {
	return func(t *domain.Task) {
		t.ScheduledTime = &hhmm
		t.DurationMin = dur
	}
}

func NewTestTask(listID, title string, opts ...TaskOption) *domain.Task {
	now := time.Now().UTC()
	t := &domain.Task{
		ID:          uuid.New().String(),
		OwnerID:     TestOwner,
		ListID:      listID,
		Title:       title,
		DurationMin: 30,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}
