package domain

import (
	"fmt"
	"regexp"
	"time"

	"github.com/alexanderramin/ascent/internal/timeutil"
)

var hexColor = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// Node is a single record of the goal tree. All seven levels share this flat
// shape; fields that only apply to some levels are left zero on the others.
type Node struct {
	ID       string
	OwnerID  string
	ParentID *string // nil for ranges
	Level    Level
	Title    string
	Tag      *string
	Position int

	// Range
	Locked    bool
	Mandatory bool

	// Step and Breath
	Completed bool

	// Step
	ScheduledMoveAt *time.Time
	TargetListID    *string
	DurationMin     int
	Color           string
	Icon            string
	ScheduledTime   *string // HH:mm

	// Breath. StartedAt is when the current or most recent run began;
	// ElapsedSec accumulates finished runs.
	ElapsedSec   int
	EstimatedSec int
	Running      bool
	StartedAt    *time.Time
	EndedAt      *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ParentKey returns the parent id, or "" for a range.
func (n *Node) ParentKey() string {
	if n.ParentID == nil {
		return ""
	}
	return *n.ParentID
}

// Staged reports whether the node is a step waiting for promotion.
func (n *Node) Staged() bool {
	return n.Level == LevelStep && n.ScheduledMoveAt != nil
}

// DueForPromotion reports whether a staged step's trigger time has elapsed.
func (n *Node) DueForPromotion(asOf time.Time) bool {
	return n.Staged() && n.TargetListID != nil && !n.ScheduledMoveAt.After(asOf)
}

// Validate checks the structural invariants of a single node.
func (n *Node) Validate() error {
	if !n.Level.Valid() {
		return NewValidationError("level", fmt.Sprintf("unknown level %q", n.Level))
	}
	if n.Title == "" {
		return NewValidationError("title", "title is required")
	}
	if n.Level == LevelRange && n.ParentID != nil {
		return NewValidationError("parent", "a range cannot have a parent")
	}
	if n.Level != LevelRange && n.ParentID == nil {
		return NewValidationError("parent", fmt.Sprintf("a %s requires a parent", n.Level))
	}
	if n.Tag != nil && !n.Level.Taggable() {
		return NewValidationError("tag", fmt.Sprintf("a %s cannot be tagged", n.Level))
	}
	if n.ScheduledMoveAt != nil {
		if n.Level != LevelStep {
			return NewValidationError("scheduled_move_at", "only steps can be scheduled")
		}
		if n.TargetListID == nil || *n.TargetListID == "" {
			return NewValidationError("target_list_id", "a scheduled step requires a target list")
		}
	}
	if n.Position < 0 {
		return NewValidationError("position", "position must not be negative")
	}
	if n.DurationMin < 0 {
		return NewValidationError("duration_min", "duration must not be negative")
	}
	if n.Color != "" && !hexColor.MatchString(n.Color) {
		return NewValidationError("color", fmt.Sprintf("%q is not a #rgb or #rrggbb color", n.Color))
	}
	if n.ScheduledTime != nil {
		if err := validateClockTime(*n.ScheduledTime); err != nil {
			return err
		}
	}
	if n.ElapsedSec < 0 || n.EstimatedSec < 0 {
		return NewValidationError("timer", "elapsed and estimated time must not be negative")
	}
	if n.Running {
		if n.Level != LevelBreath {
			return NewValidationError("running", "only breaths have a timer")
		}
		if n.StartedAt == nil {
			return NewValidationError("started_at", "a running breath requires a start time")
		}
	}
	return nil
}

func validateClockTime(hhmm string) error {
	m, err := timeutil.TimeToMinutes(hhmm)
	if err != nil {
		return NewValidationError("scheduled_time", err.Error())
	}
	if m >= timeutil.MinutesPerDay {
		return NewValidationError("scheduled_time", fmt.Sprintf("time %q is past the end of the day", hhmm))
	}
	return nil
}

// StepDetails are the presentation fields a step carries into the task it is
// promoted to.
type StepDetails struct {
	DurationMin int
	Color       string
	Icon        string
	// ScheduledTime is an HH:mm time of day; nil leaves the step unscheduled
	// within its day.
	ScheduledTime *string
}

// Apply copies d onto a step.
func (d StepDetails) Apply(n *Node) {
	n.DurationMin = d.DurationMin
	n.Color = d.Color
	n.Icon = d.Icon
	n.ScheduledTime = nil
	if d.ScheduledTime != nil {
		t := *d.ScheduledTime
		n.ScheduledTime = &t
	}
}

// Details returns the step's current presentation fields.
func (n *Node) Details() StepDetails {
	d := StepDetails{DurationMin: n.DurationMin, Color: n.Color, Icon: n.Icon}
	if n.ScheduledTime != nil {
		t := *n.ScheduledTime
		d.ScheduledTime = &t
	}
	return d
}

// CanParent reports whether a node at parent level may own a node at child level.
func CanParent(parent, child Level) bool {
	next, ok := parent.Child()
	return ok && next == child
}
