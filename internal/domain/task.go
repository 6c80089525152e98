package domain

import "time"

// PromotedTaskPosition places a freshly promoted task at the end of its list
// until the list renormalizes positions.
const PromotedTaskPosition = 1 << 30

// TaskList is a live, user-facing list that promoted steps land in.
type TaskList struct {
	ID        string
	OwnerID   string
	Name      string
	CreatedAt time.Time
}

// Task is an item of a live task list.
type Task struct {
	ID            string
	OwnerID       string
	ListID        string
	Title         string
	DurationMin   int
	Color         string
	Icon          string
	Position      int
	Completed     bool
	ScheduledTime *string // HH:mm
	SourceStepID  *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TaskFromStep builds the live task a staged step becomes once promoted.
func TaskFromStep(step *Node, id string, now time.Time) *Task {
	source := step.ID
	t := &Task{
		ID:           id,
		OwnerID:      step.OwnerID,
		Title:        step.Title,
		DurationMin:  step.DurationMin,
		Color:        step.Color,
		Icon:         step.Icon,
		Position:     PromotedTaskPosition,
		SourceStepID: &source,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if step.TargetListID != nil {
		t.ListID = *step.TargetListID
	}
	if step.ScheduledTime != nil {
		st := *step.ScheduledTime
		t.ScheduledTime = &st
	}
	return t
}
