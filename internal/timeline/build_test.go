package timeline

import (
	"testing"
	"time"

	"github.com/alexanderramin/ascent/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestBuildDay(t *testing.T) {
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	trigger := time.Date(2024, 1, 1, 14, 5, 0, 0, time.UTC)
	tomorrow := trigger.AddDate(0, 0, 1)
	list := "list-A"
	parent := "len-1"

	tasks := []*domain.Task{
		{ID: "t1", Title: "Stretch", ScheduledTime: strPtr("10:00"), DurationMin: 15, Color: "#fff"},
		{ID: "t2", Title: "Unscheduled", DurationMin: 30},
		{ID: "t3", Title: "Walk", ScheduledTime: strPtr("8:30"), DurationMin: 45, Completed: true},
	}
	steps := []*domain.Node{
		{ID: "s1", Level: domain.LevelStep, ParentID: &parent, Title: "Journal",
			ScheduledMoveAt: &trigger, TargetListID: &list, DurationMin: 20},
		{ID: "s2", Level: domain.LevelStep, ParentID: &parent, Title: "Later",
			ScheduledMoveAt: &tomorrow, TargetListID: &list, DurationMin: 20},
		{ID: "s3", Level: domain.LevelStep, ParentID: &parent, Title: "Not staged"},
	}

	items := BuildDay(tasks, steps, day)
	require.Len(t, items, 3)
	assert.Equal(t, "t3", items[0].ID)
	assert.True(t, items[0].Completed)
	assert.Equal(t, "t1", items[1].ID)
	assert.Equal(t, "s1", items[2].ID)
	assert.Equal(t, "14:05", items[2].ScheduledTime)
	assert.Equal(t, TypeStaged, items[2].Type)
}
