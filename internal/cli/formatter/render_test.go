package formatter

import (
	"errors"
	"testing"
	"time"

	"github.com/alexanderramin/ascent/internal/domain"
	"github.com/alexanderramin/ascent/internal/service"
	"github.com/alexanderramin/ascent/internal/timeline"
	"github.com/alexanderramin/ascent/internal/timeutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderTimeline(t *testing.T) {
	items := []timeline.Item{
		{ID: "a", Label: "Standup", ScheduledTime: "09:00", DurationMin: 30, Type: timeline.TypeTask},
		{ID: "b", Label: "Review", ScheduledTime: "09:15", DurationMin: 30, Type: timeline.TypeStaged},
	}
	bounds, positioned, err := timeline.LayoutDay(items)
	require.NoError(t, err)

	out := stripANSI(RenderTimeline(bounds, positioned))
	assert.Contains(t, out, "09:00–10:00 (1h)")
	assert.Contains(t, out, "09:00–09:30")
	assert.Contains(t, out, "Standup")
	assert.Contains(t, out, "45%")
	assert.Contains(t, out, "staged")
}

func TestRenderTimeline_Empty(t *testing.T) {
	out := stripANSI(RenderTimeline(timeline.Bounds{Start: 0, End: timeutil.MinutesPerDay}, nil))
	assert.Contains(t, out, "00:00–24:00 (24h)")
	assert.Contains(t, out, "Nothing scheduled.")
}

func TestRenderEstimates(t *testing.T) {
	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	tasks := []*domain.Task{
		{ID: "t1", Title: "Done already", DurationMin: 10, Completed: true},
		{ID: "t2", Title: "Writing", DurationMin: 30},
		{ID: "t3", Title: "Email", DurationMin: 15},
	}
	in := []timeutil.EstimatedTask{
		{ID: "t1", Duration: 10 * time.Minute},
		{ID: "t2", Duration: 30 * time.Minute},
		{ID: "t3", Duration: 15 * time.Minute},
	}
	times := timeutil.CalculateTaskTimes(in, 1, 20*time.Minute, true, now)

	out := stripANSI(RenderEstimates(tasks, times, 1, time.UTC))
	assert.Contains(t, out, "09:00")
	assert.Contains(t, out, "09:20")
	assert.Contains(t, out, "09:35")
	assert.Contains(t, out, "▶ t2")
}

func TestRenderPromotionReport(t *testing.T) {
	r := &service.PromotionReport{
		AsOf:     time.Date(2024, 1, 1, 9, 5, 0, 0, time.UTC),
		Eligible: 2,
		Migrated: []string{"s1"},
		Failed: []*domain.PromotionItemError{
			{StepID: "s2", Stage: domain.StageInsert, Err: errors.New("list missing")},
		},
	}

	out := stripANSI(RenderPromotionReport(r))
	assert.Contains(t, out, "2024-01-01T09:05:00Z")
	assert.Contains(t, out, "insert")
	assert.Contains(t, out, "list missing")
}
