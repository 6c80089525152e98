package timeline

import (
	"sort"
	"time"

	"github.com/alexanderramin/ascent/internal/domain"
	"github.com/alexanderramin/ascent/internal/timeutil"
)

// BuildDay collects the items shown on a day: live tasks that carry a
// scheduled time, and staged steps whose trigger falls on day. Staged steps
// without their own time-of-day are placed at the trigger's wall-clock time.
func BuildDay(tasks []*domain.Task, steps []*domain.Node, day time.Time) []Item {
	var items []Item
	for _, t := range tasks {
		if t.ScheduledTime == nil {
			continue
		}
		items = append(items, Item{
			ID:            t.ID,
			Label:         t.Title,
			Color:         t.Color,
			ScheduledTime: *t.ScheduledTime,
			DurationMin:   t.DurationMin,
			Completed:     t.Completed,
			Type:          TypeTask,
		})
	}
	for _, s := range steps {
		if !s.Staged() || !timeutil.SameDay(*s.ScheduledMoveAt, day) {
			continue
		}
		at := s.ScheduledMoveAt.In(day.Location())
		hhmm := timeutil.MinutesToTime(at.Hour()*60 + at.Minute())
		if s.ScheduledTime != nil {
			hhmm = *s.ScheduledTime
		}
		items = append(items, Item{
			ID:            s.ID,
			Label:         s.Title,
			Color:         s.Color,
			ScheduledTime: hhmm,
			DurationMin:   s.DurationMin,
			Completed:     s.Completed,
			Type:          TypeStaged,
		})
	}
	sort.SliceStable(items, func(i, j int) bool {
		si, _, erri := items[i].Interval()
		sj, _, errj := items[j].Interval()
		if erri == nil && errj == nil && si != sj {
			return si < sj
		}
		return items[i].ID < items[j].ID
	})
	return items
}
