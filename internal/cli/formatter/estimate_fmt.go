package formatter

import (
	"time"

	"github.com/alexanderramin/ascent/internal/domain"
	"github.com/alexanderramin/ascent/internal/timeutil"
)

// RenderEstimates renders a task list with the estimated window of each
// task. times is indexed like tasks.
func RenderEstimates(tasks []*domain.Task, times []timeutil.TaskTimes, current int, loc *time.Location) string {
	headers := []string{"#", "TASK", "DURATION", "START", "END"}
	rows := make([][]string, 0, len(tasks))
	for i, t := range tasks {
		marker := "  "
		if i == current {
			marker = StyleYellowBold.Render("▶ ")
		}
		start, end := Dim("—"), Dim("—")
		if i < len(times) && times[i].Start != nil {
			start = times[i].Start.In(loc).Format("15:04")
			end = times[i].End.In(loc).Format("15:04")
		}
		title := t.Title
		if t.Completed {
			title = Dim(title)
		}
		rows = append(rows, []string{
			marker + TruncID(t.ID),
			title,
			timeutil.FormatMinutes(t.DurationMin),
			start,
			end,
		})
	}
	return RenderTable(headers, rows)
}
