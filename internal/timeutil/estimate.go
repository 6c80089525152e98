package timeutil

import "time"

// EstimatedTask is the input to CalculateTaskTimes: one entry of an ordered
// task list.
type EstimatedTask struct {
	ID       string
	Duration time.Duration
}

// TaskTimes is the estimated wall-clock window of a task. Start and End are
// nil for tasks that are already behind the current one.
type TaskTimes struct {
	ID    string
	Start *time.Time
	End   *time.Time
}

// CalculateTaskTimes estimates start and end times for every task in order.
// Tasks before current are cleared. The current task runs from now for its
// remaining time: a running task always uses remaining, a paused one uses
// remaining when it has been started and its full duration otherwise. Each
// later task starts where the previous estimate ended.
//
// A current index outside the list chains every task from now.
func CalculateTaskTimes(tasks []EstimatedTask, current int, remaining time.Duration, running bool, now time.Time) []TaskTimes {
	out := make([]TaskTimes, len(tasks))
	if current < 0 || current >= len(tasks) {
		current = 0
		remaining = 0
		running = false
	}

	cursor := now
	for i, t := range tasks {
		out[i].ID = t.ID
		if i < current {
			continue
		}
		d := t.Duration
		if i == current {
			d = currentWindow(t.Duration, remaining, running)
		}
		start := cursor
		end := cursor.Add(d)
		out[i].Start = &start
		out[i].End = &end
		cursor = end
	}
	return out
}

func currentWindow(full, remaining time.Duration, running bool) time.Duration {
	if remaining < 0 {
		remaining = 0
	}
	if running {
		return remaining
	}
	if remaining > 0 {
		return remaining
	}
	return full
}
