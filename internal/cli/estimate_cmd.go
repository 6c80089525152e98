package cli

import (
	"fmt"
	"time"

	"github.com/alexanderramin/ascent/internal/cli/formatter"
	"github.com/alexanderramin/ascent/internal/domain"
	"github.com/alexanderramin/ascent/internal/timeutil"
	"github.com/spf13/cobra"
)

func newEstimateCmd(app *App) *cobra.Command {
	var list string
	var current int
	var remaining time.Duration
	var running bool

	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Estimate start and end times for a list's tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if remaining < 0 {
				return domain.NewValidationError("remaining", "must not be negative")
			}
			listID, err := resolveListID(ctx, app, list)
			if err != nil {
				return err
			}
			tasks, err := app.Tasks.ListByList(ctx, app.Owner, listID)
			if err != nil {
				return domain.NewStorageError("listing tasks", err)
			}

			in := make([]timeutil.EstimatedTask, len(tasks))
			for i, t := range tasks {
				in[i] = timeutil.EstimatedTask{ID: t.ID, Duration: time.Duration(t.DurationMin) * time.Minute}
			}
			now := app.Clock.Now()
			times := timeutil.CalculateTaskTimes(in, current, remaining, running, now)

			out := cmd.OutOrStdout()
			fmt.Fprint(out, formatter.RenderEstimates(tasks, times, current, now.Location()))
			if n := len(times); n > 0 && times[n-1].End != nil {
				left := times[n-1].End.Sub(now)
				fmt.Fprintf(out, "\n%s %s (%s)\n", formatter.Dim("Done by"),
					times[n-1].End.Format("15:04"), timeutil.FormatDuration(left.Milliseconds()))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&list, "list", "", "Task list ID or name")
	cmd.Flags().IntVar(&current, "current", 0, "Index of the task in progress")
	cmd.Flags().DurationVar(&remaining, "remaining", 0, "Time left on the current task")
	cmd.Flags().BoolVar(&running, "running", false, "Whether the current task's timer is running")
	_ = cmd.MarkFlagRequired("list")
	return cmd
}
