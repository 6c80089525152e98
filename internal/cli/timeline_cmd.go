package cli

import (
	"fmt"

	"github.com/alexanderramin/ascent/internal/cli/formatter"
	"github.com/alexanderramin/ascent/internal/domain"
	"github.com/alexanderramin/ascent/internal/service"
	"github.com/alexanderramin/ascent/internal/timeline"
	"github.com/alexanderramin/ascent/internal/timeutil"
	"github.com/spf13/cobra"
)

func newTimelineCmd(app *App) *cobra.Command {
	var list, day string

	cmd := &cobra.Command{
		Use:   "timeline",
		Short: "Lay out a list's scheduled tasks and staged steps for a day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			now := app.Clock.Now()
			date := now
			if day != "" {
				parsed, err := timeutil.ParseDay(day, now.Location())
				if err != nil {
					return domain.NewValidationError("day", err.Error())
				}
				date = parsed
			}

			listID, err := resolveListID(ctx, app, list)
			if err != nil {
				return err
			}
			tasks, err := app.Tasks.ListByList(ctx, app.Owner, listID)
			if err != nil {
				return domain.NewStorageError("listing tasks", err)
			}
			tree, err := app.Hierarchy.Load(ctx, false)
			if err != nil {
				return err
			}
			var staged []*domain.Node
			collectStaged(tree, listID, &staged)

			bounds, positioned, err := timeline.LayoutDay(timeline.BuildDay(tasks, staged, date))
			if err != nil {
				return err
			}

			body := formatter.RenderTimeline(bounds, positioned)
			if app.Plain {
				fmt.Fprint(cmd.OutOrStdout(), body)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.RenderBox("Timeline "+date.Format(timeutil.DayLayout), body))
			return nil
		},
	}

	cmd.Flags().StringVar(&list, "list", "", "Task list ID or name")
	cmd.Flags().StringVar(&day, "day", "", "Day to show (YYYY-MM-DD, default today)")
	_ = cmd.MarkFlagRequired("list")
	return cmd
}

// collectStaged gathers staged steps bound for listID.
func collectStaged(nodes []*service.TreeNode, listID string, out *[]*domain.Node) {
	for _, tn := range nodes {
		if tn.Node.Staged() && tn.Node.TargetListID != nil && *tn.Node.TargetListID == listID {
			n := tn.Node
			*out = append(*out, &n)
		}
		collectStaged(tn.Children, listID, out)
	}
}
