package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/alexanderramin/ascent/internal/cli/formatter"
	"github.com/alexanderramin/ascent/internal/domain"
	"github.com/spf13/cobra"
)

func newNodeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "node",
		Short: "Manage goal hierarchy nodes",
	}

	cmd.AddCommand(
		newNodeAddCmd(app),
		newNodeShowCmd(app),
		newNodeRenameCmd(app),
		newNodeTagCmd(app),
		newNodeRemoveCmd(app),
		newNodeReorderCmd(app),
		newNodeDoneCmd(app),
		newNodeStageCmd(app),
		newNodeUnstageCmd(app),
		newNodeSetCmd(app),
		newNodeTimerCmd(app),
	)

	return cmd
}

func newNodeAddCmd(app *App) *cobra.Command {
	var parent, level, title string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a node at the end of its parent's children",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			lv, err := domain.ParseLevel(level)
			if err != nil {
				return err
			}
			parentID, err := resolveParentID(ctx, app, parent)
			if err != nil {
				return err
			}
			n, err := app.Hierarchy.AddChild(ctx, parentID, lv, title)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s %s (%s)\n", n.Level, n.Title, n.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&parent, "parent", "", "Parent node ID (omit for a range)")
	cmd.Flags().StringVar(&level, "level", "", "Level ("+levelNames()+")")
	cmd.Flags().StringVar(&title, "title", "", "Node title")
	_ = cmd.MarkFlagRequired("level")
	_ = cmd.MarkFlagRequired("title")

	return cmd
}

func levelNames() string {
	names := make([]string, len(domain.Levels))
	for i, lv := range domain.Levels {
		names[i] = string(lv)
	}
	return strings.Join(names, "|")
}

func newNodeShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show node details and children",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := resolveNodeID(ctx, app, args[0])
			if err != nil {
				return err
			}
			n, ok := app.Hierarchy.Node(id)
			if !ok {
				return fmt.Errorf("node %s disappeared", id)
			}
			now := app.Clock.Now()

			var b strings.Builder
			b.WriteString(fmt.Sprintf("%s  %s\n\n", formatter.Bold(n.Title), formatter.LevelBadge(n.Level)))
			b.WriteString(fmt.Sprintf("  %s  %s\n", formatter.Dim("ID      "), n.ID))
			if n.ParentID != nil {
				b.WriteString(fmt.Sprintf("  %s  %s\n", formatter.Dim("PARENT  "), formatter.TruncID(*n.ParentID)))
			}
			b.WriteString(fmt.Sprintf("  %s  %d\n", formatter.Dim("POSITION"), n.Position))
			if n.Tag != nil {
				b.WriteString(fmt.Sprintf("  %s  #%s\n", formatter.Dim("TAG     "), *n.Tag))
			}
			if n.Level == domain.LevelStep || n.Level == domain.LevelBreath {
				b.WriteString(fmt.Sprintf("  %s  %s\n", formatter.Dim("STATUS  "), formatter.CompletionPill(n.Completed)))
			}
			if n.DurationMin > 0 {
				b.WriteString(fmt.Sprintf("  %s  %dm\n", formatter.Dim("DURATION"), n.DurationMin))
			}
			if n.ScheduledTime != nil {
				b.WriteString(fmt.Sprintf("  %s  %s\n", formatter.Dim("AT      "), *n.ScheduledTime))
			}
			if n.Color != "" || n.Icon != "" {
				b.WriteString(fmt.Sprintf("  %s  %s %s\n", formatter.Dim("STYLE   "), n.Color, n.Icon))
			}
			if n.Level == domain.LevelBreath {
				state := "idle"
				if n.Running {
					state = "running"
				}
				b.WriteString(fmt.Sprintf("  %s  %s elapsed, %s estimated (%s)\n", formatter.Dim("TIMER   "),
					time.Duration(n.ElapsedSec)*time.Second, time.Duration(n.EstimatedSec)*time.Second, state))
			}
			if n.Staged() {
				b.WriteString(fmt.Sprintf("  %s  %s → %s\n", formatter.Dim("PROMOTES"),
					formatter.TriggerLabel(*n.ScheduledMoveAt, now), formatter.TruncID(*n.TargetListID)))
			}
			b.WriteString(fmt.Sprintf("  %s  %s\n", formatter.Dim("UPDATED "), formatter.HumanDate(n.UpdatedAt.In(now.Location()), now)))

			children := app.Hierarchy.Children(n.ID)
			if len(children) > 0 {
				b.WriteString("\n")
				b.WriteString(formatter.Header("Children"))
				b.WriteString("\n")
				rows := make([][]string, 0, len(children))
				for _, c := range children {
					rows = append(rows, []string{
						fmt.Sprintf("%d", c.Position),
						formatter.TruncID(c.ID),
						c.Title,
						string(c.Level),
					})
				}
				b.WriteString(formatter.RenderTable([]string{"POS", "ID", "TITLE", "LEVEL"}, rows))
			}

			if app.Plain {
				fmt.Fprint(cmd.OutOrStdout(), b.String())
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.RenderBox("Node", b.String()))
			return nil
		},
	}
}

func newNodeRenameCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "rename ID TITLE",
		Short: "Rename a node",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := resolveNodeID(ctx, app, args[0])
			if err != nil {
				return err
			}
			if err := app.Hierarchy.Rename(ctx, id, args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Renamed %s to %s\n", id, args[1])
			return nil
		},
	}
}

func newNodeTagCmd(app *App) *cobra.Command {
	var clearTag bool

	cmd := &cobra.Command{
		Use:   "tag ID [TAG]",
		Short: "Set or clear the tag of a mountain, hill or terrain",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if clearTag == (len(args) == 2) {
				return errors.New("give either a TAG or --clear")
			}
			id, err := resolveNodeID(ctx, app, args[0])
			if err != nil {
				return err
			}
			var tag *string
			if !clearTag {
				tag = &args[1]
			}
			if err := app.Hierarchy.UpdateTag(ctx, id, tag); err != nil {
				return err
			}
			if clearTag {
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared tag of %s\n", id)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Tagged %s #%s\n", id, *tag)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&clearTag, "clear", false, "Remove the tag")
	return cmd
}

func newNodeRemoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "rm ID",
		Short: "Remove a node and everything below it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := resolveNodeID(ctx, app, args[0])
			if err != nil {
				return err
			}
			if err := app.Hierarchy.Remove(ctx, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", id)
			return nil
		},
	}
}

func newNodeReorderCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "reorder PARENT ID...",
		Short: "Reorder all children of PARENT (\"root\" for ranges)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			parentID, err := resolveParentID(ctx, app, args[0])
			if err != nil {
				return err
			}
			ids := make([]string, 0, len(args)-1)
			for _, arg := range args[1:] {
				id, err := resolveNodeID(ctx, app, arg)
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}
			if err := app.Hierarchy.Reorder(ctx, parentID, ids); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reordered %d children\n", len(ids))
			return nil
		},
	}
}

func newNodeDoneCmd(app *App) *cobra.Command {
	var undo bool

	cmd := &cobra.Command{
		Use:   "done ID",
		Short: "Mark a step or breath completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := resolveNodeID(ctx, app, args[0])
			if err != nil {
				return err
			}
			if err := app.Hierarchy.SetCompleted(ctx, id, !undo); err != nil {
				return err
			}
			if undo {
				fmt.Fprintf(cmd.OutOrStdout(), "Reopened %s\n", id)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Completed %s\n", id)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&undo, "undo", false, "Mark as not completed")
	return cmd
}

func newNodeStageCmd(app *App) *cobra.Command {
	var at, list string

	cmd := &cobra.Command{
		Use:   "stage STEP",
		Short: "Schedule a step to move into a task list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			trigger, err := time.Parse(time.RFC3339, at)
			if err != nil {
				return domain.NewValidationError("at", fmt.Sprintf("expected RFC3339 time, got %q", at))
			}
			id, err := resolveNodeID(ctx, app, args[0])
			if err != nil {
				return err
			}
			listID, err := resolveListID(ctx, app, list)
			if err != nil {
				return err
			}
			if err := app.Hierarchy.ScheduleMove(ctx, id, trigger, listID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Staged %s for %s\n", id, trigger.UTC().Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().StringVar(&at, "at", "", "Trigger time (RFC3339)")
	cmd.Flags().StringVar(&list, "list", "", "Target task list ID or name")
	_ = cmd.MarkFlagRequired("at")
	_ = cmd.MarkFlagRequired("list")
	return cmd
}

func newNodeUnstageCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "unstage STEP",
		Short: "Cancel a step's scheduled move",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := resolveNodeID(ctx, app, args[0])
			if err != nil {
				return err
			}
			if err := app.Hierarchy.ClearSchedule(ctx, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Unstaged %s\n", id)
			return nil
		},
	}
}

// parseMinutes accepts a Go duration ("1h30m") or a bare number of minutes.
func parseMinutes(s string) (int, error) {
	if m, err := strconv.Atoi(s); err == nil {
		return m, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, domain.NewValidationError("duration", fmt.Sprintf("expected minutes or a duration, got %q", s))
	}
	return int(d / time.Minute), nil
}

func newNodeSetCmd(app *App) *cobra.Command {
	var duration, color, icon, at string
	var clearTime bool

	cmd := &cobra.Command{
		Use:   "set STEP",
		Short: "Set the duration, color, icon or time of day of a step",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			flags := cmd.Flags()
			if clearTime && flags.Changed("time") {
				return errors.New("give either --time or --clear-time")
			}
			id, err := resolveNodeID(ctx, app, args[0])
			if err != nil {
				return err
			}
			n, ok := app.Hierarchy.Node(id)
			if !ok {
				return fmt.Errorf("node %s disappeared", id)
			}

			details := n.Details()
			if flags.Changed("duration") {
				if details.DurationMin, err = parseMinutes(duration); err != nil {
					return err
				}
			}
			if flags.Changed("color") {
				details.Color = color
			}
			if flags.Changed("icon") {
				details.Icon = icon
			}
			switch {
			case flags.Changed("time"):
				details.ScheduledTime = &at
			case clearTime:
				details.ScheduledTime = nil
			}

			if err := app.Hierarchy.SetStepDetails(ctx, id, details); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s (%dm)\n", id, details.DurationMin)
			return nil
		},
	}

	cmd.Flags().StringVar(&duration, "duration", "", "Duration in minutes or as 1h30m")
	cmd.Flags().StringVar(&color, "color", "", "Hex color such as #4f46e5")
	cmd.Flags().StringVar(&icon, "icon", "", "Icon name")
	cmd.Flags().StringVar(&at, "time", "", "Time of day (HH:MM)")
	cmd.Flags().BoolVar(&clearTime, "clear-time", false, "Remove the time of day")
	return cmd
}

func newNodeTimerCmd(app *App) *cobra.Command {
	var start, stop bool
	var estimate time.Duration

	cmd := &cobra.Command{
		Use:   "timer BREATH",
		Short: "Start or stop a breath's timer, or set its estimate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			picked := 0
			for _, on := range []bool{start, stop, cmd.Flags().Changed("estimate")} {
				if on {
					picked++
				}
			}
			if picked != 1 {
				return errors.New("give exactly one of --start, --stop or --estimate")
			}
			id, err := resolveNodeID(ctx, app, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch {
			case start:
				if err := app.Hierarchy.StartBreath(ctx, id); err != nil {
					return err
				}
				fmt.Fprintf(out, "Started %s\n", id)
			case stop:
				if err := app.Hierarchy.StopBreath(ctx, id); err != nil {
					return err
				}
				if n, ok := app.Hierarchy.Node(id); ok {
					fmt.Fprintf(out, "Stopped %s after %s in total\n", id, time.Duration(n.ElapsedSec)*time.Second)
				}
			default:
				if err := app.Hierarchy.SetBreathEstimate(ctx, id, estimate); err != nil {
					return err
				}
				fmt.Fprintf(out, "Estimated %s at %s\n", id, estimate)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&start, "start", false, "Start the timer")
	cmd.Flags().BoolVar(&stop, "stop", false, "Stop the timer")
	cmd.Flags().DurationVar(&estimate, "estimate", 0, "Expected duration, e.g. 10m")
	return cmd
}
