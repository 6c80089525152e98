package cli

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/ascent/internal/cli/formatter"
	"github.com/alexanderramin/ascent/internal/domain"
	"github.com/alexanderramin/ascent/internal/timeutil"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newListCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Manage live task lists",
	}

	cmd.AddCommand(
		newListCreateCmd(app),
		newListLsCmd(app),
		newListShowCmd(app),
	)

	return cmd
}

func newListCreateCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "create NAME",
		Short: "Create a task list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.TrimSpace(args[0])
			if name == "" {
				return domain.NewValidationError("name", "list name is required")
			}
			l := &domain.TaskList{
				ID:        uuid.New().String(),
				OwnerID:   app.Owner,
				Name:      name,
				CreatedAt: app.Clock.Now(),
			}
			if err := app.Lists.Create(cmd.Context(), l); err != nil {
				return domain.NewStorageError("creating task list", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created list %s (%s)\n", l.Name, l.ID)
			return nil
		},
	}
}

func newListLsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List task lists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			lists, err := app.Lists.ListByOwner(ctx, app.Owner)
			if err != nil {
				return domain.NewStorageError("listing task lists", err)
			}
			if len(lists) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), formatter.Dim("No task lists yet."))
				return nil
			}
			rows := make([][]string, 0, len(lists))
			for _, l := range lists {
				tasks, err := app.Tasks.ListByList(ctx, app.Owner, l.ID)
				if err != nil {
					return domain.NewStorageError("listing tasks", err)
				}
				open := 0
				for _, t := range tasks {
					if !t.Completed {
						open++
					}
				}
				rows = append(rows, []string{
					formatter.TruncID(l.ID),
					l.Name,
					fmt.Sprintf("%d/%d", open, len(tasks)),
				})
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.RenderTable([]string{"ID", "NAME", "OPEN"}, rows))
			return nil
		},
	}
}

func newListShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show the tasks of a list in order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			listID, err := resolveListID(ctx, app, args[0])
			if err != nil {
				return err
			}
			list, err := app.Lists.GetByID(ctx, app.Owner, listID)
			if err != nil {
				return err
			}
			tasks, err := app.Tasks.ListByList(ctx, app.Owner, listID)
			if err != nil {
				return domain.NewStorageError("listing tasks", err)
			}

			var b strings.Builder
			if len(tasks) == 0 {
				b.WriteString(formatter.Dim("Empty list.") + "\n")
			} else {
				rows := make([][]string, 0, len(tasks))
				for _, t := range tasks {
					at := ""
					if t.ScheduledTime != nil {
						at = *t.ScheduledTime
					}
					origin := ""
					if t.SourceStepID != nil {
						origin = "promoted"
					}
					rows = append(rows, []string{
						fmt.Sprintf("%d", t.Position),
						formatter.TruncID(t.ID),
						t.Title,
						timeutil.FormatMinutes(t.DurationMin),
						at,
						formatter.CompletionPill(t.Completed),
						formatter.Dim(origin),
					})
				}
				b.WriteString(formatter.RenderTable(
					[]string{"POS", "ID", "TITLE", "DURATION", "AT", "STATUS", "ORIGIN"}, rows))
			}

			if app.Plain {
				fmt.Fprint(cmd.OutOrStdout(), b.String())
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.RenderBox(list.Name, b.String()))
			return nil
		},
	}
}
