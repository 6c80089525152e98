package cli

import (
	"fmt"

	"github.com/alexanderramin/ascent/internal/cli/formatter"
	"github.com/spf13/cobra"
)

func newTreeCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "tree",
		Short: "Show the goal hierarchy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tree, err := app.Hierarchy.Load(cmd.Context(), false)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(tree) == 0 {
				fmt.Fprintln(out, formatter.Dim("No goals yet. Start with: ascent node add --level range --title \"...\""))
				return nil
			}
			body := formatter.RenderTree(formatter.FlattenHierarchy(tree, app.Clock.Now()))
			if app.Plain {
				fmt.Fprint(out, body)
				return nil
			}
			fmt.Fprintln(out, formatter.RenderBox("Goals", body))
			return nil
		},
	}
}
