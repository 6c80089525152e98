package cli

import (
	"fmt"
	"time"

	"github.com/alexanderramin/ascent/internal/cli/formatter"
	"github.com/alexanderramin/ascent/internal/domain"
	"github.com/spf13/cobra"
)

func newPromoteCmd(app *App) *cobra.Command {
	var asOf string

	cmd := &cobra.Command{
		Use:   "promote",
		Short: "Move every due staged step into its task list now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			at := app.Clock.Now()
			if asOf != "" {
				parsed, err := time.Parse(time.RFC3339, asOf)
				if err != nil {
					return domain.NewValidationError("as-of", fmt.Sprintf("expected RFC3339 time, got %q", asOf))
				}
				at = parsed
			}

			report, err := app.Worker.Run(cmd.Context(), at)
			if err != nil {
				return err
			}
			app.Hierarchy.Invalidate()

			fmt.Fprint(cmd.OutOrStdout(), formatter.RenderPromotionReport(report))
			return nil
		},
	}

	cmd.Flags().StringVar(&asOf, "as-of", "", "Promote as if it were this time (RFC3339)")
	return cmd
}
