package cli

import (
	"log/slog"

	"github.com/alexanderramin/ascent/internal/repository"
	"github.com/alexanderramin/ascent/internal/service"
	"github.com/alexanderramin/ascent/internal/timeutil"
	"github.com/spf13/cobra"
)

// App holds the services and settings CLI commands run against.
type App struct {
	Owner     string
	Hierarchy *service.HierarchyStore
	Worker    *service.PromotionWorker
	Tasks     repository.TaskRepo
	Lists     repository.TaskListRepo
	Clock     timeutil.Clock
	Logger    *slog.Logger

	// Schedule is the cron spec the worker command fires promotions on.
	Schedule string
	// MetricsAddr is where the worker command serves /metrics; empty
	// disables it.
	MetricsAddr string
	// Plain disables boxes and decorations, for output that is not a
	// terminal.
	Plain bool
}

// NewRootCmd creates the top-level "ascent" command and registers all
// subcommands against the provided App.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "ascent",
		Short:         "Goal hierarchy planner with scheduled promotion into task lists",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newTreeCmd(app),
		newNodeCmd(app),
		newListCmd(app),
		newPromoteCmd(app),
		newWorkerCmd(app),
		newTimelineCmd(app),
		newEstimateCmd(app),
	)

	return root
}
