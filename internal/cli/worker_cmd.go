package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexanderramin/ascent/internal/metrics"
	"github.com/alexanderramin/ascent/internal/service"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func newWorkerCmd(app *App) *cobra.Command {
	var schedule, metricsAddr string

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run scheduled promotion until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if schedule == "" {
				schedule = service.DefaultPromotionSchedule
			}
			scheduler, err := service.NewPromotionScheduler(app.Worker, schedule, app.Clock, app.Logger)
			if err != nil {
				return err
			}

			var srv *http.Server
			if metricsAddr != "" {
				ln, err := net.Listen("tcp", metricsAddr)
				if err != nil {
					return fmt.Errorf("listening on %s: %w", metricsAddr, err)
				}
				mux := http.NewServeMux()
				mux.Handle("/metrics", metrics.Handler())
				srv = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
				go func() {
					if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
						app.Logger.Error("metrics server stopped", "error", err)
					}
				}()
				app.Logger.Info("serving metrics", "addr", ln.Addr().String())
			}

			scheduler.Start()
			fmt.Fprintf(cmd.OutOrStdout(), "Promotion worker running (%s). Press Ctrl+C to stop.\n", schedule)
			<-ctx.Done()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			stopErr := scheduler.Stop(shutdownCtx)
			if srv != nil {
				if err := srv.Shutdown(shutdownCtx); err != nil {
					stopErr = errors.Join(stopErr, fmt.Errorf("stopping metrics server: %w", err))
				}
			}
			return stopErr
		},
	}

	cmd.Flags().StringVar(&schedule, "schedule", app.Schedule, "Cron spec for promotion runs")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", app.MetricsAddr, "Listen address for /metrics (empty disables)")
	return cmd
}
