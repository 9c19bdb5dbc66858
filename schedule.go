package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
)

var (
	scheduleCron    string
	scheduleRunNow  bool
	shutdownTimeout time.Duration
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Re-export on a cron schedule until interrupted",
	Long: `Runs the export on a standard 5-field cron expression. Overlapping runs are
skipped. The credential file is watched; when it changes the store client is
reconnected before the next run. SIGINT/SIGTERM stops after the current run.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, _, log, err := setup(cmd)
		if err != nil {
			return err
		}
		ctx, cancel := signalContext()
		defer cancel()

		if err := a.Export.Schedule(ctx, scheduleCron); err != nil {
			a.Shutdown(context.Background())
			return err
		}
		if scheduleRunNow {
			if _, err := a.Export.RunExport(ctx); exitError(err) != nil {
				log.Error().Err(err).Msg("initial export failed")
			}
		}

		<-ctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
		defer done()
		a.Shutdown(shutdownCtx)
		return nil
	},
}

func init() {
	scheduleCmd.Flags().StringVar(&scheduleCron, "cron", "", `cron expression, e.g. "0 3 * * *"`)
	scheduleCmd.Flags().BoolVar(&scheduleRunNow, "now", false, "also export once immediately")
	scheduleCmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", 5*time.Minute, "how long to wait for a running export on shutdown")
	_ = scheduleCmd.MarkFlagRequired("cron")
}
