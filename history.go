package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"docexport/internal/config"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent export runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, cfg, _, err := setup(cmd, func(c *config.Config) { c.History.Disabled = false })
		if err != nil {
			return err
		}
		defer a.Shutdown(context.Background())

		if !a.HistoryEnabled() {
			return fmt.Errorf("run history database %s is not available", cfg.History.DSN)
		}
		runs, err := a.Export.ListRuns(historyLimit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No export runs recorded yet.")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "STARTED\tSTATUS\tREAD\tWRITTEN\tSKIPPED\tDURATION\tFAILED\tID")
		for _, r := range runs {
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%s\t%s\t%s\n",
				r.StartedAt.Local().Format(time.DateTime),
				r.Status,
				r.RowsRead, r.RowsWritten, r.RowsSkipped,
				r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond),
				strings.Join(r.FailedCollections, ","),
				r.ID,
			)
		}
		return w.Flush()
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of runs to show")
}
