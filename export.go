package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"docexport/internal/etl"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export all collections to the CSV file (default action)",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	a, _, _, err := setup(cmd)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()
	defer func() {
		shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
		defer done()
		a.Shutdown(shutdownCtx)
	}()

	result, err := a.Export.RunExport(ctx)
	if result != nil {
		printSummary(cmd.OutOrStdout(), result)
	}
	return exitError(err)
}

func printSummary(w io.Writer, r *etl.ExportResult) {
	fmt.Fprintf(w, "Run %s: %s in %s\n", r.RunID, r.Status, r.Duration.Round(time.Millisecond))
	for _, c := range r.Collections {
		line := fmt.Sprintf("  %-24s %6d read", c.Name, c.RowsRead)
		if c.RowsSkipped > 0 {
			line += fmt.Sprintf(", %d skipped", c.RowsSkipped)
		}
		if c.Error != "" {
			line += " (incomplete: " + c.Error + ")"
		}
		fmt.Fprintln(w, line)
	}
	switch r.Status {
	case etl.StatusNoData:
		fmt.Fprintln(w, "No data to export; no file written.")
	case etl.StatusError:
		fmt.Fprintf(w, "Failed: %s\n", r.Error)
	default:
		fmt.Fprintf(w, "Wrote %d rows x %d columns to %s\n", r.RowsWritten, len(r.Columns), r.Output)
	}
	if len(r.FailedCollections) > 0 {
		fmt.Fprintf(w, "Incomplete collections: %s\n", strings.Join(r.FailedCollections, ", "))
	}
}
