package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var collectionsCmd = &cobra.Command{
	Use:   "collections",
	Short: "List the store's top-level collections",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, _, _, err := setup(cmd)
		if err != nil {
			return err
		}
		defer a.Shutdown(context.Background())

		ctx, cancel := signalContext()
		defer cancel()

		names, err := a.Export.ListCollections(ctx)
		if err != nil {
			return err
		}
		for _, n := range names {
			fmt.Fprintln(cmd.OutOrStdout(), n)
		}
		return nil
	},
}
