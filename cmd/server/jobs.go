package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/valeevte/pricetrail/internal/prices"
)

func newIngestCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest [query]",
		Short: "Fetch results for a query and record new or changed prices",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := prices.DefaultPriceQuery
			if len(args) == 1 && args[0] != "" {
				q = args[0]
			}

			a, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.Service.Ingest(cmd.Context(), q)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: fetched %d, inserted %d, rejected %d\n",
				q, len(res.Items), len(res.Inserted), res.Rejected)
			return nil
		},
	}
}

func newCleanupCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Delete price history older than the retention window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.Service.Cleanup(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d records older than %d days\n", n, a.Config.RetentionDays)
			return nil
		},
	}
}
