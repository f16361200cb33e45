package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the profiles, matching_jobs and match_results tables",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, cmd, *configPath)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			if err := a.store.Migrate(ctx); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Schema applied (%s)\n", a.cfg.Store.Driver)
			return nil
		},
	}
}
