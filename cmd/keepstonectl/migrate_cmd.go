package main

import (
	"errors"

	"github.com/keepstone/keepstone/internal/platform/postgres"
	"github.com/spf13/cobra"
)

func newMigrateCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate <up|down|status|reset>",
		Short:     "Apply or inspect database migrations",
		GroupID:   "system",
		ValidArgs: []string{postgres.MigrateUp, postgres.MigrateDown, postgres.MigrateStatus, postgres.MigrateReset},
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.db == nil {
				return errors.New("no database connection")
			}
			return postgres.Migrate(cmd.Context(), c.db, args[0], c.logger)
		},
	}
}
