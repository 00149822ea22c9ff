package main

import (
	"ticket-fulfillment/config"
	"ticket-fulfillment/internal/database"

	"github.com/spf13/cobra"
)

func newMigrateCmd(loaded func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations for the inventory and order tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			return database.RunMigrations(loaded().Database.URL())
		},
	}
}
