package main

import (
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, logger, err := newContainer()
		if err != nil {
			return err
		}
		defer c.Close()

		if err := c.Migrate(cmd.Context()); err != nil {
			return err
		}
		logger.Info("schema up to date", "driver", c.Config().DBDriver)
		return nil
	},
}
