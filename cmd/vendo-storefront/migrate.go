package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/Kuritho/vendo-finder-final/internal/db"
)

var migrateDownSteps int

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply or roll back the database schema.",
	Long: `Apply all pending migrations to DATABASE_DSN, or roll back the
given number of steps with --down.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.DatabaseDSN == "" {
			return errors.New("DATABASE_DSN is not set")
		}
		if migrateDownSteps > 0 {
			return db.RollbackMigrations(cfg.DatabaseDSN, migrateDownSteps, logger)
		}
		return db.RunMigrations(cfg.DatabaseDSN, logger)
	},
}

func init() {
	migrateCmd.Flags().IntVar(&migrateDownSteps, "down", 0, "roll back this many migrations instead of applying")
}
