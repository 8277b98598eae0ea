package main

import (
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"booktracker/pkg/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema and exit",
	RunE: func(_ *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer database.Close(db)

		log.Info("database schema is up to date", "driver", cfg.Database.Driver, "db", cfg.Database.Path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
