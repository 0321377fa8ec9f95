package main

import (
	"storefront/internal/config"
	"storefront/internal/infra/db"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update database tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadDB()
		if err != nil {
			return err
		}

		gormDB, err := db.Connect(cfg.DatabaseURL, dbDebug)
		if err != nil {
			return err
		}
		if sqlDB, err := gormDB.DB(); err == nil {
			defer sqlDB.Close()
		}

		if err := db.Migrate(gormDB); err != nil {
			return err
		}
		log.Info("migration done")
		return nil
	},
}
