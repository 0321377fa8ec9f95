package main

import (
	"fmt"

	"storefront/internal/config"
	"storefront/internal/infra/db"
	infraRepo "storefront/internal/infra/repository"
	"storefront/internal/usecase"

	"github.com/spf13/cobra"
)

var seedFile string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Replace the catalog with the contents of a YAML file",
	RunE: func(cmd *cobra.Command, args []string) error {
		catalog, err := usecase.LoadSeedFile(seedFile)
		if err != nil {
			return err
		}

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

		res, err := usecase.NewSeedUsecase(infraRepo.NewTxManagerGorm(gormDB), log).Seed(cmd.Context(), catalog)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "seeded %d categories, %d products\n", res.Categories, res.Products)
		return nil
	},
}

func init() {
	seedCmd.Flags().StringVarP(&seedFile, "file", "f", "seed/catalog.yaml", "seed file")
}
