package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"storefront/internal/config"
	"storefront/internal/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags
	envFile string
	dbDebug bool

	log *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:           "storefront",
	Short:         "Storefront catalog and cart API",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// .envは無くてもよい
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", envFile, err)
		}

		cfg, err := config.LoadDB()
		if err != nil {
			return err
		}
		log, err = logger.New(logger.Options{
			Service: "storefront",
			Env:     cfg.GoEnv,
			Level:   cfg.LogLevel,
		})
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "path to a .env file")
	rootCmd.PersistentFlags().BoolVar(&dbDebug, "db-debug", false, "log every SQL statement")

	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if log != nil {
			log.Error("command failed", zap.Error(err))
			_ = log.Sync()
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
