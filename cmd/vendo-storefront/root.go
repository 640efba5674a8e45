package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Kuritho/vendo-finder-final/internal/config"
	"github.com/Kuritho/vendo-finder-final/internal/logging"
)

var (
	cfg    config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "vendo-storefront",
	Short: "Storefront backend for vendo machine locations.",
	Long: `vendo-storefront serves the locator, catalog and cart screens of the
vendo storefront and places orders against the remote vendo API.

Configuration is read from the environment and an optional .env file.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.Load()
		l, err := logging.New(cfg.LogLevel, cfg.LogFormat)
		if err != nil {
			return err
		}
		logger = l.With(zap.String("service", cfg.EventProducer))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, locateCmd)
}
