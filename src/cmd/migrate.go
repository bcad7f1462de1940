package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"ledger-server/src/config"
	"ledger-server/src/db"
	"ledger-server/src/logger"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the tables and the change notification trigger",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log := logger.Configure(os.Stdout, cfg.LogLevel, cfg.LogFormat)

		pool, err := db.Connect(cmd.Context(), cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := db.Migrate(cmd.Context(), pool, cfg.FeedChannel); err != nil {
			return err
		}
		log.Info().Str("channel", cfg.FeedChannel).Msg("Schema is up to date")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return cfg, err
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, cfg.Validate()
}
