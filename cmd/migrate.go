package main

import (
	"fmt"
	"tutor-ai/config"
	"tutor-ai/internal/models"
	"tutor-ai/pkg/database"
	"tutor-ai/pkg/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the primary database tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := database.Open(database.Config{
			Type: config.Env.DatabaseType,
			DSN:  config.Env.DatabaseDSN,
		})
		if err != nil {
			return err
		}
		defer database.Close(db)

		if err := database.Migrate(db, models.All()...); err != nil {
			return err
		}
		logger.Named("migrate").Info("tables are up to date", zap.String("type", config.Env.DatabaseType))
		fmt.Fprintln(cmd.OutOrStdout(), "migration complete")
		return nil
	},
}
