package main

import (
	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/enygma/config"
	"github.com/Ramsey-B/enygma/pkg/database"
	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the saved configuration table migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger, flush, err := newLogger(cfg.LogLevel, cfg.PrettyLogs)
			if err != nil {
				return err
			}
			defer flush()

			db, err := database.Connect(cmd.Context(), database.ConnectionConfig{
				Driver:   cfg.DatabaseDriver,
				Host:     cfg.DatabaseHost,
				Port:     cfg.DatabasePort,
				User:     cfg.DatabaseUserName,
				Password: cfg.DatabasePassword,
				Name:     cfg.DatabaseName,
				SSLMode:  cfg.DatabaseSSLMode,
			}, logger)
			if err != nil {
				return err
			}
			defer db.Close()

			return migrationService(cfg, logger).MigratePostgres(cfg.DatabaseName, db.DB.DB)
		},
	}
}

func migrationService(cfg *config.Config, logger ectologger.Logger) *database.MigrationService {
	return database.NewMigrationService(logger, &database.MigrationConfig{
		MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
		Version:             uint(cfg.DatabaseMigrationVersion),
		Force:               cfg.DatabaseMigrationForce,
		AutoRollback:        cfg.DatabaseMigrationAutoRollback,
	})
}
