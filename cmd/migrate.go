package cmd

import (
	"context"
	"fmt"

	"github.com/Alturino/pricing/internal/config"
	"github.com/Alturino/pricing/internal/constants"
	"github.com/Alturino/pricing/internal/infra"
	"github.com/Alturino/pricing/internal/log"
)

func runMigration(c context.Context) error {
	cfg := config.InitConfig(c, constants.APP_MIGRATION)

	logger := log.InitLogger(cfg.Application.LogPath, cfg.Application.Env).
		With().
		Str(log.KeyAppName, constants.APP_MIGRATION).
		Str(log.KeyTag, "main runMigration").
		Logger()

	// NewDatabaseClient migrates on its own when migrate_on_start is set.
	dbConfig := cfg.Database
	dbConfig.MigrateOnStart = false

	logger = logger.With().Str(log.KeyProcess, "initializing database").Logger()
	logger.Info().Msg("initializing database")
	c = logger.WithContext(c)
	db := infra.NewDatabaseClient(c, dbConfig)
	defer db.Close()
	logger.Info().Msg("initialized database")

	logger = logger.With().Str(log.KeyProcess, "migrating database").Logger()
	if err := infra.Migrate(c, db, dbConfig.MigrationPath); err != nil {
		err = fmt.Errorf("failed migrating database with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Info().Msg("migrated database")

	return nil
}
