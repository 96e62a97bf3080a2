package infra

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/Alturino/pricing/internal/log"
)

// Migrate applies every pending up migration found at migrationPath,
// e.g. "file://migrations".
func Migrate(c context.Context, pool *pgxpool.Pool, migrationPath string) error {
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "main Migrate").
		Str(log.KeyMigrationPath, migrationPath).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "initializing db driver").Logger()
	logger.Info().Msg("initializing db driver")
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		err = fmt.Errorf("failed creating postgres driver to do migration with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Info().Msg("initialized db driver")

	logger = logger.With().Str(log.KeyProcess, "initializing migration").Logger()
	logger.Info().Msg("initializing migration")
	migration, err := migrate.NewWithDatabaseInstance(migrationPath, "postgres", driver)
	if err != nil {
		err = fmt.Errorf("failed initializing migration with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Info().Msg("initialized migration")

	logger = logger.With().Str(log.KeyProcess, "migration up").Logger()
	logger.Info().Msg("migration up")
	err = migration.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		err = fmt.Errorf("failed migration up with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Info().Msg("migrated up")

	return nil
}
