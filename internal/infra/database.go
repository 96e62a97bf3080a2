package infra

import (
	"context"
	"fmt"

	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	pgxuuid "github.com/vgarvardt/pgx-google-uuid/v5"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/Alturino/pricing/internal/config"
	"github.com/Alturino/pricing/internal/log"
)

func PostgresUrl(dbConfig config.Database) string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		dbConfig.Username,
		dbConfig.Password,
		dbConfig.Host,
		int(dbConfig.Port),
		dbConfig.Name,
	)
}

// RegisterTypes teaches every new connection to encode and decode
// google/uuid values.
func RegisterTypes(_ context.Context, conn *pgx.Conn) error {
	pgxuuid.Register(conn.TypeMap())
	return nil
}

func NewPool(c context.Context, postgresUrl string) (*pgxpool.Pool, error) {
	pgxConfig, err := pgxpool.ParseConfig(postgresUrl)
	if err != nil {
		return nil, fmt.Errorf("failed creating pgx config with error=%w", err)
	}
	pgxConfig.AfterConnect = RegisterTypes
	pgxConfig.ConnConfig.Tracer = otelpgx.NewTracer(
		otelpgx.WithAttributes(semconv.DBSystemPostgreSQL),
	)
	pool, err := pgxpool.NewWithConfig(c, pgxConfig)
	if err != nil {
		return nil, fmt.Errorf("failed creating connection pool with error=%w", err)
	}
	return pool, nil
}

func NewDatabaseClient(c context.Context, dbConfig config.Database) *pgxpool.Pool {
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "main NewDatabaseClient").
		Str(log.KeyProcess, "initializing pgx config").
		Logger()

	logger.Info().Msg("initializing pgx config")
	pgxConfig, err := pgxpool.ParseConfig(PostgresUrl(dbConfig))
	if err != nil {
		err = fmt.Errorf("failed creating pgx config with error=%w", err)
		logger.Fatal().Err(err).Msg(err.Error())
	}
	pgxConfig.AfterConnect = RegisterTypes
	if dbConfig.MaxConnections > 0 {
		pgxConfig.MaxConns = dbConfig.MaxConnections
	}
	if dbConfig.MinConnections > 0 {
		pgxConfig.MinConns = dbConfig.MinConnections
	}
	logger.Info().Msg("initialized pgx config")

	logger = logger.With().Str(log.KeyProcess, "attaching otel tracer to pgx").Logger()
	logger.Info().Msg("attaching otel tracer to pgx")
	pgxConfig.ConnConfig.Tracer = otelpgx.NewTracer(
		otelpgx.WithAttributes(semconv.DBSystemPostgreSQL),
	)
	logger.Info().Msg("attached otel tracer to pgx")

	logger = logger.With().Str(log.KeyProcess, "creating connection pool").Logger()
	logger.Info().Msg("creating connection pool")
	pool, err := pgxpool.NewWithConfig(c, pgxConfig)
	if err != nil {
		err = fmt.Errorf("failed creating connection pool with error=%w", err)
		logger.Fatal().Err(err).Msg(err.Error())
	}
	logger.Info().Msg("created connection pool")

	logger = logger.With().Str(log.KeyProcess, "ping db").Logger()
	logger.Info().Msg("ping db")
	if err = pool.Ping(c); err != nil {
		err = fmt.Errorf("failed ping db with error=%w", err)
		logger.Fatal().Err(err).Msg(err.Error())
	}
	logger.Info().Msg("pinged db")

	if dbConfig.MigrateOnStart {
		c = logger.WithContext(c)
		if err = Migrate(c, pool, dbConfig.MigrationPath); err != nil {
			logger.Fatal().Err(err).Msg(err.Error())
		}
	}

	return pool
}
