package infra

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/Alturino/pricing/internal/config"
	"github.com/Alturino/pricing/internal/log"
)

func RedisOptions(cacheConfig config.Cache) *redis.Options {
	return &redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cacheConfig.Host, cacheConfig.Port),
		Password: cacheConfig.Password,
		DB:       cacheConfig.Database,
	}
}

// NewRedis returns a client that records a span and the pool metrics for
// every command, once the server has answered a ping.
func NewRedis(c context.Context, opt *redis.Options) (*redis.Client, error) {
	client := redis.NewClient(opt)
	if err := redisotel.InstrumentTracing(client, redisotel.WithAttributes(semconv.DBSystemRedis)); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed instrumenting redis tracing with error=%w", err)
	}
	if err := redisotel.InstrumentMetrics(client, redisotel.WithAttributes(semconv.DBSystemRedis)); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed instrumenting redis metrics with error=%w", err)
	}
	if err := client.Ping(c).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed pinging redis at %s with error=%w", opt.Addr, err)
	}
	return client, nil
}

// NewCacheClient backs the customer pricing cache. The pricing service
// cannot serve without it, so any failure is fatal.
func NewCacheClient(c context.Context, cacheConfig config.Cache) *redis.Client {
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "main NewCacheClient").
		Str(log.KeyProcess, "connecting pricing cache").
		Int("redis_db", cacheConfig.Database).
		Logger()

	logger.Info().Msg("connecting pricing cache")
	client, err := NewRedis(c, RedisOptions(cacheConfig))
	if err != nil {
		err = fmt.Errorf("failed connecting pricing cache with error=%w", err)
		logger.Fatal().Err(err).Msg(err.Error())
	}
	logger.Info().Msg("connected pricing cache")
	return client
}
