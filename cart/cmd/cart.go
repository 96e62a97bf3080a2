package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"

	"github.com/Alturino/pricing/cart/internal/controller"
	"github.com/Alturino/pricing/cart/internal/otel"
	"github.com/Alturino/pricing/cart/internal/service"
	"github.com/Alturino/pricing/internal/config"
	"github.com/Alturino/pricing/internal/constants"
	"github.com/Alturino/pricing/internal/infra"
	"github.com/Alturino/pricing/internal/log"
	"github.com/Alturino/pricing/internal/middleware"
	inOtel "github.com/Alturino/pricing/internal/otel"
	"github.com/Alturino/pricing/internal/repository"
	"github.com/Alturino/pricing/pricing/pkg/client"
)

func RunCartService(c context.Context) {
	c, span := otel.Tracer.Start(c, "RunCartService")
	defer span.End()

	cfg := config.InitConfig(c, constants.APP_CART_SERVICE)

	logger := log.InitLogger(cfg.Application.LogPath, cfg.Application.Env).
		With().
		Str(log.KeyAppName, constants.APP_CART_SERVICE).
		Str(log.KeyTag, "main RunCartService").
		Str(log.KeyCartWriteMode, cfg.Cart.WriteMode).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "initializing router").Logger()
	logger.Info().Msg("initializing router")
	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.Handler())
	router.Use(
		otelmux.Middleware(constants.APP_CART_SERVICE),
		middleware.Logging,
		middleware.RecoverPanic,
	)
	logger.Info().Msg("initialized router")

	logger = logger.With().Str(log.KeyProcess, "initializing otel sdk").Logger()
	logger.Info().Msg("initializing otel sdk")
	c = logger.WithContext(c)
	shutdownFuncs, err := inOtel.InitOtelSdk(c, constants.APP_CART_SERVICE, cfg.Otel)
	if err != nil {
		err = fmt.Errorf("failed initializing otel sdk with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return
	}
	defer func() {
		logger.Info().Msg("shutting down otel")
		c = logger.WithContext(c)
		if err := inOtel.ShutdownOtel(c, shutdownFuncs); err != nil {
			err = fmt.Errorf("failed shutting down otel with error=%w", err)
			inOtel.RecordError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			return
		}
		logger.Info().Msg("shutdown otel")
	}()
	logger.Info().Msg("initialized otel sdk")

	logger = logger.With().Str(log.KeyProcess, "initializing database").Logger()
	logger.Info().Msg("initializing database")
	c = logger.WithContext(c)
	db := infra.NewDatabaseClient(c, cfg.Database)
	defer func() {
		logger = logger.With().Str(log.KeyProcess, "closing database").Logger()
		logger.Info().Msg("closing database")
		db.Close()
		logger.Info().Msg("closed database")
	}()
	queries := repository.New(db)
	logger.Info().Msg("initialized database")

	logger = logger.With().Str(log.KeyProcess, "initializing cart service").Logger()
	logger.Info().Msg("initializing cart service")
	pricingClient := client.New(cfg.Cart.PricingServiceURL)
	cartService := service.NewCartService(queries, service.PgxTxRunner(db, queries), pricingClient, cfg.Cart)
	controller.AttachCartController(router, cartService, cfg.Application.SecretKey)
	logger.Info().Msg("initialized cart service")

	logger = logger.With().Str(log.KeyProcess, "initializing server").Logger()
	logger.Info().Msg("initializing server")
	server := http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Application.Host, cfg.Application.Port),
		BaseContext:  func(net.Listener) context.Context { return c },
		Handler:      router,
		ReadTimeout:  45 * time.Second,
		WriteTimeout: 45 * time.Second,
	}
	logger.Info().Msg("initialized server")

	go func() {
		logger := logger.With().Str(log.KeyProcess, "start server").Logger()
		logger.Info().Msgf("start listening request at %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			err = fmt.Errorf("error=%w occured while server is running", err)
			inOtel.RecordError(err, span)
			logger.Error().Err(err).Msg(err.Error())
		}
	}()

	<-c.Done()
	logger = logger.With().Str(log.KeyProcess, "shutdown server").Logger()
	logger.Info().Msg("received interuption signal shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err = server.Shutdown(shutdownCtx); err != nil {
		err = fmt.Errorf("failed shutting down http server with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return
	}
	logger.Info().Msg("shutdown http server")
}
