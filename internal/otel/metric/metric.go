package metric

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/Alturino/pricing/internal/log"
)

func InitMetricProvider(
	c context.Context,
	endpoint string,
	serviceName string,
) (*metric.MeterProvider, error) {
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "InitMetricProvider").
		Str(log.KeyProcess, "init metricExporter").
		Logger()

	logger.Info().Msg("initializing metricExporter")
	metricExporter, err := otlpmetricgrpc.New(
		c,
		otlpmetricgrpc.WithEndpoint(endpoint),
		otlpmetricgrpc.WithInsecure(),
	)
	if err != nil {
		logger.Error().Err(err).Msgf("failed creating metricExporter with error=%s", err.Error())
		return nil, err
	}
	logger.Info().Msg("initialized metricExporter")

	res := resource.NewWithAttributes(semconv.SchemaURL, semconv.ServiceName(serviceName))
	meterProvider := metric.NewMeterProvider(
		metric.WithReader(
			metric.NewPeriodicReader(metricExporter, metric.WithInterval(5*time.Second)),
		),
		metric.WithResource(res),
	)
	return meterProvider, nil
}
