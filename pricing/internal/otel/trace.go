package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/Alturino/pricing/internal/constants"
)

var Tracer = otel.Tracer(
	constants.APP_PRICING_SERVICE,
	trace.WithInstrumentationAttributes(semconv.ServiceNameKey.String(constants.APP_PRICING_SERVICE)),
)

var Meter = otel.Meter(constants.APP_PRICING_SERVICE)

var (
	ResolvedPrices, _ = Meter.Int64Counter(
		"pricing.resolved_prices",
		metric.WithDescription("effective prices resolved, by discounted attribute"),
	)
	RejectedRules, _ = Meter.Int64Counter(
		"pricing.rejected_rules",
		metric.WithDescription("pricing rules rejected by the margin validator"),
	)
)
