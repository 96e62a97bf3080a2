package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/Alturino/pricing/internal/constants"
)

var Tracer = otel.Tracer(
	constants.APP_CART_SERVICE,
	trace.WithInstrumentationAttributes(semconv.ServiceNameKey.String(constants.APP_CART_SERVICE)),
)

var Meter = otel.Meter(constants.APP_CART_SERVICE)

var (
	CartConflicts, _ = Meter.Int64Counter(
		"cart.write_conflicts",
		metric.WithDescription("cart writes retried because the stored version moved"),
	)
	CartMerges, _ = Meter.Int64Counter(
		"cart.merges",
		metric.WithDescription("guest carts merged into user carts"),
	)
)
