package otel

import (
	"go.opentelemetry.io/otel"

	"github.com/Alturino/pricing/internal/constants"
)

var Tracer = otel.Tracer(constants.APP_MAIN)
