package observability

import (
	"github.com/smallbiznis/frontdesk/internal/observability/logger"
	"github.com/smallbiznis/frontdesk/internal/observability/metrics"
	"github.com/smallbiznis/frontdesk/internal/observability/tracing"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
)

// Module wires logging, tracing and metrics. The tracer provider is forced so
// the global propagator is installed before the first request.
var Module = fx.Module("observability",
	fx.Provide(LoadConfig),
	fx.Provide(Config.Logger, logger.New),
	fx.Provide(Config.Tracing, tracing.NewProvider),
	fx.Provide(Config.Metrics, metrics.NewProvider, metrics.New, metrics.NewHTTPMetrics),
	fx.Invoke(func(*sdktrace.TracerProvider) {}),
)
