package observability

import (
	"os"
	"strings"

	"github.com/smallbiznis/frontdesk/internal/config"
	"github.com/smallbiznis/frontdesk/internal/observability/logger"
	"github.com/smallbiznis/frontdesk/internal/observability/metrics"
	"github.com/smallbiznis/frontdesk/internal/observability/tracing"
)

// Config is the resolved observability setup for one process.
type Config struct {
	ServiceName string
	Environment string
	Version     string

	Settings config.ObservabilityConfig
}

// LoadConfig derives the observability setup from the application config.
// DEPLOYMENT_ENV and SERVICE_VERSION override what the app reports.
func LoadConfig(cfg config.Config) Config {
	serviceName := strings.TrimSpace(cfg.AppName)
	if serviceName == "" {
		serviceName = "frontdesk"
	}
	return Config{
		ServiceName: serviceName,
		Environment: override("DEPLOYMENT_ENV", cfg.Environment),
		Version:     override("SERVICE_VERSION", cfg.AppVersion),
		Settings:    cfg.Observability,
	}
}

// Debug reports whether verbose development logging should be used.
func (c Config) Debug() bool {
	if strings.EqualFold(strings.TrimSpace(c.Settings.LogLevel), "debug") {
		return true
	}
	switch strings.ToLower(strings.TrimSpace(c.Environment)) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

func (c Config) Logger() logger.Config {
	return logger.Config{
		ServiceName:         c.ServiceName,
		Environment:         c.Environment,
		Version:             c.Version,
		Level:               c.Settings.LogLevel,
		Format:              c.Settings.LogFormat,
		Debug:               c.Debug(),
		IncludeCaller:       true,
		IncludeStackOnError: c.Debug(),
	}
}

// Tracing honours OTEL_EXPORTER_OTLP_TRACES_PROTOCOL over the shared protocol.
func (c Config) Tracing() tracing.Config {
	protocol := c.Settings.OtelProtocol
	if traces := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_TRACES_PROTOCOL")); traces != "" {
		protocol = strings.ToLower(traces)
	}
	return tracing.Config{
		Enabled:          c.Settings.OtelEnabled,
		ServiceName:      c.ServiceName,
		ServiceVersion:   c.Version,
		Environment:      c.Environment,
		ExporterEndpoint: c.Settings.OtelEndpoint,
		ExporterProtocol: protocol,
		SamplingRatio:    c.Settings.OtelSamplingRatio,
	}
}

func (c Config) Metrics() metrics.Config {
	return metrics.Config{
		Enabled:          c.Settings.OtelEnabled,
		ExporterEndpoint: c.Settings.OtelEndpoint,
		ExporterProtocol: c.Settings.OtelProtocol,
		ServiceName:      c.ServiceName,
		Environment:      c.Environment,
	}
}

func override(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return strings.TrimSpace(fallback)
}
