package observability

import (
	"os"
	"strconv"
	"strings"

	"github.com/masaladesk/masaladesk/internal/config"
)

// Config controls logging, tracing and metrics providers.
type Config struct {
	ServiceName string
	Environment string
	Version     string

	LogLevel  string
	LogFormat string

	OtelEnabled          bool
	OtelExporterEndpoint string
	OtelExporterProtocol string
	OtelSamplingRatio    float64
}

// NewConfig derives observability settings from app config and environment.
func NewConfig(app config.Config) Config {
	ratio := 1.0
	if raw := strings.TrimSpace(os.Getenv("OTEL_SAMPLING_RATIO")); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil && v >= 0 && v <= 1 {
			ratio = v
		}
	}

	enabled := false
	if raw := strings.TrimSpace(os.Getenv("OTEL_ENABLED")); raw != "" {
		enabled, _ = strconv.ParseBool(raw)
	}

	return Config{
		ServiceName:          app.AppName,
		Environment:          app.Environment,
		Version:              app.AppVersion,
		LogLevel:             envOr("LOG_LEVEL", "info"),
		LogFormat:            envOr("LOG_FORMAT", "json"),
		OtelEnabled:          enabled,
		OtelExporterEndpoint: envOr("OTEL_EXPORTER_ENDPOINT", "localhost:4317"),
		OtelExporterProtocol: envOr("OTEL_EXPORTER_PROTOCOL", "grpc"),
		OtelSamplingRatio:    ratio,
	}
}

func (c Config) Debug() bool {
	return strings.EqualFold(c.LogLevel, "debug")
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
