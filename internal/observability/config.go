package observability

import (
	"strings"

	"github.com/smallbiznis/pulseboard/internal/config"
)

const (
	defaultServiceName   = "pulseboard"
	defaultSamplingRatio = 0.1
)

// Config is the normalized view of the telemetry settings in config.Config.
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

func LoadConfig(cfg config.Config) Config {
	out := Config{
		ServiceName:          strings.TrimSpace(cfg.AppName),
		Environment:          strings.TrimSpace(cfg.Environment),
		Version:              strings.TrimSpace(cfg.AppVersion),
		LogLevel:             lower(cfg.Telemetry.LogLevel),
		LogFormat:            lower(cfg.Telemetry.LogFormat),
		OtelEnabled:          cfg.Telemetry.OtelEnabled,
		OtelExporterEndpoint: strings.TrimSpace(cfg.OTLPEndpoint),
		OtelExporterProtocol: lower(cfg.Telemetry.OtelProtocol),
		OtelSamplingRatio:    cfg.Telemetry.SamplingRatio,
	}
	if out.ServiceName == "" {
		out.ServiceName = defaultServiceName
	}
	if out.LogLevel == "" {
		out.LogLevel = "info"
	}
	if out.LogFormat != "console" {
		out.LogFormat = "json"
	}
	if out.OtelExporterProtocol != "http" {
		out.OtelExporterProtocol = "grpc"
	}
	if out.OtelSamplingRatio <= 0 || out.OtelSamplingRatio > 1 {
		out.OtelSamplingRatio = defaultSamplingRatio
	}
	return out
}

// Debug is true for debug logging or any non-production environment.
func (c Config) Debug() bool {
	if c.LogLevel == "debug" {
		return true
	}
	switch lower(c.Environment) {
	case "dev", "development", "local", "test":
		return true
	}
	return false
}

func lower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
