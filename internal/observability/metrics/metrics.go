package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	forecasts         metric.Int64Counter
	delegatedFallback metric.Int64Counter
	cacheLookups      metric.Int64Counter
	ingestRows        metric.Int64Counter
	delegatedLatency  metric.Float64Histogram
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "pulseboard"
	}
	meter := provider.Meter(name)

	forecasts, err := meter.Int64Counter("pulseboard_forecasts_total",
		metric.WithDescription("Forecast results produced, by strategy and horizon."))
	if err != nil {
		return nil, err
	}
	delegatedFallback, err := meter.Int64Counter("pulseboard_delegated_fallback_total",
		metric.WithDescription("Delegated forecasts that fell back to the statistical strategy, by reason."))
	if err != nil {
		return nil, err
	}
	cacheLookups, err := meter.Int64Counter("pulseboard_forecast_cache_lookups_total")
	if err != nil {
		return nil, err
	}
	ingestRows, err := meter.Int64Counter("pulseboard_daily_metric_rows_ingested_total")
	if err != nil {
		return nil, err
	}
	delegatedLatency, err := meter.Float64Histogram("pulseboard_delegated_latency_seconds",
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	return &Metrics{
		forecasts:         forecasts,
		delegatedFallback: delegatedFallback,
		cacheLookups:      cacheLookups,
		ingestRows:        ingestRows,
		delegatedLatency:  delegatedLatency,
	}, nil
}

// RecordForecast counts a produced forecast.
func (m *Metrics) RecordForecast(ctx context.Context, strategy, horizon string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("strategy", strings.TrimSpace(strategy)),
		attribute.String("horizon", strings.TrimSpace(horizon)),
	)
	m.forecasts.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordDelegatedFallback counts a rejected or failed delegated projection.
func (m *Metrics) RecordDelegatedFallback(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("reason", strings.TrimSpace(reason)))
	m.delegatedFallback.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordDelegatedLatency observes a delegated call duration.
func (m *Metrics) RecordDelegatedLatency(ctx context.Context, elapsed time.Duration, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("outcome", strings.TrimSpace(outcome)))
	m.delegatedLatency.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attrs...))
}

// RecordCacheLookup counts forecast cache hits and misses.
func (m *Metrics) RecordCacheLookup(ctx context.Context, backend string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	attrs := FilterAttributes(
		attribute.String("backend", strings.TrimSpace(backend)),
		attribute.String("result", result),
	)
	m.cacheLookups.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordIngest counts upserted daily metric rows.
func (m *Metrics) RecordIngest(ctx context.Context, source string, rows int) {
	if m == nil || rows <= 0 {
		return
	}
	attrs := FilterAttributes(attribute.String("source", strings.TrimSpace(source)))
	m.ingestRows.Add(ctx, int64(rows), metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"strategy":    {},
	"horizon":     {},
	"reason":      {},
	"outcome":     {},
	"backend":     {},
	"result":      {},
	"source":      {},
	"endpoint":    {},
	"status_code": {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
