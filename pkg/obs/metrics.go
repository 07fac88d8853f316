package obs

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const meterName = "github.com/quiby-ai/staffdesk/obs"

type MetricsProvider struct {
	provider *sdkmetric.MeterProvider
	registry *prometheus.Registry
	exporter *promexporter.Exporter
	config   Config
}

func newMetricsProvider(ctx context.Context, config Config) (*MetricsProvider, error) {
	if !config.MetricsEnabled {
		return &MetricsProvider{config: config}, nil
	}

	res, err := newResource(ctx, config)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()

	exporter, err := promexporter.New(
		promexporter.WithRegisterer(registry),
		promexporter.WithoutUnits(),
		promexporter.WithoutScopeInfo(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)

	otel.SetMeterProvider(provider)

	return &MetricsProvider{
		provider: provider,
		registry: registry,
		exporter: exporter,
		config:   config,
	}, nil
}

func (mp *MetricsProvider) Meter(name string, opts ...metric.MeterOption) metric.Meter {
	if mp.provider == nil {
		return otel.Meter(name, opts...)
	}
	return mp.provider.Meter(name, opts...)
}

// HTTPHandler serves the private Prometheus registry, or 404 when metrics
// are disabled.
func (mp *MetricsProvider) HTTPHandler() http.Handler {
	if mp.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(mp.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

func (mp *MetricsProvider) Registry() *prometheus.Registry {
	return mp.registry
}

func (mp *MetricsProvider) Shutdown(ctx context.Context) error {
	if mp.provider == nil {
		return nil
	}
	return mp.provider.Shutdown(ctx)
}

func (mp *MetricsProvider) ForceFlush(ctx context.Context) error {
	if mp.provider == nil {
		return nil
	}
	return mp.provider.ForceFlush(ctx)
}

// Counter creates an int64 counter on the package meter. It works before
// Init, against the global OTel meter provider.
func Counter(name, description string) (metric.Int64Counter, error) {
	return Meter(meterName).Int64Counter(name, metric.WithDescription(description))
}

// Histogram creates a float64 histogram in milliseconds on the package meter.
func Histogram(name, description string) (metric.Float64Histogram, error) {
	return Meter(meterName).Float64Histogram(name,
		metric.WithDescription(description),
		metric.WithUnit("ms"),
	)
}
