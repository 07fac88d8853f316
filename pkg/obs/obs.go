package obs

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const shutdownTimeout = 10 * time.Second

type Observability struct {
	config  Config
	tracing *TracingProvider
	metrics *MetricsProvider
	logging *LoggingProvider

	shutdownOnce sync.Once
	shutdownErr  error
}

var (
	globalObs *Observability
	globalMu  sync.RWMutex
)

// Init builds the logging, tracing and metrics providers and installs them
// as the process-wide instance. A second Init before Shutdown returns the
// existing instance.
func Init(ctx context.Context, config Config) (*Observability, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	globalMu.Lock()
	defer globalMu.Unlock()
	if globalObs != nil {
		return globalObs, nil
	}

	o := &Observability{config: config}

	var err error
	if o.logging, err = newLoggingProvider(config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoggingInitFailed, err)
	}
	if o.tracing, err = newTracingProvider(ctx, config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTracingInitFailed, err)
	}
	if o.metrics, err = newMetricsProvider(ctx, config); err != nil {
		_ = o.tracing.Shutdown(ctx)
		return nil, fmt.Errorf("%w: %v", ErrMetricsInitFailed, err)
	}

	o.logging.Debug(ctx, "observability initialized",
		"otlp_endpoint", config.OTLPEndpoint,
		"metrics_enabled", config.MetricsEnabled,
	)

	globalObs = o
	return o, nil
}

func Global() *Observability {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalObs
}

func MustInit(ctx context.Context, config Config) *Observability {
	o, err := Init(ctx, config)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize observability: %v", err))
	}
	return o
}

// Shutdown flushes and stops the providers. It is safe to call more than
// once; later calls return the first result.
func (o *Observability) Shutdown(ctx context.Context) error {
	o.shutdownOnce.Do(func() {
		shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
		defer cancel()

		var errs []error
		if o.tracing != nil {
			if err := o.tracing.ForceFlush(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("flush traces: %w", err))
			}
			if err := o.tracing.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("shutdown tracing: %w", err))
			}
		}
		if o.metrics != nil {
			if err := o.metrics.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("shutdown metrics: %w", err))
			}
		}

		globalMu.Lock()
		if globalObs == o {
			globalObs = nil
		}
		globalMu.Unlock()

		if len(errs) > 0 {
			o.shutdownErr = fmt.Errorf("%w: %w", ErrShutdownFailed, errors.Join(errs...))
		}
	})
	return o.shutdownErr
}

// Shutdown stops the process-wide instance.
func Shutdown(ctx context.Context) error {
	o := Global()
	if o == nil {
		return ErrNotInitialized
	}
	return o.Shutdown(ctx)
}

func (o *Observability) Tracer(name string, opts ...trace.TracerOption) trace.Tracer {
	if o.tracing == nil {
		return noop.NewTracerProvider().Tracer(name, opts...)
	}
	return o.tracing.Tracer(name, opts...)
}

func (o *Observability) Meter(name string, opts ...metric.MeterOption) metric.Meter {
	if o.metrics == nil {
		return otel.Meter(name, opts...)
	}
	return o.metrics.Meter(name, opts...)
}

func (o *Observability) Logger() *LoggingProvider {
	return o.logging
}

func (o *Observability) Metrics() *MetricsProvider {
	return o.metrics
}

func (o *Observability) Config() Config {
	return o.config
}

// MetricsHandler exposes the Prometheus registry of o.
func (o *Observability) MetricsHandler() http.Handler {
	if o.metrics == nil {
		return http.NotFoundHandler()
	}
	return o.metrics.HTTPHandler()
}

// Tracer returns a tracer from the global instance, or a no-op tracer before
// Init.
func Tracer(name string, opts ...trace.TracerOption) trace.Tracer {
	if o := Global(); o != nil {
		return o.Tracer(name, opts...)
	}
	return noop.NewTracerProvider().Tracer(name, opts...)
}

func Meter(name string, opts ...metric.MeterOption) metric.Meter {
	if o := Global(); o != nil {
		return o.Meter(name, opts...)
	}
	return otel.Meter(name, opts...)
}
