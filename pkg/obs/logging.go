package obs

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"
)

type LoggingProvider struct {
	logger *Logger
	config Config
}

func newLoggingProvider(config Config) (*LoggingProvider, error) {
	logger := initLogger(config)

	return &LoggingProvider{
		logger: logger,
		config: config,
	}, nil
}

func (lp *LoggingProvider) Logger() *Logger {
	return lp.logger
}

// WithTracing adds the trace and span ids of the active span in ctx.
func (lp *LoggingProvider) WithTracing(ctx context.Context) context.Context {
	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return ctx
	}

	traceID := span.SpanContext().TraceID().String()
	spanID := span.SpanContext().SpanID().String()

	return withCorrelation(ctx, traceID, spanID)
}

func (lp *LoggingProvider) Debug(ctx context.Context, msg string, attrs ...any) {
	lp.logger.Debug(lp.WithTracing(ctx), msg, attrs...)
}

func (lp *LoggingProvider) Info(ctx context.Context, msg string, attrs ...any) {
	lp.logger.Info(lp.WithTracing(ctx), msg, attrs...)
}

func (lp *LoggingProvider) Warn(ctx context.Context, msg string, attrs ...any) {
	lp.logger.Warn(lp.WithTracing(ctx), msg, attrs...)
}

func (lp *LoggingProvider) Error(ctx context.Context, msg string, err error, attrs ...any) {
	lp.logger.Error(lp.WithTracing(ctx), msg, err, attrs...)
}

func (lp *LoggingProvider) Event(ctx context.Context, event, status string, attrs ...any) {
	lp.logger.Event(lp.WithTracing(ctx), event, status, attrs...)
}

func (lp *LoggingProvider) EventWithLatency(ctx context.Context, event, status string, latency time.Duration, attrs ...any) {
	lp.logger.EventWithLatency(lp.WithTracing(ctx), event, status, latency, attrs...)
}

func (lp *LoggingProvider) Shutdown(ctx context.Context) error {
	return nil
}

func Debug(ctx context.Context, msg string, attrs ...any) {
	if o := Global(); o != nil && o.logging != nil {
		o.logging.Debug(ctx, msg, attrs...)
	}
}

func Info(ctx context.Context, msg string, attrs ...any) {
	if o := Global(); o != nil && o.logging != nil {
		o.logging.Info(ctx, msg, attrs...)
	}
}

func Warn(ctx context.Context, msg string, attrs ...any) {
	if o := Global(); o != nil && o.logging != nil {
		o.logging.Warn(ctx, msg, attrs...)
	}
}

func Error(ctx context.Context, msg string, err error, attrs ...any) {
	if o := Global(); o != nil && o.logging != nil {
		o.logging.Error(ctx, msg, err, attrs...)
	}
}

func Event(ctx context.Context, event, status string, attrs ...any) {
	if o := Global(); o != nil && o.logging != nil {
		o.logging.Event(ctx, event, status, attrs...)
	}
}

func EventWithLatency(ctx context.Context, event, status string, latency time.Duration, attrs ...any) {
	if o := Global(); o != nil && o.logging != nil {
		o.logging.EventWithLatency(ctx, event, status, latency, attrs...)
	}
}
