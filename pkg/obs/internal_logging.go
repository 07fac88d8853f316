package obs

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"time"
)

type contextKey string

const (
	traceIDKey   contextKey = "trace_id"
	spanIDKey    contextKey = "span_id"
	recordIDKey  contextKey = "record_id"
	operationKey contextKey = "operation"

	StatusOK       = "ok"
	StatusError    = "error"
	StatusSkipped  = "skipped"
	StatusRejected = "rejected"

	ErrKindValidation = "validation"
	ErrKindNotFound   = "not_found"
	ErrKindInternal   = "internal"
	ErrKindNetwork    = "network"
	ErrKindHTTP       = "http"
	ErrKindKafka      = "kafka"
)

var (
	piiPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(password|secret|token|key|auth|credential)\s*[:=]\s*["']?[^"'\s]+["']?`),
		regexp.MustCompile(`(?i)(email)\s*[:=]\s*["']?[^"'\s@]+@[^"'\s]+\.[^"'\s]+["']?`),
		regexp.MustCompile(`(?i)(phone|mobile|tel)\s*[:=]\s*["']?[\d\-\+\(\)\s]+["']?`),
		regexp.MustCompile(`(?i)(address)\s*[:=]\s*["']?[^"'\n]+["']?`),
	}

	// piiKeys are attribute keys whose values are always redacted.
	piiKeys = map[string]bool{
		"address":  true,
		"password": true,
		"token":    true,
	}
)

type Logger struct {
	*slog.Logger
	config *loggingConfig
}

type loggingConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	LogLevel       string
	LogFormat      string
	LogRedactPII   bool
	LogHashPII     bool
}

func initLogger(config Config) *Logger {
	loggingConfig := &loggingConfig{
		ServiceName:    config.ServiceName,
		ServiceVersion: config.ServiceVersion,
		Environment:    config.Environment,
		LogLevel:       config.LogLevel,
		LogFormat:      config.LogFormat,
		LogRedactPII:   config.LogRedactPII,
		LogHashPII:     config.LogHashPII,
	}

	level := parseLogLevel(loggingConfig.LogLevel)

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.String(slog.TimeKey, a.Value.Time().Format(time.RFC3339Nano))
			}
			return a
		},
	}

	var out io.Writer = os.Stderr
	if config.LogOutput != nil {
		out = config.LogOutput
	}

	var handler slog.Handler
	if strings.EqualFold(loggingConfig.LogFormat, LogFormatText) {
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}

	logger := slog.New(handler)

	hostname, _ := os.Hostname()

	defaultAttrs := []any{
		"service", loggingConfig.ServiceName,
		"version", loggingConfig.ServiceVersion,
		"env", loggingConfig.Environment,
		"hostname", hostname,
	}

	return &Logger{
		Logger: logger.With(defaultAttrs...),
		config: loggingConfig,
	}
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithRecord tags ctx with the id of the record being worked on.
func WithRecord(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, recordIDKey, id)
}

// WithOperation tags ctx with the name of the running operation.
func WithOperation(ctx context.Context, op string) context.Context {
	if op == "" {
		return ctx
	}
	return context.WithValue(ctx, operationKey, op)
}

func withCorrelation(ctx context.Context, traceID, spanID string) context.Context {
	if traceID != "" {
		ctx = context.WithValue(ctx, traceIDKey, traceID)
	}
	if spanID != "" {
		ctx = context.WithValue(ctx, spanIDKey, spanID)
	}
	return ctx
}

func (l *Logger) withContext(ctx context.Context) *Logger {
	attrs := []any{}
	for _, key := range []contextKey{traceIDKey, spanIDKey, recordIDKey, operationKey} {
		if v, ok := ctx.Value(key).(string); ok && v != "" {
			attrs = append(attrs, string(key), v)
		}
	}

	if len(attrs) == 0 {
		return l
	}

	return &Logger{
		Logger: l.With(attrs...),
		config: l.config,
	}
}

func (l *Logger) redactValue(value string) string {
	if l.config.LogHashPII {
		hash := sha256.Sum256([]byte(value))
		return fmt.Sprintf("[REDACTED:%s]", hex.EncodeToString(hash[:8]))
	}
	return "[REDACTED]"
}

func (l *Logger) redactPII(msg string) string {
	if !l.config.LogRedactPII {
		return msg
	}

	redacted := msg
	for _, pattern := range piiPatterns {
		redacted = pattern.ReplaceAllStringFunc(redacted, l.redactValue)
	}
	return redacted
}

func (l *Logger) processAttrs(attrs []any) []any {
	if !l.config.LogRedactPII {
		return attrs
	}

	processed := make([]any, len(attrs))
	copy(processed, attrs)

	for i := 0; i+1 < len(processed); i += 2 {
		key, ok := processed[i].(string)
		if !ok {
			continue
		}

		value, ok := processed[i+1].(string)
		if !ok {
			continue
		}

		if piiKeys[strings.ToLower(key)] {
			processed[i+1] = l.redactValue(value)
			continue
		}

		for _, pattern := range piiPatterns {
			if pattern.MatchString(fmt.Sprintf("%s: %s", key, value)) {
				processed[i+1] = l.redactValue(value)
				break
			}
		}
	}

	return processed
}

func (l *Logger) Log(ctx context.Context, level slog.Level, msg string, attrs ...any) {
	msg = l.redactPII(msg)
	attrs = l.processAttrs(attrs)
	l.withContext(ctx).Logger.Log(ctx, level, msg, attrs...)
}

func (l *Logger) Debug(ctx context.Context, msg string, attrs ...any) {
	l.Log(ctx, slog.LevelDebug, msg, attrs...)
}

func (l *Logger) Info(ctx context.Context, msg string, attrs ...any) {
	l.Log(ctx, slog.LevelInfo, msg, attrs...)
}

func (l *Logger) Warn(ctx context.Context, msg string, attrs ...any) {
	l.Log(ctx, slog.LevelWarn, msg, attrs...)
}

func (l *Logger) Error(ctx context.Context, msg string, err error, attrs ...any) {
	if err != nil {
		attrs = append(attrs, "error", err.Error())
	}
	l.Log(ctx, slog.LevelError, msg, attrs...)
}

func (l *Logger) Event(ctx context.Context, event, status string, attrs ...any) {
	attrs = append([]any{"event", event, "status", status}, attrs...)
	l.Info(ctx, event, attrs...)
}

func (l *Logger) EventWithLatency(ctx context.Context, event, status string, latency time.Duration, attrs ...any) {
	attrs = append([]any{
		"event", event,
		"status", status,
		"latency_ms", latency.Milliseconds(),
	}, attrs...)
	l.Info(ctx, event, attrs...)
}

func StartTimer() func() time.Duration {
	start := time.Now()
	return func() time.Duration {
		return time.Since(start)
	}
}
