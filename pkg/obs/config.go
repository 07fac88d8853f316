package obs

import (
	"io"
	"strings"
	"time"
)

// Config controls logging, tracing and metrics. The mapstructure tags let
// configuration loaders decode it directly.
type Config struct {
	ServiceName        string            `mapstructure:"service_name"`
	ServiceVersion     string            `mapstructure:"service_version"`
	Environment        string            `mapstructure:"environment"`
	OTLPEndpoint       string            `mapstructure:"otlp_endpoint"`
	OTLPInsecure       bool              `mapstructure:"otlp_insecure"`
	OTLPTimeout        time.Duration     `mapstructure:"otlp_timeout"`
	TracingSampleRatio float64           `mapstructure:"tracing_sample_ratio"`
	MetricsEnabled     bool              `mapstructure:"metrics_enabled"`
	LogLevel           string            `mapstructure:"log_level"`
	LogFormat          string            `mapstructure:"log_format"`
	LogRedactPII       bool              `mapstructure:"log_redact_pii"`
	LogHashPII         bool              `mapstructure:"log_hash_pii"`
	ResourceAttributes map[string]string `mapstructure:"resource_attributes"`

	// LogOutput defaults to os.Stderr so that command output on stdout stays
	// clean.
	LogOutput io.Writer `mapstructure:"-"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName:        "staffctl",
		ServiceVersion:     "dev",
		Environment:        "development",
		OTLPEndpoint:       "",
		OTLPInsecure:       false,
		OTLPTimeout:        30 * time.Second,
		TracingSampleRatio: 1.0,
		MetricsEnabled:     true,
		LogLevel:           "info",
		LogFormat:          LogFormatJSON,
		LogRedactPII:       true,
		LogHashPII:         true,
		ResourceAttributes: make(map[string]string),
	}
}

const (
	LogFormatJSON = "json"
	LogFormatText = "text"
)

func (c Config) Validate() error {
	if c.ServiceName == "" {
		return ErrInvalidServiceName
	}
	if c.TracingSampleRatio < 0 || c.TracingSampleRatio > 1 {
		return ErrInvalidSampleRatio
	}
	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "error":
	default:
		return ErrInvalidLogLevel
	}
	switch strings.ToLower(c.LogFormat) {
	case "", LogFormatJSON, LogFormatText:
	default:
		return ErrInvalidLogFormat
	}
	return nil
}
