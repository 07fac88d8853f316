// Package config loads staffctl settings from an optional file and
// STAFFDESK_* environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/quiby-ai/staffdesk/pkg/employeeapi"
	"github.com/quiby-ai/staffdesk/pkg/httpx"
	"github.com/quiby-ai/staffdesk/pkg/obs"
	"github.com/quiby-ai/staffdesk/pkg/stream"
)

// EnvPrefix is prepended to every environment key, so api.base_url is read
// from STAFFDESK_API_BASE_URL.
const EnvPrefix = "STAFFDESK"

var (
	ErrInvalidBaseURL  = errors.New("config: api.base_url must be an absolute http(s) URL")
	ErrInvalidTimeout  = errors.New("config: api.timeout must be positive")
	ErrInvalidRetries  = errors.New("config: api.max_retries cannot be negative")
	ErrInvalidDebounce = errors.New("config: editor.debounce must be positive")
	ErrMissingGroupID  = errors.New("config: kafka.group_id is required when brokers are set")
)

type Config struct {
	API    APIConfig    `mapstructure:"api"`
	Obs    obs.Config   `mapstructure:"obs"`
	Kafka  KafkaConfig  `mapstructure:"kafka"`
	Editor EditorConfig `mapstructure:"editor"`
}

type APIConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
}

// KafkaConfig enables change events when Brokers is non-empty.
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	GroupID string   `mapstructure:"group_id"`
}

func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

type EditorConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
}

func setDefaults(v *viper.Viper) {
	o := obs.DefaultConfig()
	v.SetDefault("api.base_url", employeeapi.DefaultBaseURL)
	v.SetDefault("api.timeout", 10*time.Second)
	v.SetDefault("api.max_retries", 0)

	v.SetDefault("obs.service_name", o.ServiceName)
	v.SetDefault("obs.service_version", o.ServiceVersion)
	v.SetDefault("obs.environment", o.Environment)
	v.SetDefault("obs.otlp_endpoint", o.OTLPEndpoint)
	v.SetDefault("obs.otlp_insecure", o.OTLPInsecure)
	v.SetDefault("obs.otlp_timeout", o.OTLPTimeout)
	v.SetDefault("obs.tracing_sample_ratio", o.TracingSampleRatio)
	v.SetDefault("obs.metrics_enabled", o.MetricsEnabled)
	v.SetDefault("obs.log_level", o.LogLevel)
	v.SetDefault("obs.log_format", o.LogFormat)
	v.SetDefault("obs.log_redact_pii", o.LogRedactPII)
	v.SetDefault("obs.log_hash_pii", o.LogHashPII)
	v.SetDefault("obs.resource_attributes", map[string]string{})

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.group_id", "staffctl")

	v.SetDefault("editor.debounce", stream.DefaultDebounce)
}

// Load reads path, when given, then applies environment overrides and
// validates the result. The file format follows its extension.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidBaseURL
	}
	if c.API.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.API.MaxRetries < 0 {
		return ErrInvalidRetries
	}
	if c.Editor.Debounce <= 0 {
		return ErrInvalidDebounce
	}
	if c.Kafka.Enabled() && c.Kafka.GroupID == "" {
		return ErrMissingGroupID
	}
	if err := c.Obs.Validate(); err != nil {
		return fmt.Errorf("config: obs: %w", err)
	}
	return nil
}

// EmployeeAPI derives the REST client settings.
func (c Config) EmployeeAPI() employeeapi.Config {
	return employeeapi.Config{
		BaseURL: c.API.BaseURL,
		HTTP: httpx.Config{
			Timeout:    c.API.Timeout,
			MaxRetries: c.API.MaxRetries,
		},
	}
}
