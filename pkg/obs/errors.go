package obs

import "errors"

var (
	ErrInvalidServiceName = errors.New("service name cannot be empty")
	ErrInvalidSampleRatio = errors.New("tracing sample ratio must be between 0 and 1")
	ErrInvalidLogLevel    = errors.New("log level must be one of debug, info, warn, error")
	ErrInvalidLogFormat   = errors.New("log format must be json or text")
	ErrNotInitialized     = errors.New("observability not initialized")
	ErrTracingInitFailed  = errors.New("failed to initialize tracing")
	ErrMetricsInitFailed  = errors.New("failed to initialize metrics")
	ErrLoggingInitFailed  = errors.New("failed to initialize logging")
	ErrShutdownFailed     = errors.New("shutdown failed")
)
