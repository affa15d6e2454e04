package models

// Config holds the application configuration
type Config struct {
	Ingest       IngestConfig       `json:"ingest"`
	Database     DatabaseConfig     `json:"database"`
	Server       ServerConfig       `json:"server"`
	Retry        RetryConfig        `json:"retry"`
	Sync         SyncConfig         `json:"sync"`
	Connectivity ConnectivityConfig `json:"connectivity"`
	Media        MediaConfig        `json:"media"`
	Tracing      TracingConfig      `json:"tracing"`
	LogLevel     string             `json:"log_level"`
}

// IngestConfig holds the remote ingestion endpoint configuration
type IngestConfig struct {
	EndpointBase string `json:"endpoint_base"`
	APIKey       string `json:"api_key"`
	TimeoutSec   int    `json:"timeoutSec"`
}

// DatabaseConfig holds queue store related configurations
type DatabaseConfig struct {
	Path string `json:"path"`
}

// ServerConfig holds the local capture API configuration
type ServerConfig struct {
	Port            int `json:"port"`
	ReadTimeoutSec  int `json:"readTimeoutSec"`
	WriteTimeoutSec int `json:"writeTimeoutSec"`
	IdleTimeoutSec  int `json:"idleTimeoutSec"`
}

// RetryConfig holds the delivery backoff policy configuration
type RetryConfig struct {
	InitialDelaySec int     `json:"initialDelaySec"`
	Multiplier      float64 `json:"multiplier"`
	MaxDelaySec     int     `json:"maxDelaySec"`
	MaxRetries      int     `json:"maxRetries"`
}

// SyncConfig holds auto-sync timing configuration
type SyncConfig struct {
	IntervalSec int `json:"intervalSec"`
}

// ConnectivityConfig holds the reachability probe configuration
type ConnectivityConfig struct {
	ProbeURL    string `json:"probe_url"`
	IntervalSec int    `json:"intervalSec"`
	TimeoutSec  int    `json:"timeoutSec"`
}

// MediaConfig holds attachment limits for buffered reports
type MediaConfig struct {
	MaxScreenshotSizeMB int `json:"maxScreenshotSizeMB"`
	MaxVideoSizeMB      int `json:"maxVideoSizeMB"`
	MaxPerReport        int `json:"maxPerReport"`
}

// TracingConfig holds OpenTelemetry tracing configuration
type TracingConfig struct {
	Enabled      bool    `json:"enabled"`
	ServiceName  string  `json:"service_name"`
	Environment  string  `json:"environment"`
	OTLPEndpoint string  `json:"otlp_endpoint"`
	SampleRate   float64 `json:"sample_rate"`
	UseStdout    bool    `json:"use_stdout"`
}

type ConfigError struct {
	Message string
}

func (e ConfigError) Error() string {
	return e.Message
}
