package config

import (
	"encoding/json"
	"fmt"
	"os"

	"bugrelay/internal/constants"
	"bugrelay/internal/models"
	"bugrelay/internal/security"
)

var (
	ErrMissingIngestURL = models.ConfigError{Message: "missing ingestion endpoint base URL"}
	ErrMissingDBPath    = models.ConfigError{Message: "missing database path"}
)

func LoadConfig(path string) (*models.Config, error) {
	// Validate config file path to prevent directory traversal
	if err := security.ValidateFilePath(path); err != nil {
		return nil, fmt.Errorf("invalid config path: %w", err)
	}

	file, err := os.ReadFile(path) // #nosec G304 - Path validated by security.ValidateFilePath above
	if err != nil {
		return nil, err
	}

	var config models.Config
	if err := json.Unmarshal(file, &config); err != nil {
		return nil, err
	}

	applyEnvironmentOverrides(&config)

	if err := validate(&config); err != nil {
		return nil, err
	}

	if err := validateSecurity(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func validate(c *models.Config) error {
	if c.Ingest.EndpointBase == "" {
		return ErrMissingIngestURL
	}
	if c.Database.Path == "" {
		return ErrMissingDBPath
	}

	if c.Ingest.TimeoutSec <= 0 {
		c.Ingest.TimeoutSec = constants.DefaultHTTPTimeoutSec
	}

	if c.Retry.InitialDelaySec <= 0 {
		c.Retry.InitialDelaySec = constants.DefaultInitialRetryDelaySec
	}
	if c.Retry.Multiplier <= 1 {
		c.Retry.Multiplier = constants.DefaultRetryMultiplier
	}
	if c.Retry.MaxDelaySec <= 0 {
		c.Retry.MaxDelaySec = constants.DefaultMaxRetryDelaySec
	}
	if c.Retry.MaxRetries <= 0 {
		c.Retry.MaxRetries = constants.DefaultMaxRetries
	}

	if c.Sync.IntervalSec <= 0 {
		c.Sync.IntervalSec = constants.DefaultSyncIntervalSec
	}

	if c.Connectivity.ProbeURL == "" {
		// The ingestion endpoint itself is the best reachability signal.
		c.Connectivity.ProbeURL = c.Ingest.EndpointBase + "/health"
	}
	if c.Connectivity.IntervalSec <= 0 {
		c.Connectivity.IntervalSec = constants.DefaultConnectivityProbeIntervalSec
	}
	if c.Connectivity.TimeoutSec <= 0 {
		c.Connectivity.TimeoutSec = constants.DefaultConnectivityProbeTimeoutSec
	}

	if c.Media.MaxScreenshotSizeMB <= 0 {
		c.Media.MaxScreenshotSizeMB = constants.DefaultMaxScreenshotSizeMB
	}
	if c.Media.MaxVideoSizeMB <= 0 {
		c.Media.MaxVideoSizeMB = constants.DefaultMaxVideoSizeMB
	}
	if c.Media.MaxPerReport <= 0 {
		c.Media.MaxPerReport = constants.DefaultMaxMediaPerReport
	}

	if c.Server.Port <= 0 {
		c.Server.Port = constants.DefaultServerPort
	}
	if c.Server.ReadTimeoutSec <= 0 {
		c.Server.ReadTimeoutSec = constants.DefaultServerReadTimeoutSec
	}
	if c.Server.WriteTimeoutSec <= 0 {
		c.Server.WriteTimeoutSec = constants.DefaultServerWriteTimeoutSec
	}
	if c.Server.IdleTimeoutSec <= 0 {
		c.Server.IdleTimeoutSec = constants.DefaultServerIdleTimeoutSec
	}

	return nil
}

func applyEnvironmentOverrides(c *models.Config) {
	if url := os.Getenv("BUGRELAY_INGEST_URL"); url != "" {
		c.Ingest.EndpointBase = url
	}

	// SECURITY: API keys should be set via environment variables
	if key := os.Getenv("BUGRELAY_API_KEY"); key != "" {
		c.Ingest.APIKey = key
	}

	if path := os.Getenv("BUGRELAY_DB_PATH"); path != "" {
		c.Database.Path = path
	}
}

// validateSecurity performs security-specific validation
func validateSecurity(c *models.Config) error {
	isProduction := os.Getenv("BUGRELAY_ENV") == "production"

	if isProduction {
		if c.Ingest.APIKey == "" {
			return models.ConfigError{Message: "ingestion API key is required in production (set BUGRELAY_API_KEY environment variable)"}
		}

		if c.LogLevel == "debug" {
			return models.ConfigError{Message: "debug logging should not be used in production (security risk)"}
		}
	} else {
		if c.Ingest.APIKey == "" {
			fmt.Fprintf(os.Stderr, "WARNING: ingestion API key not set. Set BUGRELAY_API_KEY environment variable.\n")
		}
	}

	return nil
}
