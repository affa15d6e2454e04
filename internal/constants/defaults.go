package constants

// Delivery retry policy defaults
const (
	DefaultInitialRetryDelaySec = 5
	DefaultRetryMultiplier      = 2.0
	DefaultMaxRetryDelaySec     = 300
	DefaultMaxRetries           = 5
)

// Auto-sync defaults
const (
	DefaultSyncIntervalSec              = 30
	DefaultConnectivityProbeIntervalSec = 15
	DefaultConnectivityProbeTimeoutSec  = 5
)

// Default timeout values
const (
	DefaultHTTPTimeoutSec        = 30
	DefaultDatabaseRetryAttempts = 3
	DefaultRetryBackoffMs        = 1000
	DefaultMaxBackoffMs          = 60000
	DefaultGracefulShutdownSec   = 30
	DefaultServerReadTimeoutSec  = 15
	DefaultServerWriteTimeoutSec = 15
	DefaultServerIdleTimeoutSec  = 60
	DefaultServerPort            = 8085
)

// Default limits for buffered report attachments
const (
	DefaultMaxScreenshotSizeMB = 10
	DefaultMaxVideoSizeMB      = 100
	DefaultMaxMediaPerReport   = 10
)

// Encryption settings for at-rest payload encryption
const (
	EncryptionSalt       = "bugrelay-queue-salt-v1"
	EncryptionIterations = 100000
	EncryptionKeySize    = 32
	EncryptionNonceSize  = 12
)
