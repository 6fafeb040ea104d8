package ffmm

import "time"

// Exit codes for semantic error classification.
//   - 0: Success
//   - 1: General error
//   - 2: CLI usage error
//   - 3+: Application-specific errors
const (
	ExitSuccess          = 0  // Load completed and promoted
	ExitGeneralError     = 1  // Unknown or unclassified error
	ExitUsageError       = 2  // CLI usage error (missing args, invalid flags)
	ExitPanic            = 3  // Internal panic
	ExitConfigError      = 10 // Invalid configuration or missing connection info
	ExitConnectionError  = 11 // Failed to connect to database
	ExitSourceNotFound   = 20 // Source file missing, unreadable or of unknown format
	ExitSchemaError      = 21 // Column names could not be normalized
	ExitBatchWriteFailed = 22 // A batch append failed; staging kept
	ExitRowCountMismatch = 23 // Verification failed; live table untouched
)

const (
	// DefaultSourcePath is where the merged regulatory snapshot is deployed.
	DefaultSourcePath = "/app/data_fuentes/ffmm_merged.parquet"

	// DefaultDestinationTable is the live table read by the dashboards.
	DefaultDestinationTable = "fondos_mutuos"

	// DefaultBatchSize bounds the rows written per transaction.
	DefaultBatchSize = 100000

	// DefaultStagingSuffix is appended to the live name to form the staging table.
	DefaultStagingSuffix = "_tmp"

	// DefaultBackupSuffix is appended to the live name to form the backup table.
	DefaultBackupSuffix = "_backup"

	// DefaultAppName is reported to PostgreSQL as application_name.
	DefaultAppName = "ffmm"

	// MaxIdentifierLength is PostgreSQL's NAMEDATALEN-1.
	MaxIdentifierLength = 63

	// DefaultRetryInitialDelay is the default initial delay before the first connection retry.
	DefaultRetryInitialDelay = 100 * time.Millisecond

	// DefaultRetryMaxDelay is the default maximum delay between connection retries.
	DefaultRetryMaxDelay = 1 * time.Minute

	// DefaultRetryMaxAttempts is the default maximum number of connection retries.
	DefaultRetryMaxAttempts = 3

	// DefaultTimeout guards against a hung run. Zero disables it.
	DefaultTimeout = time.Duration(0)
)
