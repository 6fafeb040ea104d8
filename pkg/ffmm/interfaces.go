package ffmm

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Loader runs one full load of a source snapshot into a live table.
type Loader interface {
	Load(ctx context.Context, config LoadConfig) (LoadResult, error)
}

// Connector establishes database connection pools. Implementations handle
// the various authentication methods.
type Connector interface {
	// Connect establishes a connection pool to the database.
	// The returned pool should be closed by the caller when done.
	Connect(ctx context.Context) (*pgxpool.Pool, error)
}

// TableStore is the relational side of a load. Every method acquires and
// releases its own connection; none holds a connection across calls.
type TableStore interface {
	// RecreateTable drops name if it exists and creates it empty with columns.
	RecreateTable(ctx context.Context, name string, columns []Column) error

	// AppendRows writes rows to name in a single transaction and returns the
	// number of rows the database reports as written.
	AppendRows(ctx context.Context, name string, columns []Column, rows [][]any) (int64, error)

	// CountRows returns the number of rows in name.
	CountRows(ctx context.Context, name string) (int64, error)

	// TableExists reports whether name resolves to a table.
	TableExists(ctx context.Context, name string) (bool, error)

	// DropTable drops name if it exists.
	DropTable(ctx context.Context, name string) error

	// Promote drops backup, renames live to backup (when live exists) and
	// staging to live, in one transaction. It returns the row count of the
	// table that became the backup.
	Promote(ctx context.Context, live, staging, backup string) (int64, error)
}

// Logger provides a pluggable logging interface.
// Implementations must be safe for concurrent use by multiple goroutines.
type Logger interface {
	// Verbose logs detailed diagnostic information.
	// Only logged when verbose mode is enabled.
	Verbose(format string, args ...interface{})

	// Info logs informational messages about normal operations.
	Info(format string, args ...interface{})

	// Error logs error messages.
	Error(format string, args ...interface{})
}

// ProgressReporter is implemented by loggers that render batch progress.
type ProgressReporter interface {
	Progress(batch, totalBatches int, loaded, total int64)
}

// ErrorClassifier determines whether an error is transient (retryable) or fatal.
type ErrorClassifier interface {
	// IsTransient returns true if the error is temporary and the operation should be retried.
	IsTransient(err error) bool
}

// BackoffStrategy calculates the delay before the next retry attempt.
type BackoffStrategy interface {
	// NextDelay returns the duration to wait before the next attempt.
	// attempt is zero-indexed (0 = first retry, 1 = second retry, etc.)
	NextDelay(attempt int) time.Duration

	// MaxAttempts returns the maximum number of retry attempts (0 = no retries, -1 = unlimited)
	MaxAttempts() int
}
