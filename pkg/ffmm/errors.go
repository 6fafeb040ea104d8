package ffmm

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the failure kinds a load run can end with.
// Callers distinguish them with errors.Is().
//
// Example usage:
//
//	result, err := loader.Load(ctx, cfg)
//	if errors.Is(err, ffmm.ErrRowCountMismatch) {
//	    // the live table was left untouched
//	}
var (
	// ErrInvalidConfig indicates missing or invalid configuration,
	// including absent connection information.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrSourceNotFound indicates the source file or object is missing or unreadable.
	ErrSourceNotFound = errors.New("source not found")

	// ErrUnsupportedSourceFormat indicates the source extension has no decoder.
	ErrUnsupportedSourceFormat = errors.New("unsupported source format")

	// ErrSchemaNormalization indicates a column name that normalizes to nothing
	// or cannot be disambiguated.
	ErrSchemaNormalization = errors.New("schema normalization failed")

	// ErrBatchWrite indicates a batch append to the staging table failed.
	ErrBatchWrite = errors.New("batch write failed")

	// ErrRowCountMismatch indicates the staging table row count differs from the source.
	ErrRowCountMismatch = errors.New("row count mismatch")

	// ErrUnsupportedAuthMethod indicates the requested authentication method is not supported.
	ErrUnsupportedAuthMethod = errors.New("unsupported authentication method")

	// ErrConnectionFailed indicates database connection failed.
	ErrConnectionFailed = errors.New("connection failed")
)

// BatchWriteError reports the batch whose append failed. The staging table
// is left in place for inspection unless the run was configured otherwise.
type BatchWriteError struct {
	Batch   int // zero-based batch index
	Offset  int
	Rows    int
	Staging string
	Err     error
}

func (e *BatchWriteError) Error() string {
	return fmt.Sprintf("batch %d (offset %d, %d rows) into %s: %v", e.Batch+1, e.Offset, e.Rows, e.Staging, e.Err)
}

// Unwrap exposes both the sentinel and the underlying driver error.
func (e *BatchWriteError) Unwrap() []error {
	return []error{ErrBatchWrite, e.Err}
}

// RowCountMismatchError reports both counts of a failed verification.
type RowCountMismatchError struct {
	Expected int64
	Actual   int64
	Staging  string
}

func (e *RowCountMismatchError) Error() string {
	return fmt.Sprintf("%s: staging table %s holds %d rows, source has %d", ErrRowCountMismatch, e.Staging, e.Actual, e.Expected)
}

func (e *RowCountMismatchError) Unwrap() error {
	return ErrRowCountMismatch
}

// usageErrorPatterns match the messages cobra and pflag produce for bad invocations.
var usageErrorPatterns = []string{
	"unknown flag",
	"unknown shorthand flag",
	"unknown command",
	"accepts ",
	"required flag",
	"invalid argument",
	"flag needs an argument",
}

// ExitCodeForError returns the appropriate exit code for an error.
// Returns ExitSuccess (0) for nil errors, semantic codes for known errors,
// and ExitGeneralError (1) for unclassified errors.
func ExitCodeForError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	switch {
	case errors.Is(err, ErrInvalidConfig), errors.Is(err, ErrUnsupportedAuthMethod):
		return ExitConfigError
	case errors.Is(err, ErrConnectionFailed):
		return ExitConnectionError
	case errors.Is(err, ErrSourceNotFound), errors.Is(err, ErrUnsupportedSourceFormat):
		return ExitSourceNotFound
	case errors.Is(err, ErrSchemaNormalization):
		return ExitSchemaError
	case errors.Is(err, ErrBatchWrite):
		return ExitBatchWriteFailed
	case errors.Is(err, ErrRowCountMismatch):
		return ExitRowCountMismatch
	}

	errStr := err.Error()
	for _, usage := range usageErrorPatterns {
		if strings.Contains(errStr, usage) {
			return ExitUsageError
		}
	}
	if strings.Contains(errStr, "failed to connect") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no such host") {
		return ExitConnectionError
	}

	return ExitGeneralError
}
