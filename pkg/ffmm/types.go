package ffmm

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// LoadConfig contains everything one loader run needs. It is resolved once by
// the caller; the loader never consults environment variables or files itself.
type LoadConfig struct {
	// SourcePath is a local path or s3://bucket/key URI of the columnar snapshot.
	SourcePath string

	// DestinationTable is the live table name, optionally schema-qualified ("public.fondos_mutuos").
	DestinationTable string

	// BatchSize is the maximum number of rows appended per transaction.
	BatchSize int

	// ConnectionString is the PostgreSQL connection string (URI or ADO.NET format).
	ConnectionString string

	// StagingSuffix and BackupSuffix derive the staging and backup table names from DestinationTable.
	StagingSuffix string
	BackupSuffix  string

	// DropStagingOnFailure drops the staging table after a batch write failure or
	// row count mismatch instead of leaving it for inspection.
	DropStagingOnFailure bool

	// Timeout bounds the whole run. Zero means no limit.
	Timeout time.Duration

	// Verbose enables detailed logging
	Verbose bool

	// AuthMethod indicates the authentication mechanism to use
	AuthMethod AuthMethod

	// Cloud authentication parameters, used according to AuthMethod.
	AWSRegion         string
	GoogleInstance    string
	AzureTenantID     string
	AzureClientID     string
	AzureClientSecret string
}

// WithDefaults returns a copy with empty optional fields set to their defaults.
func (c LoadConfig) WithDefaults() LoadConfig {
	if c.DestinationTable == "" {
		c.DestinationTable = DefaultDestinationTable
	}
	if c.BatchSize == 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.StagingSuffix == "" {
		c.StagingSuffix = DefaultStagingSuffix
	}
	if c.BackupSuffix == "" {
		c.BackupSuffix = DefaultBackupSuffix
	}
	return c
}

// Validate checks if the LoadConfig has all required fields and valid values.
// It returns a multi-error if multiple validation failures occur.
func (c *LoadConfig) Validate() error {
	var errs []error

	if c.SourcePath == "" {
		errs = append(errs, fmt.Errorf("SourcePath is required: %w", ErrInvalidConfig))
	}

	if c.DestinationTable == "" {
		errs = append(errs, fmt.Errorf("DestinationTable is required: %w", ErrInvalidConfig))
	}

	if c.ConnectionString == "" {
		errs = append(errs, fmt.Errorf("ConnectionString is required: %w", ErrInvalidConfig))
	}

	if c.BatchSize < 1 {
		errs = append(errs, fmt.Errorf("BatchSize must be positive, got %d: %w", c.BatchSize, ErrInvalidConfig))
	}

	if c.StagingSuffix == "" || c.BackupSuffix == "" {
		errs = append(errs, fmt.Errorf("staging and backup suffixes are required: %w", ErrInvalidConfig))
	} else if c.StagingSuffix == c.BackupSuffix {
		errs = append(errs, fmt.Errorf("staging and backup suffixes must differ: %w", ErrInvalidConfig))
	}

	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout cannot be negative: %w", ErrInvalidConfig))
	}

	if c.DestinationTable != "" {
		if err := c.ValidateTableNames(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// ValidateTableNames checks that the live, staging and backup names each fit
// in a PostgreSQL identifier. The server truncates longer names silently, so
// <live>_tmp could resolve to the live table itself.
func (c *LoadConfig) ValidateTableNames() error {
	schema, live, qualified := strings.Cut(c.DestinationTable, ".")
	if !qualified {
		schema, live = "", c.DestinationTable
	}
	if qualified && len(schema) > MaxIdentifierLength {
		return fmt.Errorf("schema %q is longer than %d bytes: %w", schema, MaxIdentifierLength, ErrInvalidConfig)
	}
	for _, name := range []string{live, live + c.StagingSuffix, live + c.BackupSuffix} {
		if len(name) > MaxIdentifierLength {
			return fmt.Errorf("table name %q is longer than %d bytes (live table %q leaves room for at most %d): %w",
				name, MaxIdentifierLength, c.DestinationTable, MaxIdentifierLength-max(len(c.StagingSuffix), len(c.BackupSuffix)), ErrInvalidConfig)
		}
	}
	return nil
}

// StagingTable returns the staging table name for this run.
func (c *LoadConfig) StagingTable() string {
	return c.DestinationTable + c.StagingSuffix
}

// BackupTable returns the backup table name kept after promotion.
func (c *LoadConfig) BackupTable() string {
	return c.DestinationTable + c.BackupSuffix
}

// LoadResult describes a successful, promoted run.
type LoadResult struct {
	RunID              uuid.UUID
	RowsLoaded         int64
	PreviousBackupRows int64 // rows of the live table that became the backup; 0 if none existed
	Batches            int
	Columns            []string
	SourceChecksum     string // hex SHA-256 of the source file bytes
	Duration           time.Duration
}

// ColumnType is the semantic type of a source column.
type ColumnType int

const (
	ColumnText ColumnType = iota
	ColumnInteger
	ColumnFloat
	ColumnNumeric
	ColumnBoolean
	ColumnDate
	ColumnTimestamp
)

func (t ColumnType) String() string {
	switch t {
	case ColumnText:
		return "text"
	case ColumnInteger:
		return "integer"
	case ColumnFloat:
		return "float"
	case ColumnNumeric:
		return "numeric"
	case ColumnBoolean:
		return "boolean"
	case ColumnDate:
		return "date"
	case ColumnTimestamp:
		return "timestamp"
	default:
		return fmt.Sprintf("Unknown(%d)", t)
	}
}

// SQLType returns the PostgreSQL column type used for staging tables.
func (t ColumnType) SQLType() string {
	switch t {
	case ColumnInteger:
		return "BIGINT"
	case ColumnFloat:
		return "DOUBLE PRECISION"
	case ColumnNumeric:
		return "NUMERIC"
	case ColumnBoolean:
		return "BOOLEAN"
	case ColumnDate:
		return "DATE"
	case ColumnTimestamp:
		return "TIMESTAMP"
	default:
		return "TEXT"
	}
}

// Column is a named, typed column of a source dataset.
// Source holds the raw label as it appeared in the file.
type Column struct {
	Name   string
	Source string
	Type   ColumnType
}

// ConnectionConfig represents parsed connection parameters.
type ConnectionConfig struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
	SSLMode  string

	SSLCert     string
	SSLKey      string
	SSLRootCert string

	// AuthMethod indicates the authentication mechanism to use
	AuthMethod AuthMethod

	// Additional connection parameters
	AppName          string
	ConnectTimeout   time.Duration
	AdditionalParams map[string]string

	AWSRegion      string
	GoogleInstance string

	// If all three Azure fields are provided, Service Principal authentication is used.
	// Otherwise the DefaultAzureCredential chain is used.
	AzureTenantID     string
	AzureClientID     string
	AzureClientSecret string
}

// AuthMethod represents the type of authentication to use.
type AuthMethod int

const (
	AuthMethodStandard     AuthMethod = iota // Username/Password
	AuthMethodAWSIAM                         // AWS IAM Database Authentication
	AuthMethodGoogleIAM                      // Google Cloud SQL IAM
	AuthMethodAzureEntraID                   // Azure Active Directory (Entra ID)
)

// String returns a human-readable string representation of the AuthMethod.
func (a AuthMethod) String() string {
	switch a {
	case AuthMethodStandard:
		return "Standard"
	case AuthMethodAWSIAM:
		return "AWS IAM"
	case AuthMethodGoogleIAM:
		return "Google IAM"
	case AuthMethodAzureEntraID:
		return "Azure Entra ID"
	default:
		return fmt.Sprintf("Unknown(%d)", a)
	}
}

// IsValid returns true if the AuthMethod is a valid, defined value.
func (a AuthMethod) IsValid() bool {
	return a >= AuthMethodStandard && a <= AuthMethodAzureEntraID
}
