package services

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/ffmm-chile/ffmm/internal/dataset"
	"github.com/ffmm-chile/ffmm/internal/db"
	"github.com/ffmm-chile/ffmm/internal/naming"
	"github.com/ffmm-chile/ffmm/internal/store"
	"github.com/ffmm-chile/ffmm/pkg/ffmm"
)

// SourceReader materializes a complete source snapshot.
type SourceReader interface {
	Read(ctx context.Context, uri string) (*dataset.Dataset, error)
}

type storeOpenerFunc func(ctx context.Context, config ffmm.LoadConfig, runID uuid.UUID) (ffmm.TableStore, func(), error)

// LoadPlan is everything decided about a run before the database is touched.
type LoadPlan struct {
	Source   string
	Checksum string
	Live     string
	Staging  string
	Backup   string
	Columns  []ffmm.Column
	Rows     int
	Batches  []dataset.Batch

	data *dataset.Dataset
}

// LoadService implements ffmm.Loader: stage every batch, verify the row
// count, then swap the staging table in as the live table.
// Thread-Safety: NOT safe for concurrent Load() calls against the same
// destination; runs race on the staging and backup names.
type LoadService struct {
	connectorFactory func(*ffmm.ConnectionConfig) (ffmm.Connector, error)
	reader           SourceReader
	normalizer       *naming.Normalizer
	logger           ffmm.Logger
	openStore        storeOpenerFunc
}

// NewLoadService creates a LoadService. Nil dependencies are programmer
// errors and panic.
func NewLoadService(
	connectorFactory func(*ffmm.ConnectionConfig) (ffmm.Connector, error),
	reader SourceReader,
	logger ffmm.Logger,
) *LoadService {
	if connectorFactory == nil {
		panic("connectorFactory cannot be nil")
	}
	if reader == nil {
		panic("reader cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}

	svc := &LoadService{
		connectorFactory: connectorFactory,
		reader:           reader,
		normalizer:       naming.New(),
		logger:           logger,
	}
	svc.openStore = svc.defaultOpenStore
	return svc
}

func (s *LoadService) defaultOpenStore(ctx context.Context, config ffmm.LoadConfig, runID uuid.UUID) (ffmm.TableStore, func(), error) {
	connConfig, err := ConnectionConfigFor(config, runAppName(runID))
	if err != nil {
		return nil, nil, err
	}

	connector, err := s.connectorFactory(connConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create connector: %w", err)
	}

	pool, err := connector.Connect(ctx)
	if err != nil {
		return nil, nil, err
	}

	release := func() {
		pool.Close()
		if closer, ok := connector.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				s.logger.Verbose("Closing connector: %v", err)
			}
		}
	}
	return store.NewPostgres(pool), release, nil
}

// ConnectionConfigFor parses config's connection string and attaches its
// auth settings. appName becomes application_name unless the string sets one.
func ConnectionConfigFor(config ffmm.LoadConfig, appName string) (*ffmm.ConnectionConfig, error) {
	connConfig, err := db.ParseConnectionString(config.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	if connConfig.AppName == "" {
		connConfig.AppName = appName
	}
	if config.AuthMethod != ffmm.AuthMethodStandard {
		connConfig.AuthMethod = config.AuthMethod
	}
	connConfig.AWSRegion = config.AWSRegion
	connConfig.GoogleInstance = config.GoogleInstance
	connConfig.AzureTenantID = config.AzureTenantID
	connConfig.AzureClientID = config.AzureClientID
	connConfig.AzureClientSecret = config.AzureClientSecret
	return connConfig, nil
}

func runAppName(runID uuid.UUID) string {
	return fmt.Sprintf("%s-%s", ffmm.DefaultAppName, runID.String()[:8])
}

// Plan reads and normalizes the source and partitions it into batches.
// It does not need a database connection.
func (s *LoadService) Plan(ctx context.Context, config ffmm.LoadConfig) (*LoadPlan, error) {
	config = config.WithDefaults()
	if config.SourcePath == "" {
		return nil, fmt.Errorf("SourcePath is required: %w", ffmm.ErrInvalidConfig)
	}
	if err := config.ValidateTableNames(); err != nil {
		return nil, err
	}

	s.logger.Verbose("Reading source %s", config.SourcePath)
	raw, err := s.reader.Read(ctx, config.SourcePath)
	if err != nil {
		return nil, err
	}

	names, err := s.normalizer.Normalize(raw.SourceNames())
	if err != nil {
		return nil, err
	}
	data, err := raw.Renamed(names)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ffmm.ErrSchemaNormalization, err)
	}
	for _, c := range data.Columns() {
		if c.Name != c.Source {
			s.logger.Verbose("Column %q -> %s", c.Source, c.Name)
		}
	}

	batches, err := dataset.Partition(data.Len(), config.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ffmm.ErrInvalidConfig, err)
	}

	return &LoadPlan{
		Source:   config.SourcePath,
		Checksum: data.Checksum(),
		Live:     config.DestinationTable,
		Staging:  config.StagingTable(),
		Backup:   config.BackupTable(),
		Columns:  data.Columns(),
		Rows:     data.Len(),
		Batches:  batches,
		data:     data,
	}, nil
}

// Load runs one complete load. On success the live table holds exactly the
// source rows and the previous live table, if any, is the backup. On any
// failure the live table is untouched.
func (s *LoadService) Load(ctx context.Context, config ffmm.LoadConfig) (ffmm.LoadResult, error) {
	start := time.Now()
	config = config.WithDefaults()
	if err := config.Validate(); err != nil {
		return ffmm.LoadResult{}, fmt.Errorf("invalid configuration: %w", err)
	}

	if config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.Timeout)
		defer cancel()
	}

	runID := uuid.New()
	s.logger.Verbose("Run %s: loading %s into %s", runID, config.SourcePath, config.DestinationTable)

	plan, err := s.Plan(ctx, config)
	if err != nil {
		return ffmm.LoadResult{}, err
	}
	s.logger.Info("Read %d rows, %d columns from %s", plan.Rows, len(plan.Columns), plan.Source)
	if plan.Checksum != "" {
		s.logger.Verbose("Source sha256 %s", plan.Checksum)
	}

	tables, closeStore, err := s.openStore(ctx, config, runID)
	if err != nil {
		return ffmm.LoadResult{}, err
	}
	defer closeStore()

	if err := tables.RecreateTable(ctx, plan.Staging, plan.Columns); err != nil {
		return ffmm.LoadResult{}, fmt.Errorf("failed to prepare staging table: %w", err)
	}
	s.logger.Verbose("Created staging table %s", plan.Staging)

	var loaded int64
	total := int64(plan.Rows)
	for _, b := range plan.Batches {
		n, err := tables.AppendRows(ctx, plan.Staging, plan.Columns, plan.data.Rows(b))
		if err != nil {
			werr := &ffmm.BatchWriteError{
				Batch:   b.Index,
				Offset:  b.Offset,
				Rows:    b.Rows,
				Staging: plan.Staging,
				Err:     err,
			}
			s.abandonStaging(ctx, tables, config, plan.Staging)
			return ffmm.LoadResult{}, werr
		}
		loaded += n
		s.reportProgress(b.Index+1, len(plan.Batches), loaded, total)
	}

	actual, err := tables.CountRows(ctx, plan.Staging)
	if err != nil {
		return ffmm.LoadResult{}, fmt.Errorf("failed to verify staging table: %w", err)
	}
	if actual != total {
		mismatch := &ffmm.RowCountMismatchError{Expected: total, Actual: actual, Staging: plan.Staging}
		s.abandonStaging(ctx, tables, config, plan.Staging)
		return ffmm.LoadResult{}, mismatch
	}

	previous, err := tables.Promote(ctx, plan.Live, plan.Staging, plan.Backup)
	if err != nil {
		return ffmm.LoadResult{}, fmt.Errorf("failed to promote %s to %s: %w", plan.Staging, plan.Live, err)
	}

	result := ffmm.LoadResult{
		RunID:              runID,
		RowsLoaded:         actual,
		PreviousBackupRows: previous,
		Batches:            len(plan.Batches),
		Columns:            columnNames(plan.Columns),
		SourceChecksum:     plan.Checksum,
		Duration:           time.Since(start),
	}
	s.logger.Info("✓ Loaded %d rows into %s (backup %s holds %d rows)", result.RowsLoaded, plan.Live, plan.Backup, result.PreviousBackupRows)
	return result, nil
}

// abandonStaging drops or keeps the staging table after a failed run. It
// never touches the live table.
func (s *LoadService) abandonStaging(ctx context.Context, tables ffmm.TableStore, config ffmm.LoadConfig, staging string) {
	if !config.DropStagingOnFailure {
		s.logger.Info("Staging table %s kept for inspection", staging)
		return
	}
	if err := tables.DropTable(context.WithoutCancel(ctx), staging); err != nil {
		s.logger.Error("Failed to drop staging table %s: %v", staging, err)
		return
	}
	s.logger.Verbose("Dropped staging table %s", staging)
}

func (s *LoadService) reportProgress(batch, totalBatches int, loaded, total int64) {
	if p, ok := s.logger.(ffmm.ProgressReporter); ok {
		p.Progress(batch, totalBatches, loaded, total)
		return
	}
	s.logger.Verbose("Batch %d/%d: %d/%d rows", batch, totalBatches, loaded, total)
}

func columnNames(cols []ffmm.Column) []string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}

var _ ffmm.Loader = (*LoadService)(nil)
