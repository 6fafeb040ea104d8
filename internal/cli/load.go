package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/ffmm-chile/ffmm/internal/checksum"
	"github.com/ffmm-chile/ffmm/internal/config"
	"github.com/ffmm-chile/ffmm/internal/db"
	"github.com/ffmm-chile/ffmm/internal/logging"
	"github.com/ffmm-chile/ffmm/internal/services"
	"github.com/ffmm-chile/ffmm/pkg/ffmm"
)

const loadLong = `Load replaces the live table with the contents of a source snapshot.

Steps:
  1. Read the whole source (Parquet or CSV, local path or s3://bucket/key)
  2. Normalize column names to lowercase ASCII identifiers
  3. Recreate the staging table <table>_tmp
  4. Append the rows in batches, one transaction per batch
  5. Verify the staging row count equals the source row count
  6. In one transaction: drop <table>_backup, rename <table> to <table>_backup,
     rename <table>_tmp to <table>

If a batch fails or the counts differ the live table is untouched and the
staging table is kept for inspection (see --drop-staging-on-failure).

Arguments:
  source    Source path or s3:// URI. Overrides --source and ffmm.yaml.

Examples:
  # Default snapshot, connection from $DB_URL
  ffmm load

  # Explicit file and table
  ffmm load ./data_fuentes/ffmm_merged.parquet --table public.fondos_mutuos

  # Inspect what would be loaded without touching the database
  ffmm load ./ffmm.csv --dry-run`

// loadFlagValues are the loader settings shared by load and serve.
type loadFlagValues struct {
	conn                 connectionFlags
	source               string
	table                string
	batchSize            int
	stagingSuffix        string
	backupSuffix         string
	timeout              time.Duration
	dropStagingOnFailure bool
}

func addLoadFlags(cmd *cobra.Command, f *loadFlagValues) {
	addConnectionFlags(cmd, &f.conn)

	flags := cmd.Flags()
	flags.StringVar(&f.source, "source", "", "Source path or s3://bucket/key (default: "+ffmm.DefaultSourcePath+")")
	flags.StringVarP(&f.table, "table", "t", "", "Live table, optionally schema-qualified (default: "+ffmm.DefaultDestinationTable+")")
	flags.IntVar(&f.batchSize, "batch-size", 0, fmt.Sprintf("Rows per transaction (default: %d)", ffmm.DefaultBatchSize))
	flags.StringVar(&f.stagingSuffix, "staging-suffix", "", "Suffix of the staging table (default: "+ffmm.DefaultStagingSuffix+")")
	flags.StringVar(&f.backupSuffix, "backup-suffix", "", "Suffix of the backup table (default: "+ffmm.DefaultBackupSuffix+")")
	flags.DurationVar(&f.timeout, "timeout", ffmm.DefaultTimeout,
		"Abort the run after this long (0 = no limit)\n"+
			"Examples: 30m, 1h")
	flags.BoolVar(&f.dropStagingOnFailure, "drop-staging-on-failure", false,
		"Drop the staging table when a batch fails or counts differ\n"+
			"(default: keep it for inspection)")
}

func newLoadCmd() *cobra.Command {
	var (
		flags  loadFlagValues
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "load [source]",
		Short: "Load a snapshot into the live table",
		Long:  loadLong,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				flags.source = args[0]
			}
			return runLoad(cmd, &flags, dryRun)
		},
	}
	addLoadFlags(cmd, &flags)
	cmd.Flags().BoolVar(&dryRun, "dry-run", false,
		"Read and normalize the source, print the plan, and exit\n"+
			"without connecting to the database")
	return cmd
}

// buildLoadConfig resolves the loader settings with flag > ffmm.yaml >
// default precedence. The connection is resolved only when needed.
func buildLoadConfig(cmd *cobra.Command, f *loadFlagValues, projectCfg *config.ProjectConfig, needConnection bool, logger ffmm.Logger) (ffmm.LoadConfig, error) {
	var section config.LoadSection
	if projectCfg != nil {
		section = projectCfg.Load
	}

	cfg := ffmm.LoadConfig{
		SourcePath:           firstNonEmpty(f.source, section.Source, ffmm.DefaultSourcePath),
		DestinationTable:     firstNonEmpty(f.table, section.Table),
		BatchSize:            section.BatchSize,
		StagingSuffix:        firstNonEmpty(f.stagingSuffix, section.StagingSuffix),
		BackupSuffix:         firstNonEmpty(f.backupSuffix, section.BackupSuffix),
		Timeout:              f.timeout,
		DropStagingOnFailure: f.dropStagingOnFailure,
		Verbose:              getVerboseFlag(cmd),
	}
	if cmd.Flags().Changed("batch-size") {
		cfg.BatchSize = f.batchSize
	}
	if !cmd.Flags().Changed("timeout") && section.Timeout != "" {
		timeout, err := section.TimeoutDuration()
		if err != nil {
			return ffmm.LoadConfig{}, fmt.Errorf("invalid timeout in %s: %w", config.ConfigFileName, ffmm.ErrInvalidConfig)
		}
		cfg.Timeout = timeout
	}
	cfg = cfg.WithDefaults()

	if !needConnection {
		return cfg, nil
	}

	conn, err := f.conn.resolve(projectCfg)
	if err != nil {
		return ffmm.LoadConfig{}, err
	}
	logConnectionVerbose(logger, conn)

	cfg.ConnectionString = db.BuildConnectionString(conn)
	cfg.AuthMethod = conn.AuthMethod
	cfg.AWSRegion = conn.AWSRegion
	cfg.GoogleInstance = conn.GoogleInstance
	cfg.AzureTenantID = conn.AzureTenantID
	cfg.AzureClientID = conn.AzureClientID
	cfg.AzureClientSecret = conn.AzureClientSecret

	if err := cfg.Validate(); err != nil {
		return ffmm.LoadConfig{}, err
	}
	return cfg, nil
}

func runLoad(cmd *cobra.Command, f *loadFlagValues, dryRun bool) error {
	logger := logging.NewWriterLogger(cmd.ErrOrStderr(), getVerboseFlag(cmd))

	projectCfg, err := loadProjectConfig(cmd)
	if err != nil {
		return err
	}
	cfg, err := buildLoadConfig(cmd, f, projectCfg, !dryRun, logger)
	if err != nil {
		return err
	}
	reader, err := newSourceReader(projectCfg)
	if err != nil {
		return err
	}

	svc := services.NewLoadService(db.NewConnector, reader, logger)

	ctx, stop := signalContext(cmd)
	defer stop()

	if dryRun {
		plan, err := svc.Plan(ctx, cfg)
		if err != nil {
			return err
		}
		printPlan(cmd.OutOrStdout(), plan)
		return nil
	}

	result, err := svc.Load(ctx, cfg)
	if err != nil {
		return fmt.Errorf("load failed: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "run_id=%s rows_loaded=%d previous_backup_rows=%d source_sha256=%s\n",
		result.RunID, result.RowsLoaded, result.PreviousBackupRows, checksum.Short(result.SourceChecksum))
	return nil
}

// signalContext is cancelled on Ctrl+C or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func printPlan(w io.Writer, plan *services.LoadPlan) {
	fmt.Fprintf(w, "Source:  %s\n", plan.Source)
	if plan.Checksum != "" {
		fmt.Fprintf(w, "SHA-256: %s\n", plan.Checksum)
	}
	fmt.Fprintf(w, "Live:    %s\n", plan.Live)
	fmt.Fprintf(w, "Staging: %s\n", plan.Staging)
	fmt.Fprintf(w, "Backup:  %s\n", plan.Backup)
	fmt.Fprintf(w, "Rows:    %d\n", plan.Rows)
	fmt.Fprintf(w, "Batches: %d\n\n", len(plan.Batches))

	re := lipgloss.NewRenderer(w)
	rows := make([][]string, len(plan.Columns))
	for i, c := range plan.Columns {
		rows[i] = []string{c.Name, c.Source, c.Type.SQLType()}
	}
	columns := table.New().
		Border(lipgloss.HiddenBorder()).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderHeader(false).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return re.NewStyle().Bold(true).PaddingRight(1)
			}
			return re.NewStyle().PaddingRight(1)
		}).
		Headers("COLUMN", "SOURCE", "TYPE").
		Rows(rows...)
	fmt.Fprintln(w, columns.Render())

	if len(plan.Batches) > 0 {
		fmt.Fprintln(w)
		for _, b := range plan.Batches {
			fmt.Fprintf(w, "batch %d: rows %d-%d\n", b.Index+1, b.Offset+1, b.End())
		}
	}
}
