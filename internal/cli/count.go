package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ffmm-chile/ffmm/internal/logging"
	"github.com/ffmm-chile/ffmm/pkg/ffmm"
)

func newCountCmd() *cobra.Command {
	var conn connectionFlags

	cmd := &cobra.Command{
		Use:   "count [table]",
		Short: "Print the row count of the live table",
		Long: `Count prints the number of rows in the live table (or the given table).

Examples:
  ffmm count
  ffmm count fondos_mutuos_backup`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCount(cmd, &conn, args)
		},
	}
	addConnectionFlags(cmd, &conn)
	return cmd
}

func runCount(cmd *cobra.Command, conn *connectionFlags, args []string) error {
	logger := logging.NewWriterLogger(cmd.ErrOrStderr(), getVerboseFlag(cmd))

	projectCfg, err := loadProjectConfig(cmd)
	if err != nil {
		return err
	}

	table := ffmm.DefaultDestinationTable
	if projectCfg != nil && projectCfg.Load.Table != "" {
		table = projectCfg.Load.Table
	}
	if len(args) == 1 {
		table = args[0]
	}

	connConfig, err := conn.resolve(projectCfg)
	if err != nil {
		return err
	}
	if connConfig.AppName == "" {
		connConfig.AppName = ffmm.DefaultAppName
	}
	logConnectionVerbose(logger, connConfig)

	ctx, stop := signalContext(cmd)
	defer stop()

	tables := newLazyStore(connConfig)
	defer tables.Close() //nolint:errcheck

	n, err := tables.CountRows(ctx, table)
	if err != nil {
		return fmt.Errorf("count %s: %w", table, err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), n)
	return nil
}
