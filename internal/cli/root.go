// Package cli wires the ffmm commands: load, count, serve and version.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const rootLong = `ffmm replaces a PostgreSQL table with a fresh snapshot of the Chilean mutual
fund (fondos mutuos) registry, read from a Parquet or CSV file on disk or in S3.

Every run writes into a staging table, checks that it holds exactly the rows of
the source, and only then swaps it in. The previous table is kept as a backup.
Dashboards reading the live table never observe a partial load.

Exit Codes:
  0  - Success
  1  - General error
  2  - CLI usage error (invalid arguments or flags)
  3  - Panic or unexpected system error
  10 - Invalid configuration or missing connection information
  11 - Database connection failed
  20 - Source not found, unreadable or of unknown format
  21 - Column names could not be normalized
  22 - A batch failed to write (staging table kept)
  23 - Staging row count did not match the source (live table untouched)`

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "ffmm",
		Short:        "Atomic bulk loader for the fondos mutuos dataset",
		Long:         rootLong,
		SilenceUsage: true,
	}

	// -h is taken by --host, so help gets a long flag only.
	root.PersistentFlags().Bool("help", false, "Help for ffmm")
	root.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	root.PersistentFlags().String("config", "", "Path to "+configFileHint+" (default: ./"+configFileHint+" if present)")

	root.AddCommand(newLoadCmd(), newCountCmd(), newServeCmd(), newVersionCmd())
	return root
}

// Execute runs the root command.
func Execute() error {
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		printVersionInfo(os.Stdout)
		return nil
	}
	return newRootCmd().Execute()
}

func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: Failed to get verbose flag: %v\n", err)
		return false
	}
	return verbose
}
