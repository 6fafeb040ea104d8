package cli

import (
	"fmt"
	"net"

	"github.com/spf13/cobra"

	"github.com/ffmm-chile/ffmm/internal/db"
	"github.com/ffmm-chile/ffmm/internal/logging"
	"github.com/ffmm-chile/ffmm/internal/server"
	"github.com/ffmm-chile/ffmm/internal/services"
	"github.com/ffmm-chile/ffmm/pkg/ffmm"
)

func newServeCmd() *cobra.Command {
	var (
		flags       loadFlagValues
		port        string
		loadOnStart bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the status endpoints, optionally loading once at startup",
		Long: `Serve exposes:

  GET /              {"status":"ok","mensaje":"..."}
  GET /fondos/count  {"total_registros":N} for the live table

With --load-on-start a full load runs before the server starts listening.
A failed startup load is logged and the server starts anyway.

Examples:
  ffmm serve --load-on-start
  PORT=8080 ffmm serve --table public.fondos_mutuos`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, &flags, port, loadOnStart)
		},
	}
	addLoadFlags(cmd, &flags)
	cmd.Flags().StringVar(&port, "port", "", "Listen port (default: $PORT or 8000)")
	cmd.Flags().BoolVar(&loadOnStart, "load-on-start", false, "Run one load before serving")
	return cmd
}

func runServe(cmd *cobra.Command, f *loadFlagValues, port string, loadOnStart bool) error {
	logger := logging.NewWriterLogger(cmd.ErrOrStderr(), getVerboseFlag(cmd))

	projectCfg, err := loadProjectConfig(cmd)
	if err != nil {
		return err
	}
	cfg, err := buildLoadConfig(cmd, f, projectCfg, true, logger)
	if err != nil {
		return err
	}
	connConfig, err := services.ConnectionConfigFor(cfg, ffmm.DefaultAppName+"-serve")
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	if loadOnStart {
		reader, err := newSourceReader(projectCfg)
		if err != nil {
			return err
		}
		logger.Info("Running startup load of %s", cfg.SourcePath)
		if _, err := services.NewLoadService(db.NewConnector, reader, logger).Load(ctx, cfg); err != nil {
			logger.Error("Startup load failed: %v", err)
		}
	}

	tables := newLazyStore(connConfig)
	defer tables.Close() //nolint:errcheck

	addr := ":" + httpPort(port)
	srv := server.New(tables, cfg.DestinationTable, logger)
	err = srv.ListenAndServe(ctx, addr, func(a net.Addr) {
		logger.Info("Listening on %s", a)
	})
	if err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}
