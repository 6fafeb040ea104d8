//go:build conntest

// Package conntest exercises the connectors against a real PostgreSQL
// server. Run with: go test -tags conntest ./internal/db/conntest/
package conntest

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ffmm-chile/ffmm/internal/db"
	"github.com/ffmm-chile/ffmm/internal/testinfra"
	"github.com/ffmm-chile/ffmm/pkg/ffmm"
)

var stdContainer *testinfra.PostgresContainer

func TestMain(m *testing.M) {
	ctx := context.Background()

	std, err := testinfra.StartPostgres(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "start postgres: %v\n", err)
		os.Exit(1)
	}
	stdContainer = std

	code := m.Run()

	stdContainer.Terminate(ctx) //nolint:errcheck
	os.Exit(code)
}

func connectWithConfig(t *testing.T, config *ffmm.ConnectionConfig) *pgxpool.Pool {
	t.Helper()

	connector, err := db.NewConnector(config)
	if err != nil {
		t.Fatalf("create connector: %v", err)
	}

	pool, err := connector.Connect(context.Background())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}

	t.Cleanup(func() { pool.Close() })
	return pool
}

func pingSucceeds(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	if err := pool.Ping(context.Background()); err != nil {
		t.Fatalf("ping failed: %v", err)
	}
}

func parseStdConnString(t *testing.T) *ffmm.ConnectionConfig {
	t.Helper()
	config, err := db.ParseConnectionString(stdContainer.ConnString)
	if err != nil {
		t.Fatalf("parse connection string: %v", err)
	}
	return config
}
