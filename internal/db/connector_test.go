package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ffmm-chile/ffmm/pkg/ffmm"
)

func TestWrapConnectionError(t *testing.T) {
	tests := []struct {
		name     string
		cause    string
		host     string
		wantHint string
	}{
		{"refused", "dial tcp 127.0.0.1:5432: connect: connection refused", "127.0.0.1", "pg_isready -h 127.0.0.1 -p 5432"},
		{"refused windows", "connectex: No connection could be made because the target machine actively refused it", "127.0.0.1", "is PostgreSQL running"},
		{"unknown host", "dial tcp: lookup db.invalid: no such host", "db.invalid", `cannot resolve host "db.invalid"`},
		{"bad password", `FATAL: password authentication failed for user "etl"`, "db", `credentials rejected for database "fondos"`},
		{"missing database", `FATAL: database "fondos" does not exist`, "db", "createdb fondos"},
		{"timeout", "dial tcp 10.0.0.1:5432: i/o timeout", "10.0.0.1", "no answer from 10.0.0.1:5432"},
		{"tls", "tls: failed to verify certificate", "db", "TLS negotiation failed"},
		{"too many", "FATAL: sorry, too many clients already; too many connections", "db", "max_connections reached"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cause := errors.New(tt.cause)
			err := wrapConnectionError(cause, tt.host, 5432, "fondos")

			assert.ErrorIs(t, err, ffmm.ErrConnectionFailed)
			assert.ErrorIs(t, err, cause)
			assert.Contains(t, err.Error(), tt.wantHint)
		})
	}
}

func TestWrapConnectionError_UnknownCauseHasNoHint(t *testing.T) {
	cause := errors.New("something odd")
	err := wrapConnectionError(cause, "db", 6543, "fondos")

	assert.ErrorIs(t, err, ffmm.ErrConnectionFailed)
	assert.Equal(t, "connection failed: db:6543: something odd", err.Error())
}

func TestWrapConnectionError_MapsToConnectionExitCode(t *testing.T) {
	err := wrapConnectionError(errors.New("connection refused"), "localhost", 5432, "fondos")
	assert.Equal(t, ffmm.ExitConnectionError, ffmm.ExitCodeForError(err))
}

func TestConfigurePool(t *testing.T) {
	poolConfig, err := pgxpool.ParseConfig("postgres://u:p@localhost:5432/fondos")
	require.NoError(t, err)

	configurePool(poolConfig)

	assert.Equal(t, int32(DefaultMaxConns), poolConfig.MaxConns)
	assert.Equal(t, int32(DefaultMinConns), poolConfig.MinConns)
	assert.Equal(t, DefaultMaxConnIdleTime, poolConfig.MaxConnIdleTime)
	assert.NotNil(t, poolConfig.BeforeAcquire)
	assert.Nil(t, poolConfig.ConnConfig.OnNotice)
}

func TestNewConnector(t *testing.T) {
	t.Run("standard", func(t *testing.T) {
		c, err := NewConnector(&ffmm.ConnectionConfig{Host: "localhost", Port: 5432})
		require.NoError(t, err)
		assert.IsType(t, &StandardConnector{}, c)
	})

	t.Run("aws", func(t *testing.T) {
		c, err := NewConnector(&ffmm.ConnectionConfig{
			Host: "db.rds.amazonaws.com", Port: 5432, Username: "etl",
			AuthMethod: ffmm.AuthMethodAWSIAM, AWSRegion: "sa-east-1",
		})
		require.NoError(t, err)
		assert.IsType(t, &TokenConnector{}, c)
	})

	t.Run("aws without region", func(t *testing.T) {
		_, err := NewConnector(&ffmm.ConnectionConfig{
			Host: "db", Port: 5432, Username: "etl", AuthMethod: ffmm.AuthMethodAWSIAM,
		})
		assert.ErrorIs(t, err, ffmm.ErrInvalidConfig)
	})

	t.Run("aws without user", func(t *testing.T) {
		_, err := NewConnector(&ffmm.ConnectionConfig{
			Host: "db", Port: 5432, AuthMethod: ffmm.AuthMethodAWSIAM, AWSRegion: "sa-east-1",
		})
		assert.ErrorIs(t, err, ffmm.ErrInvalidConfig)
	})

	t.Run("google", func(t *testing.T) {
		c, err := NewConnector(&ffmm.ConnectionConfig{
			Username: "etl@proj.iam", Database: "fondos",
			AuthMethod: ffmm.AuthMethodGoogleIAM, GoogleInstance: "proj:southamerica-west1:fondos",
		})
		require.NoError(t, err)
		assert.IsType(t, &GoogleCloudSQLConnector{}, c)
	})

	t.Run("google without instance", func(t *testing.T) {
		_, err := NewConnector(&ffmm.ConnectionConfig{Username: "etl", AuthMethod: ffmm.AuthMethodGoogleIAM})
		assert.ErrorIs(t, err, ffmm.ErrInvalidConfig)
	})

	t.Run("google without user", func(t *testing.T) {
		_, err := NewConnector(&ffmm.ConnectionConfig{GoogleInstance: "p:r:i", AuthMethod: ffmm.AuthMethodGoogleIAM})
		assert.ErrorIs(t, err, ffmm.ErrInvalidConfig)
	})

	t.Run("azure service principal", func(t *testing.T) {
		c, err := NewConnector(&ffmm.ConnectionConfig{
			Host: "fondos.postgres.database.azure.com", Port: 5432, Username: "etl",
			AuthMethod:    ffmm.AuthMethodAzureEntraID,
			AzureTenantID: "tenant", AzureClientID: "client", AzureClientSecret: "secret",
		})
		require.NoError(t, err)
		assert.IsType(t, &TokenConnector{}, c)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := NewConnector(&ffmm.ConnectionConfig{AuthMethod: ffmm.AuthMethod(99)})
		assert.ErrorIs(t, err, ffmm.ErrUnsupportedAuthMethod)
	})
}

func TestStandardConnector_UnreachableHostFailsWithConnectionError(t *testing.T) {
	c := NewStandardConnector(&ffmm.ConnectionConfig{
		Host: "127.0.0.1", Port: 1, Database: "fondos", Username: "u", Password: "p",
		SSLMode: "disable", ConnectTimeout: time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := c.Connect(ctx)
	assert.Nil(t, pool)
	assert.ErrorIs(t, err, ffmm.ErrConnectionFailed)
}

func TestStandardConnector_RespectsContextDeadline(t *testing.T) {
	c := NewStandardConnector(&ffmm.ConnectionConfig{
		Host: "10.255.255.1", Port: 5432, Database: "fondos", Username: "u", Password: "p",
		SSLMode: "disable",
	})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := c.Connect(ctx)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}
