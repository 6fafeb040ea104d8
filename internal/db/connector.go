package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ffmm-chile/ffmm/internal/retry"
	"github.com/ffmm-chile/ffmm/pkg/ffmm"
)

// Pool sizing for a single loader run. Batches are written sequentially, so
// one connection does the work and a second covers the row count and the
// cleanup path.
const (
	DefaultMaxConns        = 2
	DefaultMinConns        = 0
	DefaultMaxConnIdleTime = 5 * time.Minute
	DefaultPingTimeout     = 5 * time.Second
)

// configurePool applies pool sizing and validates each connection with a
// ping before handing it out. A connection that fails the ping is destroyed
// and the pool tries another.
func configurePool(poolConfig *pgxpool.Config) {
	poolConfig.MaxConns = DefaultMaxConns
	poolConfig.MinConns = DefaultMinConns
	poolConfig.MaxConnIdleTime = DefaultMaxConnIdleTime
	poolConfig.BeforeAcquire = func(ctx context.Context, conn *pgx.Conn) bool {
		pingCtx, cancel := context.WithTimeout(ctx, DefaultPingTimeout)
		defer cancel()
		return conn.Ping(pingCtx) == nil
	}
}

func newRetryExecutor() *retry.Executor {
	return retry.NewExecutor(
		retry.NewPostgreSQLErrorClassifier(),
		retry.NewExponentialBackoff(ffmm.DefaultRetryMaxAttempts,
			retry.WithInitialDelay(ffmm.DefaultRetryInitialDelay),
			retry.WithMaxDelay(ffmm.DefaultRetryMaxDelay),
		),
	)
}

// openPool creates a pool from poolConfig and pings it, retrying transient
// failures. The returned error wraps ffmm.ErrConnectionFailed.
func openPool(ctx context.Context, exec *retry.Executor, poolConfig *pgxpool.Config, target *ffmm.ConnectionConfig) (*pgxpool.Pool, error) {
	var pool *pgxpool.Pool

	err := exec.Execute(ctx, func(ctx context.Context) error {
		p, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			return err
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			return err
		}
		pool = p
		return nil
	})
	if err != nil {
		return nil, wrapConnectionError(err, target.Host, target.Port, target.Database)
	}
	return pool, nil
}

// StandardConnector authenticates with username and password.
type StandardConnector struct {
	config   *ffmm.ConnectionConfig
	executor *retry.Executor
}

func NewStandardConnector(config *ffmm.ConnectionConfig) *StandardConnector {
	return &StandardConnector{config: config, executor: newRetryExecutor()}
}

func (c *StandardConnector) Connect(ctx context.Context) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(BuildConnectionString(c.config))
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection config: %w", ffmm.ErrInvalidConfig)
	}
	configurePool(poolConfig)
	return openPool(ctx, c.executor, poolConfig, c.config)
}

// NewConnector picks the Connector for config.AuthMethod.
func NewConnector(config *ffmm.ConnectionConfig) (ffmm.Connector, error) {
	switch config.AuthMethod {
	case ffmm.AuthMethodStandard:
		return NewStandardConnector(config), nil
	case ffmm.AuthMethodAWSIAM:
		return newAWSConnector(config)
	case ffmm.AuthMethodGoogleIAM:
		return newGoogleConnector(config)
	case ffmm.AuthMethodAzureEntraID:
		return newAzureConnector(config)
	default:
		return nil, fmt.Errorf("unsupported auth method %v: %w", config.AuthMethod, ffmm.ErrUnsupportedAuthMethod)
	}
}

// wrapConnectionError turns a raw pgx failure into an ffmm.ErrConnectionFailed
// with a hint for the operator. The original error stays in the chain.
func wrapConnectionError(err error, host string, port int, database string) error {
	msg := strings.ToLower(err.Error())
	addr := fmt.Sprintf("%s:%d", host, port)

	var hint string
	switch {
	case strings.Contains(msg, "connection refused") || strings.Contains(msg, "actively refused"):
		hint = fmt.Sprintf("nothing is listening on %s; is PostgreSQL running? (pg_isready -h %s -p %d)", addr, host, port)
	case strings.Contains(msg, "no such host"):
		hint = fmt.Sprintf("cannot resolve host %q; check DB_URL or --host", host)
	case strings.Contains(msg, "password authentication failed"):
		hint = fmt.Sprintf("credentials rejected for database %q; check the password in DB_URL or PGPASSWORD", database)
	case strings.Contains(msg, "does not exist"):
		hint = fmt.Sprintf("database %q does not exist; create it with: createdb %s", database, database)
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "timed out"):
		hint = fmt.Sprintf("no answer from %s; the server may be overloaded or a firewall is dropping packets", addr)
	case strings.Contains(msg, "ssl") || strings.Contains(msg, "tls"):
		hint = "TLS negotiation failed; check sslmode and the sslcert/sslkey/sslrootcert paths"
	case strings.Contains(msg, "too many connections"):
		hint = fmt.Sprintf("max_connections reached on %s; stale sessions may be holding slots", addr)
	}

	if hint == "" {
		return fmt.Errorf("%w: %s: %w", ffmm.ErrConnectionFailed, addr, err)
	}
	return fmt.Errorf("%w: %s\n  hint: %s\n  cause: %w", ffmm.ErrConnectionFailed, addr, hint, err)
}

func newAWSConnector(config *ffmm.ConnectionConfig) (ffmm.Connector, error) {
	endpoint := fmt.Sprintf("%s:%d", config.Host, config.Port)
	provider, err := NewAWSIAMTokenProvider(endpoint, config.AWSRegion, config.Username)
	if err != nil {
		return nil, err
	}
	return NewTokenConnector(config, provider), nil
}

func newGoogleConnector(config *ffmm.ConnectionConfig) (ffmm.Connector, error) {
	if config.GoogleInstance == "" {
		return nil, fmt.Errorf("Google Cloud SQL IAM auth requires --google-instance (project:region:instance): %w", ffmm.ErrInvalidConfig)
	}
	if config.Username == "" {
		return nil, fmt.Errorf("Google Cloud SQL IAM auth requires a username: %w", ffmm.ErrInvalidConfig)
	}
	return NewGoogleCloudSQLConnector(config), nil
}

// newAzureConnector uses a service principal when tenant, client and secret
// are all set, otherwise the DefaultAzureCredential chain.
func newAzureConnector(config *ffmm.ConnectionConfig) (ffmm.Connector, error) {
	var (
		provider TokenProvider
		err      error
	)
	if config.AzureTenantID != "" && config.AzureClientID != "" && config.AzureClientSecret != "" {
		provider, err = NewAzureServicePrincipalProvider(config.AzureTenantID, config.AzureClientID, config.AzureClientSecret)
	} else {
		provider, err = NewAzureDefaultCredentialProvider()
	}
	if err != nil {
		return nil, err
	}
	return NewTokenConnector(config, provider), nil
}
