package db

import (
	"context"
	"fmt"
	"net"

	"cloud.google.com/go/cloudsqlconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ffmm-chile/ffmm/pkg/ffmm"
)

// GoogleCloudSQLConnector dials Cloud SQL through the Cloud SQL Go Connector
// with IAM database authentication. The connector owns a dialer; call Close
// after the pool is closed.
type GoogleCloudSQLConnector struct {
	config *ffmm.ConnectionConfig
	dialer *cloudsqlconn.Dialer
}

func NewGoogleCloudSQLConnector(config *ffmm.ConnectionConfig) *GoogleCloudSQLConnector {
	return &GoogleCloudSQLConnector{config: config}
}

func (c *GoogleCloudSQLConnector) Connect(ctx context.Context) (*pgxpool.Pool, error) {
	dialer, err := cloudsqlconn.NewDialer(ctx, cloudsqlconn.WithIAMAuthN())
	if err != nil {
		return nil, fmt.Errorf("failed to create Cloud SQL dialer: %w", ffmm.ErrConnectionFailed)
	}

	dsn := fmt.Sprintf("host=%s user=%s dbname=%s sslmode=disable application_name=%s",
		c.config.GoogleInstance, c.config.Username, c.config.Database, c.config.AppName)
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		dialer.Close()
		return nil, fmt.Errorf("failed to parse connection config: %w", ffmm.ErrInvalidConfig)
	}

	instance := c.config.GoogleInstance
	poolConfig.ConnConfig.DialFunc = func(ctx context.Context, _, _ string) (net.Conn, error) {
		return dialer.Dial(ctx, instance)
	}
	configurePool(poolConfig)

	pool, err := openPool(ctx, newRetryExecutor(), poolConfig, c.config)
	if err != nil {
		dialer.Close()
		return nil, err
	}
	c.dialer = dialer
	return pool, nil
}

// Close releases the dialer. It is safe to call more than once.
func (c *GoogleCloudSQLConnector) Close() error {
	if c.dialer != nil {
		err := c.dialer.Close()
		c.dialer = nil
		return err
	}
	return nil
}
