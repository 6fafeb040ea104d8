package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ffmm-chile/ffmm/internal/retry"
	"github.com/ffmm-chile/ffmm/pkg/ffmm"
)

// minTokenLifetime is how long a token must still be valid to be used for a
// new connection. A token closer to expiry is fetched again.
const minTokenLifetime = 30 * time.Second

// TokenConnector authenticates with a token from a TokenProvider used as the
// password. Every new physical connection asks the provider for a token, so
// connections opened late in a long load do not carry an expired one.
type TokenConnector struct {
	config   *ffmm.ConnectionConfig
	provider TokenProvider
	executor *retry.Executor
}

func NewTokenConnector(config *ffmm.ConnectionConfig, provider TokenProvider) *TokenConnector {
	return &TokenConnector{config: config, provider: provider, executor: newRetryExecutor()}
}

func (c *TokenConnector) Connect(ctx context.Context) (*pgxpool.Pool, error) {
	withoutPassword := *c.config
	withoutPassword.Password = ""

	poolConfig, err := pgxpool.ParseConfig(BuildConnectionString(&withoutPassword))
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection config: %w", ffmm.ErrInvalidConfig)
	}
	configurePool(poolConfig)
	poolConfig.BeforeConnect = func(ctx context.Context, cc *pgx.ConnConfig) error {
		token, err := c.token(ctx)
		if err != nil {
			return err
		}
		cc.Password = token
		return nil
	}

	return openPool(ctx, c.executor, poolConfig, c.config)
}

func (c *TokenConnector) token(ctx context.Context) (string, error) {
	token, expiresOn, err := c.provider.GetToken(ctx)
	if err != nil {
		return "", fmt.Errorf("%s: %w", c.provider, err)
	}
	if !expiresOn.IsZero() && time.Until(expiresOn) < minTokenLifetime {
		return "", fmt.Errorf("%s: token expires at %s", c.provider, expiresOn.Format(time.RFC3339))
	}
	return token, nil
}
