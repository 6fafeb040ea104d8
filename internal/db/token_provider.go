package db

import (
	"context"
	"time"
)

// TokenProvider supplies short-lived credentials that PostgreSQL accepts as
// a password (AWS RDS IAM, Azure Entra ID).
type TokenProvider interface {
	// GetToken returns a token and the time it stops being accepted.
	GetToken(ctx context.Context) (token string, expiresOn time.Time, err error)

	// String describes the provider without secrets.
	String() string
}

// AzurePostgreSQLScope is the Entra ID resource for Azure Database for PostgreSQL.
const AzurePostgreSQLScope = "https://ossrdbms-aad.database.windows.net/.default"
