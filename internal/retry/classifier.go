package retry

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE classes that indicate the server could not take the connection
// right now. Authentication failures (28xxx) and unknown databases (3D000)
// are deliberately absent.
var transientClasses = []string{
	"08", // connection exception
	"53", // insufficient resources, including too_many_connections
	"57", // operator intervention: admin shutdown, cannot_connect_now
}

var transientSyscalls = []error{
	syscall.ECONNREFUSED,
	syscall.ECONNRESET,
	syscall.ENETUNREACH,
	syscall.EHOSTUNREACH,
}

// Fallback for errors that reach us only as text, typically from pgconn's
// connect path which flattens the underlying dial error.
var transientMessages = []string{
	"connection refused",
	"connection reset",
	"server closed the connection",
	"the database system is starting up",
	"the database system is shutting down",
	"too many connections",
	"i/o timeout",
	"broken pipe",
	"unexpected eof",
}

// PostgreSQLErrorClassifier decides whether a failure to reach PostgreSQL is
// worth another attempt.
type PostgreSQLErrorClassifier struct{}

func NewPostgreSQLErrorClassifier() *PostgreSQLErrorClassifier {
	return &PostgreSQLErrorClassifier{}
}

// IsTransient reports whether err is retryable. Context cancellation and
// deadlines are never retryable.
func (c *PostgreSQLErrorClassifier) IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		for _, class := range transientClasses {
			if strings.HasPrefix(pgErr.Code, class) {
				return true
			}
		}
		return false
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsTemporary || dnsErr.IsTimeout
	}

	for _, target := range transientSyscalls {
		if errors.Is(err, target) {
			return true
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range transientMessages {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
