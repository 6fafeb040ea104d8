// Package retry re-attempts connection establishment when PostgreSQL or the
// network reports a condition that is likely to clear on its own: the server
// is starting up, the connection limit is reached, a socket was reset.
//
// Retries apply only to opening the pool. Batch writes and the promotion
// transaction are never retried here: a failed batch aborts the load and the
// staging table is left for inspection.
//
//	exec := retry.NewExecutor(
//	    retry.NewPostgreSQLErrorClassifier(),
//	    retry.NewExponentialBackoff(3, retry.WithInitialDelay(200*time.Millisecond)),
//	).WithOnRetry(func(attempt int, err error, delay time.Duration) {
//	    logger.Verbose("retry %d in %v: %v", attempt, delay, err)
//	})
//	err := exec.Execute(ctx, func(ctx context.Context) error { return pool.Ping(ctx) })
package retry
