package retry

import (
	"context"
	"time"

	"github.com/ffmm-chile/ffmm/pkg/ffmm"
)

// OnRetryFunc is called before each wait. attempt is one-based.
type OnRetryFunc func(attempt int, err error, delay time.Duration)

// Executor runs an operation until it succeeds, fails fatally, runs out of
// attempts, or its context ends. Execute is safe for concurrent use.
type Executor struct {
	classifier ffmm.ErrorClassifier
	strategy   ffmm.BackoffStrategy
	onRetry    OnRetryFunc
}

// NewExecutor panics if classifier or strategy is nil.
func NewExecutor(classifier ffmm.ErrorClassifier, strategy ffmm.BackoffStrategy) *Executor {
	if classifier == nil {
		panic("retry: classifier cannot be nil")
	}
	if strategy == nil {
		panic("retry: strategy cannot be nil")
	}
	return &Executor{classifier: classifier, strategy: strategy}
}

// WithOnRetry returns a copy of e that invokes fn before each wait.
func (e *Executor) WithOnRetry(fn OnRetryFunc) *Executor {
	clone := *e
	clone.onRetry = fn
	return &clone
}

// Execute returns nil on the first successful attempt, otherwise the error
// of the last attempt. A cancelled context returns ctx.Err().
func (e *Executor) Execute(ctx context.Context, operation func(ctx context.Context) error) error {
	err := operation(ctx)
	max := e.strategy.MaxAttempts()

	for retry := 0; err != nil && e.classifier.IsTransient(err) && (max < 0 || retry < max); retry++ {
		delay := e.strategy.NextDelay(retry)
		if e.onRetry != nil {
			e.onRetry(retry+1, err, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		err = operation(ctx)
	}
	return err
}
