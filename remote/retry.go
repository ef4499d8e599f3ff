package remote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hupe1980/labelstore/model"
)

// RetryPolicy bounds retries of remote calls.
type RetryPolicy struct {
	// MaxAttempts is the total number of tries, the first included.
	MaxAttempts int
	// BaseDelay is the pause after the first failure; it doubles after
	// every further failure.
	BaseDelay time.Duration
}

// DefaultRetryPolicy returns 3 attempts with 1s, then 2s between them.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second}
}

// Delay returns the pause after the given failed attempt (0-based).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	return p.BaseDelay << attempt
}

// retryable reports whether another attempt can change the outcome.
func retryable(err error) bool {
	return !errors.Is(err, ErrObjectNotFound) &&
		!errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded)
}

// withRetry runs fn until it succeeds, fails permanently or runs out of
// attempts. It returns the number of attempts made. Exhausted retries yield a
// KindTransient error, missing objects a KindNotFound one.
func withRetry[T any](ctx context.Context, p RetryPolicy, logger *slog.Logger, op string, fn func(context.Context) (T, error)) (T, int, error) {
	attempts := max(p.MaxAttempts, 1)
	var (
		zero    T
		lastErr error
	)
	for attempt := 0; attempt < attempts; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, attempt + 1, nil
		}
		lastErr = err
		if !retryable(err) {
			if errors.Is(err, ErrObjectNotFound) {
				return zero, attempt + 1, &model.Error{Kind: model.KindNotFound, Op: op, Err: err}
			}
			return zero, attempt + 1, err
		}
		if attempt == attempts-1 {
			break
		}

		delay := p.Delay(attempt)
		logger.Warn("remote call failed, retrying",
			"op", op,
			"attempt", attempt+1,
			"delay", delay,
			"error", err,
		)
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return zero, attempt + 1, ctx.Err()
		case <-t.C:
		}
	}
	return zero, attempts, &model.Error{
		Kind: model.KindTransient,
		Op:   op,
		Msg:  fmt.Sprintf("failed after %d attempts", attempts),
		Err:  lastErr,
	}
}
