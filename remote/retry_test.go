package remote

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/labelstore/model"
)

var fastRetry = RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond}

func TestRetryPolicyDelay(t *testing.T) {
	p := DefaultRetryPolicy()
	assert.Equal(t, 3, p.MaxAttempts)
	assert.Equal(t, time.Second, p.Delay(0))
	assert.Equal(t, 2*time.Second, p.Delay(1))
	assert.Equal(t, 4*time.Second, p.Delay(2))
}

func TestWithRetry(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	boom := errors.New("connection reset")

	t.Run("succeeds after failures", func(t *testing.T) {
		calls := 0
		v, attempts, err := withRetry(t.Context(), fastRetry, logger, "get", func(context.Context) (int, error) {
			calls++
			if calls < 3 {
				return 0, boom
			}
			return 42, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 42, v)
		assert.Equal(t, 3, attempts)
	})

	t.Run("exhausted", func(t *testing.T) {
		calls := 0
		_, attempts, err := withRetry(t.Context(), fastRetry, logger, "put", func(context.Context) (int, error) {
			calls++
			return 0, boom
		})
		assert.Equal(t, 3, calls)
		assert.Equal(t, 3, attempts)
		assert.ErrorIs(t, err, model.ErrTransient)
		assert.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "connection reset")
	})

	t.Run("not found is not retried", func(t *testing.T) {
		calls := 0
		_, _, err := withRetry(t.Context(), fastRetry, logger, "head", func(context.Context) (int, error) {
			calls++
			return 0, ErrObjectNotFound
		})
		assert.Equal(t, 1, calls)
		assert.ErrorIs(t, err, model.ErrNotFound)
		assert.ErrorIs(t, err, ErrObjectNotFound)
	})

	t.Run("context cancelled during backoff", func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())
		slow := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Hour}
		_, attempts, err := withRetry(ctx, slow, logger, "get", func(context.Context) (int, error) {
			cancel()
			return 0, boom
		})
		assert.Equal(t, 1, attempts)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
