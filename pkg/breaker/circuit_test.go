package breaker_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaygate/relaygate/pkg/breaker"
)

var errUpstream = errors.New("upstream unavailable")

func failing(context.Context) error { return errUpstream }

func succeeding(context.Context) error { return nil }

func TestCircuitBreakerExecute(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("passes the underlying error through unchanged", func(t *testing.T) {
		t.Parallel()

		cb := breaker.New(5, 2, time.Second)
		err := cb.Execute(ctx, failing)
		assert.ErrorIs(t, err, errUpstream)
		assert.False(t, breaker.IsOpen(err))
	})

	t.Run("opens after the failure threshold", func(t *testing.T) {
		t.Parallel()

		cb := breaker.New(2, 1, time.Minute)

		require.Error(t, cb.Execute(ctx, failing))
		assert.Equal(t, breaker.StateClosed, cb.State())

		require.Error(t, cb.Execute(ctx, failing))
		assert.Equal(t, breaker.StateOpen, cb.State())

		// Open circuit fails fast without invoking the function.
		invoked := false
		err := cb.Execute(ctx, func(context.Context) error {
			invoked = true
			return nil
		})
		assert.True(t, breaker.IsOpen(err))
		assert.False(t, invoked)

		var openErr *breaker.OpenError
		require.ErrorAs(t, err, &openErr)
		assert.Greater(t, openErr.TimeUntilReset, time.Duration(0))
		assert.LessOrEqual(t, openErr.TimeUntilReset, time.Minute)
	})

	t.Run("success in closed state resets the failure count", func(t *testing.T) {
		t.Parallel()

		cb := breaker.New(2, 1, time.Minute)

		require.Error(t, cb.Execute(ctx, failing))
		require.NoError(t, cb.Execute(ctx, succeeding))
		require.Error(t, cb.Execute(ctx, failing))

		// Two failures total, but never two in a row.
		assert.Equal(t, breaker.StateClosed, cb.State())
	})
}

func TestCircuitBreakerRecovery(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	openBreaker := func(t *testing.T, resetTimeout time.Duration) *breaker.CircuitBreaker {
		t.Helper()
		cb := breaker.New(2, 2, resetTimeout)
		require.Error(t, cb.Execute(ctx, failing))
		require.Error(t, cb.Execute(ctx, failing))
		require.Equal(t, breaker.StateOpen, cb.State())
		return cb
	}

	t.Run("admits a trial call after the reset timeout", func(t *testing.T) {
		t.Parallel()

		cb := openBreaker(t, 50*time.Millisecond)
		time.Sleep(60 * time.Millisecond)

		assert.Equal(t, breaker.StateHalfOpen, cb.State())

		require.NoError(t, cb.Execute(ctx, succeeding))
		assert.Equal(t, breaker.StateHalfOpen, cb.State())

		require.NoError(t, cb.Execute(ctx, succeeding))
		assert.Equal(t, breaker.StateClosed, cb.State())
	})

	t.Run("trial failure reopens immediately", func(t *testing.T) {
		t.Parallel()

		cb := openBreaker(t, 50*time.Millisecond)
		time.Sleep(60 * time.Millisecond)

		err := cb.Execute(ctx, failing)
		require.ErrorIs(t, err, errUpstream)
		assert.Equal(t, breaker.StateOpen, cb.State())

		err = cb.Execute(ctx, succeeding)
		assert.True(t, breaker.IsOpen(err))
	})

	t.Run("Reset forces the circuit closed", func(t *testing.T) {
		t.Parallel()

		cb := openBreaker(t, time.Minute)
		cb.Reset()

		assert.Equal(t, breaker.StateClosed, cb.State())
		assert.NoError(t, cb.Execute(ctx, succeeding))
	})
}

func TestCircuitBreakerDefaults(t *testing.T) {
	t.Parallel()

	cb := breaker.New(0, 0, 0)

	// Defaults: five failures to open.
	for range 4 {
		cb.RecordFailure()
	}
	assert.Equal(t, breaker.StateClosed, cb.State())
	cb.RecordFailure()
	assert.Equal(t, breaker.StateOpen, cb.State())
}

func TestCircuitBreakerStats(t *testing.T) {
	t.Parallel()

	cb := breaker.New(3, 2, time.Minute)
	cb.RecordFailure()
	cb.RecordFailure()

	stats := cb.Stats()
	assert.Equal(t, "closed", stats.State)
	assert.Equal(t, 2, stats.Failures)
	assert.False(t, stats.LastFailureTime.IsZero())
}

func TestIsOpen(t *testing.T) {
	t.Parallel()

	assert.True(t, breaker.IsOpen(&breaker.OpenError{}))
	assert.False(t, breaker.IsOpen(errUpstream))
	assert.False(t, breaker.IsOpen(nil))
}
