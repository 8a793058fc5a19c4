package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaygate/relaygate/pkg/ratelimit"
)

func newLimiter(t *testing.T, limit int, window time.Duration) *ratelimit.SlidingWindow {
	t.Helper()

	store := ratelimit.NewMemoryStore()
	t.Cleanup(func() { _ = store.Close() })

	sw, err := ratelimit.NewSlidingWindow(store, limit, window)
	require.NoError(t, err)
	return sw
}

func TestNewSlidingWindow(t *testing.T) {
	t.Parallel()

	t.Run("rejects nil store", func(t *testing.T) {
		t.Parallel()

		_, err := ratelimit.NewSlidingWindow(nil, 1, time.Second)
		assert.ErrorIs(t, err, ratelimit.ErrStoreRequired)
	})

	t.Run("rejects non-positive limit", func(t *testing.T) {
		t.Parallel()

		store := ratelimit.NewMemoryStore()
		defer store.Close()

		_, err := ratelimit.NewSlidingWindow(store, 0, time.Second)
		assert.ErrorIs(t, err, ratelimit.ErrInvalidLimit)
	})

	t.Run("rejects non-positive window", func(t *testing.T) {
		t.Parallel()

		store := ratelimit.NewMemoryStore()
		defer store.Close()

		_, err := ratelimit.NewSlidingWindow(store, 1, 0)
		assert.ErrorIs(t, err, ratelimit.ErrInvalidWindow)
	})
}

func TestSlidingWindowAllow(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("admits up to the limit then denies", func(t *testing.T) {
		t.Parallel()

		sw := newLimiter(t, 3, time.Second)

		for i := range 3 {
			res, err := sw.Allow(ctx, "sender")
			require.NoError(t, err)
			assert.True(t, res.Allowed, "request %d should be admitted", i+1)
			assert.Equal(t, 3, res.Limit)
		}

		res, err := sw.Allow(ctx, "sender")
		require.NoError(t, err)
		assert.False(t, res.Allowed)
		assert.Equal(t, 0, res.Remaining)
		assert.Greater(t, res.RetryAfter(), time.Duration(0))
		assert.LessOrEqual(t, res.RetryAfter(), time.Second)
	})

	t.Run("admits again after the window slides past", func(t *testing.T) {
		t.Parallel()

		sw := newLimiter(t, 2, 50*time.Millisecond)

		for range 2 {
			res, err := sw.Allow(ctx, "sender")
			require.NoError(t, err)
			require.True(t, res.Allowed)
		}

		res, err := sw.Allow(ctx, "sender")
		require.NoError(t, err)
		require.False(t, res.Allowed)

		time.Sleep(60 * time.Millisecond)

		res, err = sw.Allow(ctx, "sender")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	})

	t.Run("keys are independent", func(t *testing.T) {
		t.Parallel()

		sw := newLimiter(t, 1, time.Second)

		res, err := sw.Allow(ctx, "first")
		require.NoError(t, err)
		require.True(t, res.Allowed)

		res, err = sw.Allow(ctx, "second")
		require.NoError(t, err)
		assert.True(t, res.Allowed)

		res, err = sw.Allow(ctx, "first")
		require.NoError(t, err)
		assert.False(t, res.Allowed)
	})

	t.Run("rejects empty key", func(t *testing.T) {
		t.Parallel()

		sw := newLimiter(t, 1, time.Second)
		_, err := sw.Allow(ctx, "")
		assert.ErrorIs(t, err, ratelimit.ErrKeyRequired)
	})
}

func TestSlidingWindowStatus(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sw := newLimiter(t, 3, time.Second)

	res, err := sw.Status(ctx, "sender")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 3, res.Remaining)

	_, err = sw.Allow(ctx, "sender")
	require.NoError(t, err)

	res, err = sw.Status(ctx, "sender")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Remaining)

	// Status does not consume a slot.
	res, err = sw.Status(ctx, "sender")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Remaining)
}

func TestSlidingWindowWaitForSlot(t *testing.T) {
	t.Parallel()

	t.Run("returns immediately when admitted", func(t *testing.T) {
		t.Parallel()

		sw := newLimiter(t, 1, time.Second)

		start := time.Now()
		err := sw.WaitForSlot(context.Background(), "sender")
		require.NoError(t, err)
		assert.Less(t, time.Since(start), 100*time.Millisecond)
	})

	t.Run("waits out a full window", func(t *testing.T) {
		t.Parallel()

		sw := newLimiter(t, 1, 50*time.Millisecond)
		require.NoError(t, sw.WaitForSlot(context.Background(), "sender"))

		start := time.Now()
		err := sw.WaitForSlot(context.Background(), "sender")
		require.NoError(t, err)
		assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
	})

	t.Run("honours context cancellation", func(t *testing.T) {
		t.Parallel()

		sw := newLimiter(t, 1, time.Minute)
		require.NoError(t, sw.WaitForSlot(context.Background(), "sender"))

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		err := sw.WaitForSlot(ctx, "sender")
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestSlidingWindowReset(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sw := newLimiter(t, 1, time.Minute)

	res, err := sw.Allow(ctx, "sender")
	require.NoError(t, err)
	require.True(t, res.Allowed)

	res, err = sw.Allow(ctx, "sender")
	require.NoError(t, err)
	require.False(t, res.Allowed)

	require.NoError(t, sw.Reset(ctx, "sender"))

	res, err = sw.Allow(ctx, "sender")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}
