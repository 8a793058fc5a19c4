package ratelimit

import (
	"context"
	"time"
)

// SlidingWindow is a rate limiter that tracks individual request timestamps
// within a moving time window. More accurate than fixed buckets at the cost
// of storing one timestamp per admitted request.
type SlidingWindow struct {
	store  Store
	limit  int
	window time.Duration
}

// NewSlidingWindow creates a sliding window limiter over the given store.
func NewSlidingWindow(store Store, limit int, window time.Duration) (*SlidingWindow, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	if window <= 0 {
		return nil, ErrInvalidWindow
	}
	return &SlidingWindow{
		store:  store,
		limit:  limit,
		window: window,
	}, nil
}

// Allow checks whether one request is admitted for key, recording it if so.
// A denied Result carries ResetAt derived from the oldest timestamp still in
// the window, so RetryAfter reports exactly how long until a slot frees up.
func (sw *SlidingWindow) Allow(ctx context.Context, key string) (*Result, error) {
	if key == "" {
		return nil, ErrKeyRequired
	}

	now := time.Now()
	allowed, count, oldest, err := sw.store.RecordIfAllowed(ctx, key, now, sw.window, sw.limit)
	if err != nil {
		return nil, err
	}

	resetAt := now.Add(sw.window)
	if !allowed && !oldest.IsZero() {
		resetAt = oldest.Add(sw.window)
	}

	return &Result{
		Allowed:   allowed,
		Limit:     sw.limit,
		Remaining: max(0, sw.limit-int(count)),
		ResetAt:   resetAt,
	}, nil
}

// Status returns the current state for key without consuming a slot.
func (sw *SlidingWindow) Status(ctx context.Context, key string) (*Result, error) {
	if key == "" {
		return nil, ErrKeyRequired
	}

	count, err := sw.store.Count(ctx, key, sw.window)
	if err != nil {
		return nil, err
	}

	remaining := sw.limit - int(count)
	return &Result{
		Allowed:   remaining > 0,
		Limit:     sw.limit,
		Remaining: max(0, remaining),
		ResetAt:   time.Now().Add(sw.window),
	}, nil
}

// WaitForSlot performs one admission check and, when denied, suspends until
// the reported wait elapses or ctx is cancelled. It does not re-check after
// waking: this is advisory admission, and concurrent callers can still race
// for the freed slot. Callers needing strict admission must call Allow again.
func (sw *SlidingWindow) WaitForSlot(ctx context.Context, key string) error {
	res, err := sw.Allow(ctx, key)
	if err != nil {
		return err
	}
	if res.Allowed {
		return nil
	}

	timer := time.NewTimer(res.RetryAfter())
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Reset clears the window for key.
func (sw *SlidingWindow) Reset(ctx context.Context, key string) error {
	if key == "" {
		return ErrKeyRequired
	}
	return sw.store.Reset(ctx, key)
}
