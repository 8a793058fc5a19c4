package ratelimit

import (
	"context"
	"time"
)

// Result contains the outcome of a rate limit check.
type Result struct {
	// Allowed indicates whether the request was admitted.
	Allowed bool

	// Limit is the maximum number of requests allowed in the window.
	Limit int

	// Remaining is the number of requests left in the current window.
	Remaining int

	// ResetAt is when capacity next becomes available. For a denied request
	// this is the oldest recorded timestamp plus the window; for an admitted
	// request it is simply now plus the window.
	ResetAt time.Time
}

// RetryAfter returns how long to wait before a slot frees up.
// Returns 0 if the request was allowed.
func (r *Result) RetryAfter() time.Duration {
	if r.Allowed {
		return 0
	}
	return time.Until(r.ResetAt)
}

// Store is the storage backend for sliding-window state. Implementations
// must make RecordIfAllowed atomic per key.
type Store interface {
	// RecordIfAllowed atomically counts the timestamps inside the trailing
	// window for key and records now when the count is below limit. It
	// returns whether the request was admitted, the count after the
	// operation, and the oldest timestamp still in the window (zero when the
	// window is empty).
	RecordIfAllowed(ctx context.Context, key string, now time.Time, window time.Duration, limit int) (allowed bool, count int64, oldest time.Time, err error)

	// Count returns the number of timestamps inside the trailing window.
	Count(ctx context.Context, key string, window time.Duration) (int64, error)

	// Reset removes all state for key.
	Reset(ctx context.Context, key string) error
}
