package retryqueue

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DeliverFunc attempts delivery of a queued message. A nil error means the
// item is done; any error counts as a failed attempt.
type DeliverFunc[T any] func(ctx context.Context, message T) error

// item is a queued message awaiting delivery. Owned by the queue until it
// succeeds (discarded) or exhausts retries (moved to the failure ledger).
type item[T any] struct {
	id          uuid.UUID
	message     T
	deliver     DeliverFunc[T]
	retries     int
	addedAt     time.Time
	lastAttempt time.Time
}

// FailedItem records a message that exhausted its retries. The ledger holding
// these is never retried automatically; an operator drains it explicitly via
// ClearFailed or RetryFailed.
type FailedItem[T any] struct {
	ID       uuid.UUID
	Message  T
	Err      error
	FailedAt time.Time
	Retries  int

	// deliver is retained so RetryFailed can re-enqueue the item for real
	// delivery attempts rather than merely dropping the record.
	deliver DeliverFunc[T]
}

// Stats is a snapshot of queue counters.
type Stats struct {
	// Pending is the number of items waiting in the queue.
	Pending int
	// InFlight is the number of items currently being attempted or backing off.
	InFlight int
	// Failed is the current size of the failure ledger.
	Failed int
	// Queued counts every Add since the queue was created.
	Queued int64
	// Succeeded counts items delivered successfully.
	Succeeded int64
	// Retried counts individual retry attempts across all items.
	Retried int64
	// Exhausted counts items moved to the failure ledger.
	Exhausted int64
}
