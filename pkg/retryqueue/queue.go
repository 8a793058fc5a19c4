package retryqueue

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Queue is an asynchronous delivery queue with bounded concurrency,
// exponential backoff and a bounded failure ledger. Add never blocks the
// caller; a fixed pool of workers drains the queue in the background.
//
// Retried items are re-inserted at the front of the queue, ahead of fresh
// items. This deliberately favors latency for messages that are already
// delayed over strict fairness.
type Queue[T any] struct {
	mu     sync.Mutex
	items  []*item[T]
	failed []FailedItem[T]

	wake   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	maxRetries int
	backoff    BackoffStrategy
	maxFailed  int
	log        *slog.Logger

	inFlight  atomic.Int64
	queued    atomic.Int64
	succeeded atomic.Int64
	retried   atomic.Int64
	exhausted atomic.Int64
}

// Option configures a Queue.
type Option func(*options)

type options struct {
	maxRetries  int
	retryDelay  time.Duration
	backoff     BackoffStrategy
	concurrency int
	maxFailed   int
	log         *slog.Logger
}

// WithMaxRetries bounds retry attempts per item; an item is attempted at
// most maxRetries+1 times in total.
func WithMaxRetries(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.maxRetries = n
		}
	}
}

// WithRetryDelay sets the base delay for the default exponential backoff:
// the n-th retry waits retryDelay * 2^(n-1). Ignored when WithBackoff is
// also supplied.
func WithRetryDelay(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.retryDelay = d
		}
	}
}

// WithBackoff replaces the backoff strategy entirely.
func WithBackoff(strategy BackoffStrategy) Option {
	return func(o *options) {
		if strategy != nil {
			o.backoff = strategy
		}
	}
}

// WithConcurrency sets the number of delivery workers.
func WithConcurrency(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithMaxFailed bounds the failure ledger; the oldest record is dropped when
// a new failure arrives at capacity.
func WithMaxFailed(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxFailed = n
		}
	}
}

// WithLogger sets the logger for delivery diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// New creates a queue and starts its workers. Call Close to stop them.
func New[T any](opts ...Option) *Queue[T] {
	o := &options{
		maxRetries:  3,
		retryDelay:  time.Second,
		concurrency: 1,
		maxFailed:   1000,
		log:         slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.backoff == nil {
		// Deterministic doubling per the delivery contract; jitter is opt-in
		// through WithBackoff.
		o.backoff = ExponentialBackoff{
			InitialInterval: o.retryDelay,
			MaxInterval:     1 << 62,
			Multiplier:      2,
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue[T]{
		wake:       make(chan struct{}, 1),
		ctx:        ctx,
		cancel:     cancel,
		maxRetries: o.maxRetries,
		backoff:    o.backoff,
		maxFailed:  o.maxFailed,
		log:        o.log,
	}

	q.wg.Add(o.concurrency)
	for range o.concurrency {
		go q.worker()
	}
	return q
}

// Add enqueues a message for asynchronous delivery and returns its ID.
// It never blocks; processing is triggered in the background.
func (q *Queue[T]) Add(message T, deliver DeliverFunc[T]) uuid.UUID {
	it := &item[T]{
		id:      uuid.New(),
		message: message,
		deliver: deliver,
		addedAt: time.Now(),
	}

	q.mu.Lock()
	q.items = append(q.items, it)
	q.mu.Unlock()

	q.queued.Add(1)
	q.notify()
	return it.id
}

// Failed returns a snapshot of the failure ledger.
func (q *Queue[T]) Failed() []FailedItem[T] {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]FailedItem[T], len(q.failed))
	copy(out, q.failed)
	return out
}

// ClearFailed drops the failure ledger and returns the number of records
// discarded.
func (q *Queue[T]) ClearFailed() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(q.failed)
	q.failed = nil
	return n
}

// RetryFailed drains the failure ledger and re-enqueues each record for a
// fresh round of delivery attempts, retry counts starting over. Returns the
// number of items re-enqueued.
func (q *Queue[T]) RetryFailed() int {
	q.mu.Lock()
	failed := q.failed
	q.failed = nil
	q.mu.Unlock()

	for _, f := range failed {
		q.Add(f.Message, f.deliver)
	}
	return len(failed)
}

// Stats returns a snapshot of queue counters.
func (q *Queue[T]) Stats() Stats {
	q.mu.Lock()
	pending := len(q.items)
	failed := len(q.failed)
	q.mu.Unlock()

	return Stats{
		Pending:   pending,
		InFlight:  int(q.inFlight.Load()),
		Failed:    failed,
		Queued:    q.queued.Load(),
		Succeeded: q.succeeded.Load(),
		Retried:   q.retried.Load(),
		Exhausted: q.exhausted.Load(),
	}
}

// Drain polls until the queue is empty and no item is in flight, or ctx is
// cancelled. Intended for tests and shutdown, not hot paths.
func (q *Queue[T]) Drain(ctx context.Context) error {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		q.mu.Lock()
		empty := len(q.items) == 0
		q.mu.Unlock()
		if empty && q.inFlight.Load() == 0 {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Close stops the workers and waits for in-flight attempts to wind down.
// Queued items are left undelivered.
func (q *Queue[T]) Close() {
	q.cancel()
	q.wg.Wait()
}

func (q *Queue[T]) notify() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *Queue[T]) worker() {
	defer q.wg.Done()

	for {
		it := q.pop()
		if it == nil {
			select {
			case <-q.ctx.Done():
				return
			case <-q.wake:
				continue
			}
		}
		q.attempt(it)
	}
}

// pop removes the front item and marks it in flight.
func (q *Queue[T]) pop() *item[T] {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil
	}
	it := q.items[0]
	q.items = q.items[1:]
	q.inFlight.Add(1)
	return it
}

func (q *Queue[T]) pushFront(it *item[T]) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append([]*item[T]{it}, q.items...)
}

// attempt runs one delivery. On a retryable failure the worker holds its
// concurrency slot through the backoff sleep, then re-inserts the item at
// the front so retries run before fresh items.
func (q *Queue[T]) attempt(it *item[T]) {
	defer q.inFlight.Add(-1)

	it.lastAttempt = time.Now()
	err := it.deliver(q.ctx, it.message)
	if err == nil {
		q.succeeded.Add(1)
		return
	}

	if it.retries < q.maxRetries {
		it.retries++
		q.retried.Add(1)

		delay := q.backoff.NextInterval(it.retries)
		q.log.Debug("delivery failed, backing off",
			slog.String("item_id", it.id.String()),
			slog.Int("retry", it.retries),
			slog.Duration("delay", delay),
			slog.Any("error", err))

		timer := time.NewTimer(delay)
		select {
		case <-q.ctx.Done():
			timer.Stop()
		case <-timer.C:
		}

		q.pushFront(it)
		q.notify()
		return
	}

	q.exhausted.Add(1)
	q.log.Error("delivery exhausted retries",
		slog.String("item_id", it.id.String()),
		slog.Int("retries", it.retries),
		slog.Any("error", err))

	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.failed) >= q.maxFailed {
		q.failed = q.failed[1:]
	}
	q.failed = append(q.failed, FailedItem[T]{
		ID:       it.id,
		Message:  it.message,
		Err:      err,
		FailedAt: time.Now(),
		Retries:  it.retries,
		deliver:  it.deliver,
	})
}
