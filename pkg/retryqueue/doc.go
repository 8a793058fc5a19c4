// Package retryqueue provides an asynchronous delivery queue with bounded
// worker concurrency, pluggable backoff and a bounded failure ledger.
//
// Add enqueues a message with its delivery function and returns immediately;
// workers attempt delivery in the background. A failed attempt with retries
// remaining backs off exponentially and re-enters the queue at the front,
// ahead of fresh items. An item that exhausts its retries is moved to the
// failure ledger with the final error; the ledger is never retried
// automatically and is drained by the operator via ClearFailed or
// RetryFailed.
package retryqueue
