// Package requestcache provides a generic, thread-safe TTL cache keyed by
// canonical request strings, used to avoid redundant API calls such as
// access-token fetches.
//
// Unlike a classic LRU, eviction at capacity targets the entry with the
// fewest reads (ties broken by insertion order), and expiry is enforced
// lazily on read plus an explicit Cleanup sweep.
package requestcache
