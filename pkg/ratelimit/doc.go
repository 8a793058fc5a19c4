// Package ratelimit provides sliding-window admission control per logical
// key, backed by a pluggable store.
//
// The sliding window records one timestamp per admitted request and prunes
// entries older than the trailing window lazily on each check, so no more
// than the configured limit is ever admitted within any trailing interval.
// A denied result reports exactly how long until the oldest recorded request
// ages out of the window.
//
// Two stores ship with the package: MemoryStore for single-process
// deployments and RedisStore (sorted sets plus a server-side script) for
// sharing one window across replicas.
package ratelimit
