// Package redis connects the gateway to a Redis server with retry and
// exposes a readiness probe. It exists so the rate limiter can share its
// sliding windows across gateway replicas; everything else in the process
// stays in memory.
package redis
