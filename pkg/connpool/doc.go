// Package connpool provides a bounded registry of per-destination connection
// metadata around a shared http.Client. Every request is wrapped with a
// timeout and counted into running statistics, including an incremental mean
// latency over successful calls.
//
// Entries are lightweight accounting records, not sockets; the underlying
// http.Transport manages actual keep-alive connections. The registry exists
// to bound tracked destinations (FIFO eviction at capacity) and to expose
// per-destination usage for diagnostics.
package connpool
