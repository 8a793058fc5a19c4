// Package breaker implements the circuit breaker pattern for calls to an
// unreliable dependency, such as an upstream HTTP API during an outage.
//
// The breaker moves between closed, open and half-open states based on call
// outcomes. While open, calls are rejected immediately with *OpenError so a
// struggling dependency is not hammered; after the reset timeout a limited
// trial probes for recovery. Wrap calls with Execute, or drive the state
// machine manually with Allow, RecordSuccess and RecordFailure.
package breaker
