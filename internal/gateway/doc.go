// Package gateway composes the callback protocol handler and the outbound
// delivery pipeline into the relay service.
//
// Inbound: HTTP callbacks from the platform are verified, decrypted and
// handed to the Dispatcher collaborator. The POST path always acknowledges
// with 200 "success" regardless of protocol failures, because any other
// response makes the platform redeliver; the GET challenge path reports
// misconfiguration through status codes instead.
//
// Outbound: replies travel through the rate limiter, circuit breaker and
// platform client; failed sends are handed to the retry queue for delayed
// redelivery.
package gateway
