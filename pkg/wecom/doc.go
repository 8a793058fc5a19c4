// Package wecom implements the enterprise messaging platform's callback
// protocol and HTTP API surface used by the gateway.
//
// The callback side covers signature verification (sorted SHA-1 over token,
// timestamp, nonce and payload) and the AES-256-CBC envelope scheme with its
// length-prefixed binary layout. Only inbound decryption is implemented;
// outbound payloads are plain JSON API calls.
//
// The API side is a small client for the two endpoints the gateway needs:
// gettoken (cached with a safety margin below the reported expiry) and
// message/send for a single text message.
package wecom
