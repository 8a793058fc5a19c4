package wecom

import "errors"

// Domain errors for the callback protocol and platform API client.
// Stable identities for errors.Is checks; call sites wrap them with
// request-specific context.
var (
	ErrInvalidAESKey   = errors.New("invalid encoding AES key")
	ErrDecryptFailed   = errors.New("callback envelope decryption failed")
	ErrInvalidEnvelope = errors.New("invalid callback envelope")
	ErrAccessToken     = errors.New("access token request rejected")
	ErrSendFailed      = errors.New("message send rejected")
)
