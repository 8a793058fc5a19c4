package wecom

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
)

// The platform pads plaintext to 32-byte blocks before encrypting, so the
// PKCS#7 pad byte can legally exceed the AES block size.
const padBlockSize = 32

// DecryptedEnvelope holds the plaintext recovered from an encrypted callback
// envelope. ReceiverID is the corp/app identifier trailing the content; the
// caller decides whether to check it against the configured corp ID.
type DecryptedEnvelope struct {
	Content    string
	ReceiverID string
}

// DecryptEnvelope opens the platform's AES-256-CBC callback envelope.
//
// The key is recovered by base64-decoding encodingAESKey with a single "="
// appended; the IV is the first 16 bytes of that key. The decrypted buffer,
// after manual PKCS#7 unpadding, is laid out as:
//
//	bytes [0,16)               random nonce (discarded)
//	bytes [16,20)              big-endian uint32 content length
//	bytes [20,20+len)          content
//	remaining bytes            receiver (corp/app) identifier
//
// Every malformed input surfaces as ErrDecryptFailed (or ErrInvalidAESKey for
// bad key material); garbage is never returned silently.
func DecryptEnvelope(encodingAESKey, ciphertext string) (*DecryptedEnvelope, error) {
	key, err := base64.StdEncoding.DecodeString(encodingAESKey + "=")
	if err != nil {
		return nil, errors.Join(ErrInvalidAESKey, err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("%w: decoded to %d bytes, want 32", ErrInvalidAESKey, len(key))
	}

	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return nil, errors.Join(ErrDecryptFailed, err)
	}
	if len(raw) == 0 || len(raw)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: ciphertext length %d is not block-aligned", ErrDecryptFailed, len(raw))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.Join(ErrDecryptFailed, err)
	}

	plain := make([]byte, len(raw))
	cipher.NewCBCDecrypter(block, key[:aes.BlockSize]).CryptBlocks(plain, raw)

	plain, err = stripPKCS7(plain)
	if err != nil {
		return nil, err
	}
	if len(plain) < 20 {
		return nil, fmt.Errorf("%w: plaintext too short (%d bytes)", ErrDecryptFailed, len(plain))
	}

	contentLen := binary.BigEndian.Uint32(plain[16:20])
	if uint64(contentLen) > uint64(len(plain)-20) {
		return nil, fmt.Errorf("%w: content length %d exceeds payload", ErrDecryptFailed, contentLen)
	}

	return &DecryptedEnvelope{
		Content:    string(plain[20 : 20+contentLen]),
		ReceiverID: string(plain[20+contentLen:]),
	}, nil
}

func stripPKCS7(b []byte) ([]byte, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("%w: empty plaintext", ErrDecryptFailed)
	}
	pad := int(b[len(b)-1])
	if pad < 1 || pad > padBlockSize || pad > len(b) {
		return nil, fmt.Errorf("%w: invalid padding byte %d", ErrDecryptFailed, pad)
	}
	return b[:len(b)-pad], nil
}
