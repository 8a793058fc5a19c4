package wecom

import (
	"crypto/sha1"
	"crypto/subtle"
	"encoding/hex"
	"sort"
)

// VerifySignature checks the callback signature the platform attaches to every
// request. The scheme is fixed by the platform: sort the four inputs
// lexicographically, concatenate them with no separator, SHA-1, hex-encode,
// and compare with the signature from the query string.
//
// The comparison is constant-time. A mismatch is reported by returning false;
// this function never fails in any other way.
func VerifySignature(token, timestamp, nonce, payload, signature string) bool {
	parts := []string{token, timestamp, nonce, payload}
	sort.Strings(parts)

	h := sha1.New()
	for _, p := range parts {
		h.Write([]byte(p))
	}
	computed := hex.EncodeToString(h.Sum(nil))

	return subtle.ConstantTimeCompare([]byte(computed), []byte(signature)) == 1
}
