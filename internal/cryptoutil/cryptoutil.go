// Package cryptoutil provides the symmetric primitives the gateway builds
// trust on: keyed HMAC-SHA256 signing, constant-time comparison, and
// cryptographically strong random tokens. Higher-level sealing lives in
// internal/vault; this package has no notion of tenants or ciphertext framing.
package cryptoutil

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
)

// HMACHex computes HMAC-SHA256(key, message) and hex-encodes it lowercase.
func HMACHex(key, message []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write(message)
	return hex.EncodeToString(mac.Sum(nil))
}

// ConstantTimeEqual compares two strings without leaking timing information
// about the position of the first mismatched byte. Inputs of unequal length
// are reported unequal by hmac.Equal without comparing their contents, so
// only the length difference is observable through timing.
func ConstantTimeEqual(a, b string) bool {
	return hmac.Equal([]byte(a), []byte(b))
}

// ConstantTimeEqualBytes is the []byte form of ConstantTimeEqual, for callers
// that already hold decoded buffers instead of strings.
func ConstantTimeEqualBytes(a, b []byte) bool {
	if len(a) != len(b) {
		// Still run a comparison of equal cost to avoid a cheap length-based
		// timing signal, then report mismatch.
		subtle.ConstantTimeCompare(a, a)
		return false
	}
	return subtle.ConstantTimeCompare(a, b) == 1
}

// RandomToken returns a URL-safe base64 string encoding n random bytes,
// suitable for api keys and callback tokens.
func RandomToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
