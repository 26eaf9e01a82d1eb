// Package signer implements the HMAC request envelope that authenticates
// protected routes: three headers carrying a timestamp, a version, and a
// signature over "timestamp\nbody", verified against the tenant's sealed
// HMAC secret.
//
// Grounded on alanyoungcy-polymarketbot's internal/crypto/hmac.go
// header-signing idiom, adapted to the exact signed-string and freshness
// rules this gateway requires.
package signer

import (
	"strconv"
	"strings"
	"time"

	"github.com/eaglechat/gateway/internal/apperr"
	"github.com/eaglechat/gateway/internal/cryptoutil"
	"github.com/eaglechat/gateway/internal/vault"
)

const (
	HeaderSignature = "X-EagleChat-Signature"
	HeaderTimestamp = "X-EagleChat-Timestamp"
	HeaderVersion   = "X-EagleChat-Version"

	ProtocolVersion = "v1"
	macPrefix       = "hmac-sha256="

	freshnessWindow = 300 * time.Second
)

// Envelope is the parsed form of the three signing headers.
type Envelope struct {
	Signature string // hex MAC, without the "hmac-sha256=" prefix
	Timestamp int64
	Version   string
}

// ParseHeaders extracts and lightly validates the three envelope headers.
func ParseHeaders(get func(string) string) (Envelope, error) {
	sigHeader := get(HeaderSignature)
	tsHeader := get(HeaderTimestamp)
	verHeader := get(HeaderVersion)

	if sigHeader == "" || tsHeader == "" || verHeader == "" {
		return Envelope{}, apperr.Validation("missing signature headers")
	}
	if verHeader != ProtocolVersion {
		return Envelope{}, apperr.Validation("unsupported signature version")
	}
	mac := strings.TrimPrefix(sigHeader, macPrefix)
	if mac == sigHeader {
		return Envelope{}, apperr.Validation("malformed signature header")
	}
	ts, err := strconv.ParseInt(tsHeader, 10, 64)
	if err != nil {
		return Envelope{}, apperr.Validation("malformed timestamp header")
	}
	return Envelope{Signature: mac, Timestamp: ts, Version: verHeader}, nil
}

// Sign computes the envelope signature string for (timestamp, body) under
// secret. Exposed so callers (and tests) can produce a valid envelope
// without going through HTTP.
func Sign(secret []byte, timestamp int64, body []byte) string {
	return cryptoutil.HMACHex(secret, signedString(timestamp, body))
}

func signedString(timestamp int64, body []byte) []byte {
	buf := make([]byte, 0, 20+1+len(body))
	buf = strconv.AppendInt(buf, timestamp, 10)
	buf = append(buf, '\n')
	buf = append(buf, body...)
	return buf
}

// Verifier checks protected-route requests against a tenant's HMAC secret.
type Verifier struct {
	vault *vault.Vault
	now   func() time.Time
}

func NewVerifier(v *vault.Vault) *Verifier {
	return &Verifier{vault: v, now: time.Now}
}

// Verify checks env/body against sealedSecret (already loaded by the
// caller, since the lookup mechanism varies by call site). Returns:
//   - apperr.StaleTimestamp if |now - timestamp| > 300s
//   - apperr.HmacNotConfigured if sealedSecret is empty
//   - apperr.BadSignature on MAC mismatch
func (v *Verifier) Verify(env Envelope, sealedSecret string, body []byte) error {
	now := v.now().Unix()
	if diff := now - env.Timestamp; diff > int64(freshnessWindow.Seconds()) || diff < -int64(freshnessWindow.Seconds()) {
		return apperr.StaleTimestamp()
	}
	if sealedSecret == "" {
		return apperr.HmacNotConfigured()
	}

	secret, err := v.vault.Open(sealedSecret)
	if err != nil {
		return err // apperr.SealIntegrity, bubbles to top-level 500 handler
	}

	expected := cryptoutil.HMACHex(secret, signedString(env.Timestamp, body))
	if !cryptoutil.ConstantTimeEqual(expected, env.Signature) {
		return apperr.BadSignature()
	}
	return nil
}
