// Package vault implements the master-keyed secret vault: a process-wide
// data-encryption key derived once from an operator master secret, used to
// seal and open tenant secrets (HMAC secrets, provider keys) at rest.
//
// Grounded on Jeffreasy-LaventeCareAuthSystems/internal/crypto/tenant_secrets.go
// (AES-GCM, random nonce prepended to ciphertext) with the KDF step spec.md
// §4.1 calls for: PBKDF2-HMAC-SHA256, fixed salt, 100,000 iterations.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/eaglechat/gateway/internal/apperr"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// kdfSalt is fixed by design: the master secret supplies entropy, the KDF
	// only stretches it, and freshness per-ciphertext comes from the AEAD's
	// nonce, not the salt. See spec.md §4.1 "Rationale".
	kdfSalt       = "eaglechat-gateway-v1-dek"
	kdfIterations = 100_000
	keyLenBytes   = 32 // AES-256

	// envelopeVersion is the first byte of every ciphertext this vault
	// produces, so format changes can be detected on open.
	envelopeVersion byte = 1
)

var ErrEmptyMasterSecret = errors.New("vault: master secret must not be empty")

// Vault seals and opens tenant secrets under a single derived key.
type Vault struct {
	key []byte
}

// New derives the data-encryption key from masterSecret via PBKDF2-HMAC-SHA256
// and returns a ready-to-use Vault. This should be called exactly once at
// process start; the resulting Vault is immutable and safe for concurrent use.
func New(masterSecret []byte) (*Vault, error) {
	if len(masterSecret) == 0 {
		return nil, ErrEmptyMasterSecret
	}
	key := pbkdf2.Key(masterSecret, []byte(kdfSalt), kdfIterations, keyLenBytes, sha256.New)
	return &Vault{key: key}, nil
}

// Seal encrypts plaintext and returns a self-describing, base64-encoded
// ciphertext: version byte || nonce || ciphertext+tag.
func (v *Vault) Seal(plaintext []byte) (string, error) {
	block, err := aes.NewCipher(v.key)
	if err != nil {
		return "", fmt.Errorf("vault: new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("vault: new gcm: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("vault: generate nonce: %w", err)
	}

	framed := make([]byte, 0, 1+len(nonce))
	framed = append(framed, envelopeVersion)
	framed = append(framed, nonce...)
	sealed := gcm.Seal(framed, nonce, plaintext, nil)

	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Open decrypts a ciphertext produced by Seal. Returns apperr.SealIntegrity
// if the envelope is malformed or the authentication tag does not verify.
func (v *Vault) Open(sealed string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return nil, apperr.SealIntegrity(err)
	}
	if len(raw) < 1 || raw[0] != envelopeVersion {
		return nil, apperr.SealIntegrity(errors.New("unknown envelope version"))
	}

	block, err := aes.NewCipher(v.key)
	if err != nil {
		return nil, fmt.Errorf("vault: new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("vault: new gcm: %w", err)
	}

	rest := raw[1:]
	nonceSize := gcm.NonceSize()
	if len(rest) < nonceSize {
		return nil, apperr.SealIntegrity(errors.New("ciphertext too short"))
	}
	nonce, ciphertext := rest[:nonceSize], rest[nonceSize:]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, apperr.SealIntegrity(err)
	}
	return plaintext, nil
}
