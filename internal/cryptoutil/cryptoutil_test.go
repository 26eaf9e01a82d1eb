package cryptoutil

import (
	"strings"
	"testing"
)

func TestHMACHex_Deterministic(t *testing.T) {
	key := []byte("secret")
	msg := []byte("1700000000\n{\"a\":1}")
	a := HMACHex(key, msg)
	b := HMACHex(key, msg)
	if a != b {
		t.Fatalf("expected deterministic MAC, got %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Fatalf("expected 64 hex chars (SHA-256), got %d", len(a))
	}
	if strings.ToLower(a) != a {
		t.Fatalf("expected lowercase hex, got %s", a)
	}
}

func TestHMACHex_DifferentKeysDiffer(t *testing.T) {
	msg := []byte("body")
	if HMACHex([]byte("k1"), msg) == HMACHex([]byte("k2"), msg) {
		t.Fatal("expected different keys to produce different MACs")
	}
}

func TestConstantTimeEqual(t *testing.T) {
	if !ConstantTimeEqual("abc", "abc") {
		t.Fatal("expected equal strings to compare equal")
	}
	if ConstantTimeEqual("abc", "abd") {
		t.Fatal("expected mismatched strings to compare unequal")
	}
	if ConstantTimeEqual("abc", "abcd") {
		t.Fatal("expected different-length strings to compare unequal")
	}
}

func TestRandomToken_LengthAndUniqueness(t *testing.T) {
	tok, err := RandomToken(33)
	if err != nil {
		t.Fatalf("RandomToken: %v", err)
	}
	if len(tok) != 44 {
		t.Fatalf("expected 44-char token for 33 random bytes, got %d chars: %s", len(tok), tok)
	}

	tok2, err := RandomToken(33)
	if err != nil {
		t.Fatalf("RandomToken: %v", err)
	}
	if tok == tok2 {
		t.Fatal("expected two random tokens to differ")
	}
}
