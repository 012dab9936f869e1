package password

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func newTestVerifier(t *testing.T) (*Verifier, *Argon2, *Bcrypt) {
	t.Helper()
	a, err := NewArgon2(fastConfig())
	if err != nil {
		t.Fatalf("NewArgon2 error: %v", err)
	}
	b, err := NewBcrypt(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("NewBcrypt error: %v", err)
	}
	v, err := NewVerifier(a, b)
	if err != nil {
		t.Fatalf("NewVerifier error: %v", err)
	}
	return v, a, b
}

func TestBcryptHashAndVerify(t *testing.T) {
	b, err := NewBcrypt(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("NewBcrypt error: %v", err)
	}

	hash, err := b.Hash("secret123")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if !b.Handles(hash) {
		t.Fatalf("expected bcrypt prefix, got %s", hash)
	}

	ok, err := b.Verify("secret123", hash)
	if err != nil || !ok {
		t.Fatalf("expected match, ok=%v err=%v", ok, err)
	}
	ok, err = b.Verify("secret124", hash)
	if err != nil || ok {
		t.Fatalf("expected mismatch without error, ok=%v err=%v", ok, err)
	}
}

func TestBcryptRejectsLongInputAndBadCost(t *testing.T) {
	b, err := NewBcrypt(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("NewBcrypt error: %v", err)
	}
	if _, err := b.Hash(strings.Repeat("x", 73)); !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("expected ErrPasswordTooLong, got %v", err)
	}
	if _, err := NewBcrypt(bcrypt.MaxCost + 1); err == nil {
		t.Fatal("expected cost above max to be rejected")
	}
}

func TestBcryptNeedsUpgrade(t *testing.T) {
	weak, err := NewBcrypt(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("NewBcrypt error: %v", err)
	}
	hash, err := weak.Hash("secret123")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	strong, err := NewBcrypt(bcrypt.MinCost + 1)
	if err != nil {
		t.Fatalf("NewBcrypt error: %v", err)
	}
	up, err := strong.NeedsUpgrade(hash)
	if err != nil || !up {
		t.Fatalf("expected upgrade, up=%v err=%v", up, err)
	}
}

func TestVerifierComparesAcrossAlgorithms(t *testing.T) {
	v, _, b := newTestVerifier(t)

	current, err := v.Hash("secret123")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if !strings.HasPrefix(current, "$argon2id$") {
		t.Fatalf("expected preferred argon2id digest, got %s", current)
	}

	legacy, err := b.Hash("secret123")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	for _, digest := range []string{current, legacy} {
		ok, err := v.Compare("secret123", digest)
		if err != nil || !ok {
			t.Fatalf("expected match for %s, ok=%v err=%v", digest[:8], ok, err)
		}
		ok, err = v.Compare("wrong-pass", digest)
		if err != nil || ok {
			t.Fatalf("expected mismatch for %s, ok=%v err=%v", digest[:8], ok, err)
		}
	}

	rehash, err := v.NeedsRehash(legacy)
	if err != nil || !rehash {
		t.Fatalf("expected legacy digest to need rehash, rehash=%v err=%v", rehash, err)
	}
	rehash, err = v.NeedsRehash(current)
	if err != nil || rehash {
		t.Fatalf("expected current digest to be fresh, rehash=%v err=%v", rehash, err)
	}
}

func TestVerifierUnknownDigest(t *testing.T) {
	v, _, _ := newTestVerifier(t)

	ok, err := v.Compare("secret123", "plaintext-secret123")
	if ok || !errors.Is(err, ErrMalformedDigest) {
		t.Fatalf("expected malformed digest, ok=%v err=%v", ok, err)
	}
	if _, err := v.NeedsRehash("plaintext"); !errors.Is(err, ErrMalformedDigest) {
		t.Fatalf("expected malformed digest, got %v", err)
	}
}

func TestNewVerifierRequiresPreferred(t *testing.T) {
	if _, err := NewVerifier(nil); err == nil {
		t.Fatal("expected nil preferred hasher to be rejected")
	}
}
