package password

import (
	"errors"
	"fmt"
)

// Verifier hashes new passwords with a preferred Hasher and compares against
// digests produced by any of its registered hashers, so stored credentials can
// migrate between algorithms one successful sign-in at a time.
type Verifier struct {
	preferred Hasher
	legacy    []Hasher
}

// NewVerifier returns a Verifier hashing with preferred and also accepting
// digests from legacy.
func NewVerifier(preferred Hasher, legacy ...Hasher) (*Verifier, error) {
	if preferred == nil {
		return nil, errors.New("password: preferred hasher is required")
	}
	v := &Verifier{preferred: preferred}
	for _, h := range legacy {
		if h != nil {
			v.legacy = append(v.legacy, h)
		}
	}
	return v, nil
}

// Hash produces a digest with the preferred hasher.
func (v *Verifier) Hash(password string) (string, error) {
	return v.preferred.Hash(password)
}

// Compare reports whether password matches digest. A digest no registered
// hasher recognizes compares false with an error wrapping ErrMalformedDigest.
func (v *Verifier) Compare(password, digest string) (bool, error) {
	h := v.hasherFor(digest)
	if h == nil {
		return false, fmt.Errorf("%w: unrecognized algorithm", ErrMalformedDigest)
	}
	return h.Verify(password, digest)
}

// NeedsRehash reports digests from a non-preferred algorithm or produced with
// weaker parameters than the preferred hasher's.
func (v *Verifier) NeedsRehash(digest string) (bool, error) {
	if v.preferred.Handles(digest) {
		return v.preferred.NeedsUpgrade(digest)
	}
	if v.hasherFor(digest) == nil {
		return false, fmt.Errorf("%w: unrecognized algorithm", ErrMalformedDigest)
	}
	return true, nil
}

func (v *Verifier) hasherFor(digest string) Hasher {
	if v.preferred.Handles(digest) {
		return v.preferred
	}
	for _, h := range v.legacy {
		if h.Handles(digest) {
			return h
		}
	}
	return nil
}
