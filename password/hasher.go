package password

import (
	"errors"
	"fmt"
)

// MaxPasswordBytes bounds the input accepted for hashing.
const MaxPasswordBytes = 1024

var (
	// ErrMalformedDigest is wrapped by Verify and NeedsUpgrade when the stored
	// digest cannot be parsed.
	ErrMalformedDigest = errors.New("malformed password digest")
	// ErrPasswordTooLong is returned by Hash for input above the hasher limit.
	ErrPasswordTooLong = errors.New("password too long")
	// ErrEmptyPassword is returned by Hash for empty input.
	ErrEmptyPassword = errors.New("password is empty")
)

// Hasher is the one-way hashing capability used for stored credentials.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, encodedHash string) (bool, error)
	NeedsUpgrade(encodedHash string) (bool, error)
	// Handles reports whether encodedHash was produced by this algorithm.
	Handles(encodedHash string) bool
}

func checkLength(password string) error {
	if password == "" {
		return ErrEmptyPassword
	}
	if len(password) > MaxPasswordBytes {
		return fmt.Errorf("%w: %d bytes exceeds %d", ErrPasswordTooLong, len(password), MaxPasswordBytes)
	}
	return nil
}
