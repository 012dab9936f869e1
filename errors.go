package goIAM

import (
	"errors"

	"github.com/MrEthical07/goIAM/refresh"
)

var (
	// ErrDuplicateAccount is returned by SignUp and EditMe when the username or
	// email is already taken.
	ErrDuplicateAccount = errors.New("account already exists")
	// ErrInvalidCredentials is the single signal for an unknown username and a
	// wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthorized is returned for any bad, expired or replayed token and for
	// a refresh token whose account no longer exists.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound is returned by account operations addressing a missing id.
	ErrNotFound = errors.New("account not found")
	// ErrInvalidInput is returned for requests missing a required field.
	ErrInvalidInput = errors.New("invalid input")
	// ErrEngineNotReady is returned by methods called on a nil or partially
	// built Engine.
	ErrEngineNotReady = errors.New("engine not initialized")

	// ErrDuplicateKey must be wrapped by AccountStore.Save when a unique
	// constraint rejects the write.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrAccountNotFound must be wrapped by AccountStore finders and Remove
	// when no record matches.
	ErrAccountNotFound = errors.New("account record not found")

	// ErrRedisUnavailable is re-exported from the refresh store.
	ErrRedisUnavailable = refresh.ErrRedisUnavailable
)

// Kind classifies an error returned by the Engine.
type Kind int

const (
	KindNone Kind = iota
	KindDuplicateAccount
	KindInvalidCredentials
	KindUnauthorized
	KindNotFound
	KindInvalidInput
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindDuplicateAccount:
		return "duplicate_account"
	case KindInvalidCredentials:
		return "invalid_credentials"
	case KindUnauthorized:
		return "unauthorized"
	case KindNotFound:
		return "not_found"
	case KindInvalidInput:
		return "invalid_input"
	default:
		return "internal"
	}
}

// KindOf maps err onto the Engine's error taxonomy. Errors outside the
// taxonomy, storage failures included, are KindInternal.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrDuplicateAccount):
		return KindDuplicateAccount
	case errors.Is(err, ErrInvalidCredentials):
		return KindInvalidCredentials
	case errors.Is(err, ErrUnauthorized):
		return KindUnauthorized
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	default:
		return KindInternal
	}
}
