package jwt

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

var (
	errMissingUsername       = errors.New("access token missing username")
	errMissingRefreshTokenID = errors.New("refresh token missing refreshTokenId")
	errAccessHasRotationID   = errors.New("access token carries refreshTokenId")
)

// Claims is a token payload the Signer can stamp and verify. It is implemented
// by *AccessClaims and *RefreshClaims.
type Claims interface {
	jwt.Claims
	registered() *jwt.RegisteredClaims
}

// AccessClaims is the payload of an access token. The subject carries the
// account id.
type AccessClaims struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	// RefreshTokenID is never set on issued access tokens. It is decoded only
	// so that a payload carrying it can be rejected.
	RefreshTokenID string `json:"refreshTokenId,omitempty"`
	jwt.RegisteredClaims
}

func (c *AccessClaims) registered() *jwt.RegisteredClaims { return &c.RegisteredClaims }

// Validate is run by the parser after the registered claims checks. A refresh
// token has no username and therefore never passes as an access token, and
// neither does a payload mixing identity claims with a rotation id.
func (c *AccessClaims) Validate() error {
	if c.Username == "" {
		return errMissingUsername
	}
	if c.RefreshTokenID != "" {
		return errAccessHasRotationID
	}
	return nil
}

// RefreshClaims is the payload of a refresh token. It carries nothing but the
// subject and the rotation id.
type RefreshClaims struct {
	RefreshTokenID string `json:"refreshTokenId"`
	jwt.RegisteredClaims
}

func (c *RefreshClaims) registered() *jwt.RegisteredClaims { return &c.RegisteredClaims }

// Validate rejects payloads without a rotation id, which is what an access
// token presented for refresh looks like.
func (c *RefreshClaims) Validate() error {
	if c.RefreshTokenID == "" {
		return errMissingRefreshTokenID
	}
	return nil
}
