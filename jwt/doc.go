// Package jwt signs and verifies the service's access and refresh tokens.
//
// Both token kinds go through one [Signer] bound to a single issuer, audience
// and key. Access tokens carry the identity claims (username, email, role);
// refresh tokens carry only the subject and a rotation id. Verification
// reports [ErrTokenExpired] separately from [ErrTokenInvalid]; callers that
// must not leak the difference collapse both themselves.
package jwt
