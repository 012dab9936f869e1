// Package middleware exposes net/http adapters that enforce goIAM access tokens.
//
// # Guards
//
//   - [Guard] verifies the bearer token through Engine.VerifyAccess and stores the
//     resulting identity in the request context.
//   - [RequireRole] admits only identities holding one of the given roles.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT implement
// authentication logic itself.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly (delegates to Engine).
//   - Access Redis.
package middleware
