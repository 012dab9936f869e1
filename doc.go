// Package goIAM provides an account and session-token service: sign-up, sign-in with
// paired JWT access/refresh tokens, single-use refresh rotation with replay detection,
// password changes and self-service profile edits.
//
// The package is designed for concurrent server workloads: Engine methods are safe to call
// from multiple goroutines after initialization through [Builder.Build].
//
// # Refresh protocol
//
// Each account has at most one live refresh-token id, stored in Redis. Every issuance
// overwrites it. [Engine.RefreshTokens] atomically consumes the presented id before
// issuing a new pair, so two clients racing with one token produce one winner. Presenting
// an id that has already been rotated out deletes the live one as well, forcing the
// account to sign in again.
//
// # Architecture boundaries
//
// goIAM is the public surface. It exposes [Engine], [Builder], [Config], the
// [AccountStore] and [RefreshTokenStore] boundaries, and value types (Profile,
// TokenPair, MetricsSnapshot). Flow orchestration and audit dispatch live under
// internal/ and are never exported.
//
// # What this package must NOT do
//
//   - Return password hashes from any read path.
//   - Distinguish unknown usernames from wrong passwords, or report why a refresh
//     token was rejected.
//   - Import any sub-package that re-imports goIAM (no import cycles).
package goIAM
