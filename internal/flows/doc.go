// Package flows contains pure-function orchestrators for the Engine's
// multi-step operations.
//
// Each flow function (RunSignIn, RunRefresh) accepts a typed dependency
// struct and returns a result with a failure kind instead of a host error.
// The Engine builds the deps per call, maps the kind onto metrics and audit
// events, and decides which sentinel error the caller sees.
//
// # Architecture boundaries
//
// Flow functions coordinate calls to the account store, token signer,
// password verifier and refresh store. They do NOT own any of these
// resources; ownership stays with the Engine.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import goIAM (to avoid import cycles).
//   - Perform I/O directly. All I/O is mediated through dependency functions.
package flows
