// Package refresh stores the single live refresh-token id of each account.
//
// # Storage layout
//
// One Redis string per account, key "<prefix>:rt:<accountID>", value the
// rotation id minted at issuance, TTL equal to the refresh-token TTL so an
// id never outlives its token. Replay counters live under
// "<prefix>:rp:<accountID>".
//
// # Rotation
//
// [Store.Consume] is an atomic compare-and-delete implemented as a Lua script.
// It reports [StatusValid], [StatusReplayed] or [StatusUnknown]. A replayed id
// also deletes the live one, forcing the account back to no session.
//
// # What this package must NOT do
//
//   - Sign or parse tokens.
//   - Decide how a replay is reported to the client.
package refresh
