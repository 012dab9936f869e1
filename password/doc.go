// Package password hashes and compares account passwords.
//
// Two [Hasher] implementations are provided. [Argon2] produces PHC strings:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// [Bcrypt] produces the usual $2a$/$2b$ modular-crypt strings. A [Verifier]
// hashes with one preferred algorithm and compares against any registered one;
// [Verifier.NeedsRehash] tells the caller when a stored digest should be
// replaced after a successful sign-in.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords.
//   - Enforce password policy beyond input size bounds.
//   - Log plaintext passwords.
package password
