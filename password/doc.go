// Package password implements the password capability used by credential
// validation: hash(plaintext) -> digest and verify(plaintext, digest) -> bool.
//
// # Output format
//
// New digests are argon2id PHC strings:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// [Multi] additionally verifies bcrypt digests ($2a$, $2b$, $2y$), which is
// the usual format of an environment-configured break-glass admin digest.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords.
//   - Log plaintext passwords or digests.
package password
