// Package password implements Argon2id password hashing and verification.
//
// # Output format
//
// Hashes use the PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Verification recomputes the hash with the parameters embedded in the
// stored string and compares in constant time, so parameter upgrades never
// invalidate existing credentials. [Hasher.NeedsRehash] reports when a
// stored hash was produced with weaker parameters than currently configured.
//
// [Hasher.DummyVerify] burns one full hash computation against a fixed
// reference hash. Call it on the account-not-found path so a login attempt
// costs the same whether or not the email exists.
//
// # What this package must NOT do
//
//   - Persist anything — callers supply plaintext and receive strings.
//   - Import any other authcore package.
//   - Log plaintext passwords.
package password
