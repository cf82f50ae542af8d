// Package stores provides the Redis-backed state behind the session
// lifecycle: the per-user refresh-token slot, the access-token deny list,
// single-use action tokens (password reset, email verification), and the
// per-session CSRF value.
//
// # Design
//
// Every record is written with a TTL so correctness never depends on a
// background sweeper. Records that need compare-and-act semantics (refresh
// rotation, action-token consumption) go through a Lua script or a
// WATCH/MULTI transaction so concurrent requests for the same key cannot
// both succeed. Secret comparisons are constant-time on the Go side and
// exact-byte on the Redis side, where only SHA-256 hashes are ever stored.
//
// # What this package must NOT do
//
//   - Import authcore or any sibling internal package.
//   - Store or log plaintext secrets.
//   - Make authentication decisions — error classification only.
package stores
