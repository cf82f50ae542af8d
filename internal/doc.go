// Package internal contains helpers that are intentionally private to
// authcore, chiefly the opaque token codecs (refresh and single-use action
// tokens) and their secret hashing.
//
// # Sub-packages
//
//   - rate — fixed-window Redis rate limit primitives
//   - stores — Redis-backed refresh, blacklist, action-token, and CSRF stores
//
// # What this package must NOT do
//
//   - Export types that appear in the public authcore API.
//   - Be imported by any package outside the authcore module.
package internal
