// Package middleware exposes net/http adapters over Engine validation:
// bearer-token guarding and CSRF enforcement for state-changing methods.
//
// # Guards
//
//   - [Guard] — Authorization header to [authcore.Engine.ValidateAccessToken],
//     identity injected into the request context.
//   - [RequireCsrf] — X-Csrf-Token header to
//     [authcore.Engine.ValidateCsrfToken] for non-safe methods.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT
// implement authentication logic itself.
//
// # What this package must NOT do
//
//   - Parse or create tokens directly (delegates to Engine).
//   - Access Redis (Engine handles I/O).
//   - Make authorization decisions beyond pass/reject from the Engine.
package middleware
