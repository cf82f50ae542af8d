// Package authcore is the authentication and session lifecycle core of the
// Squadbook backend: credential verification, signed access tokens, rotating
// opaque refresh tokens with theft detection, explicit-logout blacklisting,
// single-use password-reset and email-verification tokens, CSRF token
// lifecycle, federated identity linking, and attempt rate limiting.
//
// The package is designed for concurrent server workloads: Engine methods
// are safe to call from multiple goroutines after construction through
// [Builder.Build].
//
// # Architecture boundaries
//
// authcore is the public surface. It owns authentication decisions and the
// volatile session state in Redis. It consumes two injected collaborators —
// a [UserDirectory] over the persistent user store and a [Mailer] for
// outbound delivery — and it never touches HTTP framing; the middleware and
// examples directories adapt it to a transport.
//
// # Error discipline
//
// Every operation returns one sentinel from errors.go. Internal detail goes
// to the audit stream and logger; transports should collapse any error for
// which [AuthFailed] reports true into a single generic "authentication
// failed" response so callers cannot probe which check rejected them.
package authcore
