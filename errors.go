package authcore

import "errors"

var (
	// ErrInvalidCredentials covers no-such-user, wrong password, and
	// password-less federated accounts alike; the distinction never leaves
	// the audit stream.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountNotVerified is returned when the account exists, the
	// password matches, but the email has not been verified yet.
	ErrAccountNotVerified = errors.New("account not verified")
	// ErrAccountInactive is returned for suspended accounts.
	ErrAccountInactive = errors.New("account inactive")
	// ErrRateLimited is returned when the attempt budget for the identity
	// is exhausted; the guarded action was not performed.
	ErrRateLimited = errors.New("rate limited")
	// ErrTokenExpired is returned when a refresh or action token exists but
	// its lifetime has elapsed.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenNotFound is returned for unknown, malformed, or already
	// consumed tokens.
	ErrTokenNotFound = errors.New("token not found")
	// ErrTokenMismatch is returned when a refresh token is presented for a
	// user whose stored token differs — a possible theft. The stored
	// session is revoked as a side effect.
	ErrTokenMismatch = errors.New("token mismatch")
	// ErrTokenRevoked is returned for access tokens invalidated by logout
	// before their natural expiry.
	ErrTokenRevoked = errors.New("token revoked")
	// ErrCsrfMismatch is returned when the presented anti-forgery value
	// differs from the one issued for the session.
	ErrCsrfMismatch = errors.New("csrf token mismatch")
	// ErrDuplicateEmail is returned by Register when the email is taken.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrStoreUnavailable wraps Redis or directory outages. It is the only
	// class callers may treat as transient and retry.
	ErrStoreUnavailable = errors.New("backing store unavailable")
	// ErrUserNotFound is the sentinel UserDirectory implementations must
	// return (or wrap) for missing records.
	ErrUserNotFound = errors.New("user not found")
	// ErrProviderMismatch is returned when a federated identity's email
	// resolves to an account already linked to a different provider.
	ErrProviderMismatch = errors.New("account linked to a different provider")
	// ErrInvalidRole is returned when a requested role is not in the
	// registry configured at Build.
	ErrInvalidRole = errors.New("invalid role")
	// ErrWeakPassword is returned by Register and RedeemPasswordReset when
	// the password fails the minimum policy.
	ErrWeakPassword = errors.New("password does not meet policy")
	// ErrEngineNotReady is returned from methods on a nil or unbuilt Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// AuthFailed reports whether err belongs to the authentication-decision
// class that public responses must collapse into a generic failure. Store
// outages and rate limiting are excluded: the former is retryable, the
// latter carries its own response shape.
func AuthFailed(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrAccountNotVerified),
		errors.Is(err, ErrAccountInactive),
		errors.Is(err, ErrTokenExpired),
		errors.Is(err, ErrTokenNotFound),
		errors.Is(err, ErrTokenMismatch),
		errors.Is(err, ErrTokenRevoked),
		errors.Is(err, ErrCsrfMismatch),
		errors.Is(err, ErrProviderMismatch):
		return true
	}
	return false
}
