// Package token mints and verifies the signed access tokens issued by the
// engine.
//
// # Claims
//
// Access tokens are JWTs carrying {sub, role, team, perms, iat, exp} plus
// issuer/audience pinning. They are stateless: validity is signature +
// expiry, with immediate revocation handled by the engine's blacklist, not
// here.
//
// Refresh tokens are deliberately NOT claims-bearing. They are opaque random
// strings whose only source of trust is membership in the refresh store; the
// codec for them lives in the internal package.
//
// # Signing
//
// Ed25519 by default, HS256 for deployments that cannot manage key pairs.
// Tampering with any byte of the payload invalidates the signature.
package token
