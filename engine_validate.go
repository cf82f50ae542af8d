package authcore

import (
	"context"

	"github.com/squadbook/authcore/token"
)

// ValidateAccessToken verifies the token signature and claims, then checks
// the revocation blacklist. This is the per-request hot path; it never
// touches the user directory.
func (e *Engine) ValidateAccessToken(ctx context.Context, accessToken string) (*Identity, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	claims, err := e.tokens.Parse(accessToken)
	if err != nil {
		if token.IsExpired(err) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenNotFound
	}

	revoked, err := e.blacklist.IsRevoked(ctx, accessToken)
	if err != nil {
		return nil, e.storeErr(err)
	}
	if revoked {
		return nil, ErrTokenRevoked
	}

	return &Identity{
		UserID:      claims.Subject,
		Role:        claims.Role,
		TeamID:      claims.Team,
		Permissions: claims.Perms,
	}, nil
}
