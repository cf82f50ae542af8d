package authcore

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Logout revokes the whole session behind an access token: the token is
// blacklisted for the rest of its lifetime, the refresh slot is deleted,
// and the CSRF value is dropped. The signature must check out but the
// token may already be expired, so a user can still log out after their
// access token lapses.
func (e *Engine) Logout(ctx context.Context, accessToken string) error {
	if err := e.ready(); err != nil {
		return err
	}

	claims, err := e.tokens.ParseExpired(accessToken)
	if err != nil {
		return ErrTokenNotFound
	}
	userID := claims.Subject

	if claims.ExpiresAt != nil {
		remaining := time.Until(claims.ExpiresAt.Time)
		if err := e.blacklist.Add(ctx, accessToken, remaining); err != nil {
			return e.storeErr(err)
		}
	}

	if err := e.refresh.Revoke(ctx, userID); err != nil {
		// Access token is already dead; report but do not roll back.
		e.logger.Warn("refresh slot revoke failed during logout",
			zap.String("user_id", userID), zap.Error(err))
		return e.storeErr(err)
	}
	if err := e.csrf.Delete(ctx, userID); err != nil {
		e.logger.Warn("csrf value delete failed during logout",
			zap.String("user_id", userID), zap.Error(err))
	}

	e.metrics.Logout()
	e.emit(ctx, "logout", userID, "", true, nil, nil)
	return nil
}
