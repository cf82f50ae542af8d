package authcore

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/squadbook/authcore/internal"
	"github.com/squadbook/authcore/internal/stores"
)

// RefreshAccessToken rotates the refresh token and mints a new access
// token. The presented token is invalidated whether or not the call
// succeeds past the store check: a hash mismatch is treated as a theft
// signal and the whole slot is wiped, forcing both holders back through
// login.
//
// The returned pair carries no CSRF value; the session keeps the one
// issued at login.
func (e *Engine) RefreshAccessToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	userID, secret, err := internal.DecodeRefreshToken(refreshToken)
	if err != nil {
		e.metrics.Refresh("malformed")
		return nil, ErrTokenNotFound
	}

	if err := e.allow(ctx, actionRefresh, userID); err != nil {
		e.metrics.Refresh("rate_limited")
		e.emit(ctx, "refresh", userID, "", false, err, nil)
		return nil, err
	}

	nextSecret, err := internal.NewSecret()
	if err != nil {
		return nil, err
	}

	err = e.refresh.Rotate(ctx, userID,
		internal.HashSecret(secret), internal.HashSecret(nextSecret),
		e.config.JWT.RefreshTTL)
	if err != nil {
		if errors.Is(err, stores.ErrRefreshMismatch) {
			e.metrics.TheftSignal()
			e.metrics.Refresh("mismatch")
			e.logger.Warn("refresh token reuse detected, session revoked",
				zap.String("user_id", userID))
			e.emit(ctx, "refresh", userID, "", false, ErrTokenMismatch, map[string]string{
				"theft_signal": "true",
			})
			return nil, ErrTokenMismatch
		}
		mapped := e.storeErr(err)
		e.metrics.Refresh("rejected")
		e.emit(ctx, "refresh", userID, "", false, mapped, nil)
		return nil, mapped
	}

	user, err := e.directory.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			_ = e.refresh.Revoke(ctx, userID)
			e.metrics.Refresh("rejected")
			return nil, ErrTokenNotFound
		}
		return nil, directoryErr(err)
	}
	if serr := statusErr(user.Status); serr != nil {
		_ = e.refresh.Revoke(ctx, userID)
		e.metrics.Refresh("rejected")
		e.emit(ctx, "refresh", userID, user.Email, false, serr, nil)
		return nil, serr
	}

	perms, err := e.roles.PermissionsFor(user.Role)
	if err != nil {
		return nil, ErrInvalidRole
	}
	access, expiresAt, err := e.tokens.Sign(user.ID, user.Role, user.TeamID, perms)
	if err != nil {
		return nil, err
	}
	nextToken, err := internal.EncodeRefreshToken(userID, nextSecret)
	if err != nil {
		return nil, err
	}

	e.metrics.Refresh("success")
	e.emit(ctx, "refresh", userID, user.Email, true, nil, nil)

	return &TokenPair{
		AccessToken:     access,
		AccessExpiresAt: expiresAt,
		RefreshToken:    nextToken,
	}, nil
}
