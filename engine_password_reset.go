package authcore

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/squadbook/authcore/internal"
	"github.com/squadbook/authcore/internal/stores"
	"github.com/squadbook/authcore/password"
)

// RequestPasswordReset issues a single-use reset token and mails it. The
// return value carries no account-existence signal: unknown emails and
// federated-only accounts both come back nil, exactly like the mailed
// path. Only rate limiting and store outages surface as errors.
func (e *Engine) RequestPasswordReset(ctx context.Context, email string) error {
	if err := e.ready(); err != nil {
		return err
	}

	email = normalizeEmail(email)

	if err := e.allow(ctx, actionReset, email); err != nil {
		return err
	}

	user, err := e.directory.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			e.emit(ctx, "password_reset_request", "", email, false, ErrUserNotFound, nil)
			return nil
		}
		return directoryErr(err)
	}
	if user.PasswordHash == "" {
		e.emit(ctx, "password_reset_request", user.ID, email, false, nil, map[string]string{
			"skipped": "federated_only",
		})
		return nil
	}

	e.issueActionToken(ctx, user, stores.PurposePasswordReset,
		e.config.ActionTokens.ResetTTL, MailPasswordReset)
	e.emit(ctx, "password_reset_request", user.ID, email, true, nil, nil)
	return nil
}

// RedeemPasswordReset consumes a reset token and installs the new password.
// The new password is hashed before the token is consumed so a rejected
// password leaves the token redeemable. A successful redeem also revokes
// the user's live session: anyone holding stolen tokens is cut off.
func (e *Engine) RedeemPasswordReset(ctx context.Context, resetToken, newPassword string) error {
	if err := e.ready(); err != nil {
		return err
	}

	id, secret, err := internal.DecodeActionToken(resetToken)
	if err != nil {
		e.metrics.ActionRedeemed(stores.PurposePasswordReset.String(), "rejected")
		return ErrTokenNotFound
	}

	newHash, err := e.hasher.Hash(newPassword)
	if err != nil {
		if errors.Is(err, password.ErrPasswordTooShort) {
			return ErrWeakPassword
		}
		return err
	}

	record, err := e.actions.Consume(ctx, stores.PurposePasswordReset,
		id.String(), internal.HashSecret(secret))
	if err != nil {
		mapped := e.storeErr(err)
		e.metrics.ActionRedeemed(stores.PurposePasswordReset.String(), "rejected")
		e.emit(ctx, "password_reset_redeem", "", "", false, mapped, nil)
		return mapped
	}

	if err := e.directory.UpdatePasswordHash(ctx, record.UserID, newHash); err != nil {
		// The token is gone; the user has to request a new one.
		e.logger.Error("password write failed after token consumption",
			zap.String("user_id", record.UserID), zap.Error(err))
		e.metrics.ActionRedeemed(stores.PurposePasswordReset.String(), "rejected")
		return directoryErr(err)
	}

	if err := e.refresh.Revoke(ctx, record.UserID); err != nil {
		e.logger.Warn("session revoke failed after password reset",
			zap.String("user_id", record.UserID), zap.Error(err))
	}
	if err := e.csrf.Delete(ctx, record.UserID); err != nil {
		e.logger.Warn("csrf value delete failed after password reset",
			zap.String("user_id", record.UserID), zap.Error(err))
	}

	e.metrics.ActionRedeemed(stores.PurposePasswordReset.String(), "success")
	e.emit(ctx, "password_reset_redeem", record.UserID, "", true, nil, nil)
	return nil
}
