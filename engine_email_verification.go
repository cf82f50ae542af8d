package authcore

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/squadbook/authcore/internal"
	"github.com/squadbook/authcore/internal/stores"
)

// RequestEmailVerification re-issues the verification token for an account
// still pending verification. Unknown emails and already-verified accounts
// return nil with nothing sent, same shape as the mailed path.
func (e *Engine) RequestEmailVerification(ctx context.Context, email string) error {
	if err := e.ready(); err != nil {
		return err
	}

	email = normalizeEmail(email)

	if err := e.allow(ctx, actionVerify, email); err != nil {
		return err
	}

	user, err := e.directory.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			e.emit(ctx, "email_verification_request", "", email, false, ErrUserNotFound, nil)
			return nil
		}
		return directoryErr(err)
	}
	if user.Status != StatusPendingVerification {
		e.emit(ctx, "email_verification_request", user.ID, email, false, nil, map[string]string{
			"skipped": "not_pending",
		})
		return nil
	}

	e.issueActionToken(ctx, user, stores.PurposeEmailVerify,
		e.config.ActionTokens.VerificationTTL, MailVerifyEmail)
	e.emit(ctx, "email_verification_request", user.ID, email, true, nil, nil)
	return nil
}

// RedeemEmailVerification consumes a verification token, marks the email
// verified, and activates the account.
func (e *Engine) RedeemEmailVerification(ctx context.Context, verifyToken string) error {
	if err := e.ready(); err != nil {
		return err
	}

	id, secret, err := internal.DecodeActionToken(verifyToken)
	if err != nil {
		e.metrics.ActionRedeemed(stores.PurposeEmailVerify.String(), "rejected")
		return ErrTokenNotFound
	}

	record, err := e.actions.Consume(ctx, stores.PurposeEmailVerify,
		id.String(), internal.HashSecret(secret))
	if err != nil {
		mapped := e.storeErr(err)
		e.metrics.ActionRedeemed(stores.PurposeEmailVerify.String(), "rejected")
		e.emit(ctx, "email_verification_redeem", "", "", false, mapped, nil)
		return mapped
	}

	if err := e.directory.MarkEmailVerified(ctx, record.UserID); err != nil {
		e.logger.Error("verification write failed after token consumption",
			zap.String("user_id", record.UserID), zap.Error(err))
		e.metrics.ActionRedeemed(stores.PurposeEmailVerify.String(), "rejected")
		return directoryErr(err)
	}

	e.metrics.ActionRedeemed(stores.PurposeEmailVerify.String(), "success")
	e.emit(ctx, "email_verification_redeem", record.UserID, "", true, nil, nil)
	return nil
}
