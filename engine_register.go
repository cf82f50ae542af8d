package authcore

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/squadbook/authcore/internal"
	"github.com/squadbook/authcore/internal/stores"
	"github.com/squadbook/authcore/password"
)

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a local account. With RequireVerification set (the
// default) the account starts in StatusPendingVerification and a
// verification token is issued and mailed; login stays closed until it is
// redeemed.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (*RegisterResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	email := normalizeEmail(req.Email)
	if email == "" {
		return nil, ErrInvalidCredentials
	}

	if err := e.allow(ctx, actionRegister, email); err != nil {
		return nil, err
	}

	role := req.Role
	if role == "" {
		role = e.config.Registration.DefaultRole
	}
	if !e.roles.Known(role) {
		return nil, ErrInvalidRole
	}

	hash, err := e.hasher.Hash(req.Password)
	if err != nil {
		if errors.Is(err, password.ErrPasswordTooShort) {
			return nil, ErrWeakPassword
		}
		return nil, err
	}

	status := StatusActive
	if e.config.Registration.RequireVerification {
		status = StatusPendingVerification
	}

	user, err := e.directory.Create(ctx, CreateUserInput{
		Email:         email,
		PasswordHash:  hash,
		Role:          role,
		TeamID:        req.TeamID,
		Status:        status,
		EmailVerified: status == StatusActive,
	})
	if err != nil {
		mapped := directoryErr(err)
		e.emit(ctx, "register", "", email, false, mapped, nil)
		return nil, mapped
	}

	if status == StatusPendingVerification {
		e.issueActionToken(ctx, user, stores.PurposeEmailVerify,
			e.config.ActionTokens.VerificationTTL, MailVerifyEmail)
	}

	e.emit(ctx, "register", user.ID, email, true, nil, map[string]string{
		"status": user.Status.String(),
	})

	return &RegisterResult{UserID: user.ID, Status: user.Status}, nil
}

// issueActionToken mints, persists, and mails a single-use token. Mail
// failures are logged and swallowed: the token stays redeemable whether or
// not delivery succeeded, and the caller's response must not change shape.
func (e *Engine) issueActionToken(
	ctx context.Context,
	user *User,
	purpose stores.ActionPurpose,
	ttl time.Duration,
	kind MailKind,
) {
	id, err := internal.NewActionID()
	if err != nil {
		e.logger.Error("action token id generation failed", zap.Error(err))
		return
	}
	secret, err := internal.NewSecret()
	if err != nil {
		e.logger.Error("action token secret generation failed", zap.Error(err))
		return
	}

	record := stores.ActionRecord{
		UserID:     user.ID,
		Purpose:    purpose,
		ExpiresAt:  time.Now().Add(ttl).Unix(),
		SecretHash: internal.HashSecret(secret),
	}
	if err := e.actions.Save(ctx, id.String(), &record, ttl); err != nil {
		e.logger.Error("action token save failed",
			zap.String("purpose", purpose.String()), zap.Error(err))
		return
	}

	e.metrics.ActionIssued(purpose.String())

	if e.mailer == nil {
		return
	}
	if err := e.mailer.Send(ctx, user.Email, kind, map[string]string{
		"token":      internal.EncodeActionToken(id, secret),
		"expires_in": ttl.String(),
	}); err != nil {
		e.logger.Warn("mail delivery failed",
			zap.String("kind", string(kind)), zap.Error(err))
	}
}
