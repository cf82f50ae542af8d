package authcore

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// Login verifies credentials and issues a fresh session. A prior session
// for the same user is retired by the overwrite of the refresh slot.
//
// The no-such-user path runs a dummy argon2 verification so the response
// time does not separate unknown emails from wrong passwords.
func (e *Engine) Login(ctx context.Context, email, plainPassword string) (*TokenPair, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	email = normalizeEmail(email)

	if err := e.allow(ctx, actionLogin, email); err != nil {
		e.metrics.Login("rate_limited")
		e.emit(ctx, "login", "", email, false, err, nil)
		return nil, err
	}

	user, err := e.directory.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			e.hasher.DummyVerify(plainPassword)
			e.metrics.Login("invalid_credentials")
			e.emit(ctx, "login", "", email, false, ErrInvalidCredentials, nil)
			return nil, ErrInvalidCredentials
		}
		return nil, directoryErr(err)
	}

	// Federated-only accounts have no password to check.
	if user.PasswordHash == "" {
		e.hasher.DummyVerify(plainPassword)
		e.metrics.Login("invalid_credentials")
		e.emit(ctx, "login", user.ID, email, false, ErrInvalidCredentials, nil)
		return nil, ErrInvalidCredentials
	}

	ok, err := e.hasher.Verify(plainPassword, user.PasswordHash)
	if err != nil {
		e.logger.Error("stored password hash unreadable",
			zap.String("user_id", user.ID), zap.Error(err))
		e.metrics.Login("invalid_credentials")
		return nil, ErrInvalidCredentials
	}
	if !ok {
		e.metrics.Login("invalid_credentials")
		e.emit(ctx, "login", user.ID, email, false, ErrInvalidCredentials, nil)
		return nil, ErrInvalidCredentials
	}

	if err := statusErr(user.Status); err != nil {
		e.metrics.Login(user.Status.String())
		e.emit(ctx, "login", user.ID, email, false, err, nil)
		return nil, err
	}

	e.maybeUpgradeHash(ctx, user, plainPassword)

	pair, err := e.issueSession(ctx, user)
	if err != nil {
		e.emit(ctx, "login", user.ID, email, false, err, nil)
		return nil, err
	}

	if err := e.limiter.Reset(ctx, actionLogin, email); err != nil {
		e.logger.Warn("login attempt counter reset failed", zap.Error(err))
	}

	e.metrics.Login("success")
	e.emit(ctx, "login", user.ID, email, true, nil, nil)
	return pair, nil
}

// maybeUpgradeHash transparently re-hashes the password when the stored
// hash was produced with weaker cost parameters. Best effort: the login
// already succeeded, so failures here are only logged.
func (e *Engine) maybeUpgradeHash(ctx context.Context, user *User, plainPassword string) {
	if !e.config.Password.UpgradeOnLogin {
		return
	}
	stale, err := e.hasher.NeedsRehash(user.PasswordHash)
	if err != nil || !stale {
		return
	}
	upgraded, err := e.hasher.Hash(plainPassword)
	if err != nil {
		return
	}
	if err := e.directory.UpdatePasswordHash(ctx, user.ID, upgraded); err != nil {
		e.logger.Warn("password hash upgrade failed",
			zap.String("user_id", user.ID), zap.Error(err))
	}
}
