package authcore

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// LinkFederatedIdentity signs in an identity already verified by an
// external provider, resolving it to a local account in order of
// preference: an account previously linked to this provider subject, an
// unlinked account with the same email, or a brand-new account. An email
// match on an account linked to a different provider subject is refused
// rather than silently merged.
//
// Provider token verification happens upstream; callers hand the engine a
// trusted ExternalIdentity.
func (e *Engine) LinkFederatedIdentity(ctx context.Context, ext ExternalIdentity) (*TokenPair, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if ext.ProviderID == "" || ext.Email == "" {
		return nil, ErrInvalidCredentials
	}

	email := normalizeEmail(ext.Email)

	user, outcome, err := e.resolveFederated(ctx, ext.ProviderID, email, ext)
	if err != nil {
		if errors.Is(err, ErrProviderMismatch) {
			e.metrics.Federated("refused")
			e.logger.Warn("federated link refused, email bound to another provider",
				zap.String("email", email))
		}
		e.emit(ctx, "federated_login", "", email, false, err, nil)
		return nil, err
	}

	if user.Status == StatusSuspended {
		e.emit(ctx, "federated_login", user.ID, email, false, ErrAccountInactive, nil)
		return nil, ErrAccountInactive
	}
	// The provider vouches for the email, so a pending account activates.
	if user.Status == StatusPendingVerification {
		if err := e.directory.MarkEmailVerified(ctx, user.ID); err != nil {
			return nil, directoryErr(err)
		}
		user.Status = StatusActive
		user.EmailVerified = true
	}

	pair, err := e.issueSession(ctx, user)
	if err != nil {
		e.emit(ctx, "federated_login", user.ID, email, false, err, nil)
		return nil, err
	}

	e.metrics.Federated(outcome)
	e.emit(ctx, "federated_login", user.ID, email, true, nil, map[string]string{
		"outcome": outcome,
	})
	return pair, nil
}

func (e *Engine) resolveFederated(
	ctx context.Context,
	providerID, email string,
	ext ExternalIdentity,
) (*User, string, error) {
	user, err := e.directory.FindByProvider(ctx, providerID)
	if err == nil {
		return user, "matched", nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, "", directoryErr(err)
	}

	user, err = e.directory.FindByEmail(ctx, email)
	if err == nil {
		if user.ProviderID != "" {
			return nil, "", ErrProviderMismatch
		}
		if err := e.directory.AttachProvider(ctx, user.ID, providerID); err != nil {
			return nil, "", directoryErr(err)
		}
		user.ProviderID = providerID
		return user, "linked", nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, "", directoryErr(err)
	}

	user, err = e.directory.Create(ctx, CreateUserInput{
		Email:         email,
		Role:          e.config.Registration.DefaultRole,
		Status:        StatusActive,
		ProviderID:    providerID,
		DisplayName:   ext.DisplayName,
		AvatarURL:     ext.AvatarURL,
		EmailVerified: true,
	})
	if err != nil {
		return nil, "", directoryErr(err)
	}
	return user, "created", nil
}
