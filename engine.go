package authcore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/squadbook/authcore/audit"
	"github.com/squadbook/authcore/internal"
	"github.com/squadbook/authcore/internal/rate"
	"github.com/squadbook/authcore/internal/stores"
	"github.com/squadbook/authcore/metrics"
	"github.com/squadbook/authcore/password"
	"github.com/squadbook/authcore/permission"
	"github.com/squadbook/authcore/token"
)

// Limiter action names double as Redis key segments and metric labels.
const (
	actionLogin    = "login"
	actionRefresh  = "refresh"
	actionReset    = "password_reset"
	actionVerify   = "email_verification"
	actionRegister = "register"
)

// Engine is the authentication core. Immutable after Build and safe for
// concurrent use; all mutable state lives in Redis and the user directory.
type Engine struct {
	config    Config
	logger    *zap.Logger
	directory UserDirectory
	mailer    Mailer
	tokens    *token.Manager
	hasher    *password.Hasher
	roles     *permission.Registry
	refresh   *stores.RefreshStore
	blacklist *stores.BlacklistStore
	actions   *stores.ActionTokenStore
	csrf      *stores.CsrfStore
	limiter   *rate.Limiter
	auditor   *audit.Dispatcher
	metrics   *metrics.Metrics
}

// Close flushes the audit dispatcher. Safe on nil.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.auditor.Close()
}

// AuditDropped reports audit events discarded under backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.auditor.Dropped()
}

func (e *Engine) ready() error {
	if e == nil || e.directory == nil || e.tokens == nil {
		return ErrEngineNotReady
	}
	return nil
}

// allow consults the attempt limiter and fails closed: a limiter outage
// denies the action rather than waving through unlimited attempts.
func (e *Engine) allow(ctx context.Context, action, identity string) error {
	ok, err := e.limiter.Allow(ctx, action, identity)
	if err != nil {
		e.logger.Warn("attempt limiter unavailable, denying",
			zap.String("action", action), zap.Error(err))
		e.metrics.RateLimited(action)
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if !ok {
		e.metrics.RateLimited(action)
		return ErrRateLimited
	}
	return nil
}

// issueSession mints a fresh access/refresh pair for the user, overwrites
// the refresh slot (retiring any prior session), and rotates the CSRF value.
func (e *Engine) issueSession(ctx context.Context, user *User) (*TokenPair, error) {
	perms, err := e.roles.PermissionsFor(user.Role)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRole, err)
	}

	access, expiresAt, err := e.tokens.Sign(user.ID, user.Role, user.TeamID, perms)
	if err != nil {
		return nil, err
	}

	secret, err := internal.NewSecret()
	if err != nil {
		return nil, err
	}
	refreshToken, err := internal.EncodeRefreshToken(user.ID, secret)
	if err != nil {
		return nil, err
	}

	if err := e.refresh.Issue(ctx, user.ID, internal.HashSecret(secret), e.config.JWT.RefreshTTL); err != nil {
		return nil, e.storeErr(err)
	}

	csrfToken, err := e.rotateCsrf(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:     access,
		AccessExpiresAt: expiresAt,
		RefreshToken:    refreshToken,
		CsrfToken:       csrfToken,
	}, nil
}

// statusErr maps a non-active account to its login error.
func statusErr(status AccountStatus) error {
	switch status {
	case StatusActive:
		return nil
	case StatusPendingVerification:
		return ErrAccountNotVerified
	case StatusSuspended:
		return ErrAccountInactive
	default:
		return ErrAccountInactive
	}
}

// storeErr collapses store-layer failures into the public taxonomy.
func (e *Engine) storeErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, stores.ErrRefreshNotFound),
		errors.Is(err, stores.ErrRefreshCorrupt),
		errors.Is(err, stores.ErrActionNotFound),
		errors.Is(err, internal.ErrMalformedToken):
		return ErrTokenNotFound
	case errors.Is(err, stores.ErrRefreshExpired),
		errors.Is(err, stores.ErrActionExpired):
		return ErrTokenExpired
	case errors.Is(err, stores.ErrRefreshMismatch):
		return ErrTokenMismatch
	case errors.Is(err, stores.ErrCsrfNotFound):
		return ErrCsrfMismatch
	default:
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
}

// directoryErr maps directory failures, keeping ErrUserNotFound and
// ErrDuplicateEmail intact for the call sites that branch on them.
func directoryErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrDuplicateEmail):
		return err
	default:
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
}

func (e *Engine) emit(ctx context.Context, kind, userID, email string, success bool, cause error, meta map[string]string) {
	event := audit.Event{
		Timestamp: time.Now(),
		Kind:      kind,
		UserID:    userID,
		Email:     email,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  meta,
	}
	if cause != nil {
		event.Error = cause.Error()
	}
	e.auditor.Emit(ctx, event)
}
