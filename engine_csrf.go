package authcore

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"errors"

	"github.com/squadbook/authcore/internal"
)

// rotateCsrf replaces the user's server-side anti-forgery value with a new
// random one and returns it.
func (e *Engine) rotateCsrf(ctx context.Context, userID string) (string, error) {
	raw, err := internal.NewSecret()
	if err != nil {
		return "", err
	}
	value := base64.RawURLEncoding.EncodeToString(raw[:])

	ttl := e.config.Csrf.TTL
	if ttl <= 0 {
		ttl = e.config.JWT.RefreshTTL
	}
	if err := e.csrf.Set(ctx, userID, value, ttl); err != nil {
		return "", e.storeErr(err)
	}
	return value, nil
}

// IssueCsrfToken rotates the anti-forgery value for an existing session and
// returns the new value. Any previously issued value stops matching.
func (e *Engine) IssueCsrfToken(ctx context.Context, userID string) (string, error) {
	if err := e.ready(); err != nil {
		return "", err
	}
	return e.rotateCsrf(ctx, userID)
}

// ValidateCsrfToken compares the presented value against the stored one in
// constant time. Missing and mismatched values are indistinguishable to
// the caller.
func (e *Engine) ValidateCsrfToken(ctx context.Context, userID, presented string) error {
	if err := e.ready(); err != nil {
		return err
	}

	stored, err := e.csrf.Get(ctx, userID)
	if err != nil {
		mapped := e.storeErr(err)
		if errors.Is(mapped, ErrCsrfMismatch) {
			e.metrics.CsrfFailure()
		}
		return mapped
	}

	if subtle.ConstantTimeCompare([]byte(stored), []byte(presented)) != 1 {
		e.metrics.CsrfFailure()
		return ErrCsrfMismatch
	}
	return nil
}
