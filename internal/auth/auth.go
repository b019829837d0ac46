// Package auth handles bearer token authentication and per-secret permission checks.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sipico/vssv/internal/logging"
	"github.com/sipico/vssv/internal/metrics"
	"github.com/sipico/vssv/internal/storage"
)

// ErrUnauthorized is wrapped by every authentication and authorization
// failure. Callers render all of them identically.
var ErrUnauthorized = errors.New("unauthorized")

// Errors for authentication and authorization failures.
var (
	// ErrMissingToken indicates no Authorization header was sent.
	ErrMissingToken = fmt.Errorf("%w: missing bearer token", ErrUnauthorized)
	// ErrMalformedToken indicates an Authorization header that is not a bearer credential.
	ErrMalformedToken = fmt.Errorf("%w: malformed bearer token", ErrUnauthorized)
	// ErrInvalidToken indicates a bearer token that matches no stored token.
	ErrInvalidToken = fmt.Errorf("%w: invalid token", ErrUnauthorized)
	// ErrExpiredToken indicates a known token whose expiry has passed.
	ErrExpiredToken = fmt.Errorf("%w: expired token", ErrUnauthorized)
	// ErrForbidden indicates the token lacks the permission for the secret.
	ErrForbidden = fmt.Errorf("%w: permission denied", ErrUnauthorized)
)

// LogLevel returns the level an authentication failure should be logged at.
// A missing credential and an unknown token are routine; anything else
// points at a misbehaving client.
func LogLevel(err error) slog.Level {
	if errors.Is(err, ErrMissingToken) || errors.Is(err, ErrInvalidToken) {
		return slog.LevelInfo
	}
	return slog.LevelWarn
}

// TokenStore is the storage subset the Authenticator needs.
type TokenStore interface {
	GetTokenByValue(ctx context.Context, value string) (*storage.Token, error)
	TouchToken(ctx context.Context, id uuid.UUID, usedAt time.Time) error
}

// Authenticator turns an Authorization header into a valid token.
type Authenticator struct {
	store  TokenStore
	logger *slog.Logger
	now    func() time.Time
}

// NewAuthenticator creates a new Authenticator. A nil logger uses
// slog.Default() and a nil clock uses time.Now.
func NewAuthenticator(store TokenStore, logger *slog.Logger, now func() time.Time) *Authenticator {
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &Authenticator{store: store, logger: logger, now: now}
}

// Authenticate validates the raw Authorization header value.
//
// A token that exists has its last-used time advanced before the expiry is
// checked, so use of an expired token is still recorded. All rejections wrap
// ErrUnauthorized; any other error comes from the store.
func (a *Authenticator) Authenticate(ctx context.Context, header string) (*storage.Token, error) {
	value, err := ExtractBearerToken(header)
	if err != nil {
		if errors.Is(err, ErrMissingToken) {
			metrics.RecordAuthFailure("missing_token")
		} else {
			metrics.RecordAuthFailure("malformed_token")
		}
		return nil, err
	}

	token, err := a.store.GetTokenByValue(ctx, value)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			metrics.RecordAuthFailure("invalid_token")
			return nil, fmt.Errorf("%w: %s", ErrInvalidToken, logging.MaskToken(value))
		}
		return nil, fmt.Errorf("failed to look up token: %w", err)
	}

	now := a.now().UTC()
	if err := a.store.TouchToken(ctx, token.ID, now); err != nil {
		return nil, fmt.Errorf("failed to record token use: %w", err)
	}
	if token.UsedAt == nil || token.UsedAt.Before(now) {
		token.UsedAt = &now
	}

	if token.IsExpired(now) {
		metrics.RecordAuthFailure("expired_token")
		return nil, fmt.Errorf("%w: token=%s", ErrExpiredToken, token.ID)
	}

	a.logger.Log(ctx, logging.LevelTrace, "token authenticated", "token", token.ID, "superuser", token.Superuser)
	return token, nil
}
