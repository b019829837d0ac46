// Package api implements the vault's HTTP endpoints.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/netip"
	"time"

	"github.com/google/uuid"

	"github.com/sipico/vssv/internal/apierror"
	"github.com/sipico/vssv/internal/audit"
	"github.com/sipico/vssv/internal/auth"
	"github.com/sipico/vssv/internal/clientaddr"
	"github.com/sipico/vssv/internal/storage"
)

// DefaultMaxSecretSize is the upload limit used when Options.MaxSecretSize is zero.
const DefaultMaxSecretSize int64 = 10 << 20

// Options configures a Handler.
type Options struct {
	// TrustRealIP takes the client address from X-Real-IP when present.
	TrustRealIP bool
	// MaxSecretSize caps uploaded secret contents in bytes. Zero uses
	// DefaultMaxSecretSize; a negative value disables the limit.
	MaxSecretSize int64
	// Version is reported by /versionz.
	Version VersionInfo
	// Now overrides the clock. Nil uses time.Now.
	Now func() time.Time
}

// Handler serves the secret and probe endpoints.
type Handler struct {
	store         storage.Storage
	authenticator *auth.Authenticator
	evaluator     *auth.Evaluator
	audit         *audit.Logger
	resolver      *clientaddr.Resolver
	maxSecretSize int64
	version       VersionInfo
	logger        *slog.Logger
}

// NewHandler creates a new Handler.
// If logger is nil, slog.Default() will be used.
func NewHandler(store storage.Storage, opts Options, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	maxSize := opts.MaxSecretSize
	if maxSize == 0 {
		maxSize = DefaultMaxSecretSize
	}
	return &Handler{
		store:         store,
		authenticator: auth.NewAuthenticator(store, logger, now),
		evaluator:     auth.NewEvaluator(store),
		audit:         audit.NewLogger(store, logger, now),
		resolver:      clientaddr.New(opts.TrustRealIP),
		maxSecretSize: maxSize,
		version:       opts.Version,
		logger:        logger,
	}
}

// MaxSecretSize returns the upload limit in bytes, or a negative value when
// uploads are unlimited.
func (h *Handler) MaxSecretSize() int64 {
	return h.maxSecretSize
}

// caller is the resolved identity of a request to a secret route.
type caller struct {
	addr  netip.Addr
	token *storage.Token
}

// identify resolves the client address and authenticates the bearer token.
func (h *Handler) identify(ctx context.Context, addr netip.Addr, header string) (*caller, error) {
	token, err := h.authenticator.Authenticate(ctx, header)
	if err != nil {
		if errors.Is(err, auth.ErrUnauthorized) {
			return nil, apierror.New(apierror.KindUnauthorized, err)
		}
		return nil, apierror.New(apierror.KindPersistence, err)
	}
	return &caller{addr: addr, token: token}, nil
}

// clientAddrError maps a client address resolution failure.
func clientAddrError(err error) error {
	switch {
	case errors.Is(err, clientaddr.ErrUnreadable):
		return apierror.New(apierror.KindBadClientAddress, err).WithMessage(clientaddr.ErrUnreadable.Error())
	case errors.Is(err, clientaddr.ErrInvalid):
		return apierror.New(apierror.KindBadClientAddress, err).WithMessage(clientaddr.ErrInvalid.Error())
	default:
		return apierror.New(apierror.KindInternal, err)
	}
}

// parseSecretID parses the {id} path parameter.
func parseSecretID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apierror.New(apierror.KindBadRequest, err)
	}
	return id, nil
}

// findSecret loads a secret, mapping a missing row to a 404.
func (h *Handler) findSecret(ctx context.Context, id uuid.UUID) (*storage.Secret, error) {
	secret, err := h.store.FindSecret(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apierror.New(apierror.KindNotFound, err)
		}
		return nil, apierror.New(apierror.KindPersistence, err)
	}
	return secret, nil
}
