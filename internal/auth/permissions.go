package auth

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/sipico/vssv/internal/metrics"
	"github.com/sipico/vssv/internal/storage"
)

// PermissionStore is the storage subset the Evaluator needs.
type PermissionStore interface {
	HasReadPermission(ctx context.Context, tokenID, secretID uuid.UUID) (bool, error)
	HasWritePermission(ctx context.Context, tokenID, secretID uuid.UUID) (bool, error)
}

// Evaluator decides whether a token may read or write a secret.
type Evaluator struct {
	store PermissionStore
}

// NewEvaluator creates a new Evaluator.
func NewEvaluator(store PermissionStore) *Evaluator {
	return &Evaluator{store: store}
}

// CanRead reports whether token may read secretID. Superusers may read
// everything without a permission lookup.
func (e *Evaluator) CanRead(ctx context.Context, token *storage.Token, secretID uuid.UUID) (bool, error) {
	if token.Superuser {
		return true, nil
	}
	ok, err := e.store.HasReadPermission(ctx, token.ID, secretID)
	if err != nil {
		return false, fmt.Errorf("failed to check read permission: %w", err)
	}
	return ok, nil
}

// CanWrite reports whether token may replace the contents of secretID.
// Superusers may write everything without a permission lookup.
func (e *Evaluator) CanWrite(ctx context.Context, token *storage.Token, secretID uuid.UUID) (bool, error) {
	if token.Superuser {
		return true, nil
	}
	ok, err := e.store.HasWritePermission(ctx, token.ID, secretID)
	if err != nil {
		return false, fmt.Errorf("failed to check write permission: %w", err)
	}
	return ok, nil
}

// Denied builds the error for a failed permission check.
func Denied(action storage.AuditAction, token *storage.Token, secretID uuid.UUID) error {
	metrics.RecordAuthFailure("permission_denied")
	return fmt.Errorf("%w: token=%s action=%s secret=%s", ErrForbidden, token.ID, action, secretID)
}
