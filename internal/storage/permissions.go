package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// HasReadPermission reports whether any permission row grants tokenID read
// access to secretID.
func (s *SQLStorage) HasReadPermission(ctx context.Context, tokenID, secretID uuid.UUID) (bool, error) {
	return s.hasPermission(ctx,
		"SELECT EXISTS(SELECT 1 FROM token_permissions WHERE token = ? AND secret = ? AND can_read)",
		tokenID, secretID)
}

// HasWritePermission reports whether any permission row grants tokenID write
// access to secretID.
func (s *SQLStorage) HasWritePermission(ctx context.Context, tokenID, secretID uuid.UUID) (bool, error) {
	return s.hasPermission(ctx,
		"SELECT EXISTS(SELECT 1 FROM token_permissions WHERE token = ? AND secret = ? AND can_write)",
		tokenID, secretID)
}

func (s *SQLStorage) hasPermission(ctx context.Context, query string, tokenID, secretID uuid.UUID) (bool, error) {
	var ok bool
	if err := s.db.QueryRowxContext(ctx, s.db.Rebind(query), tokenID, secretID).Scan(&ok); err != nil {
		return false, fmt.Errorf("failed to check permission: %w", err)
	}
	return ok, nil
}
