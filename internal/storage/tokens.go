package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// GetTokenByValue retrieves a token by its exact bearer value.
// This is used during authentication to look up the token.
// Returns ErrNotFound if no token matches.
func (s *SQLStorage) GetTokenByValue(ctx context.Context, value string) (*Token, error) {
	var t Token

	err := s.db.GetContext(ctx, &t, s.db.Rebind(
		"SELECT uuid, token, expires_at, superuser, used_at FROM tokens WHERE token = ?"),
		value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get token by value: %w", err)
	}

	return &t, nil
}

// TouchToken records usedAt as the token's last use. The stored value only
// ever moves forward: an older timestamp than the one on record is ignored,
// and so is an unknown token id.
func (s *SQLStorage) TouchToken(ctx context.Context, id uuid.UUID, usedAt time.Time) error {
	usedAt = usedAt.UTC()

	_, err := s.db.ExecContext(ctx, s.db.Rebind(
		"UPDATE tokens SET used_at = ? WHERE uuid = ? AND (used_at IS NULL OR used_at < ?)"),
		usedAt, id, usedAt)
	if err != nil {
		return fmt.Errorf("failed to update token used_at: %w", err)
	}

	return nil
}
