package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// The vault's HTTP surface never creates tokens, secrets or grants. These
// helpers exist for provisioning scripts and tests.

// InsertToken stores a token row as given.
func (s *SQLStorage) InsertToken(ctx context.Context, t *Token) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(
		"INSERT INTO tokens (uuid, token, expires_at, superuser, used_at) VALUES (?, ?, ?, ?, ?)"),
		t.ID, t.Token, nullableTime(t.ExpiresAt), t.Superuser, nullableTime(t.UsedAt))
	if err != nil {
		return fmt.Errorf("failed to insert token: %w", err)
	}
	return nil
}

// InsertSecret stores a secret row. A nil Contents is stored as NULL.
func (s *SQLStorage) InsertSecret(ctx context.Context, sec *Secret) error {
	var contents any
	if sec.Contents != nil {
		contents = sec.Contents
	}
	var fileName sql.NullString
	if sec.FileName != nil {
		fileName = sql.NullString{String: *sec.FileName, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, s.db.Rebind(
		"INSERT INTO secrets (uuid, file_name, contents) VALUES (?, ?, ?)"),
		sec.ID, fileName, contents)
	if err != nil {
		return fmt.Errorf("failed to insert secret: %w", err)
	}
	return nil
}

// InsertPermission stores a permission row. Several rows for the same
// (token, secret) pair are allowed; their flags are combined on lookup.
func (s *SQLStorage) InsertPermission(ctx context.Context, p *Permission) error {
	_, err := s.db.NamedExecContext(ctx,
		"INSERT INTO token_permissions (token, secret, can_read, can_write) VALUES (:token, :secret, :can_read, :can_write)",
		p)
	if err != nil {
		return fmt.Errorf("failed to insert permission: %w", err)
	}
	return nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
