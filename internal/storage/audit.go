package storage

import (
	"context"
	"fmt"
	"net/netip"
	"time"

	"github.com/google/uuid"
)

// InsertAuditEntry appends one entry to the audit log and sets entry.ID.
func (s *SQLStorage) InsertAuditEntry(ctx context.Context, entry *AuditEntry) error {
	if !entry.ClientAddr.IsValid() {
		return fmt.Errorf("invalid audit client address")
	}

	var id int64
	err := s.db.QueryRowxContext(ctx, s.db.Rebind(
		"INSERT INTO audit_log (client_addr, action, token, secret, created_at) VALUES (?, ?, ?, ?, ?) RETURNING id"),
		entry.ClientAddr.String(), string(entry.Action), entry.TokenID, entry.SecretID, entry.CreatedAt.UTC()).
		Scan(&id)
	if err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}

	entry.ID = id
	return nil
}

type auditRow struct {
	ID         int64     `db:"id"`
	ClientAddr string    `db:"client_addr"`
	Action     string    `db:"action"`
	TokenID    uuid.UUID `db:"token"`
	SecretID   uuid.UUID `db:"secret"`
	CreatedAt  time.Time `db:"created_at"`
}

// ListAuditEntries returns the audit entries recorded for a secret, oldest first.
func (s *SQLStorage) ListAuditEntries(ctx context.Context, secretID uuid.UUID) ([]*AuditEntry, error) {
	var rows []auditRow

	err := s.db.SelectContext(ctx, &rows, s.db.Rebind(
		`SELECT id, CAST(client_addr AS TEXT) AS client_addr, CAST(action AS TEXT) AS action,
			token, secret, created_at
		FROM audit_log WHERE secret = ? ORDER BY id`),
		secretID)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}

	entries := make([]*AuditEntry, 0, len(rows))
	for _, r := range rows {
		prefix, err := netip.ParsePrefix(r.ClientAddr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse audit client address %q: %w", r.ClientAddr, err)
		}
		entries = append(entries, &AuditEntry{
			ID:         r.ID,
			ClientAddr: prefix,
			Action:     AuditAction(r.Action),
			TokenID:    r.TokenID,
			SecretID:   r.SecretID,
			CreatedAt:  r.CreatedAt,
		})
	}

	return entries, nil
}
