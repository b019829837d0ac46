package storage

import (
	"net/netip"
	"time"

	"github.com/google/uuid"
)

// Token is an access token. A nil ExpiresAt means the token never expires.
type Token struct {
	ID        uuid.UUID  `db:"uuid"`
	Token     string     `db:"token"`
	ExpiresAt *time.Time `db:"expires_at"`
	Superuser bool       `db:"superuser"`
	UsedAt    *time.Time `db:"used_at"`
}

// IsExpired reports whether the token's expiry lies before now.
func (t *Token) IsExpired(now time.Time) bool {
	if t.ExpiresAt == nil {
		return false
	}
	return t.ExpiresAt.Before(now)
}

// Secret is a stored secret. Contents is nil when the secret has no content;
// a present but empty blob is a non-nil, zero-length slice.
type Secret struct {
	ID       uuid.UUID
	FileName *string
	Contents []byte
}

// HasContents reports whether the secret carries a content blob at all.
func (s *Secret) HasContents() bool {
	return s.Contents != nil
}

// Permission grants a token read and/or write access to one secret.
type Permission struct {
	TokenID  uuid.UUID `db:"token"`
	SecretID uuid.UUID `db:"secret"`
	CanRead  bool      `db:"can_read"`
	CanWrite bool      `db:"can_write"`
}

// AuditAction names the kind of access recorded in the audit log.
type AuditAction string

const (
	// AuditActionSecretRead records a secret read.
	AuditActionSecretRead AuditAction = "secret_read"
	// AuditActionSecretWrite records a secret content update.
	AuditActionSecretWrite AuditAction = "secret_write"
)

// AuditEntry is one row of the append-only audit log.
type AuditEntry struct {
	ID         int64
	ClientAddr netip.Prefix
	Action     AuditAction
	TokenID    uuid.UUID
	SecretID   uuid.UUID
	CreatedAt  time.Time
}
