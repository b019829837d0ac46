// Package storage provides types and interfaces for vault persistence operations.
package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Storage defines the persistence operations the vault relies on.
type Storage interface {
	// Token operations
	GetTokenByValue(ctx context.Context, value string) (*Token, error)
	TouchToken(ctx context.Context, id uuid.UUID, usedAt time.Time) error

	// Permission operations
	HasReadPermission(ctx context.Context, tokenID, secretID uuid.UUID) (bool, error)
	HasWritePermission(ctx context.Context, tokenID, secretID uuid.UUID) (bool, error)

	// Secret operations
	FindSecret(ctx context.Context, id uuid.UUID) (*Secret, error)
	UpdateSecretContents(ctx context.Context, id uuid.UUID, contents []byte) (*Secret, error)

	// Audit log
	InsertAuditEntry(ctx context.Context, entry *AuditEntry) error

	// Lifecycle
	Ping(ctx context.Context) error
	Close() error
}
