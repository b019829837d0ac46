// Package testenv provides a reusable vault environment for end-to-end tests.
//
// It seeds tokens, secrets and grants directly into the database the server
// under test uses. Every seeded row gets a fresh UUID and a random token value,
// so runs never collide with each other or with existing data.
package testenv

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sipico/vssv/internal/storage"
)

// Seeder is the provisioning subset of the SQL storage.
type Seeder interface {
	InsertToken(ctx context.Context, t *storage.Token) error
	InsertSecret(ctx context.Context, s *storage.Secret) error
	InsertPermission(ctx context.Context, p *storage.Permission) error
	ListAuditEntries(ctx context.Context, secretID uuid.UUID) ([]*storage.AuditEntry, error)
}

// TestEnv seeds and inspects a vault database.
type TestEnv struct {
	// Store is the database shared with the server under test.
	Store Seeder
	// BaseURL is the server's API address, empty for in-process tests.
	BaseURL string
}

// Setup opens the database named by VSSV_DATABASE_DRIVER and
// VSSV_DATABASE_URL (default: SQLite at vssv.db) and reads the server
// address from VSSV_URL.
func Setup(t *testing.T) *TestEnv {
	t.Helper()

	driver := storage.Driver(getEnv("VSSV_DATABASE_DRIVER", string(storage.DriverSQLite)))
	store, err := storage.New(driver, getEnv("VSSV_DATABASE_URL", "vssv.db"), 2)
	if err != nil {
		t.Fatalf("failed to open vault database: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	return &TestEnv{Store: store, BaseURL: getEnv("VSSV_URL", "http://localhost:8081")}
}

// New wraps an already opened store.
func New(store Seeder, baseURL string) *TestEnv {
	return &TestEnv{Store: store, BaseURL: baseURL}
}

// TokenOptions shapes a seeded token.
type TokenOptions struct {
	Superuser bool
	ExpiresAt *time.Time
}

// Token is a seeded token and its bearer value.
type Token struct {
	ID    uuid.UUID
	Value string
}

// CreateToken inserts a token with a random bearer value.
func (e *TestEnv) CreateToken(t *testing.T, opts TokenOptions) Token {
	t.Helper()

	tok := &storage.Token{
		ID:        uuid.New(),
		Token:     randomValue(t),
		Superuser: opts.Superuser,
		ExpiresAt: opts.ExpiresAt,
	}
	if err := e.Store.InsertToken(context.Background(), tok); err != nil {
		t.Fatalf("failed to create token: %v", err)
	}
	return Token{ID: tok.ID, Value: tok.Token}
}

// CreateSecret inserts a secret. A nil contents leaves the secret empty.
func (e *TestEnv) CreateSecret(t *testing.T, fileName *string, contents []byte) uuid.UUID {
	t.Helper()

	sec := &storage.Secret{ID: uuid.New(), FileName: fileName, Contents: contents}
	if err := e.Store.InsertSecret(context.Background(), sec); err != nil {
		t.Fatalf("failed to create secret: %v", err)
	}
	return sec.ID
}

// Grant gives token read and/or write access to secret.
func (e *TestEnv) Grant(t *testing.T, token Token, secretID uuid.UUID, canRead, canWrite bool) {
	t.Helper()

	p := &storage.Permission{TokenID: token.ID, SecretID: secretID, CanRead: canRead, CanWrite: canWrite}
	if err := e.Store.InsertPermission(context.Background(), p); err != nil {
		t.Fatalf("failed to grant permission: %v", err)
	}
}

// AuditEntries returns the audit log for secretID, oldest first.
func (e *TestEnv) AuditEntries(t *testing.T, secretID uuid.UUID) []*storage.AuditEntry {
	t.Helper()

	entries, err := e.Store.ListAuditEntries(context.Background(), secretID)
	if err != nil {
		t.Fatalf("failed to list audit entries: %v", err)
	}
	return entries
}

func randomValue(t *testing.T) string {
	t.Helper()
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	return hex.EncodeToString(b)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
