// Package mockstore provides a configurable mock implementation of storage interfaces for testing.
//
// The MockStorage type uses function fields for each method, allowing tests to customize behavior
// as needed while providing sensible defaults for methods that aren't customized. Every call is
// recorded by method name so tests can assert on ordering.
package mockstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sipico/vssv/internal/storage"
)

// MockStorage is a configurable mock implementation of storage.Storage.
// If a function field is nil, the method returns a sensible default value.
type MockStorage struct {
	// Token operations
	GetTokenByValueFunc func(ctx context.Context, value string) (*storage.Token, error)
	TouchTokenFunc      func(ctx context.Context, id uuid.UUID, usedAt time.Time) error

	// Permission operations
	HasReadPermissionFunc  func(ctx context.Context, tokenID, secretID uuid.UUID) (bool, error)
	HasWritePermissionFunc func(ctx context.Context, tokenID, secretID uuid.UUID) (bool, error)

	// Secret operations
	FindSecretFunc           func(ctx context.Context, id uuid.UUID) (*storage.Secret, error)
	UpdateSecretContentsFunc func(ctx context.Context, id uuid.UUID, contents []byte) (*storage.Secret, error)

	// Audit log
	InsertAuditEntryFunc func(ctx context.Context, entry *storage.AuditEntry) error

	// Lifecycle
	PingFunc  func(ctx context.Context) error
	CloseFunc func() error

	mu    sync.Mutex
	calls []string
}

func (m *MockStorage) record(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, name)
}

// Calls returns the names of the methods called so far, in order.
func (m *MockStorage) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// CallCount returns how often the named method was called.
func (m *MockStorage) CallCount(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c == name {
			n++
		}
	}
	return n
}

// GetTokenByValue retrieves a token by its bearer value.
func (m *MockStorage) GetTokenByValue(ctx context.Context, value string) (*storage.Token, error) {
	m.record("GetTokenByValue")
	if m.GetTokenByValueFunc != nil {
		return m.GetTokenByValueFunc(ctx, value)
	}
	return nil, storage.ErrNotFound
}

// TouchToken records a token's last use.
func (m *MockStorage) TouchToken(ctx context.Context, id uuid.UUID, usedAt time.Time) error {
	m.record("TouchToken")
	if m.TouchTokenFunc != nil {
		return m.TouchTokenFunc(ctx, id, usedAt)
	}
	return nil
}

// HasReadPermission reports whether a token may read a secret.
func (m *MockStorage) HasReadPermission(ctx context.Context, tokenID, secretID uuid.UUID) (bool, error) {
	m.record("HasReadPermission")
	if m.HasReadPermissionFunc != nil {
		return m.HasReadPermissionFunc(ctx, tokenID, secretID)
	}
	return false, nil
}

// HasWritePermission reports whether a token may write a secret.
func (m *MockStorage) HasWritePermission(ctx context.Context, tokenID, secretID uuid.UUID) (bool, error) {
	m.record("HasWritePermission")
	if m.HasWritePermissionFunc != nil {
		return m.HasWritePermissionFunc(ctx, tokenID, secretID)
	}
	return false, nil
}

// FindSecret retrieves a secret by id.
func (m *MockStorage) FindSecret(ctx context.Context, id uuid.UUID) (*storage.Secret, error) {
	m.record("FindSecret")
	if m.FindSecretFunc != nil {
		return m.FindSecretFunc(ctx, id)
	}
	return nil, storage.ErrNotFound
}

// UpdateSecretContents replaces a secret's contents.
func (m *MockStorage) UpdateSecretContents(ctx context.Context, id uuid.UUID, contents []byte) (*storage.Secret, error) {
	m.record("UpdateSecretContents")
	if m.UpdateSecretContentsFunc != nil {
		return m.UpdateSecretContentsFunc(ctx, id, contents)
	}
	return &storage.Secret{ID: id, Contents: contents}, nil
}

// InsertAuditEntry appends an audit entry.
func (m *MockStorage) InsertAuditEntry(ctx context.Context, entry *storage.AuditEntry) error {
	m.record("InsertAuditEntry")
	if m.InsertAuditEntryFunc != nil {
		return m.InsertAuditEntryFunc(ctx, entry)
	}
	return nil
}

// Ping checks connectivity.
func (m *MockStorage) Ping(ctx context.Context) error {
	m.record("Ping")
	if m.PingFunc != nil {
		return m.PingFunc(ctx)
	}
	return nil
}

// Close releases resources.
func (m *MockStorage) Close() error {
	m.record("Close")
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}
