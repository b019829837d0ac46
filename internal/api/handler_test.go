package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sipico/vssv/internal/storage"
	"github.com/sipico/vssv/internal/testutil/mockstore"
)

// newMockStore returns a store that knows one token with the given grants on
// one secret with contents.
func newMockStore(token *storage.Token, canRead, canWrite bool) *mockstore.MockStorage {
	return &mockstore.MockStorage{
		GetTokenByValueFunc: func(_ context.Context, value string) (*storage.Token, error) {
			if value != token.Token {
				return nil, storage.ErrNotFound
			}
			t := *token
			return &t, nil
		},
		HasReadPermissionFunc: func(context.Context, uuid.UUID, uuid.UUID) (bool, error) {
			return canRead, nil
		},
		HasWritePermissionFunc: func(context.Context, uuid.UUID, uuid.UUID) (bool, error) {
			return canWrite, nil
		},
		FindSecretFunc: func(_ context.Context, id uuid.UUID) (*storage.Secret, error) {
			return &storage.Secret{ID: id, Contents: []byte("s3cr3t")}, nil
		},
	}
}

func serveMock(store storage.Storage, method, path, token, body string) *httptest.ResponseRecorder {
	logger := slog.New(slog.DiscardHandler)
	router := NewRouter(NewHandler(store, Options{}, logger), logger)

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestPipelineOrder_Write(t *testing.T) {
	t.Parallel()

	token := &storage.Token{ID: uuid.New(), Token: "tok-1234"}
	store := newMockStore(token, false, true)

	w := serveMock(store, http.MethodPost, contentsPath(uuid.New()), "tok-1234", "payload")

	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []string{
		"GetTokenByValue",
		"TouchToken",
		"HasWritePermission",
		"FindSecret",
		"InsertAuditEntry",
		"UpdateSecretContents",
	}, store.Calls())
}

func TestPipelineOrder_Read(t *testing.T) {
	t.Parallel()

	token := &storage.Token{ID: uuid.New(), Token: "tok-1234"}
	store := newMockStore(token, true, false)

	w := serveMock(store, http.MethodGet, secretPath(uuid.New()), "tok-1234", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{
		"GetTokenByValue",
		"TouchToken",
		"HasReadPermission",
		"FindSecret",
		"InsertAuditEntry",
	}, store.Calls())
}

func TestSuperuserSkipsPermissionLookup(t *testing.T) {
	t.Parallel()

	token := &storage.Token{ID: uuid.New(), Token: "root-token", Superuser: true}
	store := newMockStore(token, false, false)

	w := serveMock(store, http.MethodGet, secretPath(uuid.New()), "root-token", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, store.CallCount("HasReadPermission"))
}

func TestAuditFailureBlocksWrite(t *testing.T) {
	t.Parallel()

	token := &storage.Token{ID: uuid.New(), Token: "tok-1234"}
	store := newMockStore(token, false, true)
	store.InsertAuditEntryFunc = func(context.Context, *storage.AuditEntry) error {
		return errors.New("audit table locked")
	}

	w := serveMock(store, http.MethodPost, contentsPath(uuid.New()), "tok-1234", "payload")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "500: internal server error", w.Body.String())
	assert.Zero(t, store.CallCount("UpdateSecretContents"))
}

func TestAuditFailureBlocksRead(t *testing.T) {
	t.Parallel()

	token := &storage.Token{ID: uuid.New(), Token: "tok-1234"}
	store := newMockStore(token, true, false)
	store.InsertAuditEntryFunc = func(context.Context, *storage.AuditEntry) error {
		return errors.New("audit table locked")
	}

	w := serveMock(store, http.MethodGet, secretPath(uuid.New()), "tok-1234", "")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "s3cr3t")
}

func TestPersistenceFailures(t *testing.T) {
	t.Parallel()

	dbErr := errors.New("connection reset")

	tests := []struct {
		name   string
		method string
		mutate func(*mockstore.MockStorage)
	}{
		{"token lookup", http.MethodGet, func(m *mockstore.MockStorage) {
			m.GetTokenByValueFunc = func(context.Context, string) (*storage.Token, error) { return nil, dbErr }
		}},
		{"touch token", http.MethodGet, func(m *mockstore.MockStorage) {
			m.TouchTokenFunc = func(context.Context, uuid.UUID, time.Time) error { return dbErr }
		}},
		{"permission lookup", http.MethodGet, func(m *mockstore.MockStorage) {
			m.HasReadPermissionFunc = func(context.Context, uuid.UUID, uuid.UUID) (bool, error) { return false, dbErr }
		}},
		{"secret lookup", http.MethodGet, func(m *mockstore.MockStorage) {
			m.FindSecretFunc = func(context.Context, uuid.UUID) (*storage.Secret, error) { return nil, dbErr }
		}},
		{"update", http.MethodPost, func(m *mockstore.MockStorage) {
			m.UpdateSecretContentsFunc = func(context.Context, uuid.UUID, []byte) (*storage.Secret, error) { return nil, dbErr }
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			token := &storage.Token{ID: uuid.New(), Token: "tok-1234"}
			store := newMockStore(token, true, true)
			tt.mutate(store)

			path := secretPath(uuid.New())
			if tt.method == http.MethodPost {
				path = contentsPath(uuid.New())
			}
			w := serveMock(store, tt.method, path, "tok-1234", "x")

			assert.Equal(t, http.StatusInternalServerError, w.Code)
			assert.Equal(t, "500: internal server error", w.Body.String())
		})
	}
}
