package storage

import (
	"bytes"
	"context"
	"errors"
	"net/netip"
	"testing"
	"time"

	"github.com/google/uuid"
)

func newTestStorage(t *testing.T) *SQLStorage {
	t.Helper()

	s, err := New(DriverSQLite, ":memory:", 0)
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func strPtr(s string) *string { return &s }

func TestNew_UnsupportedDriver(t *testing.T) {
	t.Parallel()

	_, err := New(Driver("oracle"), "whatever", 0)
	if !errors.Is(err, ErrUnsupportedDriver) {
		t.Fatalf("expected ErrUnsupportedDriver, got %v", err)
	}
}

func TestInitSchema_Idempotent(t *testing.T) {
	t.Parallel()

	s := newTestStorage(t)

	for i := 0; i < 3; i++ {
		if err := InitSchema(s.db, DriverSQLite); err != nil {
			t.Fatalf("InitSchema call %d failed: %v", i, err)
		}
	}
}

func TestPing(t *testing.T) {
	t.Parallel()

	s := newTestStorage(t)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}

	_ = s.Close()
	if err := s.Ping(context.Background()); err == nil {
		t.Fatal("expected Ping to fail on a closed database")
	}
}

func TestGetTokenByValue(t *testing.T) {
	t.Parallel()

	s := newTestStorage(t)
	ctx := context.Background()

	expires := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	want := &Token{ID: uuid.New(), Token: "tok-value-1234", ExpiresAt: &expires, Superuser: true}
	if err := s.InsertToken(ctx, want); err != nil {
		t.Fatalf("InsertToken failed: %v", err)
	}

	got, err := s.GetTokenByValue(ctx, "tok-value-1234")
	if err != nil {
		t.Fatalf("GetTokenByValue failed: %v", err)
	}
	if got.ID != want.ID {
		t.Errorf("expected id %s, got %s", want.ID, got.ID)
	}
	if !got.Superuser {
		t.Error("expected superuser to be true")
	}
	if got.ExpiresAt == nil || !got.ExpiresAt.Equal(expires) {
		t.Errorf("expected expires_at %v, got %v", expires, got.ExpiresAt)
	}
	if got.UsedAt != nil {
		t.Errorf("expected used_at to be nil, got %v", got.UsedAt)
	}

	// Lookup is an exact match.
	for _, value := range []string{"tok-value", "TOK-VALUE-1234", "tok-value-1234 ", ""} {
		if _, err := s.GetTokenByValue(ctx, value); !errors.Is(err, ErrNotFound) {
			t.Errorf("value %q: expected ErrNotFound, got %v", value, err)
		}
	}
}

func TestTouchToken_Monotonic(t *testing.T) {
	t.Parallel()

	s := newTestStorage(t)
	ctx := context.Background()

	tok := &Token{ID: uuid.New(), Token: "touch-me"}
	if err := s.InsertToken(ctx, tok); err != nil {
		t.Fatalf("InsertToken failed: %v", err)
	}

	later := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	earlier := later.Add(-2 * time.Hour)

	if err := s.TouchToken(ctx, tok.ID, later); err != nil {
		t.Fatalf("TouchToken failed: %v", err)
	}
	if err := s.TouchToken(ctx, tok.ID, earlier); err != nil {
		t.Fatalf("TouchToken with older time failed: %v", err)
	}

	got, err := s.GetTokenByValue(ctx, "touch-me")
	if err != nil {
		t.Fatalf("GetTokenByValue failed: %v", err)
	}
	if got.UsedAt == nil || !got.UsedAt.Equal(later) {
		t.Fatalf("expected used_at %v, got %v", later, got.UsedAt)
	}

	// Non-UTC input is normalized before it is stored.
	newest := later.Add(time.Hour).In(time.FixedZone("CEST", 2*60*60))
	if err := s.TouchToken(ctx, tok.ID, newest); err != nil {
		t.Fatalf("TouchToken failed: %v", err)
	}
	got, err = s.GetTokenByValue(ctx, "touch-me")
	if err != nil {
		t.Fatalf("GetTokenByValue failed: %v", err)
	}
	if got.UsedAt == nil || !got.UsedAt.Equal(newest) {
		t.Fatalf("expected used_at %v, got %v", newest, got.UsedAt)
	}

	// Unknown ids are not an error.
	if err := s.TouchToken(ctx, uuid.New(), newest); err != nil {
		t.Fatalf("TouchToken on unknown id failed: %v", err)
	}
}

func TestPermissions(t *testing.T) {
	t.Parallel()

	s := newTestStorage(t)
	ctx := context.Background()

	tok := &Token{ID: uuid.New(), Token: "perm-token"}
	other := &Token{ID: uuid.New(), Token: "other-token"}
	secA := &Secret{ID: uuid.New()}
	secB := &Secret{ID: uuid.New()}
	for _, tk := range []*Token{tok, other} {
		if err := s.InsertToken(ctx, tk); err != nil {
			t.Fatalf("InsertToken failed: %v", err)
		}
	}
	for _, sec := range []*Secret{secA, secB} {
		if err := s.InsertSecret(ctx, sec); err != nil {
			t.Fatalf("InsertSecret failed: %v", err)
		}
	}

	// Two rows for the same pair: flags combine across rows.
	grants := []*Permission{
		{TokenID: tok.ID, SecretID: secA.ID, CanRead: true},
		{TokenID: tok.ID, SecretID: secA.ID, CanWrite: true},
		{TokenID: other.ID, SecretID: secB.ID, CanRead: false, CanWrite: false},
	}
	for _, p := range grants {
		if err := s.InsertPermission(ctx, p); err != nil {
			t.Fatalf("InsertPermission failed: %v", err)
		}
	}

	tests := []struct {
		name      string
		token     uuid.UUID
		secret    uuid.UUID
		wantRead  bool
		wantWrite bool
	}{
		{"union of rows", tok.ID, secA.ID, true, true},
		{"no row for secret", tok.ID, secB.ID, false, false},
		{"row with no flags", other.ID, secB.ID, false, false},
		{"no row for token", other.ID, secA.ID, false, false},
		{"unknown ids", uuid.New(), uuid.New(), false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			read, err := s.HasReadPermission(ctx, tt.token, tt.secret)
			if err != nil {
				t.Fatalf("HasReadPermission failed: %v", err)
			}
			if read != tt.wantRead {
				t.Errorf("read: expected %v, got %v", tt.wantRead, read)
			}

			write, err := s.HasWritePermission(ctx, tt.token, tt.secret)
			if err != nil {
				t.Fatalf("HasWritePermission failed: %v", err)
			}
			if write != tt.wantWrite {
				t.Errorf("write: expected %v, got %v", tt.wantWrite, write)
			}
		})
	}
}

func TestFindSecret(t *testing.T) {
	t.Parallel()

	s := newTestStorage(t)
	ctx := context.Background()

	withContent := &Secret{ID: uuid.New(), FileName: strPtr("id_ed25519"), Contents: []byte{0x00, 0xff, 'k'}}
	empty := &Secret{ID: uuid.New(), Contents: []byte{}}
	none := &Secret{ID: uuid.New(), FileName: strPtr("pending.txt")}
	for _, sec := range []*Secret{withContent, empty, none} {
		if err := s.InsertSecret(ctx, sec); err != nil {
			t.Fatalf("InsertSecret failed: %v", err)
		}
	}

	got, err := s.FindSecret(ctx, withContent.ID)
	if err != nil {
		t.Fatalf("FindSecret failed: %v", err)
	}
	if !bytes.Equal(got.Contents, withContent.Contents) {
		t.Errorf("expected contents %v, got %v", withContent.Contents, got.Contents)
	}
	if got.FileName == nil || *got.FileName != "id_ed25519" {
		t.Errorf("expected file name id_ed25519, got %v", got.FileName)
	}

	got, err = s.FindSecret(ctx, empty.ID)
	if err != nil {
		t.Fatalf("FindSecret failed: %v", err)
	}
	if !got.HasContents() || len(got.Contents) != 0 {
		t.Errorf("expected present but empty contents, got %#v", got.Contents)
	}
	if got.FileName != nil {
		t.Errorf("expected no file name, got %q", *got.FileName)
	}

	got, err = s.FindSecret(ctx, none.ID)
	if err != nil {
		t.Fatalf("FindSecret failed: %v", err)
	}
	if got.HasContents() {
		t.Errorf("expected no contents, got %#v", got.Contents)
	}

	if _, err := s.FindSecret(ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateSecretContents(t *testing.T) {
	t.Parallel()

	s := newTestStorage(t)
	ctx := context.Background()

	sec := &Secret{ID: uuid.New(), FileName: strPtr("config.json"), Contents: []byte("old")}
	if err := s.InsertSecret(ctx, sec); err != nil {
		t.Fatalf("InsertSecret failed: %v", err)
	}

	updated, err := s.UpdateSecretContents(ctx, sec.ID, []byte("new contents"))
	if err != nil {
		t.Fatalf("UpdateSecretContents failed: %v", err)
	}
	if string(updated.Contents) != "new contents" {
		t.Errorf("expected returned contents %q, got %q", "new contents", updated.Contents)
	}
	if updated.FileName == nil || *updated.FileName != "config.json" {
		t.Errorf("expected file name to be kept, got %v", updated.FileName)
	}

	got, err := s.FindSecret(ctx, sec.ID)
	if err != nil {
		t.Fatalf("FindSecret failed: %v", err)
	}
	if string(got.Contents) != "new contents" {
		t.Errorf("expected stored contents %q, got %q", "new contents", got.Contents)
	}

	// nil clears to an empty blob, not to "no contents".
	if _, err := s.UpdateSecretContents(ctx, sec.ID, nil); err != nil {
		t.Fatalf("UpdateSecretContents(nil) failed: %v", err)
	}
	got, err = s.FindSecret(ctx, sec.ID)
	if err != nil {
		t.Fatalf("FindSecret failed: %v", err)
	}
	if !got.HasContents() || len(got.Contents) != 0 {
		t.Errorf("expected empty contents, got %#v", got.Contents)
	}

	if _, err := s.UpdateSecretContents(ctx, uuid.New(), []byte("x")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAuditEntries(t *testing.T) {
	t.Parallel()

	s := newTestStorage(t)
	ctx := context.Background()

	tok := &Token{ID: uuid.New(), Token: "audit-token"}
	sec := &Secret{ID: uuid.New()}
	if err := s.InsertToken(ctx, tok); err != nil {
		t.Fatalf("InsertToken failed: %v", err)
	}
	if err := s.InsertSecret(ctx, sec); err != nil {
		t.Fatalf("InsertSecret failed: %v", err)
	}

	at := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	in := []*AuditEntry{
		{ClientAddr: netip.MustParsePrefix("192.0.2.10/32"), Action: AuditActionSecretRead, TokenID: tok.ID, SecretID: sec.ID, CreatedAt: at},
		{ClientAddr: netip.MustParsePrefix("2001:db8::1/128"), Action: AuditActionSecretWrite, TokenID: tok.ID, SecretID: sec.ID, CreatedAt: at.Add(time.Second)},
	}
	for _, e := range in {
		if err := s.InsertAuditEntry(ctx, e); err != nil {
			t.Fatalf("InsertAuditEntry failed: %v", err)
		}
		if e.ID <= 0 {
			t.Errorf("expected positive id, got %d", e.ID)
		}
	}

	out, err := s.ListAuditEntries(ctx, sec.ID)
	if err != nil {
		t.Fatalf("ListAuditEntries failed: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("expected %d entries, got %d", len(in), len(out))
	}
	for i := range in {
		if out[i].ClientAddr != in[i].ClientAddr {
			t.Errorf("entry %d: expected addr %s, got %s", i, in[i].ClientAddr, out[i].ClientAddr)
		}
		if out[i].Action != in[i].Action {
			t.Errorf("entry %d: expected action %s, got %s", i, in[i].Action, out[i].Action)
		}
		if out[i].TokenID != tok.ID || out[i].SecretID != sec.ID {
			t.Errorf("entry %d: unexpected token/secret %s/%s", i, out[i].TokenID, out[i].SecretID)
		}
		if !out[i].CreatedAt.Equal(in[i].CreatedAt) {
			t.Errorf("entry %d: expected created_at %v, got %v", i, in[i].CreatedAt, out[i].CreatedAt)
		}
	}

	if err := s.InsertAuditEntry(ctx, &AuditEntry{Action: AuditActionSecretRead, TokenID: tok.ID, SecretID: sec.ID}); err == nil {
		t.Fatal("expected error for missing client address")
	}
}

func TestTokenIsExpired(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	past := now.Add(-time.Second)
	future := now.Add(time.Second)

	tests := []struct {
		name    string
		expires *time.Time
		want    bool
	}{
		{"never expires", nil, false},
		{"expired", &past, true},
		{"not yet expired", &future, false},
		{"expires exactly now", &now, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok := &Token{ExpiresAt: tt.expires}
			if got := tok.IsExpired(now); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}
