// Package audit records secret accesses in the append-only audit log.
package audit

import (
	"context"
	"fmt"
	"log/slog"
	"net/netip"
	"time"

	"github.com/google/uuid"

	"github.com/sipico/vssv/internal/metrics"
	"github.com/sipico/vssv/internal/storage"
)

// Store is the storage subset the Logger needs.
type Store interface {
	InsertAuditEntry(ctx context.Context, entry *storage.AuditEntry) error
}

// Logger writes audit entries.
type Logger struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

// NewLogger creates a new audit Logger. A nil logger uses slog.Default()
// and a nil clock uses time.Now.
func NewLogger(store Store, logger *slog.Logger, now func() time.Time) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &Logger{store: store, logger: logger, now: now}
}

// Log records that tokenID performed action on secretID from addr, at the
// current UTC time. The entry must be written before the action itself runs.
func (l *Logger) Log(ctx context.Context, addr netip.Addr, action storage.AuditAction, tokenID, secretID uuid.UUID) error {
	if !addr.IsValid() {
		return fmt.Errorf("invalid client address for audit entry")
	}

	entry := &storage.AuditEntry{
		ClientAddr: Canonicalize(addr),
		Action:     action,
		TokenID:    tokenID,
		SecretID:   secretID,
		CreatedAt:  l.now().UTC(),
	}
	if err := l.store.InsertAuditEntry(ctx, entry); err != nil {
		return fmt.Errorf("failed to write audit entry: %w", err)
	}

	metrics.RecordAuditEntry(string(action))
	l.logger.Debug("audit entry written",
		"action", action,
		"token", tokenID,
		"secret", secretID,
		"client_addr", entry.ClientAddr,
	)
	return nil
}

// Canonicalize returns addr as a single-host network. IPv4-mapped IPv6
// addresses collapse to IPv4 and zones are dropped, so the result is always
// a /32 or a /128.
func Canonicalize(addr netip.Addr) netip.Prefix {
	addr = addr.Unmap().WithZone("")
	return netip.PrefixFrom(addr, addr.BitLen())
}
