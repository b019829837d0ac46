package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// secretRow is the scan target for a secrets row. Contents distinguishes a
// NULL column from an empty blob.
type secretRow struct {
	ID       uuid.UUID        `db:"uuid"`
	FileName sql.NullString   `db:"file_name"`
	Contents sql.Null[[]byte] `db:"contents"`
}

func (r *secretRow) toSecret() *Secret {
	sec := &Secret{ID: r.ID}
	if r.FileName.Valid {
		name := r.FileName.String
		sec.FileName = &name
	}
	if r.Contents.Valid {
		sec.Contents = r.Contents.V
		if sec.Contents == nil {
			sec.Contents = []byte{}
		}
	}
	return sec
}

// FindSecret retrieves a secret by id.
// Returns ErrNotFound if the secret doesn't exist.
func (s *SQLStorage) FindSecret(ctx context.Context, id uuid.UUID) (*Secret, error) {
	var row secretRow

	err := s.db.GetContext(ctx, &row, s.db.Rebind(
		"SELECT uuid, file_name, contents FROM secrets WHERE uuid = ?"),
		id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find secret: %w", err)
	}

	return row.toSecret(), nil
}

// UpdateSecretContents replaces the whole content of a secret, leaving its
// file name untouched, and returns the updated secret. A nil contents slice
// is stored as an empty blob.
// Returns ErrNotFound if the secret doesn't exist.
func (s *SQLStorage) UpdateSecretContents(ctx context.Context, id uuid.UUID, contents []byte) (*Secret, error) {
	if contents == nil {
		contents = []byte{}
	}

	var row secretRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(
		"UPDATE secrets SET contents = ? WHERE uuid = ? RETURNING uuid, file_name, contents"),
		contents, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update secret contents: %w", err)
	}

	return row.toSecret(), nil
}
