package storage

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// sqliteDDL creates the vault tables on SQLite. UUIDs are stored as text,
// addresses as CIDR text and timestamps as UTC strings.
var sqliteDDL = []string{
	`CREATE TABLE IF NOT EXISTS tokens (
		uuid TEXT PRIMARY KEY,
		token TEXT NOT NULL UNIQUE,
		expires_at TIMESTAMP,
		superuser BOOLEAN NOT NULL DEFAULT FALSE,
		used_at TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE TABLE IF NOT EXISTS secrets (
		uuid TEXT PRIMARY KEY,
		file_name TEXT,
		contents BLOB,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE TABLE IF NOT EXISTS token_permissions (
		token TEXT NOT NULL,
		secret TEXT NOT NULL,
		can_read BOOLEAN NOT NULL DEFAULT FALSE,
		can_write BOOLEAN NOT NULL DEFAULT FALSE,
		FOREIGN KEY (token) REFERENCES tokens(uuid) ON DELETE CASCADE,
		FOREIGN KEY (secret) REFERENCES secrets(uuid) ON DELETE CASCADE
	)`,

	`CREATE INDEX IF NOT EXISTS idx_token_permissions_token_secret ON token_permissions(token, secret)`,

	`CREATE TABLE IF NOT EXISTS audit_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		client_addr TEXT NOT NULL,
		action TEXT NOT NULL CHECK (action IN ('secret_read', 'secret_write')),
		token TEXT NOT NULL,
		secret TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		FOREIGN KEY (token) REFERENCES tokens(uuid),
		FOREIGN KEY (secret) REFERENCES secrets(uuid)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_audit_log_secret ON audit_log(secret)`,
}

// postgresDDL creates the vault tables on PostgreSQL with native uuid, inet
// and enum types.
var postgresDDL = []string{
	`CREATE TABLE IF NOT EXISTS tokens (
		uuid UUID PRIMARY KEY,
		token TEXT NOT NULL UNIQUE,
		expires_at TIMESTAMPTZ,
		superuser BOOLEAN NOT NULL DEFAULT FALSE,
		used_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS secrets (
		uuid UUID PRIMARY KEY,
		file_name TEXT,
		contents BYTEA,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS token_permissions (
		token UUID NOT NULL REFERENCES tokens(uuid) ON DELETE CASCADE,
		secret UUID NOT NULL REFERENCES secrets(uuid) ON DELETE CASCADE,
		can_read BOOLEAN NOT NULL DEFAULT FALSE,
		can_write BOOLEAN NOT NULL DEFAULT FALSE
	)`,

	`CREATE INDEX IF NOT EXISTS idx_token_permissions_token_secret ON token_permissions(token, secret)`,

	`DO $$ BEGIN
		CREATE TYPE audit_log_action AS ENUM ('secret_read', 'secret_write');
	EXCEPTION
		WHEN duplicate_object THEN NULL;
	END $$`,

	`CREATE TABLE IF NOT EXISTS audit_log (
		id BIGSERIAL PRIMARY KEY,
		client_addr INET NOT NULL,
		action audit_log_action NOT NULL,
		token UUID NOT NULL REFERENCES tokens(uuid),
		secret UUID NOT NULL REFERENCES secrets(uuid),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_audit_log_secret ON audit_log(secret)`,
}

// InitSchema creates all required tables and indexes for the given driver.
// This is idempotent - safe to call multiple times.
func InitSchema(db *sqlx.DB, driver Driver) error {
	var ddl []string
	switch driver {
	case DriverSQLite:
		ddl = sqliteDDL
	case DriverPostgres:
		ddl = postgresDDL
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedDriver, string(driver))
	}

	for _, stmt := range ddl {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute DDL: %w", err)
		}
	}

	return nil
}
