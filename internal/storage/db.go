package storage

import (
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// Driver selects the database engine backing the vault.
type Driver string

const (
	// DriverSQLite stores everything in a single SQLite file (modernc.org/sqlite).
	DriverSQLite Driver = "sqlite"
	// DriverPostgres talks to PostgreSQL through pgx's database/sql adapter.
	DriverPostgres Driver = "postgres"
)

func init() {
	// sqlx only knows the cgo driver name "sqlite3".
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// sqlDriverName maps a Driver to the database/sql driver it registers under.
func (d Driver) sqlDriverName() (string, error) {
	switch d {
	case DriverSQLite:
		return "sqlite", nil
	case DriverPostgres:
		return "pgx", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedDriver, string(d))
	}
}

// SQLStorage implements the Storage interface on top of database/sql.
type SQLStorage struct {
	db     *sqlx.DB
	driver Driver
}

// New opens the database, applies the schema and configures the pool.
// For SQLite the dsn is a file path (or ":memory:" for tests); for Postgres it
// is a connection URL. maxOpenConns <= 0 leaves the pool unbounded; SQLite is
// always limited to a single connection.
func New(driver Driver, dsn string, maxOpenConns int) (*SQLStorage, error) {
	driverName, err := driver.sqlDriverName()
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if driver == DriverSQLite {
		// modernc.org/sqlite requires a single connection for in-process file
		// databases to avoid "database is locked" errors, and ":memory:"
		// databases only exist per connection.
		db.SetMaxOpenConns(1)

		pragmas := []string{
			"PRAGMA journal_mode = WAL",
			"PRAGMA busy_timeout = 5000",
			"PRAGMA foreign_keys = ON",
		}
		for _, p := range pragmas {
			if _, err := db.Exec(p); err != nil {
				_ = db.Close() //nolint:errcheck
				return nil, fmt.Errorf("failed to apply %q: %w", p, err)
			}
		}
	} else if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
		db.SetMaxIdleConns(maxOpenConns)
	}

	if err := InitSchema(db, driver); err != nil {
		_ = db.Close() //nolint:errcheck
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLStorage{db: db, driver: driver}, nil
}

// Driver returns the engine this storage was opened with.
func (s *SQLStorage) Driver() Driver {
	return s.driver
}

// Close closes the database connection.
func (s *SQLStorage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
