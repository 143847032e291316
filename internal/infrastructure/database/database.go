package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3" // registers the "sqlite3" driver

	"github.com/nerrad567/cotbridge/internal/infrastructure/config"
)

// ErrDisabled is returned by OpenConfig when the database section is disabled.
var ErrDisabled = errors.New("database: disabled in configuration")

const (
	dirMode     = 0o750
	fileMode    = 0o600
	pingTimeout = 5 * time.Second
)

// DB is the SQLite handle that stores the listener audit trail.
type DB struct {
	*sql.DB
	path string
}

// Config selects the database file and its locking behaviour.
type Config struct {
	// Path is the database file. Missing parent directories are created.
	Path string

	// WALMode lets the API read the audit trail while the recorder writes.
	WALMode bool

	// BusyTimeout is how long a statement waits for a lock, in seconds.
	BusyTimeout int
}

// dsn builds the go-sqlite3 connection string for cfg.
func (cfg Config) dsn() string {
	q := url.Values{}
	q.Set("_busy_timeout", strconv.Itoa(cfg.BusyTimeout*1000))
	q.Set("_foreign_keys", "on")
	if cfg.WALMode {
		q.Set("_journal_mode", "WAL")
		q.Set("_synchronous", "NORMAL")
	}
	return "file:" + cfg.Path + "?" + q.Encode()
}

// Open opens (creating if needed) the SQLite file at cfg.Path and verifies
// the connection. It does not run migrations; see OpenConfig.
func Open(cfg Config) (*DB, error) {
	if cfg.Path == "" {
		return nil, errors.New("database: path is required")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), dirMode); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	sqlDB, err := sql.Open("sqlite3", cfg.dsn())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// A single connection serialises writers; audit volume is low.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("connecting to %s: %w", cfg.Path, err)
	}

	if err := os.Chmod(cfg.Path, fileMode); err != nil && !os.IsNotExist(err) {
		sqlDB.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("restricting database permissions: %w", err)
	}

	return &DB{DB: sqlDB, path: cfg.Path}, nil
}

// OpenConfig opens the database from the database section of config.yaml
// and brings its schema up to date.
func OpenConfig(ctx context.Context, cfg config.DatabaseConfig) (*DB, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	db, err := Open(Config{Path: cfg.Path, WALMode: cfg.WALMode, BusyTimeout: cfg.BusyTimeout})
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close() //nolint:errcheck // already failing
		return nil, err
	}
	return db, nil
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// Close closes the underlying connection.
func (db *DB) Close() error {
	if db == nil || db.DB == nil {
		return nil
	}
	if err := db.DB.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	return nil
}

// HealthCheck reports whether the database answers and its schema is
// readable. It backs the "database" entry of /api/v1/health.
func (db *DB) HealthCheck(ctx context.Context) error {
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database unreachable: %w", err)
	}
	if _, err := db.SchemaVersion(ctx); err != nil {
		return err
	}
	return nil
}
