package database

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"
	"time"
)

// Migrations holds the schema files applied by Migrate. The top-level
// migrations package sets it from its embedded files; nil means no schema.
//
// Files are named NNNN_description.sql and applied in name order. Migrations
// are forward-only: a schema change ships as a new file.
var Migrations fs.FS

// migration is one schema file.
type migration struct {
	version string
	name    string
	sql     string
}

// Migrate applies every migration not yet recorded in schema_migrations.
// Each file runs in its own transaction, so a failure leaves earlier files
// applied and later ones untouched.
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version    TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		applied_at TEXT NOT NULL
	)`); err != nil {
		return fmt.Errorf("creating schema_migrations: %w", err)
	}

	files, err := readMigrations(Migrations)
	if err != nil {
		return err
	}

	current, err := db.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	for _, m := range files {
		if m.version <= current {
			continue
		}
		if err := db.apply(ctx, m); err != nil {
			return fmt.Errorf("migration %s_%s: %w", m.version, m.name, err)
		}
	}
	return nil
}

// SchemaVersion returns the most recent applied migration version, or ""
// for an empty database.
func (db *DB) SchemaVersion(ctx context.Context) (string, error) {
	var version string
	err := db.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(version), '') FROM schema_migrations",
	).Scan(&version)
	if err != nil {
		return "", fmt.Errorf("reading schema version: %w", err)
	}
	return version, nil
}

func (db *DB) apply(ctx context.Context, m migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after Commit

	if _, err := tx.ExecContext(ctx, m.sql); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)",
		m.version, m.name, time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("recording version: %w", err)
	}
	return tx.Commit()
}

// readMigrations lists the *.sql files at the root of fsys, sorted by
// version. Files without a version prefix are skipped.
func readMigrations(fsys fs.FS) ([]migration, error) {
	if fsys == nil {
		return nil, nil
	}

	names, err := fs.Glob(fsys, "*.sql")
	if err != nil {
		return nil, fmt.Errorf("listing migrations: %w", err)
	}
	slices.Sort(names)

	out := make([]migration, 0, len(names))
	for _, file := range names {
		version, name, ok := strings.Cut(strings.TrimSuffix(path.Base(file), ".sql"), "_")
		if !ok || version == "" {
			continue
		}
		body, err := fs.ReadFile(fsys, file)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", file, err)
		}
		out = append(out, migration{version: version, name: name, sql: string(body)})
	}
	return out, nil
}
