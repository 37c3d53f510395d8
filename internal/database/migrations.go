package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

var ErrSchemaMissing = errors.New("shared_access table does not exist; run the migrate command")

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationFiles embed.FS

func runMigrations(ctx context.Context, dialect goose.Dialect, dir string, db *sql.DB) error {
	fsys, err := fs.Sub(migrationFiles, dir)
	if err != nil {
		return err
	}

	provider, err := goose.NewProvider(dialect, db, fsys)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Migrate applies pending schema migrations. It is idempotent.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	// closing the wrapper leaves the pool open
	db := stdlib.OpenDBFromPool(s.pool)
	defer db.Close()

	return runMigrations(ctx, goose.DialectPostgres, "migrations/postgres", db)
}

func (s *PostgresStore) Validate(ctx context.Context) error {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT to_regclass('shared_access') IS NOT NULL`).Scan(&exists)
	if err != nil {
		return fmt.Errorf("validate schema: %w", err)
	}
	if !exists {
		return ErrSchemaMissing
	}
	return nil
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	return runMigrations(ctx, goose.DialectSQLite3, "migrations/sqlite", s.db)
}

func (s *SQLiteStore) Validate(ctx context.Context) error {
	var name string
	err := s.db.QueryRowContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'shared_access'`,
	).Scan(&name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrSchemaMissing
		}
		return fmt.Errorf("validate schema: %w", err)
	}
	return nil
}
