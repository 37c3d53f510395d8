package database

import (
	"cloud-doc/internal/models"
	"context"
	"database/sql"
	"fmt"
	"regexp"

	_ "modernc.org/sqlite"
)

var _ ShareStore = (*SQLiteStore)(nil)

var postgresPlaceholder = regexp.MustCompile(`\$(\d+)`)

// sqliteQuery rewrites $n placeholders to SQLite's numbered ?n form.
func sqliteQuery(query string) string {
	return postgresPlaceholder.ReplaceAllString(query, "?$1")
}

// SQLiteStore keeps the registry in a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

func OpenSQLite(ctx context.Context, dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one connection keeps ":memory:" databases shared and serializes writers
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) ShareFolder(ctx context.Context, owner, viewer string) (bool, error) {
	if err := validateShare(owner, viewer); err != nil {
		return false, err
	}

	res, err := s.db.ExecContext(ctx, sqliteQuery(insertShareQuery), owner, viewer)
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLiteStore) ListOwnersSharingWith(ctx context.Context, viewer string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, sqliteQuery(ownersSharingWithQuery), viewer)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEmails(rows)
}

func (s *SQLiteStore) ListSharesByOwner(ctx context.Context, owner string) ([]models.SharedAccess, error) {
	rows, err := s.db.QueryContext(ctx, sqliteQuery(sharesByOwnerQuery), owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanShares(rows)
}

func (s *SQLiteStore) ClearShares(ctx context.Context, owner string) (int64, error) {
	res, err := s.db.ExecContext(ctx, sqliteQuery(clearSharesQuery), owner)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() {
	s.db.Close()
}
