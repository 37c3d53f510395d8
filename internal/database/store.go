// Package database holds the share registry: the table of directed
// "owner shares namespace with viewer" edges.
package database

import (
	"cloud-doc/internal/models"
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// ShareStore is implemented by every registry backend.
type ShareStore interface {
	ShareFolder(ctx context.Context, owner, viewer string) (bool, error)
	ListOwnersSharingWith(ctx context.Context, viewer string) ([]string, error)
	ListSharesByOwner(ctx context.Context, owner string) ([]models.SharedAccess, error)
	ClearShares(ctx context.Context, owner string) (int64, error)
	Migrate(ctx context.Context) error
	Validate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close()
}

// Open connects to the backend selected by driver. It does not touch the
// schema; call Migrate or Validate afterwards.
func Open(ctx context.Context, driver, source string) (ShareStore, error) {
	switch driver {
	case DriverPostgres:
		pool, err := pgxpool.New(ctx, source)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		return NewStore(pool), nil
	case DriverSQLite:
		return OpenSQLite(ctx, source)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}
}

var _ ShareStore = (*PostgresStore)(nil)

type PostgresStore struct {
	pool *pgxpool.Pool
	*Queries
}

func NewStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{
		pool:    pool,
		Queries: New(pool),
	}
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}
