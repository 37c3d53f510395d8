package database

import (
	"cloud-doc/internal/models"
	"context"
	"errors"
)

var ErrSelfShare = errors.New("cannot share a folder with yourself")
var ErrInvalidShare = errors.New("owner and viewer emails are required")

// Statements are written with Postgres placeholders; SQLiteStore rebinds them.
const (
	insertShareQuery = `
		INSERT INTO shared_access (owner_email, shared_with_email)
		VALUES ($1, $2)
		ON CONFLICT (owner_email, shared_with_email) DO NOTHING
	`
	ownersSharingWithQuery = `
		SELECT owner_email
		FROM shared_access
		WHERE shared_with_email = $1
		ORDER BY id
	`
	sharesByOwnerQuery = `
		SELECT id, owner_email, shared_with_email
		FROM shared_access
		WHERE owner_email = $1
		ORDER BY id
	`
	clearSharesQuery = `DELETE FROM shared_access WHERE owner_email = $1`
)

func validateShare(owner, viewer string) error {
	if owner == "" || viewer == "" {
		return ErrInvalidShare
	}
	if owner == viewer {
		return ErrSelfShare
	}
	return nil
}

// ShareFolder records that owner shares their namespace with viewer. It
// reports false when the edge already existed.
func (q *Queries) ShareFolder(ctx context.Context, owner, viewer string) (bool, error) {
	if err := validateShare(owner, viewer); err != nil {
		return false, err
	}

	res, err := q.db.Exec(ctx, insertShareQuery, owner, viewer)
	if err != nil {
		return false, err
	}

	return res.RowsAffected() > 0, nil
}

func (q *Queries) ListOwnersSharingWith(ctx context.Context, viewer string) ([]string, error) {
	rows, err := q.db.Query(ctx, ownersSharingWithQuery, viewer)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEmails(rows)
}

func (q *Queries) ListSharesByOwner(ctx context.Context, owner string) ([]models.SharedAccess, error) {
	rows, err := q.db.Query(ctx, sharesByOwnerQuery, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanShares(rows)
}

// ClearShares removes every edge owned by owner and returns how many were
// removed.
func (q *Queries) ClearShares(ctx context.Context, owner string) (int64, error) {
	res, err := q.db.Exec(ctx, clearSharesQuery, owner)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected(), nil
}
