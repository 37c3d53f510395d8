package database

import (
	"cloud-doc/internal/models"
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Queries runs the share registry statements against a pool or a transaction.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// rowScanner is the part of pgx.Rows and *sql.Rows the scanners need. Callers
// close the rows.
type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanEmails(rows rowScanner) ([]string, error) {
	emails := []string{}
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, err
		}
		emails = append(emails, email)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return emails, nil
}

func scanShares(rows rowScanner) ([]models.SharedAccess, error) {
	shares := []models.SharedAccess{}
	for rows.Next() {
		var share models.SharedAccess
		if err := rows.Scan(&share.ID, &share.OwnerEmail, &share.SharedWithEmail); err != nil {
			return nil, err
		}
		shares = append(shares, share)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return shares, nil
}
