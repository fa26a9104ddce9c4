package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const selectUserEmail = `
SELECT email
FROM users
WHERE id = $1
`

var ErrNotConfigured = errors.New("orders repository requires a non-nil pool")

// Repository is the read-only slice of the order service's relational store
// the pipeline needs: resolving a user id to an email recipient.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) (*Repository, error) {
	if pool == nil {
		return nil, ErrNotConfigured
	}
	return &Repository{pool: pool}, nil
}

func (r *Repository) EmailFor(ctx context.Context, userID string) (string, error) {
	var email string
	err := r.pool.QueryRow(ctx, selectUserEmail, userID).Scan(&email)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("no user %s", userID)
	}
	if err != nil {
		return "", fmt.Errorf("lookup user %s: %w", userID, err)
	}
	return email, nil
}
