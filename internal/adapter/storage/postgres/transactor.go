package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Transactor implements ports.DBTransactor. The webhook pipeline uses
// it to apply the dedup claim, cursor advance and account transition
// in a single commit.
type Transactor struct {
	pool Pool
}

// NewTransactor wraps the shared connection pool.
func NewTransactor(pool Pool) *Transactor {
	return &Transactor{pool: pool}
}

// Begin opens a transaction on the pool.
func (t *Transactor) Begin(ctx context.Context) (pgx.Tx, error) {
	return t.pool.Begin(ctx)
}
