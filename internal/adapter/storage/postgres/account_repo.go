package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"club-operations-core/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// AccountRepo implements ports.AccountRepository. The two mutations are
// predicate-guarded single statements; the caller reads the row count
// to learn whether it won the transition.
type AccountRepo struct {
	pool Pool
}

// NewAccountRepo creates a new AccountRepo.
func NewAccountRepo(pool Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

// GetByEmail fetches a membership account by email (case-insensitive).
func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (*domain.MembershipAccount, error) {
	query := `SELECT email, membership_status, grace_period_start, created_at, updated_at
		FROM membership_accounts WHERE lower(email) = lower($1)`

	acct := &domain.MembershipAccount{}
	err := r.pool.QueryRow(ctx, query, email).Scan(
		&acct.Email, &acct.Status, &acct.GracePeriodStart,
		&acct.CreatedAt, &acct.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get account by email: %w", err)
	}
	return acct, nil
}

// StartGracePeriod marks the account past_due and stamps the grace
// start, guarded on grace_period_start IS NULL. Returns the affected
// row count: 1 = this caller started the grace period, 0 = a
// concurrent event already did. MUST be called within a transaction.
func (r *AccountRepo) StartGracePeriod(ctx context.Context, tx pgx.Tx, email string, now time.Time) (int64, error) {
	query := `UPDATE membership_accounts
		SET grace_period_start = $2,
		    membership_status = CASE WHEN membership_status = 'active' THEN 'past_due' ELSE membership_status END,
		    updated_at = $2
		WHERE lower(email) = lower($1) AND grace_period_start IS NULL`

	tag, err := tx.Exec(ctx, query, email, now)
	if err != nil {
		return 0, fmt.Errorf("start grace period: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Reinstate restores active status and clears the grace start, guarded
// so it only fires for accounts actually in a degraded billing state.
// Returns the affected row count (0 = nothing to reinstate). MUST be
// called within a transaction.
func (r *AccountRepo) Reinstate(ctx context.Context, tx pgx.Tx, email string, now time.Time) (int64, error) {
	query := `UPDATE membership_accounts
		SET grace_period_start = NULL,
		    membership_status = 'active',
		    updated_at = $2
		WHERE lower(email) = lower($1)
		  AND (grace_period_start IS NOT NULL OR membership_status = 'past_due')`

	tag, err := tx.Exec(ctx, query, email, now)
	if err != nil {
		return 0, fmt.Errorf("reinstate account: %w", err)
	}
	return tag.RowsAffected(), nil
}
