package postgres

import (
	"context"
	"fmt"

	"club-operations-core/internal/core/domain"
)

// PushSubscriptionRepo implements ports.PushSubscriptionRepository.
// The p256dh/auth columns hold ciphertext; encryption happens in the
// service layer before Save.
type PushSubscriptionRepo struct {
	pool Pool
}

// NewPushSubscriptionRepo creates a new PushSubscriptionRepo.
func NewPushSubscriptionRepo(pool Pool) *PushSubscriptionRepo {
	return &PushSubscriptionRepo{pool: pool}
}

// Save upserts a subscription keyed on (user_email, endpoint) so a
// browser re-subscribing refreshes its keys instead of duplicating.
func (r *PushSubscriptionRepo) Save(ctx context.Context, sub *domain.PushSubscription) error {
	query := `INSERT INTO push_subscriptions (user_email, endpoint, p256dh_enc, auth_enc, created_at)
		VALUES (lower($1), $2, $3, $4, $5)
		ON CONFLICT (user_email, endpoint) DO UPDATE
		SET p256dh_enc = EXCLUDED.p256dh_enc, auth_enc = EXCLUDED.auth_enc`

	_, err := r.pool.Exec(ctx, query,
		sub.UserEmail, sub.Endpoint, sub.P256dhEnc, sub.AuthEnc, sub.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save push subscription: %w", err)
	}
	return nil
}

// ListByEmail returns every stored subscription for a user.
func (r *PushSubscriptionRepo) ListByEmail(ctx context.Context, email string) ([]domain.PushSubscription, error) {
	query := `SELECT id, user_email, endpoint, p256dh_enc, auth_enc, created_at
		FROM push_subscriptions WHERE user_email = lower($1)`

	rows, err := r.pool.Query(ctx, query, email)
	if err != nil {
		return nil, fmt.Errorf("list push subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []domain.PushSubscription
	for rows.Next() {
		var s domain.PushSubscription
		if err := rows.Scan(&s.ID, &s.UserEmail, &s.Endpoint, &s.P256dhEnc, &s.AuthEnc, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan push subscription: %w", err)
		}
		subs = append(subs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate push subscriptions: %w", err)
	}
	return subs, nil
}

// DeleteByEndpoint removes one subscription, scoped to the owning user.
func (r *PushSubscriptionRepo) DeleteByEndpoint(ctx context.Context, email, endpoint string) (bool, error) {
	query := `DELETE FROM push_subscriptions WHERE user_email = lower($1) AND endpoint = $2`

	tag, err := r.pool.Exec(ctx, query, email, endpoint)
	if err != nil {
		return false, fmt.Errorf("delete push subscription: %w", err)
	}
	return tag.RowsAffected() >= 1, nil
}
