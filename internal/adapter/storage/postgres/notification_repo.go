package postgres

import (
	"context"
	"fmt"

	"club-operations-core/internal/core/domain"
)

// NotificationRepo implements ports.NotificationRepository.
type NotificationRepo struct {
	pool Pool
}

// NewNotificationRepo creates a new NotificationRepo.
func NewNotificationRepo(pool Pool) *NotificationRepo {
	return &NotificationRepo{pool: pool}
}

// Create inserts a notification row and returns its generated ID.
func (r *NotificationRepo) Create(ctx context.Context, n *domain.Notification) (int64, error) {
	query := `INSERT INTO notifications (user_email, type, title, message, url, related_id, related_type, read, created_at)
		VALUES (lower($1), $2, $3, $4, $5, $6, $7, FALSE, $8)
		RETURNING id`

	var id int64
	err := r.pool.QueryRow(ctx, query,
		n.UserEmail, string(n.Type), n.Title, n.Message,
		n.URL, n.RelatedID, n.RelatedType, n.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert notification: %w", err)
	}
	return id, nil
}

// ListByEmail returns the user's notifications, newest first.
func (r *NotificationRepo) ListByEmail(ctx context.Context, email string, unreadOnly bool, limit int) ([]domain.Notification, error) {
	query := `SELECT id, user_email, type, title, message, url, related_id, related_type, read, created_at
		FROM notifications WHERE user_email = lower($1)`
	if unreadOnly {
		query += ` AND read = FALSE`
	}
	query += ` ORDER BY created_at DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, email, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var items []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(
			&n.ID, &n.UserEmail, &n.Type, &n.Title, &n.Message,
			&n.URL, &n.RelatedID, &n.RelatedType, &n.Read, &n.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		items = append(items, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}
	return items, nil
}

// CountUnread returns the user's unread notification count.
func (r *NotificationRepo) CountUnread(ctx context.Context, email string) (int64, error) {
	query := `SELECT COUNT(*) FROM notifications WHERE user_email = lower($1) AND read = FALSE`

	var count int64
	if err := r.pool.QueryRow(ctx, query, email).Scan(&count); err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}

// MarkRead marks one notification read, scoped to the owning user.
// Returns false if the notification does not exist or belongs to
// someone else.
func (r *NotificationRepo) MarkRead(ctx context.Context, id int64, email string) (bool, error) {
	query := `UPDATE notifications SET read = TRUE WHERE id = $1 AND user_email = lower($2)`

	tag, err := r.pool.Exec(ctx, query, id, email)
	if err != nil {
		return false, fmt.Errorf("mark notification read: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
