package ports

import (
	"context"
	"time"

	"club-operations-core/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// EventRepository is the durable event deduplication store. The unique
// index on provider_event_id is the correctness boundary: exactly one
// concurrent Claim for a given ID may return true.
type EventRepository interface {
	// Claim atomically records the event. Returns true the first time an
	// event ID is seen, false on every redelivery. Irreversible.
	Claim(ctx context.Context, event *domain.WebhookEvent) (bool, error)
	// RecordOutcome notes how a claimed event was handled.
	RecordOutcome(ctx context.Context, providerEventID string, outcome domain.EventOutcome) error
	// Stats returns processing counts grouped by event type and outcome.
	Stats(ctx context.Context) ([]domain.EventTypeStat, error)
}

// CursorRepository enforces causal ordering per aggregate. Admit is a
// single atomic statement; two concurrent calls for one aggregate never
// both advance past each other.
type CursorRepository interface {
	// Admit returns true iff priority >= the aggregate's last-applied
	// priority, advancing the cursor on admission.
	Admit(ctx context.Context, aggregateID string, priority int) (bool, error)
}

// AccountRepository defines persistence for membership accounts.
// The Start/Reinstate mutations are predicate-guarded single statements;
// the returned row count is the concurrency signal (1 = this caller won,
// 0 = a concurrent invocation already applied the transition).
type AccountRepository interface {
	GetByEmail(ctx context.Context, email string) (*domain.MembershipAccount, error)
	StartGracePeriod(ctx context.Context, tx pgx.Tx, email string, now time.Time) (int64, error)
	Reinstate(ctx context.Context, tx pgx.Tx, email string, now time.Time) (int64, error)
}

// NotificationRepository defines persistence for notification records.
type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) (int64, error)
	ListByEmail(ctx context.Context, email string, unreadOnly bool, limit int) ([]domain.Notification, error)
	CountUnread(ctx context.Context, email string) (int64, error)
	MarkRead(ctx context.Context, id int64, email string) (bool, error)
}

// PushSubscriptionRepository defines persistence for web-push
// subscriptions (client keys stored encrypted).
type PushSubscriptionRepository interface {
	Save(ctx context.Context, sub *domain.PushSubscription) error
	ListByEmail(ctx context.Context, email string) ([]domain.PushSubscription, error)
	DeleteByEndpoint(ctx context.Context, email, endpoint string) (bool, error)
}

// AuditRepository defines persistence for audit entries.
type AuditRepository interface {
	Create(ctx context.Context, entry *domain.AuditLog) error
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
