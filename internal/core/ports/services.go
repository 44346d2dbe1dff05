package ports

import (
	"context"
	"errors"
	"time"

	"club-operations-core/internal/core/domain"
)

// WebhookProcessor applies one provider event: dedup, ordering, domain
// mutation, post-commit side effects. A nil error means the event was
// handled (including the duplicate/stale/skip outcomes, which are not
// errors); a non-nil error asks the provider to redeliver.
type WebhookProcessor interface {
	Process(ctx context.Context, event *domain.WebhookEvent) error
}

// NotificationDispatcher fans one logical notification out to every
// delivery channel. It never returns an error for partial failure: the
// result describes exactly what happened per channel.
type NotificationDispatcher interface {
	Dispatch(ctx context.Context, payload domain.NotificationPayload) domain.NotificationResult
}

// RetryTracker counts payment failures per aggregate and derives
// escalation state.
type RetryTracker interface {
	RecordFailure(ctx context.Context, aggregateID string, perr *domain.PaymentErrorDetail) (domain.PaymentAttempt, error)
	Reset(ctx context.Context, aggregateID string) error
}

// ClaimCache is the fast-path dedup layer (best-effort; the
// EventRepository unique index remains authoritative).
type ClaimCache interface {
	// Claim atomically marks the event ID as seen. Returns true if the
	// ID is new, false if already claimed.
	Claim(ctx context.Context, providerEventID string, ttl time.Duration) (bool, error)
}

// AttemptStore is an atomic per-key failure counter.
type AttemptStore interface {
	Increment(ctx context.Context, key string) (int, error)
	Reset(ctx context.Context, key string) error
}

// SocketHub delivers a message to every live connection for a user,
// returning how many connections received it (0 = offline).
type SocketHub interface {
	SendToUser(email string, message interface{}) int
}

// ErrSubscriptionGone marks endpoints the push service has retired;
// callers should delete the stored subscription.
var ErrSubscriptionGone = errors.New("push subscription gone")

// PushSender delivers a web-push message to one subscription.
type PushSender interface {
	// Configured reports whether VAPID credentials are present.
	Configured() bool
	Send(ctx context.Context, sub domain.PushSubscription, message []byte) error
}

// CRMMembershipUpdate is the outbound CRM sync payload.
type CRMMembershipUpdate struct {
	Email            string            `json:"email"`
	MembershipStatus string            `json:"membership_status"`
	GracePeriodStart *time.Time        `json:"grace_period_start,omitempty"`
	Tags             []string          `json:"tags,omitempty"`
	Fields           map[string]string `json:"fields,omitempty"`
}

// CRMClient syncs membership state to the external CRM. Calls are made
// only from deferred actions, never on the webhook-handling path.
type CRMClient interface {
	SyncMembership(ctx context.Context, update CRMMembershipUpdate) error
}

// TokenService handles JWT token operations for the notification API.
type TokenService interface {
	Generate(email string, staff bool) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	Email string
	Staff bool
}

// EncryptionService handles AES-256-GCM encryption/decryption (push
// subscription keys at rest).
type EncryptionService interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// SignatureService handles HMAC-SHA256 signing and verification of
// provider webhook deliveries.
type SignatureService interface {
	Sign(secretKey string, payload string) string
	Verify(secretKey string, payload string, signature string) bool
	BuildCanonicalString(method, path string, timestamp int64, body string) string
}

// AuditService records applied transitions (fire-and-forget).
type AuditService interface {
	Log(ctx context.Context, entry *domain.AuditLog)
}

// StatsService exposes event-processing statistics for staff.
type StatsService interface {
	EventStats(ctx context.Context) ([]domain.EventTypeStat, error)
}
