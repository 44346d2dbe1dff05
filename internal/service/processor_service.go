package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"club-operations-core/internal/core/domain"
	"club-operations-core/internal/core/ports"
	"club-operations-core/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const claimTTL = 24 * time.Hour

// ProcessorImpl implements ports.WebhookProcessor: two-layer dedup,
// per-aggregate ordering, the grace-period state machine, retry
// tracking, and post-commit side effects via the deferred queue.
type ProcessorImpl struct {
	claimCache   ports.ClaimCache
	eventRepo    ports.EventRepository
	cursorRepo   ports.CursorRepository
	accountRepo  ports.AccountRepository
	transactor   ports.DBTransactor
	dispatcher   ports.NotificationDispatcher
	retryTracker ports.RetryTracker
	crm          ports.CRMClient
	audit        ports.AuditService
	staffEmail   string
	log          zerolog.Logger
}

// NewProcessor creates a new ProcessorImpl.
func NewProcessor(
	claimCache ports.ClaimCache,
	eventRepo ports.EventRepository,
	cursorRepo ports.CursorRepository,
	accountRepo ports.AccountRepository,
	transactor ports.DBTransactor,
	dispatcher ports.NotificationDispatcher,
	retryTracker ports.RetryTracker,
	crm ports.CRMClient,
	audit ports.AuditService,
	staffEmail string,
	log zerolog.Logger,
) *ProcessorImpl {
	return &ProcessorImpl{
		claimCache:   claimCache,
		eventRepo:    eventRepo,
		cursorRepo:   cursorRepo,
		accountRepo:  accountRepo,
		transactor:   transactor,
		dispatcher:   dispatcher,
		retryTracker: retryTracker,
		crm:          crm,
		audit:        audit,
		staffEmail:   staffEmail,
		log:          log,
	}
}

// Process applies one provider event. A nil return acknowledges the
// delivery (including duplicates, stale events, and skipped
// preconditions); an error asks the provider to redeliver.
func (s *ProcessorImpl) Process(ctx context.Context, event *domain.WebhookEvent) error {
	if !event.Type.Known() {
		s.log.Info().
			Str("event_id", event.ProviderEventID).
			Str("type", string(event.Type)).
			Msg("unrecognized event type, acknowledging without processing")
		return nil
	}

	// Layer 1: Redis claim check (best-effort fast path)
	fresh, err := s.claimCache.Claim(ctx, event.ProviderEventID, claimTTL)
	if err != nil {
		s.log.Warn().Err(err).Str("event_id", event.ProviderEventID).Msg("redis claim check failed, falling through to DB")
	} else if !fresh {
		s.log.Info().Str("event_id", event.ProviderEventID).Msg("duplicate event (cache), discarding")
		return nil
	}

	// Layer 2: authoritative DB claim
	claimed, err := s.eventRepo.Claim(ctx, event)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("claim event: %w", err))
	}
	if !claimed {
		s.log.Info().Str("event_id", event.ProviderEventID).Msg("duplicate event (db), discarding")
		return nil
	}

	// Ordering guard: drop stale events, never retry them
	admitted, err := s.cursorRepo.Admit(ctx, event.AggregateID, event.Type.Priority())
	if err != nil {
		s.recordOutcome(ctx, event, domain.OutcomeFailed)
		return apperror.InternalError(fmt.Errorf("admit event: %w", err))
	}
	if !admitted {
		s.log.Info().
			Str("event_id", event.ProviderEventID).
			Str("aggregate_id", event.AggregateID).
			Str("type", string(event.Type)).
			Int("priority", event.Type.Priority()).
			Msg("stale event rejected by ordering guard")
		s.recordOutcome(ctx, event, domain.OutcomeStale)
		return nil
	}

	switch event.Type {
	case domain.EventInvoicePaymentFailed:
		return s.handleInvoicePaymentFailed(ctx, event)
	case domain.EventInvoicePaymentSucceeded, domain.EventInvoicePaid:
		return s.handleInvoicePaymentSucceeded(ctx, event)
	case domain.EventIntentPaymentFailed:
		return s.handleIntentPaymentFailed(ctx, event)
	case domain.EventIntentSucceeded:
		return s.handleIntentSucceeded(ctx, event)
	default:
		// Lifecycle events advance the ordering cursor but carry no
		// domain mutation of their own.
		s.log.Debug().
			Str("event_id", event.ProviderEventID).
			Str("type", string(event.Type)).
			Msg("lifecycle event recorded")
		s.recordOutcome(ctx, event, domain.OutcomeApplied)
		return nil
	}
}

// handleInvoicePaymentFailed runs the grace-period entry transition.
func (s *ProcessorImpl) handleInvoicePaymentFailed(ctx context.Context, event *domain.WebhookEvent) error {
	if domain.IsTerminalSubscriptionStatus(event.SubscriptionStatus) {
		s.log.Info().
			Str("event_id", event.ProviderEventID).
			Str("subscription_status", event.SubscriptionStatus).
			Msg("subscription in terminal state, skipping grace period")
		s.recordOutcome(ctx, event, domain.OutcomeSkipped)
		return nil
	}

	email := domain.NormalizeEmail(event.Email)
	if email == "" {
		s.log.Warn().Str("event_id", event.ProviderEventID).Msg("event carries no member email, skipping")
		s.recordOutcome(ctx, event, domain.OutcomeSkipped)
		return nil
	}

	acct, err := s.accountRepo.GetByEmail(ctx, email)
	if err != nil {
		s.recordOutcome(ctx, event, domain.OutcomeFailed)
		return apperror.InternalError(fmt.Errorf("load account: %w", err))
	}
	if acct == nil {
		s.log.Warn().Str("event_id", event.ProviderEventID).Str("email", email).Msg("no membership account for event, skipping")
		s.recordOutcome(ctx, event, domain.OutcomeSkipped)
		return nil
	}
	if acct.IsDegraded() {
		s.log.Info().
			Str("event_id", event.ProviderEventID).
			Str("status", string(acct.Status)).
			Msg("account already degraded, skipping grace period")
		s.recordOutcome(ctx, event, domain.OutcomeSkipped)
		return nil
	}

	now := time.Now().UTC()
	detail := domain.ExtractFailureDetail(event.PaymentError)

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		s.recordOutcome(ctx, event, domain.OutcomeFailed)
		return apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	rows, err := s.accountRepo.StartGracePeriod(ctx, dbTx, email, now)
	if err != nil {
		s.recordOutcome(ctx, event, domain.OutcomeFailed)
		return apperror.InternalError(fmt.Errorf("start grace period: %w", err))
	}

	queue := NewDeferredQueue(s.log)
	if rows == 1 {
		s.queueNotification(queue, "member grace notification", domain.NotificationPayload{
			UserEmail: email,
			Title:     "Payment issue with your membership",
			Message:   fmt.Sprintf("We could not process your membership payment: %s. Please update your payment details to keep your membership active.", detail.Reason),
			Type:      domain.NotificationPayment,
		})
		if s.staffEmail != "" {
			s.queueNotification(queue, "staff grace notification", domain.NotificationPayload{
				UserEmail: s.staffEmail,
				Title:     "Member entered payment grace period",
				Message:   fmt.Sprintf("Membership payment failed for %s (%s). Grace period started.", email, detail.ErrorCode),
				Type:      domain.NotificationStaffNote,
			})
		}
		s.queueCRMSync(queue, ports.CRMMembershipUpdate{
			Email:            email,
			MembershipStatus: string(domain.MembershipPastDue),
			GracePeriodStart: &now,
			Tags:             []string{"payment_failed"},
		})
		s.queueAudit(queue, event, domain.AuditActionGraceStarted, detail)
	}

	if err := dbTx.Commit(ctx); err != nil {
		s.recordOutcome(ctx, event, domain.OutcomeFailed)
		return apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	queue.Drain(ctx)

	if rows == 1 {
		s.recordOutcome(ctx, event, domain.OutcomeApplied)
		s.log.Info().
			Str("event_id", event.ProviderEventID).
			Str("email", email).
			Msg("grace period started")
	} else {
		// Concurrency-lost race: another delivery already started it.
		s.recordOutcome(ctx, event, domain.OutcomeSkipped)
		s.log.Info().
			Str("event_id", event.ProviderEventID).
			Str("email", email).
			Msg("grace period already active, duplicate notifications suppressed")
	}
	return nil
}

// handleInvoicePaymentSucceeded runs the symmetric reinstatement
// transition and resets the retry counter.
func (s *ProcessorImpl) handleInvoicePaymentSucceeded(ctx context.Context, event *domain.WebhookEvent) error {
	email := domain.NormalizeEmail(event.Email)
	if email == "" {
		s.log.Warn().Str("event_id", event.ProviderEventID).Msg("event carries no member email, skipping")
		s.recordOutcome(ctx, event, domain.OutcomeSkipped)
		return nil
	}

	now := time.Now().UTC()

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		s.recordOutcome(ctx, event, domain.OutcomeFailed)
		return apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	rows, err := s.accountRepo.Reinstate(ctx, dbTx, email, now)
	if err != nil {
		s.recordOutcome(ctx, event, domain.OutcomeFailed)
		return apperror.InternalError(fmt.Errorf("reinstate account: %w", err))
	}

	queue := NewDeferredQueue(s.log)
	if rows == 1 {
		s.queueNotification(queue, "member reinstatement notification", domain.NotificationPayload{
			UserEmail: email,
			Title:     "Payment received",
			Message:   "Thank you — your payment went through and your membership is active again.",
			Type:      domain.NotificationPayment,
		})
		s.queueCRMSync(queue, ports.CRMMembershipUpdate{
			Email:            email,
			MembershipStatus: string(domain.MembershipActive),
			Tags:             []string{"payment_recovered"},
		})
		s.queueAudit(queue, event, domain.AuditActionReinstated, domain.FailureDetail{})
		aggregateID := event.AggregateID
		queue.Add("reset retry counter", func(actionCtx context.Context) {
			if err := s.retryTracker.Reset(actionCtx, aggregateID); err != nil {
				s.log.Warn().Err(err).Str("aggregate_id", aggregateID).Msg("retry counter reset failed")
			}
		})
	}

	if err := dbTx.Commit(ctx); err != nil {
		s.recordOutcome(ctx, event, domain.OutcomeFailed)
		return apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	queue.Drain(ctx)

	if rows == 1 {
		s.recordOutcome(ctx, event, domain.OutcomeApplied)
		s.log.Info().Str("event_id", event.ProviderEventID).Str("email", email).Msg("membership reinstated")
	} else {
		s.recordOutcome(ctx, event, domain.OutcomeSkipped)
	}
	return nil
}

// handleIntentPaymentFailed records the failed attempt and notifies the
// member with escalating urgency. No account mutation happens here.
func (s *ProcessorImpl) handleIntentPaymentFailed(ctx context.Context, event *domain.WebhookEvent) error {
	email := domain.NormalizeEmail(event.Email)
	if email == "" {
		s.log.Warn().Str("event_id", event.ProviderEventID).Msg("event carries no member email, skipping")
		s.recordOutcome(ctx, event, domain.OutcomeSkipped)
		return nil
	}

	attempt, err := s.retryTracker.RecordFailure(ctx, event.AggregateID, event.PaymentError)
	if err != nil {
		s.recordOutcome(ctx, event, domain.OutcomeFailed)
		return apperror.InternalError(fmt.Errorf("record failure: %w", err))
	}

	detail := domain.ExtractFailureDetail(event.PaymentError)

	queue := NewDeferredQueue(s.log)
	if attempt.RequiresCardUpdate {
		s.queueNotification(queue, "card update notification", domain.NotificationPayload{
			UserEmail: email,
			Title:     "Action required: update your card",
			Message:   fmt.Sprintf("Your payment has failed %d times (%s). Please update your card to avoid losing membership access.", attempt.AttemptCount, detail.Reason),
			Type:      domain.NotificationPayment,
		})
	} else {
		s.queueNotification(queue, "payment retry notification", domain.NotificationPayload{
			UserEmail: email,
			Title:     "Payment attempt failed",
			Message:   fmt.Sprintf("A payment attempt did not go through: %s. We will retry automatically.", detail.Reason),
			Type:      domain.NotificationPayment,
		})
	}

	tags := []string{"payment_failed"}
	if attempt.RequiresCardUpdate {
		tags = append(tags, "requires_card_update")
	}
	s.queueCRMSync(queue, ports.CRMMembershipUpdate{
		Email: email,
		Tags:  tags,
		Fields: map[string]string{
			"last_payment_error": detail.ErrorCode,
			"payment_attempts":   fmt.Sprintf("%d", attempt.AttemptCount),
		},
	})
	s.queueAudit(queue, event, domain.AuditActionRetryRecorded, detail)

	queue.Drain(ctx)

	s.recordOutcome(ctx, event, domain.OutcomeApplied)
	return nil
}

// handleIntentSucceeded resets the retry counter for the aggregate.
func (s *ProcessorImpl) handleIntentSucceeded(ctx context.Context, event *domain.WebhookEvent) error {
	if err := s.retryTracker.Reset(ctx, event.AggregateID); err != nil {
		s.log.Warn().Err(err).Str("aggregate_id", event.AggregateID).Msg("retry counter reset failed")
	}
	s.recordOutcome(ctx, event, domain.OutcomeApplied)
	return nil
}

func (s *ProcessorImpl) queueNotification(queue *DeferredQueue, name string, payload domain.NotificationPayload) {
	queue.Add(name, func(actionCtx context.Context) {
		result := s.dispatcher.Dispatch(actionCtx, payload)
		if !result.AllSucceeded {
			s.log.Warn().
				Str("user", payload.UserEmail).
				Interface("delivery_results", result.DeliveryResults).
				Msg("notification delivered partially")
		}
	})
}

func (s *ProcessorImpl) queueCRMSync(queue *DeferredQueue, update ports.CRMMembershipUpdate) {
	queue.Add("crm sync", func(actionCtx context.Context) {
		if err := s.crm.SyncMembership(actionCtx, update); err != nil {
			s.log.Warn().Err(err).Str("email", update.Email).Msg("crm sync failed")
		}
	})
}

func (s *ProcessorImpl) queueAudit(queue *DeferredQueue, event *domain.WebhookEvent, action domain.AuditAction, detail domain.FailureDetail) {
	details, _ := json.Marshal(map[string]string{
		"reason":       detail.Reason,
		"error_code":   detail.ErrorCode,
		"decline_code": detail.DeclineCode,
	})
	entry := &domain.AuditLog{
		ID:           uuid.New(),
		Action:       action,
		AggregateID:  event.AggregateID,
		EventType:    event.Type,
		ResourceType: "membership_account",
		ResourceID:   domain.NormalizeEmail(event.Email),
		Details:      string(details),
		CreatedAt:    time.Now().UTC(),
	}
	queue.Add("audit log", func(actionCtx context.Context) {
		s.audit.Log(actionCtx, entry)
	})
}

// recordOutcome is best-effort bookkeeping; a failure here never affects
// the webhook response.
func (s *ProcessorImpl) recordOutcome(ctx context.Context, event *domain.WebhookEvent, outcome domain.EventOutcome) {
	if err := s.eventRepo.RecordOutcome(ctx, event.ProviderEventID, outcome); err != nil {
		s.log.Warn().Err(err).
			Str("event_id", event.ProviderEventID).
			Str("outcome", string(outcome)).
			Msg("failed to record event outcome")
	}
}
