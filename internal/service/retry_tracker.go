package service

import (
	"context"

	"club-operations-core/internal/core/domain"
	"club-operations-core/internal/core/ports"

	"github.com/rs/zerolog"
)

// RetryTrackerImpl implements ports.RetryTracker on top of an atomic
// counter store.
type RetryTrackerImpl struct {
	store ports.AttemptStore
	log   zerolog.Logger
}

// NewRetryTracker creates a new RetryTrackerImpl.
func NewRetryTracker(store ports.AttemptStore, log zerolog.Logger) *RetryTrackerImpl {
	return &RetryTrackerImpl{store: store, log: log}
}

// RecordFailure bumps the failure counter for the aggregate and derives
// escalation state. A counter-store failure is not fatal: the attempt
// is treated as the first so the member still gets notified.
func (t *RetryTrackerImpl) RecordFailure(ctx context.Context, aggregateID string, perr *domain.PaymentErrorDetail) (domain.PaymentAttempt, error) {
	detail := domain.ExtractFailureDetail(perr)

	count, err := t.store.Increment(ctx, aggregateID)
	if err != nil {
		t.log.Warn().Err(err).
			Str("aggregate_id", aggregateID).
			Msg("retry counter unavailable, assuming first attempt")
		count = 1
	}

	attempt := domain.NewPaymentAttempt(aggregateID, count, detail)
	t.log.Info().
		Str("aggregate_id", aggregateID).
		Int("attempt", attempt.AttemptCount).
		Bool("requires_card_update", attempt.RequiresCardUpdate).
		Str("error_code", attempt.LastErrorCode).
		Msg("payment failure recorded")

	return attempt, nil
}

// Reset clears the failure counter after a successful payment.
func (t *RetryTrackerImpl) Reset(ctx context.Context, aggregateID string) error {
	if err := t.store.Reset(ctx, aggregateID); err != nil {
		t.log.Warn().Err(err).Str("aggregate_id", aggregateID).Msg("failed to reset retry counter")
		return err
	}
	return nil
}
