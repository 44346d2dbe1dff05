package postgres

import (
	"context"
	"fmt"

	"club-operations-core/internal/core/domain"
)

// EventRepo implements ports.EventRepository. The unique index on
// provider_event_id makes Claim the authoritative dedup decision:
// under concurrent redelivery exactly one insert lands.
type EventRepo struct {
	pool Pool
}

// NewEventRepo creates a new EventRepo.
func NewEventRepo(pool Pool) *EventRepo {
	return &EventRepo{pool: pool}
}

// Claim records the event, returning true only for the first delivery
// of a given provider event ID.
func (r *EventRepo) Claim(ctx context.Context, event *domain.WebhookEvent) (bool, error) {
	query := `INSERT INTO webhook_events (provider_event_id, event_type, aggregate_id, payload, outcome, received_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (provider_event_id) DO NOTHING`

	tag, err := r.pool.Exec(ctx, query,
		event.ProviderEventID, string(event.Type), event.AggregateID,
		event.Payload, string(domain.OutcomeApplied), event.ReceivedAt,
	)
	if err != nil {
		return false, fmt.Errorf("claim webhook event: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// RecordOutcome updates how the claimed event was ultimately handled.
func (r *EventRepo) RecordOutcome(ctx context.Context, providerEventID string, outcome domain.EventOutcome) error {
	query := `UPDATE webhook_events SET outcome = $1 WHERE provider_event_id = $2`

	_, err := r.pool.Exec(ctx, query, string(outcome), providerEventID)
	if err != nil {
		return fmt.Errorf("record event outcome: %w", err)
	}
	return nil
}

// Stats returns processed-event counts grouped by type and outcome.
func (r *EventRepo) Stats(ctx context.Context) ([]domain.EventTypeStat, error) {
	query := `SELECT event_type, outcome, COUNT(*) FROM webhook_events
		GROUP BY event_type, outcome
		ORDER BY event_type, outcome`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query event stats: %w", err)
	}
	defer rows.Close()

	var stats []domain.EventTypeStat
	for rows.Next() {
		var s domain.EventTypeStat
		if err := rows.Scan(&s.EventType, &s.Outcome, &s.Count); err != nil {
			return nil, fmt.Errorf("scan event stat: %w", err)
		}
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event stats: %w", err)
	}
	return stats, nil
}
