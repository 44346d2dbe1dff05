package postgres

import (
	"context"

	"club-operations-core/internal/core/domain"
	"club-operations-core/internal/core/ports"
)

type auditRepo struct {
	pool Pool
}

// NewAuditRepository creates a PostgreSQL-backed AuditRepository.
func NewAuditRepository(pool Pool) ports.AuditRepository {
	return &auditRepo{pool: pool}
}

func (r *auditRepo) Create(ctx context.Context, log *domain.AuditLog) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO audit_logs (id, action, aggregate_id, event_type, resource_type, resource_id, details, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		log.ID, string(log.Action), log.AggregateID, string(log.EventType),
		log.ResourceType, log.ResourceID, log.Details, log.CreatedAt,
	)
	return err
}
