package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of audited transition.
type AuditAction string

const (
	AuditActionGraceStarted  AuditAction = "GRACE_STARTED"
	AuditActionReinstated    AuditAction = "REINSTATED"
	AuditActionRetryRecorded AuditAction = "RETRY_RECORDED"
	AuditActionEventApplied  AuditAction = "EVENT_APPLIED"
)

// AuditLog records a single applied webhook transition.
type AuditLog struct {
	ID           uuid.UUID   `json:"id"`
	Action       AuditAction `json:"action"`
	AggregateID  string      `json:"aggregate_id"`
	EventType    EventType   `json:"event_type"`
	ResourceType string      `json:"resource_type"`
	ResourceID   string      `json:"resource_id,omitempty"`
	Details      string      `json:"details,omitempty"` // JSON string
	CreatedAt    time.Time   `json:"created_at"`
}
