package domain

// MaxRetryAttempts is the failure count at which a member is asked to
// update their card.
const MaxRetryAttempts = 3

// PaymentAttempt is the derived retry state for one payment aggregate.
type PaymentAttempt struct {
	AggregateID        string `json:"aggregate_id"`
	AttemptCount       int    `json:"attempt_count"`
	LastErrorCode      string `json:"last_error_code,omitempty"`
	LastDeclineCode    string `json:"last_decline_code,omitempty"`
	RequiresCardUpdate bool   `json:"requires_card_update"`
}

// NewPaymentAttempt derives retry state from a counter value and the
// provider's error detail.
func NewPaymentAttempt(aggregateID string, attempts int, detail FailureDetail) PaymentAttempt {
	if attempts < 1 {
		attempts = 1
	}
	return PaymentAttempt{
		AggregateID:        aggregateID,
		AttemptCount:       attempts,
		LastErrorCode:      detail.ErrorCode,
		LastDeclineCode:    detail.DeclineCode,
		RequiresCardUpdate: attempts >= MaxRetryAttempts,
	}
}
