package domain

import "time"

// EventType identifies a provider webhook event.
type EventType string

const (
	EventInvoiceCreated          EventType = "invoice.created"
	EventInvoiceFinalized        EventType = "invoice.finalized"
	EventInvoicePaymentFailed    EventType = "invoice.payment_failed"
	EventInvoicePaymentSucceeded EventType = "invoice.payment_succeeded"
	EventInvoicePaid             EventType = "invoice.paid"
	EventInvoiceVoided           EventType = "invoice.voided"

	EventIntentCreated        EventType = "payment_intent.created"
	EventIntentProcessing     EventType = "payment_intent.processing"
	EventIntentRequiresAction EventType = "payment_intent.requires_action"
	EventIntentPaymentFailed  EventType = "payment_intent.payment_failed"
	EventIntentSucceeded      EventType = "payment_intent.succeeded"
	EventIntentCanceled       EventType = "payment_intent.canceled"
)

// eventPriorities orders event types within an aggregate's lifecycle.
// Terminal outcomes (succeeded/failed/canceled) share a rank on purpose:
// the provider may deliver either first and both must be admitted.
var eventPriorities = map[EventType]int{
	EventInvoiceCreated:          1,
	EventInvoiceFinalized:        2,
	EventInvoicePaymentFailed:    10,
	EventInvoicePaymentSucceeded: 10,
	EventInvoicePaid:             11,
	EventInvoiceVoided:           20,

	EventIntentCreated:        1,
	EventIntentProcessing:     2,
	EventIntentRequiresAction: 3,
	EventIntentPaymentFailed:  10,
	EventIntentSucceeded:      10,
	EventIntentCanceled:       10,
}

// Known reports whether the event type is one this service processes.
func (e EventType) Known() bool {
	_, ok := eventPriorities[e]
	return ok
}

// Priority returns the ordering rank for the event type (0 if unknown).
func (e EventType) Priority() int {
	return eventPriorities[e]
}

// EventOutcome records how a claimed event was ultimately handled.
type EventOutcome string

const (
	OutcomeApplied EventOutcome = "APPLIED"
	OutcomeStale   EventOutcome = "STALE"
	OutcomeSkipped EventOutcome = "SKIPPED"
	OutcomeFailed  EventOutcome = "FAILED"
)

// PaymentErrorDetail carries the provider's last_payment_error fields.
type PaymentErrorDetail struct {
	Message     string `json:"message,omitempty"`
	Code        string `json:"code,omitempty"`
	DeclineCode string `json:"decline_code,omitempty"`
}

// FailureDetail is the normalized failure description used in
// notifications and CRM sync.
type FailureDetail struct {
	Reason      string
	ErrorCode   string
	DeclineCode string
}

// ExtractFailureDetail normalizes an optional provider error, applying
// defaults for absent fields. DeclineCode stays empty when not provided.
func ExtractFailureDetail(perr *PaymentErrorDetail) FailureDetail {
	d := FailureDetail{
		Reason:    "Payment could not be processed",
		ErrorCode: "unknown",
	}
	if perr == nil {
		return d
	}
	if perr.Message != "" {
		d.Reason = perr.Message
	}
	if perr.Code != "" {
		d.ErrorCode = perr.Code
	}
	d.DeclineCode = perr.DeclineCode
	return d
}

// WebhookEvent is an immutable fact describing one provider delivery.
// A given ProviderEventID is applied at most once.
type WebhookEvent struct {
	ProviderEventID    string              `json:"provider_event_id"`
	Type               EventType           `json:"type"`
	AggregateID        string              `json:"aggregate_id"` // subscription or payment-intent ID
	Email              string              `json:"email,omitempty"`
	SubscriptionStatus string              `json:"subscription_status,omitempty"`
	PaymentError       *PaymentErrorDetail `json:"payment_error,omitempty"`
	Payload            []byte              `json:"-"` // raw provider envelope
	ReceivedAt         time.Time           `json:"received_at"`
}

// terminalSubscriptionStatuses are provider-side states in which a grace
// period is meaningless.
var terminalSubscriptionStatuses = map[string]bool{
	"canceled":           true,
	"incomplete_expired": true,
}

// IsTerminalSubscriptionStatus reports whether the provider subscription
// status rules out any further dunning.
func IsTerminalSubscriptionStatus(status string) bool {
	return terminalSubscriptionStatuses[status]
}

// EventTypeStat aggregates processing outcomes per event type.
type EventTypeStat struct {
	EventType EventType    `json:"event_type"`
	Outcome   EventOutcome `json:"outcome"`
	Count     int64        `json:"count"`
}
