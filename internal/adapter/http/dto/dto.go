package dto

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"club-operations-core/internal/core/domain"
)

// WebhookEnvelope is the outer shape of a provider webhook delivery.
type WebhookEnvelope struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Created int64  `json:"created"`
	Data    struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// invoiceObject is the subset of a provider invoice the processor needs.
type invoiceObject struct {
	ID                 string            `json:"id"`
	Subscription       string            `json:"subscription"`
	CustomerEmail      string            `json:"customer_email"`
	SubscriptionStatus string            `json:"subscription_status"`
	Metadata           map[string]string `json:"metadata"`
}

// intentObject is the subset of a provider payment intent the processor needs.
type intentObject struct {
	ID               string            `json:"id"`
	Metadata         map[string]string `json:"metadata"`
	LastPaymentError *struct {
		Message     string `json:"message"`
		Code        string `json:"code"`
		DeclineCode string `json:"decline_code"`
	} `json:"last_payment_error"`
}

// ParseWebhookEnvelope converts a raw provider delivery into a domain
// event. The parser fails closed: any shape it does not recognize is an
// error, and the caller acknowledges without mutating state.
func ParseWebhookEnvelope(body []byte, receivedAt time.Time) (*domain.WebhookEvent, error) {
	var env WebhookEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("unmarshaling envelope: %w", err)
	}
	if env.ID == "" {
		return nil, fmt.Errorf("envelope missing event id")
	}
	if env.Type == "" {
		return nil, fmt.Errorf("envelope missing event type")
	}
	if len(env.Data.Object) == 0 {
		return nil, fmt.Errorf("envelope missing data.object")
	}

	event := &domain.WebhookEvent{
		ProviderEventID: env.ID,
		Type:            domain.EventType(env.Type),
		Payload:         body,
		ReceivedAt:      receivedAt,
	}

	switch {
	case strings.HasPrefix(env.Type, "invoice."):
		var inv invoiceObject
		if err := json.Unmarshal(env.Data.Object, &inv); err != nil {
			return nil, fmt.Errorf("unmarshaling invoice object: %w", err)
		}
		// Events for one subscription must share an aggregate; one-off
		// invoices fall back to the invoice's own ID.
		event.AggregateID = inv.Subscription
		if event.AggregateID == "" {
			event.AggregateID = inv.ID
		}
		event.Email = inv.Metadata["email"]
		if event.Email == "" {
			event.Email = inv.CustomerEmail
		}
		event.SubscriptionStatus = inv.SubscriptionStatus

	case strings.HasPrefix(env.Type, "payment_intent."):
		var pi intentObject
		if err := json.Unmarshal(env.Data.Object, &pi); err != nil {
			return nil, fmt.Errorf("unmarshaling payment intent object: %w", err)
		}
		event.AggregateID = pi.ID
		event.Email = pi.Metadata["email"]
		if pi.LastPaymentError != nil {
			event.PaymentError = &domain.PaymentErrorDetail{
				Message:     pi.LastPaymentError.Message,
				Code:        pi.LastPaymentError.Code,
				DeclineCode: pi.LastPaymentError.DeclineCode,
			}
		}

	default:
		return nil, fmt.Errorf("unrecognized event category %q", env.Type)
	}

	if event.AggregateID == "" {
		return nil, fmt.Errorf("event %s carries no aggregate id", env.ID)
	}

	return event, nil
}

// WebhookAckResponse is the acknowledgement body for webhook deliveries.
type WebhookAckResponse struct {
	Received bool `json:"received"`
}

// PushSubscriptionRequest is the request body for registering a web-push
// subscription (the browser's PushSubscription.toJSON() shape).
type PushSubscriptionRequest struct {
	Endpoint string `json:"endpoint" binding:"required,safe_url,max=2048"`
	Keys     struct {
		P256dh string `json:"p256dh" binding:"required,max=512"`
		Auth   string `json:"auth" binding:"required,max=256"`
	} `json:"keys" binding:"required"`
}

// PushUnsubscribeRequest is the request body for removing a subscription.
type PushUnsubscribeRequest struct {
	Endpoint string `json:"endpoint" binding:"required,safe_url,max=2048"`
}

// NotificationResponse is one notification in API responses.
type NotificationResponse struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Message     string  `json:"message"`
	Type        string  `json:"type"`
	RelatedID   *int64  `json:"related_id,omitempty"`
	RelatedType *string `json:"related_type,omitempty"`
	URL         *string `json:"url,omitempty"`
	Read        bool    `json:"read"`
	CreatedAt   string  `json:"created_at"`
}

// NotificationListResponse wraps a notification list.
type NotificationListResponse struct {
	Items []NotificationResponse `json:"items"`
	Total int                    `json:"total"`
}

// UnreadCountResponse is the response for the unread counter.
type UnreadCountResponse struct {
	Count int64 `json:"count"`
}

// ToNotificationResponse converts a domain notification to its DTO.
func ToNotificationResponse(n domain.Notification) NotificationResponse {
	return NotificationResponse{
		ID:          n.ID,
		Title:       n.Title,
		Message:     n.Message,
		Type:        string(n.Type),
		RelatedID:   n.RelatedID,
		RelatedType: n.RelatedType,
		URL:         n.URL,
		Read:        n.Read,
		CreatedAt:   n.CreatedAt.Format(time.RFC3339),
	}
}
