package domain

import "time"

// NotificationType categorizes notifications for the consuming UI.
type NotificationType string

const (
	NotificationBookingConfirmed  NotificationType = "booking_confirmed"
	NotificationBookingCancelled  NotificationType = "booking_cancelled"
	NotificationBookingReminder   NotificationType = "booking_reminder"
	NotificationEventInvite       NotificationType = "event_invite"
	NotificationEventUpdate       NotificationType = "event_update"
	NotificationEventCancelled    NotificationType = "event_cancelled"
	NotificationWellnessBooked    NotificationType = "wellness_booked"
	NotificationWellnessCancelled NotificationType = "wellness_cancelled"
	NotificationGuestPass         NotificationType = "guest_pass"
	NotificationTourScheduled     NotificationType = "tour_scheduled"
	NotificationPayment           NotificationType = "payment"
	NotificationSystem            NotificationType = "system"
	NotificationStaffNote         NotificationType = "staff_note"
)

// NotificationPayload is the input to a dispatch: one logical
// notification, fanned out across every delivery channel.
type NotificationPayload struct {
	UserEmail   string           `json:"user_email"`
	Title       string           `json:"title"`
	Message     string           `json:"message"`
	Type        NotificationType `json:"type"`
	RelatedID   *int64           `json:"related_id,omitempty"`
	RelatedType string           `json:"related_type,omitempty"`
	URL         string           `json:"url,omitempty"`
}

// Notification is the persisted record created by the database channel.
type Notification struct {
	ID          int64            `json:"id"`
	UserEmail   string           `json:"user_email"`
	Title       string           `json:"title"`
	Message     string           `json:"message"`
	Type        NotificationType `json:"type"`
	RelatedID   *int64           `json:"related_id,omitempty"`
	RelatedType *string          `json:"related_type,omitempty"`
	URL         *string          `json:"url,omitempty"`
	Read        bool             `json:"read"`
	CreatedAt   time.Time        `json:"created_at"`
}

// DeliveryChannel identifies one notification delivery mechanism.
type DeliveryChannel string

const (
	ChannelDatabase  DeliveryChannel = "database"
	ChannelWebSocket DeliveryChannel = "websocket"
	ChannelPush      DeliveryChannel = "push"
)

// DeliveryResult describes one channel's attempt. Exactly one result is
// produced per attempted channel per dispatch.
type DeliveryResult struct {
	Channel DeliveryChannel        `json:"channel"`
	Success bool                   `json:"success"`
	Details map[string]interface{} `json:"details,omitempty"`
	Error   string                 `json:"error,omitempty"`
}

// NotificationResult aggregates every channel's outcome for one dispatch.
// NotificationID is set only when the database channel succeeded.
type NotificationResult struct {
	NotificationID  *int64           `json:"notification_id,omitempty"`
	DeliveryResults []DeliveryResult `json:"delivery_results"`
	AllSucceeded    bool             `json:"all_succeeded"`
}

// PushSubscription is a stored web-push endpoint for a member. The
// client keys are AES-encrypted at rest.
type PushSubscription struct {
	ID        int64     `json:"id"`
	UserEmail string    `json:"user_email"`
	Endpoint  string    `json:"endpoint"`
	P256dhEnc string    `json:"-"`
	AuthEnc   string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}
