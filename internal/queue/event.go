// Package queue defines message payloads exchanged over the message broker.
package queue

// NotificationQueueName is the durable queue carrying outbound identity
// notifications (verification links, OTP codes, password-reset links).
const NotificationQueueName = "auth.notification"

// Notification channels.
const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
)

// NotificationEvent is published whenever the identity service needs to
// reach a user out of band. The Secret field carries the raw link token
// or OTP code; it exists only in flight and in the delivery gateway,
// never at rest in the primary stores.
type NotificationEvent struct {
	UserID      uint64 `json:"user_id"`
	Identifier  string `json:"identifier"`
	Channel     string `json:"channel"` // email | sms
	Purpose     string `json:"purpose"` // email-verify | phone-otp | password-reset
	Secret      string `json:"secret"`
	ExpiresAt   string `json:"expires_at"`
	RequestedAt string `json:"requested_at"`
}
