// Package queue hands issued one-time passwords to the delivery side over
// RabbitMQ.  The HTTP request only publishes; a consumer forwards each
// event to a Sender (SMS gateway, mail relay or, by default, the log).
package queue

import "time"

// DefaultOTPQueue is the durable queue OTP events are published to.
const DefaultOTPQueue = "otp.issued"

// OTPIssuedEvent is published when a password reset OTP has been stored.
// It carries the code itself because the consumer is the delivery channel.
type OTPIssuedEvent struct {
	AccountID string    `json:"account_id"`
	Contact   int64     `json:"contact"`
	Email     string    `json:"email,omitempty"`
	OTP       string    `json:"otp"`
	ExpiresAt time.Time `json:"expires_at"`
	IssuedAt  time.Time `json:"issued_at"`
}
