// Package queue defines message payloads exchanged over the message broker
// and the background consumer that dispatches them.
package queue

// EmailVerificationEvent is published when an account is registered or asks
// for its confirmation mail to be re-sent. It carries the signed
// verification token so the consumer can build the confirmation link
// without querying the primary database.
type EmailVerificationEvent struct {
	UserID      uint64 `json:"user_id"`
	Email       string `json:"email"`
	Username    string `json:"username"`
	Token       string `json:"token"`
	RequestedAt string `json:"requested_at"`
}
