// Package domain holds the message entity and its status lifecycle.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// MessageStatus follows sent -> delivered -> read. Transitions are
// monotonic: a late "delivered" callback never downgrades a message the
// user already read.
type MessageStatus string

const (
	StatusSent      MessageStatus = "sent"
	StatusDelivered MessageStatus = "delivered"
	StatusRead      MessageStatus = "read"
)

// Rank orders statuses for monotonic updates.
func (s MessageStatus) Rank() int {
	switch s {
	case StatusSent:
		return 1
	case StatusDelivered:
		return 2
	case StatusRead:
		return 3
	}
	return 0
}

type Message struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	ContactID uuid.UUID `json:"contact_id"`
	// SenderID is the actor that sent an outgoing message; for sub-account
	// sends it differs from UserID (the tenant). Nil on inbound.
	SenderID   *uuid.UUID    `json:"sender_id,omitempty"`
	Content    string        `json:"content"`
	IsOutgoing bool          `json:"is_outgoing"`
	FromNumber string        `json:"from_number"`
	ToNumber   string        `json:"to_number"`
	Status     MessageStatus `json:"status"`
	// ProviderMessageID is the carrier-side id; with UserID it forms the
	// dedup key for replayed webhooks.
	ProviderMessageID string    `json:"provider_message_id,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}
