// Package domain holds the contact entity. A contact is a conversation
// partner scoped to one tenant: the same external phone number texting two
// different tenants yields two independent contact rows.
package domain

import (
	"time"

	"github.com/google/uuid"
)

type Contact struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	PhoneNumber string    `json:"phone_number"`
	Name        string    `json:"name"`
	Avatar      string    `json:"avatar,omitempty"`
	// UnreadCount counts inbound messages not yet read in this conversation.
	// It is maintained in the same transaction as the message writes so a
	// badge never disagrees with the thread.
	UnreadCount int       `json:"unread_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewContact builds a contact for a tenant. Name defaults to the phone
// number when the caller has nothing better.
func NewContact(userID uuid.UUID, phoneNumber, name string) *Contact {
	if name == "" {
		name = phoneNumber
	}
	now := time.Now().UTC()
	return &Contact{
		ID:          uuid.New(),
		UserID:      userID,
		PhoneNumber: phoneNumber,
		Name:        name,
		UnreadCount: 0,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
