package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// NumberStatus is the lifecycle state of a phone number.
type NumberStatus string

const (
	NumberStatusActive   NumberStatus = "active"
	NumberStatusInactive NumberStatus = "inactive"
)

// NumberType distinguishes local from toll-free numbers.
type NumberType string

const (
	NumberTypeLocal    NumberType = "local"
	NumberTypeTollFree NumberType = "toll_free"
)

// PhoneNumber is a provider number owned by exactly one admin. IsActive marks
// the number currently selected for sending; at most one per owner is true at
// a time. Released numbers go inactive, rows are retained for history.
type PhoneNumber struct {
	ID          uuid.UUID       `json:"id"`
	UserID      uuid.UUID       `json:"user_id"`
	Number      string          `json:"number"` // E.164, globally unique
	Status      NumberStatus    `json:"status"`
	IsActive    bool            `json:"is_active"`
	Type        NumberType      `json:"type"`
	Price       decimal.Decimal `json:"price"` // monthly rental
	PurchasedAt time.Time       `json:"purchased_at"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
