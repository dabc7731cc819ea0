package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Wallet is a prepaid balance owned by one admin (or held by a sub-account
// and funded via transfers). Balance is a cached projection of the
// transaction log, updated in the same database transaction as each append.
type Wallet struct {
	ID               uuid.UUID       `json:"id"`
	UserID           uuid.UUID       `json:"user_id"`
	Balance          decimal.Decimal `json:"balance"`
	Currency         string          `json:"currency"`
	MonthlyLimit     decimal.Decimal `json:"monthly_limit"`
	IsActive         bool            `json:"is_active"`
	ServiceSuspended bool            `json:"service_suspended"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// NewWallet creates a zero-balance active wallet for an owner.
func NewWallet(userID uuid.UUID, currency string) *Wallet {
	now := time.Now().UTC()
	return &Wallet{
		ID:           uuid.New(),
		UserID:       userID,
		Balance:      decimal.Zero,
		Currency:     currency,
		MonthlyLimit: decimal.Zero,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
